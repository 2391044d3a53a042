package guard

import (
	"net/http"

	"github.com/goliatone/go-router"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
)

// SessionSource provides the session the guard evaluates. *session.Manager implements it.
type SessionSource interface {
	Snapshot() session.Snapshot
}

// FallbackHandler renders the fallback declared by a page's requirements.
type FallbackHandler func(ctx router.Context, fallback any) error

type Config struct {
	Filter       func(router.Context) bool
	Session      SessionSource
	Requirements session.Requirements
	// Guard evaluates the requirements; defaults to session.NewGuard(nil)
	Guard *session.Guard
	// ContextKey is the context store key the snapshot is stored under
	ContextKey string

	SuccessHandler  router.HandlerFunc
	LoadingHandler  router.HandlerFunc
	FallbackHandler FallbackHandler
}

// New returns a middleware that enforces cfg.Requirements on every request.
func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			snap := cfg.Session.Snapshot()
			decision := cfg.Guard.Evaluate(snap, session.RequestURI(ctx), cfg.Requirements)

			switch decision.Kind {
			case session.DecisionLoading:
				return cfg.LoadingHandler(ctx)
			case session.DecisionRedirect:
				return session.Redirect(ctx, decision.Location)
			case session.DecisionFallback:
				return cfg.FallbackHandler(ctx, decision.Fallback)
			}

			ctx.Set(cfg.ContextKey, snap)
			ctx.SetContext(session.WithContext(ctx.Context(), snap))

			return cfg.SuccessHandler(ctx)
		}
	}
}

// RequireAuthenticated guards a route that only needs a signed in user.
func RequireAuthenticated(src SessionSource) router.MiddlewareFunc {
	return New(Config{
		Session:      src,
		Requirements: session.Requirements{RequireAuthenticated: true},
	})
}

// RequireRole guards a route that needs at least role.
func RequireRole(src SessionSource, role session.Role) router.MiddlewareFunc {
	return New(Config{
		Session:      src,
		Requirements: session.Requirements{RequireAuthenticated: true, RequireRole: role},
	})
}

// RequirePermission guards a route that needs perm.
func RequirePermission(src SessionSource, perm session.Permission) router.MiddlewareFunc {
	return New(Config{
		Session:      src,
		Requirements: session.Requirements{RequireAuthenticated: true, RequirePermission: perm},
	})
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Session == nil {
		panic("SESSION: guard middleware configuration: Session is required.")
	}

	if cfg.Guard == nil {
		cfg.Guard = session.NewGuard(nil)
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = session.LocalsKey
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.LoadingHandler == nil {
		cfg.LoadingHandler = func(ctx router.Context) error {
			ctx.SetHeader("Retry-After", "1")
			return ctx.Status(http.StatusServiceUnavailable).Send([]byte("Loading"))
		}
	}

	if cfg.FallbackHandler == nil {
		cfg.FallbackHandler = func(ctx router.Context, fallback any) error {
			if s, ok := fallback.(string); ok {
				return ctx.Status(http.StatusForbidden).Send([]byte(s))
			}
			return ctx.JSON(http.StatusForbidden, fallback)
		}
	}

	return cfg
}
