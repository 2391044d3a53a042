package session

import (
	"net/url"
	"strings"
)

// DecisionKind is what a page should do for the current session.
type DecisionKind string

const (
	DecisionLoading  DecisionKind = "loading"
	DecisionRender   DecisionKind = "render"
	DecisionRedirect DecisionKind = "redirect"
	DecisionFallback DecisionKind = "fallback"
)

// ReturnToParam is the login query parameter carrying the attempted location.
const ReturnToParam = "from"

// Requirements is the access a page declares.
type Requirements struct {
	RequireAuthenticated bool
	RequireRole          Role
	RequirePermission    Permission
	// Fallback is rendered instead of redirecting to the unauthorized page when a role
	// or permission check fails.
	Fallback any
}

// Decision is the outcome of evaluating Requirements.
type Decision struct {
	Kind     DecisionKind
	Location string
	ReturnTo string
	Fallback any
}

// Guard evaluates page requirements against a session Snapshot. It has no side effects.
type Guard struct {
	loginRoute        string
	unauthorizedRoute string
	permissions       PermissionChecker
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithPermissionChecker replaces the default permission set.
func WithPermissionChecker(pc PermissionChecker) GuardOption {
	return func(g *Guard) {
		if pc != nil {
			g.permissions = pc
		}
	}
}

// NewGuard creates a guard using the routes from cfg. A nil cfg uses the defaults.
func NewGuard(cfg Config, opts ...GuardOption) *Guard {
	g := &Guard{
		loginRoute:        DefaultLoginRoute,
		unauthorizedRoute: DefaultUnauthorizedRoute,
		permissions:       DefaultPermissions(),
	}
	if cfg != nil {
		g.loginRoute = firstNonEmpty(cfg.GetLoginRoute(), g.loginRoute)
		g.unauthorizedRoute = firstNonEmpty(cfg.GetUnauthorizedRoute(), g.unauthorizedRoute)
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

var defaultGuard = NewGuard(nil)

// Evaluate decides with the default routes and permissions.
func Evaluate(snap Snapshot, location string, req Requirements) Decision {
	return defaultGuard.Evaluate(snap, location, req)
}

// Allowed reports whether the role and permission checks of req pass, using the
// default permissions.
func Allowed(snap Snapshot, req Requirements) bool {
	return defaultGuard.Allowed(snap, req)
}

// Evaluate returns what a page at location should do.
func (g *Guard) Evaluate(snap Snapshot, location string, req Requirements) Decision {
	if snap.IsLoading {
		return Decision{Kind: DecisionLoading}
	}

	if req.RequireAuthenticated && !snap.IsAuthenticated {
		return Decision{
			Kind:     DecisionRedirect,
			Location: g.LoginURL(location),
			ReturnTo: location,
		}
	}

	if !g.Allowed(snap, req) {
		if req.Fallback != nil {
			return Decision{Kind: DecisionFallback, Fallback: req.Fallback}
		}
		return Decision{Kind: DecisionRedirect, Location: g.unauthorizedRoute}
	}

	return Decision{Kind: DecisionRender}
}

// Allowed applies the role and permission checks of req without any redirect logic.
func (g *Guard) Allowed(snap Snapshot, req Requirements) bool {
	if req.RequireRole != "" {
		if !snap.IsAuthenticated || !HasRole(snap.User, req.RequireRole) {
			return false
		}
	}
	if req.RequirePermission != "" {
		if !snap.IsAuthenticated || !g.permissions.Can(snap.User, req.RequirePermission) {
			return false
		}
	}
	return true
}

// LoginURL returns the login route carrying location as the return path.
func (g *Guard) LoginURL(location string) string {
	location = ResumeLocation(location, "")
	if location == "" {
		return g.loginRoute
	}
	return LoginLocation(g.loginRoute, url.Values{ReturnToParam: {location}})
}

// Conditional returns content when the checks of req pass and fallback otherwise. It
// never redirects and is meant for inline gating such as menu entries. Loading
// sessions get the fallback.
func Conditional[T any](snap Snapshot, req Requirements, content, fallback T) T {
	if snap.IsLoading {
		return fallback
	}
	if req.RequireAuthenticated && !snap.IsAuthenticated {
		return fallback
	}
	if !Allowed(snap, req) {
		return fallback
	}
	return content
}

// ResumeLocation returns from when it is a safe in-app path and def otherwise.
// Absolute and protocol relative URLs are rejected.
func ResumeLocation(from, def string) string {
	from = strings.TrimSpace(from)
	if from == "" || !strings.HasPrefix(from, "/") || strings.HasPrefix(from, "//") || strings.Contains(from, `\`) {
		return def
	}
	u, err := url.Parse(from)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return def
	}
	return from
}
