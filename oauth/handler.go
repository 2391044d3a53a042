package oauth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	lru "github.com/hashicorp/golang-lru/v2"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
)

const genericFailureMessage = "Sign-in failed. Please try again."

// DefaultProcessedLimit is how many distinct redirects a Handler remembers.
const DefaultProcessedLimit = 32

// SessionSetter is the session operation a completed redirect calls.
type SessionSetter interface {
	SetAuthenticatedSession(tokens session.Tokens, user *session.User) error
}

// Scheduler runs f after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func())
}

// SchedulerFunc adapts a function to the Scheduler interface.
type SchedulerFunc func(d time.Duration, f func())

// AfterFunc implements Scheduler.
func (fn SchedulerFunc) AfterFunc(d time.Duration, f func()) {
	fn(d, f)
}

type timerScheduler struct{}

func (timerScheduler) AfterFunc(d time.Duration, f func()) {
	time.AfterFunc(d, f)
}

// Outcome is the result of completing a redirect.
type Outcome struct {
	Success   bool
	Message   string
	Location  string
	Delay     time.Duration
	IsNewUser bool
	Provider  string
	Err       error
	// Duplicate is set on the cached outcome returned for a repeated redirect.
	Duplicate bool
}

// Option configures a Handler.
type Option func(*Handler)

// WithScheduler overrides how the delayed error redirect is scheduled.
func WithScheduler(s Scheduler) Option {
	return func(h *Handler) {
		if s != nil {
			h.scheduler = s
		}
	}
}

// WithNotifier sets where success and failure messages are surfaced.
func WithNotifier(n session.Notifier) Option {
	return func(h *Handler) {
		if n != nil {
			h.notifier = n
		}
	}
}

// WithReturnToStash sets the stash consulted for the post sign-in location.
func WithReturnToStash(s *ReturnToStash) Option {
	return func(h *Handler) {
		h.stash = s
	}
}

// WithProcessedLimit bounds how many distinct redirects are remembered for duplicate
// detection. The least recently seen one is forgotten first.
func WithProcessedLimit(n int) Option {
	return func(h *Handler) {
		if n > 0 {
			h.processedLimit = n
		}
	}
}

// WithLogger overrides the handler logger.
func WithLogger(logger session.Logger) Option {
	return func(h *Handler) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// Handler completes provider redirects. Each distinct redirect is processed once;
// repeated invocations with the same parameters return the first Outcome and have no
// side effects.
type Handler struct {
	session      SessionSetter
	navigator    session.Navigator
	notifier     session.Notifier
	scheduler    Scheduler
	stash        *ReturnToStash
	logger       session.Logger
	loginRoute   string
	defaultRoute string
	delay        time.Duration

	mu             sync.Mutex
	processed      *lru.Cache[string, Outcome]
	processedLimit int
}

// NewHandler creates a handler using the routes and delay from cfg.
func NewHandler(cfg session.Config, sess SessionSetter, nav session.Navigator, opts ...Option) *Handler {
	h := &Handler{
		session:        sess,
		navigator:      nav,
		notifier:       nopNotifier{},
		scheduler:      timerScheduler{},
		logger:         session.NopLogger(),
		loginRoute:     session.DefaultLoginRoute,
		defaultRoute:   session.DefaultRoute,
		delay:          3 * time.Second,
		processedLimit: DefaultProcessedLimit,
	}

	if cfg != nil {
		if r := cfg.GetLoginRoute(); r != "" {
			h.loginRoute = r
		}
		if r := cfg.GetDefaultRoute(); r != "" {
			h.defaultRoute = r
		}
		if d := cfg.GetOAuthErrorRedirectDelay(); d > 0 {
			h.delay = d
		}
	}

	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}

	// only fails for a non-positive size
	h.processed, _ = lru.New[string, Outcome](h.processedLimit)
	return h
}

// Complete processes the redirect query q.
func (h *Handler) Complete(ctx context.Context, q url.Values) Outcome {
	key := Fingerprint(q)

	h.mu.Lock()
	if prev, ok := h.processed.Get(key); ok {
		h.mu.Unlock()
		h.logger.Debug("oauth redirect already processed", "fingerprint", key[:12])
		prev.Duplicate = true
		return prev
	}

	out := h.process(ctx, ParseCallback(q))
	if !out.Success && h.stash != nil {
		// a failed sign-in must not send a later one to this location
		_ = h.stash.Take()
	}
	h.processed.Add(key, out)
	h.mu.Unlock()

	h.apply(out)
	return out
}

func (h *Handler) process(ctx context.Context, res CallbackResult) (out Outcome) {
	if res.Failed() {
		h.logger.Info("oauth provider returned an error", "error", res.Error, "provider", res.Provider)
		return h.failure(res.ErrorMessage(), providerError(res))
	}

	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("oauth completion panicked", "panic", r)
			out = h.failure(genericFailureMessage, wrapError(ErrCompletionFailed, fmt.Errorf("panic: %v", r)))
		}
	}()

	if err := ctx.Err(); err != nil {
		return h.failure(genericFailureMessage, err)
	}

	if err := res.Validate(); err != nil {
		h.logger.Warn("oauth redirect missing required fields", "error", err)
		return h.failure("Invalid response from sign-in provider. Please try again.", wrapError(ErrInvalidCallback, err))
	}

	user := res.User()
	if err := h.session.SetAuthenticatedSession(res.Tokens(), user); err != nil {
		h.logger.Error("failed to establish session from oauth redirect", "user_id", user.ID, "error", err)
		return h.failure(genericFailureMessage, wrapError(ErrCompletionFailed, err))
	}

	location := h.defaultRoute
	if h.stash != nil {
		location = session.ResumeLocation(h.stash.Take(), h.defaultRoute)
	}

	name := user.Name()
	msg := "Welcome back, " + name + "!"
	if res.IsNewUser {
		msg = "Welcome to the platform, " + name + "!"
	}

	return Outcome{
		Success:   true,
		Message:   msg,
		Location:  location,
		IsNewUser: res.IsNewUser,
		Provider:  res.Provider,
	}
}

func (h *Handler) failure(msg string, err error) Outcome {
	if msg == "" {
		msg = genericFailureMessage
	}
	return Outcome{
		Message:  msg,
		Location: h.loginRoute,
		Delay:    h.delay,
		Err:      err,
	}
}

// apply performs the notification and navigation of a freshly processed outcome.
func (h *Handler) apply(out Outcome) {
	if out.Success {
		h.notifier.Success(out.Message)
		h.navigate(out.Location)
		return
	}

	h.notifier.Error(out.Message)
	location := out.Location
	h.scheduler.AfterFunc(out.Delay, func() {
		h.navigate(location)
	})
}

func (h *Handler) navigate(location string) {
	if h.navigator != nil {
		h.navigator.Navigate(location)
	}
}

// Fingerprint identifies a redirect by its parameters, independent of their order.
func Fingerprint(q url.Values) string {
	keys := make([]string, 0, len(q))
	for k := range q {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	sum := sha256.New()
	for _, k := range keys {
		vals := append([]string(nil), q[k]...)
		sort.Strings(vals)
		for _, v := range vals {
			fmt.Fprintf(sum, "%s=%s\n", k, v)
		}
	}
	return hex.EncodeToString(sum.Sum(nil))
}

func providerError(res CallbackResult) error {
	return ErrProviderError.Clone().WithMetadata(map[string]any{
		"error":    res.Error,
		"provider": res.Provider,
	})
}

// wrapError returns a copy of sentinel carrying err as its source, so the sentinel's
// category and text code survive while errors.Is still reaches err.
func wrapError(sentinel *goerrors.Error, err error) error {
	clone := sentinel.Clone()
	clone.Source = err
	return clone
}

type nopNotifier struct{}

func (nopNotifier) Success(string) {}
func (nopNotifier) Error(string)   {}
