package session

import (
	"context"
	"time"
)

// Logger is the logging contract used across the package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Config holds session engine options
type Config interface {
	GetBaseURL() string
	GetEndpoints() Endpoints
	GetRequestTimeout() time.Duration
	GetLoginRoute() string
	GetUnauthorizedRoute() string
	GetDefaultRoute() string
	GetSessionExpiredMessage() string
	GetOAuthErrorRedirectDelay() time.Duration
	GetResendVerificationInterval() time.Duration
	GetStorageNamespace() string
}

// Navigator performs UI navigation. Front ends provide the implementation: a browser
// bridge, a server side redirect, or a CLI that prints the next step.
type Navigator interface {
	Navigate(location string)
}

// NavigatorFunc adapts a function to the Navigator interface.
type NavigatorFunc func(location string)

// Navigate implements Navigator.
func (f NavigatorFunc) Navigate(location string) {
	if f != nil {
		f(location)
	}
}

// Notifier surfaces user visible messages.
type Notifier interface {
	Success(msg string)
	Error(msg string)
}

// TokenSource returns the access token to attach to outgoing requests.
type TokenSource interface {
	AccessToken() string
}

// InvalidationHandler receives the single event the request pipeline emits when the
// backend rejects the current credentials.
type InvalidationHandler interface {
	Invalidate(event InvalidationEvent) bool
}

// InvalidationHandlerFunc adapts a function to the InvalidationHandler interface.
type InvalidationHandlerFunc func(event InvalidationEvent) bool

// Invalidate implements InvalidationHandler.
func (f InvalidationHandlerFunc) Invalidate(event InvalidationEvent) bool {
	if f == nil {
		return false
	}
	return f(event)
}

// API is the remote contract the session manager depends on.
type API interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResponse, error)
	Register(ctx context.Context, req RegisterRequest) (map[string]any, error)
	VerifyEmail(ctx context.Context, token string) (map[string]any, error)
	ResendVerification(ctx context.Context, email string) (map[string]any, error)
	CurrentUser(ctx context.Context) (*User, error)
	CurrentUserWithToken(ctx context.Context, accessToken string) (*User, error)
}

type noopNotifier struct{}

func (noopNotifier) Success(string) {}
func (noopNotifier) Error(string)   {}
