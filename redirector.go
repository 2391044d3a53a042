package session

import (
	"net/url"
	"strings"
)

// Redirector is the top level listener that turns a forced logout into navigation. It
// is the only component that navigates on behalf of the request pipeline.
type Redirector struct {
	navigator  Navigator
	notifier   Notifier
	loginRoute string
	message    string
	logger     Logger
}

// RedirectorOption configures a Redirector.
type RedirectorOption func(*Redirector)

// WithRedirectorNotifier surfaces the logout message through n as well.
func WithRedirectorNotifier(n Notifier) RedirectorOption {
	return func(r *Redirector) {
		if n != nil {
			r.notifier = n
		}
	}
}

// WithRedirectorLogger overrides the redirector logger.
func WithRedirectorLogger(logger Logger) RedirectorOption {
	return func(r *Redirector) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRedirector creates a redirector using the routes and message from cfg.
func NewRedirector(cfg Config, nav Navigator, opts ...RedirectorOption) *Redirector {
	r := &Redirector{
		navigator:  nav,
		notifier:   noopNotifier{},
		loginRoute: firstNonEmpty(cfg.GetLoginRoute(), DefaultLoginRoute),
		message:    firstNonEmpty(cfg.GetSessionExpiredMessage(), DefaultSessionExpiredMessage),
		logger:     defLogger(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Attach subscribes the redirector to m and returns the unsubscribe function.
func (r *Redirector) Attach(m *Manager) func() {
	return m.Subscribe(r.OnChange)
}

// OnChange implements Listener.
func (r *Redirector) OnChange(change Change) {
	if change.Reason != ChangeForcedLogout || change.From == change.To {
		return
	}

	msg := strings.TrimSpace(change.Message)
	if msg == "" {
		msg = r.message
	}

	location := LoginLocation(r.loginRoute, url.Values{"message": {msg}})
	r.logger.Debug("redirecting after forced logout", "location", location)

	r.notifier.Error(msg)
	if r.navigator != nil {
		r.navigator.Navigate(location)
	}
}

// LoginLocation appends query to the login route.
func LoginLocation(loginRoute string, query url.Values) string {
	if loginRoute == "" {
		loginRoute = DefaultLoginRoute
	}
	if len(query) == 0 {
		return loginRoute
	}
	sep := "?"
	if strings.Contains(loginRoute, "?") {
		sep = "&"
	}
	return loginRoute + sep + query.Encode()
}
