package session_test

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
)

func TestRedirectorIgnoresOrdinaryChanges(t *testing.T) {
	nav := &recordingNavigator{}
	r := session.NewRedirector(session.DefaultOptions(), nav, session.WithRedirectorLogger(session.NopLogger()))

	r.OnChange(session.Change{From: session.StateAuthenticated, To: session.StateUnauthenticated, Reason: session.ChangeLoggedOut})
	r.OnChange(session.Change{From: session.StateAuthenticating, To: session.StateUnauthenticated, Reason: session.ChangeLoginFailed})
	// a forced logout that changed nothing was already handled
	r.OnChange(session.Change{From: session.StateUnauthenticated, To: session.StateUnauthenticated, Reason: session.ChangeForcedLogout})

	assert.Empty(t, nav.Locations())
}

func TestRedirectorUsesConfiguredRouteAndMessage(t *testing.T) {
	opts := session.DefaultOptions()
	opts.LoginRoute = "/auth?mode=signin"
	opts.SessionExpiredMessage = "Signed out"

	nav := &recordingNavigator{}
	r := session.NewRedirector(opts, nav, session.WithRedirectorLogger(session.NopLogger()))

	r.OnChange(session.Change{From: session.StateAuthenticated, To: session.StateUnauthenticated, Reason: session.ChangeForcedLogout})

	assert.Equal(t, []string{"/auth?mode=signin&message=Signed+out"}, nav.Locations())
}

func TestLoginLocation(t *testing.T) {
	assert.Equal(t, "/login", session.LoginLocation("", nil))
	assert.Equal(t, "/login?from=%2Fchat", session.LoginLocation("/login", url.Values{"from": {"/chat"}}))
}
