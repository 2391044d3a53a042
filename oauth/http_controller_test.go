package oauth_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
	"github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000/oauth"
)

// routerContext lets fakes embed router.Context without clashing with their Context method.
type routerContext = router.Context

// responseContext records what a handler writes back.
type responseContext struct {
	routerContext
	path    string
	queries map[string]string

	headers    map[string]string
	status     int
	jsonStatus int
	jsonBody   any
}

func newResponseContext(path string, queries map[string]string) *responseContext {
	return &responseContext{path: path, queries: queries, headers: map[string]string{}}
}

func (c *responseContext) Path() string               { return c.path }
func (c *responseContext) Queries() map[string]string { return c.queries }
func (c *responseContext) Context() context.Context   { return context.Background() }
func (c *responseContext) Header(key string) string   { return c.headers[key] }

func (c *responseContext) SetHeader(key, val string) router.ResponseWriter {
	c.headers[key] = val
	return c
}

func (c *responseContext) NoContent(code int) error {
	c.status = code
	return nil
}

func (c *responseContext) JSON(code int, val any) error {
	c.jsonStatus = code
	c.jsonBody = val
	return nil
}

func (c *responseContext) redirect() string { return c.headers["Location"] }

func TestHTTPControllerRedirectsOnSuccess(t *testing.T) {
	f := newHandlerFixture(&sessionSetterStub{})
	c := oauth.NewHTTPController(f.handler, oauth.HTTPConfig{})

	ctx := newResponseContext("/auth/callback", map[string]string{
		"success":       "true",
		"access_token":  "a",
		"refresh_token": "r",
		"user_id":       "u1",
		"display_name":  "Lin",
	})
	require.NoError(t, c.Callback(ctx))

	assert.Equal(t, session.DefaultRoute, ctx.redirect())
	assert.Equal(t, http.StatusSeeOther, ctx.status)
	assert.Equal(t, 1, f.setter.calls)
	assert.Equal(t, "Lin", f.setter.users[0].DisplayName)
}

func TestHTTPControllerReportsFailure(t *testing.T) {
	f := newHandlerFixture(&sessionSetterStub{})
	c := oauth.NewHTTPController(f.handler, oauth.HTTPConfig{})

	ctx := newResponseContext("/auth/callback", map[string]string{"error": "access_denied"})
	require.NoError(t, c.Callback(ctx))

	assert.Empty(t, ctx.redirect())
	assert.Equal(t, "3; url=/login", ctx.headers["Refresh"])
	assert.Equal(t, http.StatusUnauthorized, ctx.jsonStatus)
	assert.Equal(t, map[string]any{
		"success":  false,
		"message":  "Sign-in was cancelled.",
		"redirect": "/login",
		"delay":    3,
	}, ctx.jsonBody)
}
