package oauth

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/goliatone/go-router"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
)

// RouteRegistrar captures the router methods used by the controller.
type RouteRegistrar interface {
	Get(path string, handler router.HandlerFunc, mw ...router.MiddlewareFunc) router.RouteInfo
}

// HTTPConfig configures the HTTP controller.
type HTTPConfig struct {
	// CallbackPath is the provider redirect target (default: "/auth/callback")
	CallbackPath string
}

// HTTPController serves the provider redirect for server rendered front ends.
type HTTPController struct {
	handler *Handler
	config  HTTPConfig
}

// NewHTTPController creates a controller around h.
func NewHTTPController(h *Handler, cfg HTTPConfig) *HTTPController {
	if cfg.CallbackPath == "" {
		cfg.CallbackPath = "/auth/callback"
	}
	return &HTTPController{handler: h, config: cfg}
}

// RegisterRoutes mounts the callback route.
func (c *HTTPController) RegisterRoutes(r RouteRegistrar) {
	r.Get(c.config.CallbackPath, c.Callback)
}

// Callback completes the redirect. Successful sign-ins redirect right away; failures
// show the message and ask the browser to move on to the login page after the delay.
func (c *HTTPController) Callback(ctx router.Context) error {
	q := url.Values{}
	for k, v := range ctx.Queries() {
		q.Set(k, v)
	}

	out := c.handler.Complete(ctx.Context(), q)
	if out.Success {
		return session.Redirect(ctx, out.Location)
	}

	seconds := int(out.Delay.Seconds())
	ctx.SetHeader("Refresh", strconv.Itoa(seconds)+"; url="+out.Location)

	return ctx.JSON(http.StatusUnauthorized, map[string]any{
		"success":  false,
		"message":  out.Message,
		"redirect": out.Location,
		"delay":    seconds,
	})
}
