package session

import (
	"context"
	"net/http"
	"net/url"

	"github.com/goliatone/go-router"
)

// LocalsKey is the router context store key the guard middleware stores the Snapshot under.
const LocalsKey = "session"

var snapshotCtxKey = &contextKey{"snapshot"}
var anonymousCtxKey = &contextKey{"anonymous"}

type contextKey struct {
	name string
}

// WithContext sets the Snapshot in the given context
func WithContext(ctx context.Context, snap Snapshot) context.Context {
	return context.WithValue(ctx, snapshotCtxKey, snap)
}

// FromContext finds the Snapshot in the context.
func FromContext(ctx context.Context) (Snapshot, bool) {
	raw, ok := ctx.Value(snapshotCtxKey).(Snapshot)
	return raw, ok
}

// FromRouter extracts the Snapshot stored by the guard middleware.
func FromRouter(ctx router.Context) (Snapshot, bool) {
	raw := ctx.Get(LocalsKey, nil)
	if raw == nil {
		return FromContext(ctx.Context())
	}
	snap, ok := raw.(Snapshot)
	return snap, ok
}

// RequestURI rebuilds the path and query string of the current request.
func RequestURI(ctx router.Context) string {
	queries := ctx.Queries()
	if len(queries) == 0 {
		return ctx.Path()
	}
	values := url.Values{}
	for k, v := range queries {
		values.Set(k, v)
	}
	return ctx.Path() + "?" + values.Encode()
}

// Redirect answers with a 303 to location.
func Redirect(ctx router.Context, location string) error {
	ctx.SetHeader("Location", location)
	return ctx.NoContent(http.StatusSeeOther)
}

// WithoutCredentials marks requests made with ctx as anonymous: the pipeline will not
// attach the session token, so their failures cannot end the session.
func WithoutCredentials(ctx context.Context) context.Context {
	return context.WithValue(ctx, anonymousCtxKey, true)
}

func withoutCredentials(ctx context.Context) bool {
	v, _ := ctx.Value(anonymousCtxKey).(bool)
	return v
}
