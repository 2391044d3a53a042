package session_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
)

type staticToken string

func (s staticToken) AccessToken() string { return string(s) }

type eventRecorder struct {
	mu     sync.Mutex
	events []session.InvalidationEvent
}

func (r *eventRecorder) Invalidate(event session.InvalidationEvent) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return true
}

func (r *eventRecorder) Events() []session.InvalidationEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]session.InvalidationEvent(nil), r.events...)
}

// newBackend serves a few fixed responses and echoes the Authorization header it saw.
func newBackend(t *testing.T) *httptest.Server {
	t.Helper()

	r := chi.NewRouter()
	r.Get("/ok", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("X-Seen-Authorization", req.Header.Get("Authorization"))
		w.Header().Set("X-Seen-Request-ID", req.Header.Get(session.HeaderRequestID))
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"ok":true}`)
	})
	r.Get("/expired", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"detail":"Token expired"}`)
	})
	r.Get("/deactivated", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"detail":{"error":"USER_DEACTIVATED","message":"Your account has been deactivated."}}`)
	})
	r.Get("/forbidden", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `{"detail":"Admins only"}`)
	})
	r.Get("/broken", func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"detail":"boom"}`)
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, ctx context.Context, rt http.RoundTripper, url string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestTransportAttachesBearerToken(t *testing.T) {
	srv := newBackend(t)
	rt := session.NewTransport(staticToken("tok-1"), nil, session.WithTransportLogger(session.NopLogger()))

	resp, body := get(t, context.Background(), rt, srv.URL+"/ok")

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Bearer tok-1", resp.Header.Get("X-Seen-Authorization"))
	assert.NotEmpty(t, resp.Header.Get("X-Seen-Request-ID"))
	assert.JSONEq(t, `{"ok":true}`, body)
}

func TestTransportSkipsTokenForAnonymousRequests(t *testing.T) {
	srv := newBackend(t)
	rt := session.NewTransport(staticToken("tok-1"), nil, session.WithTransportLogger(session.NopLogger()))

	resp, _ := get(t, session.WithoutCredentials(context.Background()), rt, srv.URL+"/ok")

	assert.Empty(t, resp.Header.Get("X-Seen-Authorization"))
}

func TestTransportWithoutTokenSendsNoHeader(t *testing.T) {
	srv := newBackend(t)
	rt := session.NewTransport(staticToken(""), nil, session.WithTransportLogger(session.NopLogger()))

	resp, _ := get(t, context.Background(), rt, srv.URL+"/ok")

	assert.Empty(t, resp.Header.Get("X-Seen-Authorization"))
}

func TestTransportReportsUnauthorized(t *testing.T) {
	srv := newBackend(t)
	events := &eventRecorder{}
	rt := session.NewTransport(staticToken("tok-1"), events, session.WithTransportLogger(session.NopLogger()))

	resp, body := get(t, context.Background(), rt, srv.URL+"/expired")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Token expired"}`, body)

	got := events.Events()
	require.Len(t, got, 1)
	assert.Equal(t, http.StatusUnauthorized, got[0].Status)
	assert.Equal(t, "tok-1", got[0].Token)
	assert.Equal(t, "Token expired", got[0].Message)
	assert.Equal(t, srv.URL+"/expired", got[0].RequestURL)
}

func TestTransportReportsDeactivatedUser(t *testing.T) {
	srv := newBackend(t)
	events := &eventRecorder{}
	rt := session.NewTransport(staticToken("tok-1"), events, session.WithTransportLogger(session.NopLogger()))

	resp, body := get(t, context.Background(), rt, srv.URL+"/deactivated")

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Contains(t, body, "USER_DEACTIVATED")

	got := events.Events()
	require.Len(t, got, 1)
	assert.Equal(t, session.ReasonUserDeactivated, got[0].Code)
	assert.Equal(t, "Your account has been deactivated.", got[0].Message)
}

func TestTransportPassesThroughOtherFailures(t *testing.T) {
	srv := newBackend(t)
	events := &eventRecorder{}
	rt := session.NewTransport(staticToken("tok-1"), events, session.WithTransportLogger(session.NopLogger()))

	resp, body := get(t, context.Background(), rt, srv.URL+"/forbidden")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.JSONEq(t, `{"detail":"Admins only"}`, body)

	resp, _ = get(t, context.Background(), rt, srv.URL+"/broken")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	assert.Empty(t, events.Events())
}

func TestTransportKeepsExplicitAuthorization(t *testing.T) {
	srv := newBackend(t)
	events := &eventRecorder{}
	rt := session.NewTransport(staticToken("tok-1"), events, session.WithTransportLogger(session.NopLogger()))

	req, err := http.NewRequest(http.MethodGet, srv.URL+"/ok", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer explicit")

	resp, err := rt.RoundTrip(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "Bearer explicit", resp.Header.Get("X-Seen-Authorization"))
	assert.Empty(t, req.Header.Get(session.HeaderRequestID), "caller request must not be mutated")
}
