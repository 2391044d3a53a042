package cli_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000/internal/cli"
)

func newBackend(t *testing.T) string {
	t.Helper()

	r := chi.NewRouter()
	r.Post("/api/v1/auth/login", func(w http.ResponseWriter, req *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "tok-1",
			"refresh_token": "ref-1",
			"user": map[string]any{
				"id":           "u1",
				"email":        "ada@example.com",
				"display_name": "Ada",
				"role":         "user",
				"is_verified":  true,
				"is_active":    true,
			},
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

type cliRunner struct {
	t    *testing.T
	args []string
}

func newRunner(t *testing.T, args ...string) *cliRunner {
	for _, env := range []string{"PLATFORM_BASE_URL", "PLATFORM_CONFIG", "PLATFORM_STORE", "PLATFORM_STORE_DB", "PLATFORM_STORE_PASSPHRASE", "PLATFORM_PASSWORD"} {
		t.Setenv(env, "")
	}
	return &cliRunner{t: t, args: append([]string{"--env-file", ""}, args...)}
}

func (r *cliRunner) run(args ...string) (string, string, error) {
	var out, errOut bytes.Buffer
	cmd := cli.NewRootCommand(&out, &errOut)
	cmd.SetArgs(append(append([]string{}, r.args...), args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), errOut.String(), err
}

func (r *cliRunner) mustRun(args ...string) string {
	r.t.Helper()
	out, errOut, err := r.run(args...)
	require.NoError(r.t, err, errOut)
	return out
}

func TestSignedOutSession(t *testing.T) {
	r := newRunner(t, "--store", filepath.Join(t.TempDir(), "creds.json"))

	assert.Equal(t, "Not signed in.\n", r.mustRun("whoami"))
	assert.Equal(t, "redirect -> /login?from=%2Fadmin\n", r.mustRun("guard", "/admin", "--role", "admin"))
	assert.Equal(t, "render\n", r.mustRun("guard", "/about", "--public"))
}

func TestLoginPersistsAcrossInvocations(t *testing.T) {
	base := newBackend(t)
	r := newRunner(t, "--store", filepath.Join(t.TempDir(), "creds.json"), "--base-url", base)

	out := r.mustRun("login", "--email", "ada@example.com", "--password", "correct horse")
	assert.Contains(t, out, "Welcome back, Ada!")

	out = r.mustRun("whoami")
	assert.Contains(t, out, "User:     Ada")
	assert.Contains(t, out, "Email:    ada@example.com")

	assert.Equal(t, "render\n", r.mustRun("guard", "/chat"))
	assert.Equal(t, "redirect -> /unauthorized\n", r.mustRun("guard", "/admin", "--role", "admin"))

	assert.Equal(t, "Logged out.\n", r.mustRun("logout"))
	assert.Equal(t, "Not signed in.\n", r.mustRun("whoami"))
}

func TestOAuthRoundTrip(t *testing.T) {
	r := newRunner(t, "--store", filepath.Join(t.TempDir(), "creds.json"), "--base-url", "https://api.example.com")

	out := r.mustRun("oauth-begin", "Google", "--return-to", "/images")
	assert.Equal(t, "https://api.example.com/api/v1/auth/oauth/google/login\n", out)

	out = r.mustRun("oauth-complete", "http://localhost/auth/callback?success=true&access_token=a&refresh_token=r&user_id=u9&display_name=Lin")
	assert.Contains(t, out, "Welcome back, Lin!")
	assert.Contains(t, out, "Next: /images")
	assert.Contains(t, out, "User:     Lin")
}

func TestOAuthCompleteFailure(t *testing.T) {
	r := newRunner(t, "--store", filepath.Join(t.TempDir(), "creds.json"))

	_, errOut, err := r.run("oauth-complete", "http://localhost/auth/callback?error=access_denied")
	require.Error(t, err)
	assert.Contains(t, errOut, "Sign-in was cancelled.")
	assert.Equal(t, "Not signed in.\n", r.mustRun("whoami"))
}

func TestActivityNeedsDatabase(t *testing.T) {
	r := newRunner(t, "--store", filepath.Join(t.TempDir(), "creds.json"))

	_, _, err := r.run("activity")
	assert.EqualError(t, err, "activity is only recorded with --store-db")
}

func TestActivityFromDatabase(t *testing.T) {
	base := newBackend(t)
	r := newRunner(t, "--store-db", filepath.Join(t.TempDir(), "session.db"), "--base-url", base)

	r.mustRun("login", "--email", "ada@example.com", "--password", "correct horse")
	assert.Contains(t, r.mustRun("whoami"), "User:     Ada")

	out := r.mustRun("activity", "--mine")
	assert.Contains(t, out, "session.login.success")
}
