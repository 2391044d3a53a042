package oauth_test

import (
	"context"
	"errors"
	"net/url"
	"sync"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
	"github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000/oauth"
)

type sessionSetterStub struct {
	mu    sync.Mutex
	calls int
	users []*session.User
	err   error
}

func (s *sessionSetterStub) SetAuthenticatedSession(tokens session.Tokens, user *session.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	s.users = append(s.users, user)
	return s.err
}

type navigatorStub struct {
	locations []string
}

func (n *navigatorStub) Navigate(location string) {
	n.locations = append(n.locations, location)
}

type notifierStub struct {
	successes []string
	errors    []string
}

func (n *notifierStub) Success(msg string) { n.successes = append(n.successes, msg) }
func (n *notifierStub) Error(msg string)   { n.errors = append(n.errors, msg) }

// manualScheduler holds scheduled functions until the test fires them.
type manualScheduler struct {
	delays  []time.Duration
	pending []func()
}

func (s *manualScheduler) AfterFunc(d time.Duration, f func()) {
	s.delays = append(s.delays, d)
	s.pending = append(s.pending, f)
}

func (s *manualScheduler) Fire() {
	for _, f := range s.pending {
		f()
	}
	s.pending = nil
}

func successQuery() url.Values {
	return url.Values{
		oauth.ParamSuccess:      {"true"},
		oauth.ParamAccessToken:  {"oauth-access"},
		oauth.ParamRefreshToken: {"oauth-refresh"},
		oauth.ParamUserID:       {"u42"},
		oauth.ParamEmail:        {"grace@example.com"},
		oauth.ParamDisplayName:  {"Grace"},
		oauth.ParamIsNewUser:    {"false"},
		oauth.ParamProvider:     {"Google"},
	}
}

type handlerFixture struct {
	setter    *sessionSetterStub
	nav       *navigatorStub
	notifier  *notifierStub
	scheduler *manualScheduler
	stash     *oauth.ReturnToStash
	handler   *oauth.Handler
}

func newHandlerFixture(setter oauth.SessionSetter) *handlerFixture {
	f := &handlerFixture{
		nav:       &navigatorStub{},
		notifier:  &notifierStub{},
		scheduler: &manualScheduler{},
		stash:     oauth.NewReturnToStash(session.NewMemoryStorage(), "test"),
	}
	if stub, ok := setter.(*sessionSetterStub); ok {
		f.setter = stub
	}
	f.handler = oauth.NewHandler(session.DefaultOptions(), setter, f.nav,
		oauth.WithNotifier(f.notifier),
		oauth.WithScheduler(f.scheduler),
		oauth.WithReturnToStash(f.stash),
	)
	return f
}

func TestCompleteEstablishesSessionOnce(t *testing.T) {
	f := newHandlerFixture(&sessionSetterStub{})

	first := f.handler.Complete(context.Background(), successQuery())
	second := f.handler.Complete(context.Background(), successQuery())

	require.True(t, first.Success)
	assert.False(t, first.Duplicate)
	assert.Equal(t, "Welcome back, Grace!", first.Message)
	assert.Equal(t, session.DefaultRoute, first.Location)
	assert.Equal(t, "google", first.Provider)

	assert.True(t, second.Duplicate)
	assert.Equal(t, first.Location, second.Location)

	assert.Equal(t, 1, f.setter.calls)
	assert.Equal(t, []string{session.DefaultRoute}, f.nav.locations)
	assert.Equal(t, []string{"Welcome back, Grace!"}, f.notifier.successes)

	user := f.setter.users[0]
	assert.Equal(t, "u42", user.ID)
	assert.Equal(t, session.RoleUser, user.Role)
	assert.True(t, user.IsVerified)
}

func TestCompleteWelcomesNewUsers(t *testing.T) {
	f := newHandlerFixture(&sessionSetterStub{})
	q := successQuery()
	q.Set(oauth.ParamIsNewUser, "true")

	out := f.handler.Complete(context.Background(), q)

	require.True(t, out.Success)
	assert.True(t, out.IsNewUser)
	assert.Equal(t, "Welcome to the platform, Grace!", out.Message)
}

func TestCompleteResumesStashedLocation(t *testing.T) {
	f := newHandlerFixture(&sessionSetterStub{})
	require.NoError(t, f.stash.Stash("/documents?id=9"))

	out := f.handler.Complete(context.Background(), successQuery())

	assert.Equal(t, "/documents?id=9", out.Location)
	assert.Empty(t, f.stash.Take())
}

func TestCompleteFailureDiscardsStashedLocation(t *testing.T) {
	f := newHandlerFixture(&sessionSetterStub{})
	require.NoError(t, f.stash.Stash("/documents?id=9"))

	out := f.handler.Complete(context.Background(), url.Values{oauth.ParamError: {"access_denied"}})
	require.False(t, out.Success)
	assert.Empty(t, f.stash.Take())

	// a later sign-in without a new stash goes to the default route
	next := f.handler.Complete(context.Background(), successQuery())
	require.True(t, next.Success)
	assert.Equal(t, session.DefaultRoute, next.Location)
}

func TestCompleteRemembersLimitedRedirects(t *testing.T) {
	setter := &sessionSetterStub{}
	f := newHandlerFixture(setter)
	f.handler = oauth.NewHandler(session.DefaultOptions(), setter, f.nav,
		oauth.WithNotifier(f.notifier),
		oauth.WithScheduler(f.scheduler),
		oauth.WithProcessedLimit(2),
	)

	query := func(token string) url.Values {
		q := successQuery()
		q.Set(oauth.ParamAccessToken, token)
		return q
	}

	for _, token := range []string{"t1", "t2", "t3"} {
		require.False(t, f.handler.Complete(context.Background(), query(token)).Duplicate)
	}

	assert.True(t, f.handler.Complete(context.Background(), query("t3")).Duplicate)
	assert.True(t, f.handler.Complete(context.Background(), query("t2")).Duplicate)
	// t1 was forgotten and is processed again
	assert.False(t, f.handler.Complete(context.Background(), query("t1")).Duplicate)
	assert.Equal(t, 4, setter.calls)
}

func TestCompleteProviderDenied(t *testing.T) {
	storage := session.NewMemoryStorage()
	store := session.NewCredentialStore(storage, "test", session.WithCredentialStoreLogger(session.NopLogger()))
	m := session.NewManager(nil, store, session.WithManagerLogger(session.NopLogger()))
	m.Initialize()

	f := newHandlerFixture(m)
	q := url.Values{oauth.ParamError: {"access_denied"}, oauth.ParamProvider: {"github"}}

	out := f.handler.Complete(context.Background(), q)

	assert.False(t, out.Success)
	assert.Equal(t, "Sign-in was cancelled.", out.Message)
	assert.Equal(t, session.KindOAuth, session.KindOf(out.Err))
	assert.Equal(t, []string{"Sign-in was cancelled."}, f.notifier.errors)

	// the login redirect waits for the delay
	assert.Empty(t, f.nav.locations)
	assert.Equal(t, []time.Duration{3 * time.Second}, f.scheduler.delays)
	f.scheduler.Fire()
	assert.Equal(t, []string{session.DefaultLoginRoute}, f.nav.locations)

	assert.Equal(t, session.StateUnauthenticated, m.State())
	assert.Equal(t, 0, storage.Len())
}

func TestCompleteProviderErrorDescription(t *testing.T) {
	f := newHandlerFixture(&sessionSetterStub{})
	q := url.Values{
		oauth.ParamError:            {"server_error"},
		oauth.ParamErrorDescription: {"Provider is unavailable"},
	}

	out := f.handler.Complete(context.Background(), q)

	assert.Equal(t, "Provider is unavailable", out.Message)
	assert.Equal(t, 0, f.setter.calls)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(out.Err, &richErr))
	assert.Equal(t, oauth.TextCodeProviderError, richErr.TextCode)
	assert.Equal(t, "server_error", richErr.Metadata["error"])
	assert.Nil(t, oauth.ErrProviderError.Metadata)
}

func TestCompleteRejectsIncompleteRedirect(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(url.Values)
	}{
		{"missing refresh token", func(q url.Values) { q.Del(oauth.ParamRefreshToken) }},
		{"missing access token", func(q url.Values) { q.Set(oauth.ParamAccessToken, " ") }},
		{"missing user id", func(q url.Values) { q.Del(oauth.ParamUserID) }},
		{"success flag false", func(q url.Values) { q.Set(oauth.ParamSuccess, "false") }},
		{"no parameters", func(q url.Values) {
			for k := range q {
				q.Del(k)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newHandlerFixture(&sessionSetterStub{})
			q := successQuery()
			tt.mutate(q)

			out := f.handler.Complete(context.Background(), q)

			assert.False(t, out.Success)
			assert.Equal(t, "Invalid response from sign-in provider. Please try again.", out.Message)
			assert.Equal(t, session.DefaultLoginRoute, out.Location)
			assert.Equal(t, session.KindOAuth, session.KindOf(out.Err))
			assert.Equal(t, 0, f.setter.calls)
		})
	}
}

func TestCompleteSessionFailure(t *testing.T) {
	boom := errors.New("disk full")
	f := newHandlerFixture(&sessionSetterStub{err: boom})

	out := f.handler.Complete(context.Background(), successQuery())

	assert.False(t, out.Success)
	assert.ErrorIs(t, out.Err, boom)

	var richErr *goerrors.Error
	require.True(t, goerrors.As(out.Err, &richErr))
	assert.Equal(t, oauth.TextCodeCompletion, richErr.TextCode)
	assert.Empty(t, f.nav.locations)
}

func TestCompleteCancelledContext(t *testing.T) {
	f := newHandlerFixture(&sessionSetterStub{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := f.handler.Complete(ctx, successQuery())

	assert.False(t, out.Success)
	assert.ErrorIs(t, out.Err, context.Canceled)
	assert.Equal(t, 0, f.setter.calls)
}

func TestFingerprintIgnoresOrder(t *testing.T) {
	a, err := url.ParseQuery("success=true&access_token=a&user_id=1")
	require.NoError(t, err)
	b, err := url.ParseQuery("user_id=1&success=true&access_token=a")
	require.NoError(t, err)
	c, err := url.ParseQuery("user_id=2&success=true&access_token=a")
	require.NoError(t, err)

	assert.Equal(t, oauth.Fingerprint(a), oauth.Fingerprint(b))
	assert.NotEqual(t, oauth.Fingerprint(a), oauth.Fingerprint(c))
}
