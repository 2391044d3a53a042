package session_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/mock"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
)

// MockAPI implements session.API
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) Login(ctx context.Context, req session.LoginRequest) (*session.LoginResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*session.LoginResponse)
	return resp, args.Error(1)
}

func (m *MockAPI) Register(ctx context.Context, req session.RegisterRequest) (map[string]any, error) {
	args := m.Called(ctx, req)
	payload, _ := args.Get(0).(map[string]any)
	return payload, args.Error(1)
}

func (m *MockAPI) VerifyEmail(ctx context.Context, token string) (map[string]any, error) {
	args := m.Called(ctx, token)
	payload, _ := args.Get(0).(map[string]any)
	return payload, args.Error(1)
}

func (m *MockAPI) ResendVerification(ctx context.Context, email string) (map[string]any, error) {
	args := m.Called(ctx, email)
	payload, _ := args.Get(0).(map[string]any)
	return payload, args.Error(1)
}

func (m *MockAPI) CurrentUser(ctx context.Context) (*session.User, error) {
	args := m.Called(ctx)
	user, _ := args.Get(0).(*session.User)
	return user, args.Error(1)
}

func (m *MockAPI) CurrentUserWithToken(ctx context.Context, accessToken string) (*session.User, error) {
	args := m.Called(ctx, accessToken)
	user, _ := args.Get(0).(*session.User)
	return user, args.Error(1)
}

// recordingNavigator collects every location it is asked to open.
type recordingNavigator struct {
	mu        sync.Mutex
	locations []string
}

func (n *recordingNavigator) Navigate(location string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.locations = append(n.locations, location)
}

func (n *recordingNavigator) Locations() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.locations...)
}

type recordingNotifier struct {
	mu        sync.Mutex
	successes []string
	errors    []string
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) Errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errors...)
}

// changeRecorder is a Listener that keeps every change it sees.
type changeRecorder struct {
	mu      sync.Mutex
	changes []session.Change
}

func (r *changeRecorder) Listen(change session.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, change)
}

func (r *changeRecorder) Reasons() []session.ChangeReason {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.ChangeReason, 0, len(r.changes))
	for _, c := range r.changes {
		out = append(out, c.Reason)
	}
	return out
}

func newTestUser(id string, role session.Role) *session.User {
	return &session.User{
		ID:          id,
		Email:       id + "@example.com",
		DisplayName: "User " + id,
		Role:        role,
		IsVerified:  true,
		IsActive:    true,
	}
}

// newTestManager returns an initialized manager on top of storage. When creds is not
// nil it is persisted first, as if left behind by a previous run.
func newTestManager(t *testing.T, api session.API, storage session.Storage, creds *session.Credentials, opts ...session.ManagerOption) (*session.Manager, *session.CredentialStore) {
	t.Helper()

	if storage == nil {
		storage = session.NewMemoryStorage()
	}
	store := session.NewCredentialStore(storage, "test", session.WithCredentialStoreLogger(session.NopLogger()))
	if creds != nil {
		if err := store.Save(creds.Tokens, creds.User); err != nil {
			t.Fatalf("seed credentials: %v", err)
		}
	}

	opts = append([]session.ManagerOption{session.WithManagerLogger(session.NopLogger())}, opts...)
	m := session.NewManager(api, store, opts...)
	m.Initialize()
	return m, store
}

func authenticatedCreds(token string, user *session.User) *session.Credentials {
	return &session.Credentials{
		Tokens: session.Tokens{AccessToken: token, RefreshToken: "refresh-" + token},
		User:   user,
	}
}
