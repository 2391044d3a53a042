package session

import (
	"context"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

// State is the session lifecycle state.
type State string

const (
	StateBootstrapping   State = "bootstrapping"
	StateUnauthenticated State = "unauthenticated"
	StateAuthenticating  State = "authenticating"
	StateAuthenticated   State = "authenticated"
)

// ChangeReason describes why a Change was published.
type ChangeReason string

const (
	ChangeInitialized  ChangeReason = "initialized"
	ChangeLoginStarted ChangeReason = "login_started"
	ChangeLoggedIn     ChangeReason = "logged_in"
	ChangeLoginFailed  ChangeReason = "login_failed"
	ChangeLoggedOut    ChangeReason = "logged_out"
	ChangeForcedLogout ChangeReason = "forced_logout"
	ChangeUserUpdated  ChangeReason = "user_updated"
)

// Change is published to subscribers after every committed transition.
type Change struct {
	From     State
	To       State
	Reason   ChangeReason
	Message  string
	Snapshot Snapshot
}

// Listener receives session changes. Listeners run on the goroutine that committed the
// change, after the manager lock is released, so they may call back into the manager.
type Listener func(Change)

// Snapshot is an immutable view of the session.
type Snapshot struct {
	State           State
	User            *User
	IsAuthenticated bool
	IsLoading       bool
}

// HasRole reports whether the session user holds at least role.
func (s Snapshot) HasRole(role Role) bool {
	return s.IsAuthenticated && HasRole(s.User, role)
}

// Can reports whether the session user holds perm under the default permission set.
func (s Snapshot) Can(perm Permission) bool {
	return s.IsAuthenticated && Can(s.User, perm)
}

// Session is the accessor other feature areas consume. Manager is the only
// implementation; the interface exists so consumers can be tested with fakes.
type Session interface {
	Snapshot() Snapshot
	Login(ctx context.Context, email, password string) Result
	Register(ctx context.Context, req RegisterRequest) Result
	Logout()
	VerifyEmail(ctx context.Context, token string) Result
	ResendVerification(ctx context.Context, email string) Result
	RefreshUserData(ctx context.Context) error
}

var (
	_ Session             = &Manager{}
	_ TokenSource         = &Manager{}
	_ InvalidationHandler = &Manager{}
)

var defaultTransitions = map[State]map[State]struct{}{
	StateBootstrapping: {
		StateUnauthenticated: {},
		StateAuthenticated:   {},
	},
	StateUnauthenticated: {
		StateAuthenticating: {},
	},
	StateAuthenticating: {
		StateAuthenticated:   {},
		StateUnauthenticated: {},
	},
	StateAuthenticated: {
		StateAuthenticated:   {},
		StateUnauthenticated: {},
	},
}

// ManagerOption customizes Manager construction.
type ManagerOption func(*Manager)

// WithManagerLogger overrides the manager logger.
func WithManagerLogger(logger Logger) ManagerOption {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// WithActivitySink sets the sink that receives session activity.
func WithActivitySink(sink ActivitySink) ManagerOption {
	return func(m *Manager) {
		m.activitySink = normalizeActivitySink(sink)
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ManagerOption {
	return func(m *Manager) {
		if clock != nil {
			m.now = clock
		}
	}
}

// WithResendInterval sets the minimum time between verification email requests. Zero
// disables the client side throttle.
func WithResendInterval(interval time.Duration) ManagerOption {
	return func(m *Manager) {
		m.resendLimiter = newResendLimiter(interval)
	}
}

// Manager owns the session. All mutations go through its named operations; it is the
// single writer of the CredentialStore.
type Manager struct {
	api           API
	store         *CredentialStore
	logger        Logger
	activitySink  ActivitySink
	now           func() time.Time
	resendLimiter *rate.Limiter
	transitions   map[State]map[State]struct{}

	mu         sync.Mutex
	state      State
	tokens     Tokens
	user       *User
	generation uint64
	inflight   int
	logins     int
	listeners  map[int]Listener
	nextID     int
	initOnce   sync.Once
}

// NewManager creates a manager in the Bootstrapping state. Call Initialize before use.
func NewManager(api API, store *CredentialStore, opts ...ManagerOption) *Manager {
	if store == nil {
		store = NewCredentialStore(nil, "")
	}

	m := &Manager{
		api:           api,
		store:         store,
		logger:        defLogger(),
		activitySink:  noopActivitySink{},
		now:           time.Now,
		resendLimiter: newResendLimiter(60 * time.Second),
		transitions:   defaultTransitions,
		state:         StateBootstrapping,
		listeners:     map[int]Listener{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	return m
}

// Subscribe registers l and returns a function that removes it.
func (m *Manager) Subscribe(l Listener) func() {
	if l == nil {
		return func() {}
	}

	m.mu.Lock()
	id := m.nextID
	m.nextID++
	m.listeners[id] = l
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.listeners, id)
		m.mu.Unlock()
	}
}

// Snapshot returns the current view of the session.
func (m *Manager) Snapshot() Snapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshotLocked()
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// AccessToken implements TokenSource.
func (m *Manager) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateAuthenticated {
		return ""
	}
	return m.tokens.AccessToken
}

// RefreshToken returns the persisted refresh token. It is kept but never rotated here.
func (m *Manager) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tokens.RefreshToken
}

// Initialize restores a persisted session. It runs once; later calls are no-ops.
func (m *Manager) Initialize() {
	m.initOnce.Do(m.initialize)
}

func (m *Manager) initialize() {
	creds := m.store.Load()

	m.mu.Lock()
	if m.state != StateBootstrapping {
		// an OAuth completion or logout raced ahead of bootstrap
		m.mu.Unlock()
		return
	}

	target := StateUnauthenticated
	switch {
	case creds == nil:
		m.clearStoreLocked()
	case m.tokenExpired(creds.Tokens.AccessToken):
		m.logger.Info("persisted access token expired, discarding session", "user_id", creds.User.ID)
		m.clearStoreLocked()
	default:
		m.tokens = creds.Tokens
		m.user = creds.User
		target = StateAuthenticated
	}

	change := m.transitionLocked(target, ChangeInitialized, "")
	m.mu.Unlock()

	m.publish(change)
	m.recordActivity(context.Background(), ActivityEvent{
		EventType: ActivityEventStateChanged,
		UserID:    userID(change.Snapshot.User),
		FromState: change.From,
		ToState:   change.To,
		Metadata:  map[string]any{"reason": string(ChangeInitialized)},
	})
}

// tokenExpired reports whether token is a JWT whose exp claim has passed. Opaque
// tokens are never considered expired; the backend remains the authority.
func (m *Manager) tokenExpired(token string) bool {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	if claims.ExpiresAt == nil {
		return false
	}
	return !m.now().Before(claims.ExpiresAt.Time)
}

func (m *Manager) canTransition(from, to State) bool {
	if allowed, ok := m.transitions[from]; ok {
		_, exists := allowed[to]
		return exists
	}
	return false
}

// transitionLocked moves to target and returns the change to publish. Invalid
// transitions are a programming error and are logged, never committed.
func (m *Manager) transitionLocked(target State, reason ChangeReason, message string) Change {
	from := m.state
	if from != target || target == StateAuthenticated {
		if !m.canTransition(from, target) {
			m.logger.Error("rejected session transition", "from", from, "to", target, "error", ErrInvalidTransition)
			return Change{From: from, To: from, Reason: reason, Message: message, Snapshot: m.snapshotLocked()}
		}
	}
	m.state = target
	return Change{From: from, To: target, Reason: reason, Message: message, Snapshot: m.snapshotLocked()}
}

func (m *Manager) snapshotLocked() Snapshot {
	authenticated := m.state == StateAuthenticated && m.tokens.AccessToken != "" && m.user != nil
	return Snapshot{
		State:           m.state,
		User:            m.user.Clone(),
		IsAuthenticated: authenticated,
		IsLoading:       m.state == StateBootstrapping || m.inflight > 0,
	}
}

func (m *Manager) resetLocked() {
	m.tokens = Tokens{}
	m.user = nil
}

func (m *Manager) clearStoreLocked() {
	if err := m.store.Clear(); err != nil {
		m.logger.Warn("failed to clear credential store", "error", err)
	}
}

func (m *Manager) publish(changes ...Change) {
	m.mu.Lock()
	listeners := make([]Listener, 0, len(m.listeners))
	for id := 0; id < m.nextID; id++ {
		if l, ok := m.listeners[id]; ok {
			listeners = append(listeners, l)
		}
	}
	m.mu.Unlock()

	for _, change := range changes {
		for _, l := range listeners {
			l(change)
		}
	}
}

func (m *Manager) recordActivity(ctx context.Context, event ActivityEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = m.now()
	}

	sink := normalizeActivitySink(m.activitySink)
	if err := sink.Record(ctx, event); err != nil {
		m.logger.Warn("session activity sink error", "event", event.EventType, "error", err)
	}
}

func newResendLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

func userID(u *User) string {
	if u == nil {
		return ""
	}
	return u.ID
}
