package session

import (
	"context"
	"strings"
)

// Login authenticates with email and password. Concurrent calls are not coalesced; the
// last one to complete decides the resulting session.
func (m *Manager) Login(ctx context.Context, email, password string) Result {
	req := LoginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := req.Validate(); err != nil {
		return failureResult(validationError(err))
	}

	gen, started := m.beginLogin()
	m.publish(started...)

	resp, err := m.api.Login(ctx, req)
	var user *User
	if err == nil {
		user, err = m.loginUser(ctx, resp)
	}

	if err != nil {
		change := m.failLogin(gen)
		m.publish(change...)
		m.logger.Debug("login failed", "email", req.Email, "kind", KindOf(err))
		m.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventLoginFailure,
			Metadata:  map[string]any{"email": req.Email, "kind": string(KindOf(err))},
		})
		return failureResult(err)
	}

	tokens := Tokens{AccessToken: resp.AccessToken, RefreshToken: resp.RefreshToken}
	change, err := m.commitLogin(gen, tokens, user, ChangeLoggedIn)
	m.publish(change...)
	if err != nil {
		m.logger.Warn("login result discarded", "user_id", user.ID, "error", err)
		return failureResult(err)
	}

	m.logger.Info("logged in", "user_id", user.ID, "role", user.Role)
	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventLoginSuccess,
		UserID:    user.ID,
		FromState: change[len(change)-1].From,
		ToState:   StateAuthenticated,
	})

	res := successResult(nil)
	res.Message = "Welcome back, " + user.Name() + "!"
	return res
}

// loginUser returns the user carried by the login response, fetching it with the new
// token when the backend omits it.
func (m *Manager) loginUser(ctx context.Context, resp *LoginResponse) (*User, error) {
	if resp.User != nil && resp.User.ID != "" {
		return resp.User, nil
	}
	return m.api.CurrentUserWithToken(ctx, resp.AccessToken)
}

func (m *Manager) beginLogin() (uint64, []Change) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.inflight++
	m.logins++

	var changes []Change
	if m.state == StateUnauthenticated {
		changes = append(changes, m.transitionLocked(StateAuthenticating, ChangeLoginStarted, ""))
	}
	return m.generation, changes
}

func (m *Manager) failLogin(gen uint64) []Change {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.endLoginLocked(gen) || m.state != StateAuthenticating || m.logins > 0 {
		return nil
	}
	return []Change{m.transitionLocked(StateUnauthenticated, ChangeLoginFailed, "")}
}

// endLoginLocked releases the slot taken by beginLogin and reports whether gen is still
// current. Only logins of the current generation are counted in logins: Logout and
// Invalidate reset the count when they start a new generation.
func (m *Manager) endLoginLocked(gen uint64) bool {
	m.inflight--
	if gen != m.generation {
		return false
	}
	m.logins--
	return true
}

// commitLogin persists and commits the credentials of a completed login. A result from
// a superseded generation or a failed write is not committed.
func (m *Manager) commitLogin(gen uint64, tokens Tokens, user *User, reason ChangeReason) ([]Change, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.endLoginLocked(gen) {
		return nil, ErrSessionSuperseded
	}

	if err := m.store.Save(tokens, user); err != nil {
		if m.state == StateAuthenticating && m.logins == 0 {
			return []Change{m.transitionLocked(StateUnauthenticated, ChangeLoginFailed, "")}, err
		}
		return nil, err
	}

	m.tokens = tokens
	m.user = user.Clone()
	return []Change{m.transitionLocked(StateAuthenticated, reason, "")}, nil
}

// SetAuthenticatedSession commits credentials obtained outside the password flow, such
// as an OAuth redirect. It is equivalent to a successful Login.
func (m *Manager) SetAuthenticatedSession(tokens Tokens, user *User) error {
	if tokens.AccessToken == "" || user == nil || user.ID == "" {
		return ErrInconsistentState
	}

	gen, started := m.beginLogin()
	changes, err := m.commitLogin(gen, tokens, user, ChangeLoggedIn)
	m.publish(append(started, changes...)...)
	if err != nil {
		return err
	}

	m.logger.Info("session established", "user_id", user.ID, "role", user.Role)
	m.recordActivity(context.Background(), ActivityEvent{
		EventType: ActivityEventOAuthLogin,
		UserID:    user.ID,
		ToState:   StateAuthenticated,
	})
	return nil
}

// Register creates an account. It never authenticates: the account needs email
// verification first.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) Result {
	req.Email = strings.TrimSpace(req.Email)
	if err := req.Validate(); err != nil {
		return failureResult(validationError(err))
	}

	m.trackInflight(1)
	payload, err := m.api.Register(ctx, req)
	m.trackInflight(-1)

	if err != nil {
		m.logger.Debug("registration failed", "email", req.Email, "kind", KindOf(err))
		return failureResult(err)
	}

	res := successResult(payload)
	res.Message = payloadMessage(payload, "Registration successful. Please check your email to verify your account.")
	return res
}

// Logout clears the persisted credentials and resets the session. It never fails and
// needs no network.
func (m *Manager) Logout() {
	m.mu.Lock()
	m.generation++
	m.logins = 0
	m.clearStoreLocked()
	uid := userID(m.user)
	m.resetLocked()
	change := m.transitionLocked(StateUnauthenticated, ChangeLoggedOut, "")
	m.mu.Unlock()

	m.publish(change)
	if change.From != change.To {
		m.logger.Info("logged out", "user_id", uid)
		m.recordActivity(context.Background(), ActivityEvent{
			EventType: ActivityEventLogout,
			UserID:    uid,
			FromState: change.From,
			ToState:   change.To,
		})
	}
}

// Invalidate ends the session after the backend rejected its credentials. It reports
// whether it did anything: events for a session that is already gone, or for a token
// other than the current one, are ignored so a burst of failures logs out once.
func (m *Manager) Invalidate(event InvalidationEvent) bool {
	m.mu.Lock()
	if m.state != StateAuthenticated || event.Token != m.tokens.AccessToken {
		m.mu.Unlock()
		return false
	}

	m.generation++
	m.logins = 0
	m.clearStoreLocked()
	uid := userID(m.user)
	m.resetLocked()
	change := m.transitionLocked(StateUnauthenticated, ChangeForcedLogout, event.Message)
	m.mu.Unlock()

	m.logger.Warn("session invalidated by server",
		"user_id", uid,
		"status", event.Status,
		"code", event.Code,
		"url", event.RequestURL,
	)

	m.publish(change)
	m.recordActivity(context.Background(), ActivityEvent{
		EventType: ActivityEventForcedLogout,
		UserID:    uid,
		FromState: change.From,
		ToState:   change.To,
		Metadata:  map[string]any{"status": event.Status, "code": event.Code},
	})
	return true
}

// VerifyEmail confirms a verification token. When a user is loaded it is marked
// verified locally; there is no implicit refresh.
func (m *Manager) VerifyEmail(ctx context.Context, token string) Result {
	token = strings.TrimSpace(token)
	if token == "" {
		return failureResult(validationError(errMissingVerificationToken))
	}

	m.mu.Lock()
	gen := m.generation
	m.inflight++
	m.mu.Unlock()

	payload, err := m.api.VerifyEmail(ctx, token)

	m.mu.Lock()
	m.inflight--
	var change *Change
	var updated *User
	if err == nil && gen == m.generation && m.state == StateAuthenticated && m.user != nil && !m.user.IsVerified {
		updated = m.user.withVerified()
		if serr := m.store.Save(m.tokens, updated); serr != nil {
			m.logger.Warn("failed to persist verified user", "user_id", updated.ID, "error", serr)
		} else {
			m.user = updated
			c := m.transitionLocked(StateAuthenticated, ChangeUserUpdated, "")
			change = &c
		}
	}
	m.mu.Unlock()

	if err != nil {
		return failureResult(err)
	}

	if change != nil {
		m.publish(*change)
		m.recordActivity(ctx, ActivityEvent{
			EventType: ActivityEventEmailVerified,
			UserID:    updated.ID,
			FromState: StateAuthenticated,
			ToState:   StateAuthenticated,
		})
	}

	res := successResult(payload)
	res.Message = payloadMessage(payload, "Email verified successfully.")
	return res
}

// ResendVerification asks the backend to send a new verification email. It does not
// touch the session and is throttled client side.
func (m *Manager) ResendVerification(ctx context.Context, email string) Result {
	email = strings.TrimSpace(email)
	if err := validateEmail(email); err != nil {
		return failureResult(validationError(err))
	}

	if m.resendLimiter != nil && !m.resendLimiter.Allow() {
		return failureResult(ErrThrottled)
	}

	payload, err := m.api.ResendVerification(ctx, email)
	if err != nil {
		return failureResult(err)
	}

	res := successResult(payload)
	res.Message = payloadMessage(payload, "Verification email sent.")
	return res
}

// RefreshUserData replaces the user with the canonical record from the backend. On
// failure the previous user is kept and the error returned; it never logs out.
func (m *Manager) RefreshUserData(ctx context.Context) error {
	m.mu.Lock()
	if m.state != StateAuthenticated {
		m.mu.Unlock()
		return ErrNotAuthenticated
	}
	gen := m.generation
	m.mu.Unlock()

	user, err := m.api.CurrentUser(ctx)
	if err != nil {
		return err
	}

	m.mu.Lock()
	if gen != m.generation || m.state != StateAuthenticated {
		m.mu.Unlock()
		return ErrSessionSuperseded
	}
	if err := m.store.Save(m.tokens, user); err != nil {
		m.mu.Unlock()
		return err
	}
	m.user = user.Clone()
	change := m.transitionLocked(StateAuthenticated, ChangeUserUpdated, "")
	m.mu.Unlock()

	m.publish(change)
	m.recordActivity(ctx, ActivityEvent{
		EventType: ActivityEventUserRefreshed,
		UserID:    user.ID,
		FromState: StateAuthenticated,
		ToState:   StateAuthenticated,
	})
	return nil
}

func (m *Manager) trackInflight(delta int) {
	m.mu.Lock()
	m.inflight += delta
	m.mu.Unlock()
}

func payloadMessage(payload map[string]any, fallback string) string {
	if msg, ok := payload["message"].(string); ok && msg != "" {
		return msg
	}
	return fallback
}
