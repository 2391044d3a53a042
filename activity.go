package session

import (
	"context"
	"time"
)

// ActivityEventType enumerates session activity categories.
type ActivityEventType string

const (
	ActivityEventStateChanged  ActivityEventType = "session.state.changed"
	ActivityEventLoginSuccess  ActivityEventType = "session.login.success"
	ActivityEventLoginFailure  ActivityEventType = "session.login.failure"
	ActivityEventOAuthLogin    ActivityEventType = "session.oauth.login"
	ActivityEventLogout        ActivityEventType = "session.logout"
	ActivityEventForcedLogout  ActivityEventType = "session.logout.forced"
	ActivityEventUserRefreshed ActivityEventType = "session.user.refreshed"
	ActivityEventEmailVerified ActivityEventType = "session.email.verified"
)

// ActivityEvent captures audit friendly information about a session change.
type ActivityEvent struct {
	ID         string
	EventType  ActivityEventType
	UserID     string
	FromState  State
	ToState    State
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing or telemetry.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
