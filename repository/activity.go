package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
	"github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000/activitymap"
)

var _ session.ActivitySink = &ActivityLog{}

var activityNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("session_activity"))

// ActivityModel is the Bun model for recorded session activity.
type ActivityModel struct {
	bun.BaseModel `bun:"table:session_activity,alias:sa"`

	ID         uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	EventID    string         `bun:"event_id,notnull,unique" json:"event_id"`
	ActorID    string         `bun:"actor_id,notnull" json:"actor_id"`
	Verb       string         `bun:"verb,notnull" json:"verb"`
	ObjectType string         `bun:"object_type" json:"object_type,omitempty"`
	ObjectID   string         `bun:"object_id" json:"object_id,omitempty"`
	Channel    string         `bun:"channel" json:"channel,omitempty"`
	Metadata   map[string]any `bun:"metadata,type:json" json:"metadata,omitempty"`
	OccurredAt time.Time      `bun:"occurred_at,notnull" json:"occurred_at"`
}

// NewActivitiesRepository returns a repository for session activity records.
func NewActivitiesRepository(db bun.IDB) repository.Repository[*ActivityModel] {
	handlers := repository.ModelHandlers[*ActivityModel]{
		NewRecord: func() *ActivityModel {
			return &ActivityModel{}
		},
		GetID: func(record *ActivityModel) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *ActivityModel, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "event_id"
		},
	}
	return repository.NewRepository(db, handlers)
}

// activityID maps an event ID to a record ID. Event IDs that already are UUIDs are
// kept; anything else is hashed so replays land on the same row.
func activityID(eventID string) uuid.UUID {
	if eventID == "" {
		return uuid.New()
	}
	if id, err := uuid.Parse(eventID); err == nil {
		return id
	}
	return uuid.NewSHA1(activityNamespace, []byte(eventID))
}

// ActivityLog stores session activity in the database. It implements
// session.ActivitySink.
type ActivityLog struct {
	records repository.Repository[*ActivityModel]
	opts    []activitymap.Option
}

// NewActivityLog creates a log on db. opts tune how events are normalized.
func NewActivityLog(db *bun.DB, opts ...activitymap.Option) *ActivityLog {
	return &ActivityLog{records: NewActivitiesRepository(db), opts: opts}
}

// Record implements session.ActivitySink. An event that was already recorded is
// left untouched.
func (l *ActivityLog) Record(ctx context.Context, event session.ActivityEvent) error {
	n := activitymap.Normalize(event, l.opts...)

	model := &ActivityModel{
		ID:         activityID(event.ID),
		EventID:    event.ID,
		ActorID:    n.ActorID,
		Verb:       n.Verb,
		ObjectType: n.ObjectType,
		ObjectID:   n.ObjectID,
		Channel:    n.Channel,
		Metadata:   n.Metadata,
		OccurredAt: n.OccurredAt.UTC(),
	}
	if model.EventID == "" {
		model.EventID = model.ID.String()
	}

	_, err := l.records.GetOrCreate(ctx, model)
	return err
}

// Recent returns up to limit entries, newest first. A non-empty actorID restricts the
// result to that actor.
func (l *ActivityLog) Recent(ctx context.Context, actorID string, limit int) ([]*ActivityModel, error) {
	if limit <= 0 {
		limit = 20
	}

	criteria := []repository.SelectCriteria{
		repository.OrderBy("occurred_at DESC", "event_id DESC"),
		repository.Paginate(limit, 0),
	}
	if actorID != "" {
		criteria = append(criteria, repository.SelectBy("actor_id", "=", actorID))
	}

	records, _, err := l.records.List(ctx, criteria...)
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Records exposes the underlying repository.
func (l *ActivityLog) Records() repository.Repository[*ActivityModel] {
	return l.records
}
