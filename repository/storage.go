package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	session "github.com/gouthamkasula22/AI-Powered-Enterprise-Platform-sub000"
)

var _ session.Storage = &SQLStorage{}

var entryNamespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("session_entries"))

// EntryModel is the Bun model for persisted session entries.
type EntryModel struct {
	bun.BaseModel `bun:"table:session_entries,alias:se"`

	ID        uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Key       string    `bun:"entry_key,notnull,unique" json:"key"`
	Value     string    `bun:"entry_value,notnull" json:"value"`
	UpdatedAt time.Time `bun:"updated_at,notnull,default:current_timestamp" json:"updated_at"`
}

// EntryID returns the primary key of the entry stored under key. It is derived from
// the key so a write never has to look it up first.
func EntryID(key string) uuid.UUID {
	return uuid.NewSHA1(entryNamespace, []byte(key))
}

// NewEntriesRepository returns a repository for session entries.
func NewEntriesRepository(db bun.IDB) repository.Repository[*EntryModel] {
	handlers := repository.ModelHandlers[*EntryModel]{
		NewRecord: func() *EntryModel {
			return &EntryModel{}
		},
		GetID: func(record *EntryModel) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *EntryModel, id uuid.UUID) {
			record.ID = id
		},
		GetIdentifier: func() string {
			return "entry_key"
		},
	}
	return repository.NewRepository(db, handlers)
}

// SQLStorage implements session.Storage on a database, for hosts that keep several
// client sessions side by side.
type SQLStorage struct {
	db      *bun.DB
	entries repository.Repository[*EntryModel]
	timeout time.Duration
	now     func() time.Time
}

// StorageOption configures a SQLStorage.
type StorageOption func(*SQLStorage)

// WithTimeout bounds every storage call.
func WithTimeout(d time.Duration) StorageOption {
	return func(s *SQLStorage) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) StorageOption {
	return func(s *SQLStorage) {
		if clock != nil {
			s.now = clock
		}
	}
}

// NewSQLStorage creates a new storage.
func NewSQLStorage(db *bun.DB, opts ...StorageOption) *SQLStorage {
	s := &SQLStorage{
		db:      db,
		entries: NewEntriesRepository(db),
		timeout: 5 * time.Second,
		now:     time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Get implements session.Storage.
func (s *SQLStorage) Get(key string) (string, bool, error) {
	ctx, cancel := s.context()
	defer cancel()

	record, err := s.entries.GetByID(ctx, EntryID(key).String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", false, nil
		}
		return "", false, err
	}
	return record.Value, true, nil
}

// SetAll implements session.Storage. Entries are written in one transaction.
func (s *SQLStorage) SetAll(entries map[string]string) error {
	if len(entries) == 0 {
		return nil
	}

	ctx, cancel := s.context()
	defer cancel()

	now := s.now().UTC()
	return s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		for k, v := range entries {
			record := &EntryModel{ID: EntryID(k), Key: k, Value: v, UpdatedAt: now}
			// explicit columns so an empty value still overwrites
			_, err := s.entries.UpsertTx(ctx, tx, record,
				repository.UpdateSetColumn("entry_value", v),
				repository.UpdateSetColumn("updated_at", now),
			)
			if err != nil {
				return fmt.Errorf("failed to store entry %s: %w", k, err)
			}
		}
		return nil
	})
}

// Delete implements session.Storage.
func (s *SQLStorage) Delete(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	ctx, cancel := s.context()
	defer cancel()

	return s.entries.DeleteWhere(ctx, func(q *bun.DeleteQuery) *bun.DeleteQuery {
		return q.Where("?TableAlias.entry_key IN (?)", bun.In(keys))
	})
}

// Entries exposes the underlying repository.
func (s *SQLStorage) Entries() repository.Repository[*EntryModel] {
	return s.entries
}

func (s *SQLStorage) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}
