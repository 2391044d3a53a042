package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"time"

	persistence "github.com/goliatone/go-persistence-bun"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// Manager owns the database handle behind the SQL storage and the activity log.
type Manager struct {
	db       *bun.DB
	storage  *SQLStorage
	activity *ActivityLog
}

// NewManager wraps an existing database.
func NewManager(db *bun.DB, opts ...StorageOption) *Manager {
	return &Manager{
		db:       db,
		storage:  NewSQLStorage(db, opts...),
		activity: NewActivityLog(db),
	}
}

// sqliteConfig satisfies persistence.Config for a local sqlite file.
type sqliteConfig struct {
	dsn   string
	debug bool
}

func (c sqliteConfig) GetDebug() bool                { return c.debug }
func (c sqliteConfig) GetDriver() string             { return sqliteshim.ShimName }
func (c sqliteConfig) GetServer() string             { return c.dsn }
func (c sqliteConfig) GetDatabase() string           { return c.dsn }
func (c sqliteConfig) GetPingTimeout() time.Duration { return 5 * time.Second }
func (c sqliteConfig) GetOtelIdentifier() string     { return "" }

// OpenSQLite opens (or creates) a sqlite database at dsn and applies the migrations.
// Use "file::memory:?cache=shared" for a throwaway database.
func OpenSQLite(ctx context.Context, dsn string, opts ...StorageOption) (*Manager, error) {
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite %s: %w", dsn, err)
	}
	sqldb.SetMaxOpenConns(1)

	persistence.RegisterModel((*EntryModel)(nil), (*ActivityModel)(nil))

	client, err := persistence.New(sqliteConfig{dsn: dsn}, sqldb, sqlitedialect.New())
	if err != nil {
		_ = sqldb.Close()
		return nil, fmt.Errorf("failed to connect sqlite %s: %w", dsn, err)
	}

	db, ok := client.DB().(*bun.DB)
	if !ok {
		_ = sqldb.Close()
		return nil, errors.New("persistence client did not return a *bun.DB")
	}

	m := NewManager(db, opts...)
	if err := m.Migrate(ctx); err != nil {
		_ = m.Close()
		return nil, err
	}
	return m, nil
}

// Validate checks the manager is usable.
func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}
	if m.storage == nil {
		return errors.New("repository storage should be initialized")
	}
	if m.activity == nil {
		return errors.New("repository activity log should be initialized")
	}
	return nil
}

// Migrate applies the embedded SQL migrations. Applied migrations are tracked by
// bun, so calling it again is a no-op.
func (m *Manager) Migrate(ctx context.Context) error {
	if err := m.Validate(); err != nil {
		return err
	}

	migrationsFS, err := fs.Sub(GetMigrationsFS(), "data/sql/migrations")
	if err != nil {
		return err
	}

	migrations := &persistence.Migrations{}
	if err := migrations.RegisterSQLMigrations(migrationsFS).Migrate(ctx, m.db); err != nil {
		return fmt.Errorf("failed to migrate session tables: %w", err)
	}
	return nil
}

// RunInTx runs f in a transaction unless ctx is already done.
func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}

// Storage returns the session storage.
func (m *Manager) Storage() *SQLStorage {
	return m.storage
}

// Activity returns the activity log.
func (m *Manager) Activity() *ActivityLog {
	return m.activity
}

// Entries returns the session entries repository.
func (m *Manager) Entries() repository.Repository[*EntryModel] {
	return m.storage.Entries()
}

// Activities returns the activity records repository.
func (m *Manager) Activities() repository.Repository[*ActivityModel] {
	return m.activity.Records()
}

// DB returns the underlying database.
func (m *Manager) DB() *bun.DB {
	return m.db
}

// Close closes the database.
func (m *Manager) Close() error {
	return m.db.Close()
}
