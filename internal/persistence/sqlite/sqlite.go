// Package sqlite persists the roster, sessions, tombstones and payment
// statuses in a SQLite database through the pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/trainer-scheduler/internal/persistence"
	"github.com/example/trainer-scheduler/internal/persistence/sqlite/migration"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Storage implements the persistence repositories on one database handle.
type Storage struct {
	db     *sql.DB
	retry  RetryPolicy
	logger *slog.Logger
	now    func() time.Time
}

var (
	_ persistence.Store            = (*Storage)(nil)
	_ persistence.StatusRepository = (*Storage)(nil)
)

// Option customizes a Storage.
type Option func(*Storage)

// WithLogger sets the logger used for migrations.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Storage) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock stamping updated_at columns.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRetryPolicy overrides how long statements wait out a locked database.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(s *Storage) {
		s.retry = policy
	}
}

// Open opens the database file at path with the default configuration.
func Open(path string, opts ...Option) (*Storage, error) {
	return OpenWithConfig(migration.DefaultSQLiteConfig(path), opts...)
}

// OpenWithConfig opens a database with an explicit configuration.
func OpenWithConfig(config migration.SQLiteConfig, opts ...Option) (*Storage, error) {
	db, err := migration.Open(config)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	s := &Storage{
		db:     db,
		retry:  DefaultRetryPolicy(),
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Migrate applies the embedded schema migrations.
func (s *Storage) Migrate(ctx context.Context) error {
	executor := migration.NewSQLiteExecutor(s.db)
	manager := migration.NewManager(migration.NewFileScanner(), executor, migrationFiles, "migrations", s.logger)
	if err := manager.Run(ctx); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Ping checks that the database is reachable.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database handle.
func (s *Storage) Close() error {
	return s.db.Close()
}

func (s *Storage) timestamp() string {
	return s.now().UTC().Format(time.RFC3339Nano)
}

func parseTimestamp(value string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err != nil {
		return time.Time{}
	}
	return t
}
