package testfixtures

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/persistence/sqlite"
	"github.com/example/trainer-scheduler/internal/persistence/sqlite/migration"
)

// SQLiteHarness is a migrated scratch database stamped by its own Clock.
type SQLiteHarness struct {
	Storage *sqlite.Storage
	Clock   *Clock
}

// NewSQLiteHarness opens a migrated database in tb's temp dir and stores the
// given clients in it. The database is closed when the test ends.
func NewSQLiteHarness(tb testing.TB, clients ...model.Client) *SQLiteHarness {
	tb.Helper()

	clock := NewClock(ReferenceTime())
	storage, err := sqlite.OpenWithConfig(
		migration.ScratchSQLiteConfig(filepath.Join(tb.TempDir(), "trainer.db")),
		sqlite.WithClock(clock.NowFunc()),
		sqlite.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		tb.Fatalf("open sqlite: %v", err)
	}
	tb.Cleanup(func() { _ = storage.Close() })

	ctx := context.Background()
	if err := storage.Migrate(ctx); err != nil {
		tb.Fatalf("migrate sqlite: %v", err)
	}
	for _, client := range clients {
		if err := storage.SaveClient(ctx, client); err != nil {
			tb.Fatalf("seed client %s: %v", client.ID, err)
		}
	}
	return &SQLiteHarness{Storage: storage, Clock: clock}
}
