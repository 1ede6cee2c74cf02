package application

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/persistence/memory"
	"github.com/example/trainer-scheduler/internal/testfixtures"
)

var march2024 = calendar.MonthRange(calendar.NewDate(2024, time.March, 1))

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type scheduleHarness struct {
	storage *memory.Storage
	clock   *testfixtures.Clock
	ids     *testfixtures.IDGenerator
	service *ScheduleService
}

func newScheduleHarness(t *testing.T, clients ...model.Client) *scheduleHarness {
	t.Helper()

	storage := memory.New()
	for _, client := range clients {
		if err := storage.SaveClient(context.Background(), client); err != nil {
			t.Fatalf("seed client %s: %v", client.ID, err)
		}
	}
	h := &scheduleHarness{
		storage: storage,
		clock:   testfixtures.NewClock(testfixtures.ReferenceTime()),
		ids:     testfixtures.NewIDGenerator("session"),
	}
	h.service = h.restart()
	return h
}

// restart builds a service with an empty in-memory store over the same storage.
func (h *scheduleHarness) restart() *ScheduleService {
	return NewScheduleService(h.storage, h.storage, h.ids.NextFunc(), h.clock.NowFunc(), WithLogger(discardLogger()))
}

// failingOccurrences wraps memory storage and fails the configured operations.
type failingOccurrences struct {
	*memory.Storage
	loadErr      error
	saveErr      error
	tombstoneErr error
}

func (f *failingOccurrences) LoadOccurrences(ctx context.Context, start, end calendar.Date) ([]model.Occurrence, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.Storage.LoadOccurrences(ctx, start, end)
}

func (f *failingOccurrences) SaveOccurrence(ctx context.Context, o model.Occurrence) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	return f.Storage.SaveOccurrence(ctx, o)
}

func (f *failingOccurrences) SaveTombstone(ctx context.Context, key string) error {
	if f.tombstoneErr != nil {
		return f.tombstoneErr
	}
	return f.Storage.SaveTombstone(ctx, key)
}

type ledgerStub struct {
	sent map[string]bool
	err  error
}

func (l *ledgerStub) MarkReminderSent(ctx context.Context, clientID string, day calendar.Date) (bool, error) {
	if l.err != nil {
		return false, l.err
	}
	if l.sent == nil {
		l.sent = make(map[string]bool)
	}
	key := clientID + "/" + day.String()
	if l.sent[key] {
		return false, nil
	}
	l.sent[key] = true
	return true, nil
}

var errBoom = errors.New("boom")
