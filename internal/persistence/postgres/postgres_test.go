package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/payment"
	"github.com/example/trainer-scheduler/internal/persistence"
	"github.com/example/trainer-scheduler/internal/testfixtures"
)

func TestMapError(t *testing.T) {
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23505", Message: "dup"}), persistence.ErrDuplicate)
	assert.ErrorIs(t, mapError(&pgconn.PgError{Code: "23514", Message: "check"}), persistence.ErrConstraintViolation)
	assert.ErrorIs(t, mapError(fmt.Errorf("wrapped: %w", pgx.ErrNoRows)), persistence.ErrNotFound)
	assert.NoError(t, mapError(nil))

	other := errors.New("boom")
	assert.Equal(t, other, mapError(other))
}

// openTestStorage connects to TRAINER_TEST_PG_DSN. Every test works on ids
// prefixed with a fresh uuid so runs do not collide.
func openTestStorage(t *testing.T) *Storage {
	t.Helper()
	dsn := os.Getenv("TRAINER_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TRAINER_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	storage, err := Open(ctx, dsn, 2, WithClock(testfixtures.ReferenceTime))
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })
	require.NoError(t, storage.Migrate(ctx))
	return storage
}

func TestStorageRoundTrip(t *testing.T) {
	storage := openTestStorage(t)
	ctx := context.Background()
	prefix := uuid.NewString()

	client := testfixtures.NewClient(
		testfixtures.WithClientID(prefix+"-ana"),
		testfixtures.WithClientFee("180.50"),
		testfixtures.WithClientSlot(time.Friday, "06:45"),
	)
	require.NoError(t, storage.SaveClient(ctx, client))
	clients, err := storage.LoadClients(ctx)
	require.NoError(t, err)
	var found *model.Client
	for i := range clients {
		if clients[i].ID == client.ID {
			found = &clients[i]
		}
	}
	require.NotNil(t, found)
	assert.True(t, found.Fee.Equal(client.Fee))
	assert.Equal(t, client.Template, found.Template)

	o := testfixtures.NewOccurrence(
		testfixtures.WithOccurrenceSlot(client.ID, "1999-01-04", "06:45"),
		testfixtures.WithOccurrenceTags("mobility"),
	)
	require.NoError(t, storage.SaveOccurrence(ctx, o))
	loaded, err := storage.LoadOccurrences(ctx, calendar.MustParseDate("1999-01-04"), calendar.MustParseDate("1999-01-04"))
	require.NoError(t, err)
	var got *model.Occurrence
	for i := range loaded {
		if loaded[i].ID == o.ID {
			got = &loaded[i]
		}
	}
	require.NotNil(t, got)
	assert.Equal(t, []string{"mobility"}, got.Tags)

	require.NoError(t, storage.DeleteOccurrence(ctx, o.ID))
	assert.ErrorIs(t, storage.DeleteOccurrence(ctx, o.ID), persistence.ErrNotFound)

	require.NoError(t, storage.SaveTombstone(ctx, o.SourceKey))
	require.NoError(t, storage.SaveTombstone(ctx, o.SourceKey))
	keys, err := storage.LoadTombstones(ctx)
	require.NoError(t, err)
	assert.Contains(t, keys, o.SourceKey)

	paidAt := testfixtures.ReferenceTime()
	require.NoError(t, storage.SaveStatuses(ctx, []payment.Status{
		{ClientID: client.ID, DueDate: calendar.MustParseDate("2024-03-10"), Paid: true, PaidAt: &paidAt},
	}))
	statuses, err := storage.LoadStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 1)
	assert.True(t, statuses[0].Paid)
}
