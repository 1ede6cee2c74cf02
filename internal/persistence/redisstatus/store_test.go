package redisstatus

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/payment"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return New(client, "test"), mr
}

func TestStoreStatusesRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	paidAt := time.Date(2024, time.March, 10, 9, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveStatuses(ctx, []payment.Status{
		{ClientID: "bia", DueDate: calendar.MustParseDate("2024-03-10"), Paid: true, PaidAt: &paidAt},
		{ClientID: "ana", DueDate: calendar.MustParseDate("2024-03-05")},
	}))
	assert.True(t, mr.Exists("test:payment:statuses"))

	statuses, err := store.LoadStatuses(ctx)
	require.NoError(t, err)
	require.Len(t, statuses, 2)
	assert.Equal(t, "ana", statuses[0].ClientID)
	assert.Equal(t, "2024-03-05", statuses[0].DueDate.String())
	require.NotNil(t, statuses[1].PaidAt)
	assert.True(t, statuses[1].PaidAt.Equal(paidAt))

	require.NoError(t, store.SaveStatuses(ctx, statuses[:1]))
	statuses, err = store.LoadStatuses(ctx)
	require.NoError(t, err)
	assert.Len(t, statuses, 1)

	require.NoError(t, store.SaveStatuses(ctx, nil))
	statuses, err = store.LoadStatuses(ctx)
	require.NoError(t, err)
	assert.Empty(t, statuses)
}

func TestStoreMarkReminderSentOncePerDay(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	day := calendar.MustParseDate("2024-03-13")

	first, err := store.MarkReminderSent(ctx, "ana", day)
	require.NoError(t, err)
	assert.True(t, first)

	second, err := store.MarkReminderSent(ctx, "ana", day)
	require.NoError(t, err)
	assert.False(t, second)

	nextCadence, err := store.MarkReminderSent(ctx, "ana", day.AddDays(3))
	require.NoError(t, err)
	assert.True(t, nextCadence)

	mr.FastForward(49 * time.Hour)
	again, err := store.MarkReminderSent(ctx, "ana", day)
	require.NoError(t, err)
	assert.True(t, again)

	_, err = store.MarkReminderSent(ctx, "", day)
	assert.Error(t, err)
}

func TestConnectFailsWithoutServer(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := Connect(context.Background(), addr)
	assert.Error(t, err)
}
