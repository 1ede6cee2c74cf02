package payment

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
)

func date(value string) calendar.Date { return calendar.MustParseDate(value) }

func monthly(id string, billingDay int) model.Client {
	return model.Client{ID: id, Name: id, Plan: model.PlanMonthly, BillingDay: billingDay, Fee: decimal.NewFromInt(150), Active: true}
}

func perSession(id string) model.Client {
	return model.Client{ID: id, Name: id, Plan: model.PlanPerSession, Fee: decimal.NewFromInt(50), Active: true}
}

func at(clientID, day string, completed bool) model.Occurrence {
	d, tod := date(day), calendar.NewTimeOfDay(8, 0)
	return model.Occurrence{ID: model.NaturalKey(clientID, d, tod), ClientID: clientID, Date: d, Time: tod, Completed: completed}
}

func TestMonthlyDueDate_ClampsBillingDay(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "2023-02-28", MonthlyDueDate(monthly("ana", 31), date("2023-02-10")).String())
	assert.Equal(t, "2024-02-29", MonthlyDueDate(monthly("ana", 31), date("2024-02-10")).String())
	assert.Equal(t, "2023-03-31", MonthlyDueDate(monthly("ana", 31), date("2023-03-10")).String())
	assert.Equal(t, "2023-03-01", MonthlyDueDate(monthly("ana", 0), date("2023-03-10")).String())
}

func TestTracker_Rebuild(t *testing.T) {
	t.Parallel()

	today := date("2023-02-15").Time()
	occurrences := []model.Occurrence{
		at("bia", "2023-02-13", false),
		at("bia", "2023-02-22", false),
		at("bia", "2023-02-17", true),
		at("bia", "2023-02-20", false),
	}

	tracker := NewTracker()
	tracker.Rebuild([]model.Client{monthly("ana", 31), perSession("bia"), perSession("cae")}, occurrences, date("2023-02-01"), today)

	ana, ok := tracker.Status("ana")
	require.True(t, ok)
	assert.Equal(t, "2023-02-28", ana.DueDate.String())
	assert.False(t, ana.Paid)

	bia, _ := tracker.Status("bia")
	assert.Equal(t, "2023-02-20", bia.DueDate.String(), "nearest pending session, skipping past and completed ones")

	cae, _ := tracker.Status("cae")
	assert.Equal(t, "2023-02-15", cae.DueDate.String(), "falls back to today")

	t.Run("paid statuses survive a rebuild", func(t *testing.T) {
		_, err := tracker.MarkPaid("ana", occurrences, today, today)
		require.NoError(t, err)

		tracker.Rebuild([]model.Client{monthly("ana", 31), perSession("bia")}, occurrences, date("2023-02-01"), today)
		ana, _ := tracker.Status("ana")
		assert.True(t, ana.Paid)
		_, ok := tracker.Status("cae")
		assert.False(t, ok, "clients missing from the roster are dropped")
	})
}

func TestTracker_Toggle(t *testing.T) {
	t.Parallel()

	today := date("2024-03-05").Time()
	now := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	occurrences := []model.Occurrence{at("bia", "2024-03-06", false), at("bia", "2024-03-08", false)}

	tracker := NewTracker()
	tracker.Rebuild([]model.Client{perSession("bia"), monthly("ana", 10)}, occurrences, date("2024-03-01"), today)

	paid, err := tracker.Toggle("bia", occurrences, today, now)
	require.NoError(t, err)
	assert.True(t, paid.Paid)
	require.NotNil(t, paid.PaidAt)
	assert.Equal(t, now, *paid.PaidAt)
	assert.Equal(t, "2024-03-06", paid.DueDate.String())

	// By the 7th the first session is realized, so the recomputed due date moves on.
	later := date("2024-03-07").Time()
	unpaid, err := tracker.Toggle("bia", occurrences, later, now)
	require.NoError(t, err)
	assert.False(t, unpaid.Paid)
	assert.Nil(t, unpaid.PaidAt)
	assert.Equal(t, "2024-03-08", unpaid.DueDate.String())

	monthlyPaid, err := tracker.Toggle("ana", nil, today, now)
	require.NoError(t, err)
	assert.Equal(t, "2024-03-10", monthlyPaid.DueDate.String())

	_, err = tracker.Toggle("ghost", nil, today, now)
	require.ErrorIs(t, err, model.ErrNotFound)
}

func TestTracker_ToggleConcurrent(t *testing.T) {
	t.Parallel()

	today := date("2024-03-05").Time()
	tracker := NewTracker()
	tracker.Rebuild([]model.Client{monthly("ana", 10)}, nil, date("2024-03-01"), today)

	const toggles = 50
	results := make(chan bool, toggles)
	var wg sync.WaitGroup
	for range toggles {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, err := tracker.Toggle("ana", nil, today, today)
			assert.NoError(t, err)
			results <- status.Paid
		}()
	}
	wg.Wait()
	close(results)

	paid := 0
	for result := range results {
		if result {
			paid++
		}
	}
	assert.Equal(t, toggles/2, paid, "every toggle observes the previous flip")
	final, _ := tracker.Status("ana")
	assert.False(t, final.Paid)
}

func TestOverdueAndReminderCadence(t *testing.T) {
	t.Parallel()

	today := date("2024-03-20").Time()
	status := Status{ClientID: "ana", DueDate: date("2024-03-10")}

	days := OverdueDays(status, today)
	assert.Equal(t, 10, days)
	assert.False(t, ReminderDue(days))
	assert.True(t, ReminderDue(9))
	assert.True(t, ReminderDue(12))
	assert.False(t, ReminderDue(0))
	assert.False(t, ReminderDue(-3))

	status.Paid = true
	assert.Zero(t, OverdueDays(status, today))

	assert.Zero(t, OverdueDays(Status{DueDate: date("2024-03-20")}, today))
	assert.Zero(t, OverdueDays(Status{DueDate: date("2024-03-25")}, today))
}

func TestTracker_Reminders(t *testing.T) {
	t.Parallel()

	tracker := NewTracker()
	clients := []model.Client{monthly("ana", 1), monthly("bia", 3), monthly("cae", 4), monthly("dan", 10)}
	tracker.Rebuild(clients, nil, date("2024-03-01"), date("2024-03-01").Time())

	// 2024-03-13: ana 12 days, bia 10 days, cae 9 days, dan 3 days.
	reminders := tracker.Reminders(date("2024-03-13").Time())
	require.Len(t, reminders, 3)
	assert.Equal(t, "ana", reminders[0].Client.ID)
	assert.Equal(t, 12, reminders[0].OverdueDays)
	assert.Equal(t, "cae", reminders[1].Client.ID)
	assert.Equal(t, "dan", reminders[2].Client.ID)

	assert.Len(t, tracker.Overdue(date("2024-03-13").Time()), 4)
}

func TestTracker_SnapshotRestore(t *testing.T) {
	t.Parallel()

	today := date("2024-03-05").Time()
	tracker := NewTracker()
	tracker.Rebuild([]model.Client{monthly("ana", 10), monthly("bia", 10)}, nil, date("2024-03-01"), today)
	_, err := tracker.MarkPaid("bia", nil, today, today)
	require.NoError(t, err)

	snapshot := tracker.Snapshot()
	require.Len(t, snapshot, 2)
	assert.Equal(t, "ana", snapshot[0].ClientID)

	restored := NewTracker()
	restored.Restore(snapshot)
	restored.Rebuild([]model.Client{monthly("ana", 10), monthly("bia", 10)}, nil, date("2024-03-01"), today)
	bia, ok := restored.Status("bia")
	require.True(t, ok)
	assert.True(t, bia.Paid)
}
