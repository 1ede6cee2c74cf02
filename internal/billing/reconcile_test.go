package billing

import (
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/occurrence"
	"github.com/example/trainer-scheduler/internal/recurrence"
)

func client(id string, plan model.Plan, fee int64, active bool) model.Client {
	return model.Client{
		ID:     id,
		Name:   "Client " + id,
		Plan:   plan,
		Fee:    decimal.NewFromInt(fee),
		Active: active,
		Template: []model.Slot{
			{Weekday: time.Monday, Time: calendar.NewTimeOfDay(8, 0)},
		},
	}
}

func sessions(clientID string, start calendar.Date, count int) []model.Occurrence {
	out := make([]model.Occurrence, 0, count)
	for i := range count {
		d := start.AddDays(i)
		at := calendar.NewTimeOfDay(8, 0)
		out = append(out, model.Occurrence{ID: model.NaturalKey(clientID, d, at), ClientID: clientID, Date: d, Time: at})
	}
	return out
}

func requireDecimal(t *testing.T, want int64, got decimal.Decimal) {
	t.Helper()
	require.True(t, decimal.NewFromInt(want).Equal(got), "want %d, got %s", want, got)
}

func TestReconcile_MonthlyIsFlat(t *testing.T) {
	t.Parallel()

	today := calendar.MustParseDate("2024-03-15").Time()
	ana := client("ana", model.PlanMonthly, 150, true)

	for _, count := range []int{0, 1, 30} {
		t.Run(fmt.Sprintf("%d occurrences", count), func(t *testing.T) {
			t.Parallel()

			result := Reconcile(ana, sessions("ana", calendar.MustParseDate("2024-03-01"), count), today)
			requireDecimal(t, 150, result.Earned)
			requireDecimal(t, 150, result.Expected)
			assert.Equal(t, count, result.Total)
			assert.Equal(t, 100, result.Percent())
		})
	}

	inactive := Reconcile(client("old", model.PlanMonthly, 150, false), nil, today)
	requireDecimal(t, 0, inactive.Earned)
	requireDecimal(t, 0, inactive.Expected)
	assert.Equal(t, 100, inactive.Percent())
}

func TestReconcile_PerSession(t *testing.T) {
	t.Parallel()

	today := calendar.MustParseDate("2024-03-01").Time()
	occurrences := sessions("bia", calendar.MustParseDate("2024-03-10"), 4)
	for i := range 3 {
		occurrences[i].Completed = true
	}
	// Another client's sessions never leak into the result.
	occurrences = append(occurrences, sessions("cae", calendar.MustParseDate("2024-03-10"), 2)...)

	result := Reconcile(client("bia", model.PlanPerSession, 50, true), occurrences, today)
	requireDecimal(t, 150, result.Earned)
	requireDecimal(t, 200, result.Expected)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 3, result.Done)
	assert.Equal(t, 1, result.Pending)
	assert.Equal(t, 75, result.Percent())
	requireDecimal(t, 50, result.Outstanding())
	assert.True(t, result.LowBalance())

	frozen := Reconcile(client("bia", model.PlanPerSession, 50, false), occurrences, today)
	requireDecimal(t, 150, frozen.Expected)
	requireDecimal(t, 0, frozen.Outstanding())
}

func TestReconcile_PastSessionsCountAsDone(t *testing.T) {
	t.Parallel()

	occurrences := sessions("bia", calendar.MustParseDate("2024-03-04"), 3)
	// 2024-03-05 09:00 local: the 03-04 and 03-05 08:00 sessions have started.
	today := time.Date(2024, 3, 5, 9, 0, 0, 0, time.FixedZone("BRT", -3*60*60))

	result := Reconcile(client("bia", model.PlanPerSession, 40, true), occurrences, today)
	assert.Equal(t, 2, result.Done)
	assert.Equal(t, 1, result.Pending)
	requireDecimal(t, 80, result.Earned)
	requireDecimal(t, 120, result.Expected)
}

func TestEndToEnd_MonthlyClient(t *testing.T) {
	t.Parallel()

	ana := client("A", model.PlanMonthly, 100, true)
	// February 2021 has exactly four Mondays; today is the third one.
	start, end := calendar.MustParseDate("2021-02-01"), calendar.MustParseDate("2021-02-28")
	today := calendar.MustParseDate("2021-02-15").Time()

	store := occurrence.NewStore()
	engine := recurrence.NewEngine()
	inserted := store.Apply(engine.Plan([]model.Client{ana}, start, end, today, store.Keys()))
	require.Len(t, inserted, 4)

	result := Reconcile(ana, store.ListByDateRange(start, end), today)
	requireDecimal(t, 100, result.Earned)
	requireDecimal(t, 100, result.Expected)
	assert.Equal(t, 4, result.Total)
	assert.Equal(t, 2, result.Done)
	assert.Equal(t, 2, result.Pending)
}
