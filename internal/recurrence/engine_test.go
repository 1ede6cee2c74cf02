package recurrence

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
)

func mondayClient(id string, active bool) model.Client {
	return model.Client{
		ID:     id,
		Name:   "Client " + id,
		Plan:   model.PlanMonthly,
		Fee:    decimal.NewFromInt(100),
		Active: active,
		Template: []model.Slot{
			{Weekday: time.Monday, Time: calendar.NewTimeOfDay(8, 0)},
		},
	}
}

func date(value string) calendar.Date {
	return calendar.MustParseDate(value)
}

func TestEngine_Materialize(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	// February 2021 starts on a Monday and has exactly four of them.
	start, end := date("2021-02-01"), date("2021-02-28")
	today := date("2021-02-15").Time()

	t.Run("expands the weekly template over the window", func(t *testing.T) {
		t.Parallel()

		got := engine.Materialize([]model.Client{mondayClient("a", true)}, start, end, today)
		require.Len(t, got, 4)
		for i, want := range []string{"2021-02-01", "2021-02-08", "2021-02-15", "2021-02-22"} {
			assert.Equal(t, want, got[i].Date.String())
			assert.Equal(t, "08:00", got[i].Time.String())
			assert.Equal(t, model.DefaultDurationMinutes, got[i].DurationMinutes)
			assert.Equal(t, "a-"+want+"-08:00", got[i].ID)
			assert.Equal(t, got[i].ID, got[i].SourceKey)
			assert.Equal(t, got[i].ID, got[i].Key())
		}
	})

	t.Run("suppresses future dates for inactive clients", func(t *testing.T) {
		t.Parallel()

		got := engine.Materialize([]model.Client{mondayClient("a", false)}, start, end, today)
		require.Len(t, got, 3)
		for _, occ := range got {
			assert.False(t, occ.Date.After(date("2021-02-15")), occ.Date.String())
		}
	})

	t.Run("skips consulting only clients and empty templates", func(t *testing.T) {
		t.Parallel()

		consulting := mondayClient("c", true)
		consulting.ConsultingOnly = true
		empty := mondayClient("e", true)
		empty.Template = nil

		assert.Empty(t, engine.Materialize([]model.Client{consulting, empty}, start, end, today))
	})

	t.Run("malformed window yields nothing", func(t *testing.T) {
		t.Parallel()

		assert.Empty(t, engine.Materialize([]model.Client{mondayClient("a", true)}, end, start, today))
		assert.Empty(t, engine.Materialize([]model.Client{mondayClient("a", true)}, calendar.Date{}, end, today))
	})

	t.Run("collapses duplicate template entries", func(t *testing.T) {
		t.Parallel()

		client := mondayClient("a", true)
		client.Template = append(client.Template, client.Template[0])

		assert.Len(t, engine.Materialize([]model.Client{client}, start, end, today), 4)
	})

	t.Run("falls back to the default slot time", func(t *testing.T) {
		t.Parallel()

		client := mondayClient("a", true)
		client.Template[0].Time = calendar.TimeOfDay{Hour: 99}

		got := engine.Materialize([]model.Client{client}, start, start, today)
		require.Len(t, got, 1)
		assert.Equal(t, DefaultSlotTime, got[0].Time)
	})

	t.Run("orders by date, time and client", func(t *testing.T) {
		t.Parallel()

		early := mondayClient("z", true)
		early.Template[0].Time = calendar.NewTimeOfDay(6, 30)
		wednesday := mondayClient("b", true)
		wednesday.Template = []model.Slot{{Weekday: time.Wednesday, Time: calendar.NewTimeOfDay(7, 0)}}

		got := engine.Materialize([]model.Client{wednesday, mondayClient("y", true), early, mondayClient("x", true)},
			date("2021-02-01"), date("2021-02-03"), today)
		require.Len(t, got, 4)
		assert.Equal(t, []string{"z", "x", "y", "b"}, []string{got[0].ClientID, got[1].ClientID, got[2].ClientID, got[3].ClientID})
	})

	t.Run("honours options", func(t *testing.T) {
		t.Parallel()

		custom := NewEngine(WithDuration(45), WithDefaultSlotTime(calendar.NewTimeOfDay(7, 0)), nil)
		client := mondayClient("a", true)
		client.Template[0].Time = calendar.TimeOfDay{Hour: -1}

		got := custom.Materialize([]model.Client{client}, start, start, today)
		require.Len(t, got, 1)
		assert.Equal(t, 45, got[0].DurationMinutes)
		assert.Equal(t, "07:00", got[0].Time.String())
	})
}

func TestEngine_Plan(t *testing.T) {
	t.Parallel()

	engine := NewEngine()
	clients := []model.Client{mondayClient("a", true)}
	start, end := date("2021-02-01"), date("2021-02-28")
	today := date("2021-02-01").Time()

	first := engine.Plan(clients, start, end, today, nil)
	require.Len(t, first, 4)

	existing := NewKeySet()
	for _, occ := range first {
		existing.Add(occ.Key())
	}
	assert.Empty(t, engine.Plan(clients, start, end, today, existing), "second pass must be a no-op")

	// A tombstoned slot (deleted or moved away) is never re-created.
	partial := NewKeySet(first[0].Key(), first[1].Key(), first[3].Key())
	again := engine.Plan(clients, start, end, today, partial)
	require.Len(t, again, 1)
	assert.Equal(t, first[2].Key(), again[0].Key())

	// Overlapping windows only add the genuinely new dates.
	extended := engine.Plan(clients, date("2021-02-15"), date("2021-03-08"), today, existing)
	require.Len(t, extended, 2)
	assert.Equal(t, "2021-03-01", extended[0].Date.String())
	assert.Equal(t, "2021-03-08", extended[1].Date.String())
}

func TestKeySet(t *testing.T) {
	t.Parallel()

	set := NewKeySet("a", "", "b")
	assert.Len(t, set, 2)
	assert.True(t, set.Has("a"))
	assert.False(t, set.Has(""))

	set.Merge(NewKeySet("c"))
	assert.True(t, set.Has("c"))
}

func BenchmarkEngineMaterialize(b *testing.B) {
	engine := NewEngine()
	clients := make([]model.Client, 0, 40)
	for i := range 40 {
		client := mondayClient(string(rune('a'+i%26))+"-bench", true)
		client.ID = client.ID + string(rune('0'+i/26))
		client.Template = append(client.Template,
			model.Slot{Weekday: time.Wednesday, Time: calendar.NewTimeOfDay(18, 0)},
			model.Slot{Weekday: time.Friday, Time: calendar.NewTimeOfDay(7, 0)})
		clients = append(clients, client)
	}
	start, end := date("2024-01-01"), date("2024-03-31")
	today := date("2024-02-01").Time()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if len(engine.Materialize(clients, start, end, today)) == 0 {
			b.Fatal("expected occurrences to be generated")
		}
	}
}
