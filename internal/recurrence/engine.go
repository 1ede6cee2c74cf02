// Package recurrence expands clients' weekly templates into concrete
// occurrences and computes the delta a store still lacks.
package recurrence

import (
	"slices"
	"strings"
	"time"

	"github.com/teambition/rrule-go"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
)

// DefaultSlotTime is used for template slots that carry no usable time.
var DefaultSlotTime = calendar.NewTimeOfDay(8, 0)

// Engine expands weekly templates into occurrences.
type Engine struct {
	durationMinutes int
	slotTime        calendar.TimeOfDay
}

// Option customizes an Engine.
type Option func(*Engine)

// WithDuration overrides the length given to materialized sessions.
func WithDuration(minutes int) Option {
	return func(e *Engine) {
		if minutes > 0 {
			e.durationMinutes = minutes
		}
	}
}

// WithDefaultSlotTime overrides the fallback time for slots without a valid time.
func WithDefaultSlotTime(t calendar.TimeOfDay) Option {
	return func(e *Engine) {
		if t.Valid() {
			e.slotTime = t
		}
	}
}

// NewEngine constructs an Engine with sixty minute sessions and an 08:00
// fallback slot time unless overridden.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		durationMinutes: model.DefaultDurationMinutes,
		slotTime:        DefaultSlotTime,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// Materialize returns every candidate occurrence of the clients' templates
// inside the inclusive window [start, end].
//
// The engine enforces the following semantics:
//   - Consulting-only clients and clients with empty templates produce nothing.
//   - Inactive clients keep candidates dated on or before today; later dates are suppressed.
//   - A malformed window (end before start, or a zero bound) yields no candidates.
//   - Duplicate template entries collapse into one candidate per natural key.
//   - Results are ordered by date, time, then client id.
func (e *Engine) Materialize(clients []model.Client, start, end calendar.Date, today time.Time) []model.Occurrence {
	window := calendar.Range{Start: start, End: end}
	if window.Validate() != nil {
		return nil
	}
	todayDate := calendar.DateOf(today)

	seen := make(KeySet)
	out := make([]model.Occurrence, 0)
	for _, client := range clients {
		if client.ConsultingOnly || len(client.Template) == 0 {
			continue
		}
		for _, slot := range client.Template {
			at := slot.Time
			if !at.Valid() {
				at = e.slotTime
			}
			for _, date := range e.expandSlot(slot.Weekday, at, window) {
				if !client.Active && todayDate.Before(date) {
					continue
				}
				key := model.NaturalKey(client.ID, date, at)
				if seen.Has(key) {
					continue
				}
				seen.Add(key)
				out = append(out, model.Occurrence{
					ID:              key,
					ClientID:        client.ID,
					ClientName:      client.Name,
					Date:            date,
					Time:            at,
					DurationMinutes: e.durationMinutes,
					SourceKey:       key,
				})
			}
		}
	}

	slices.SortStableFunc(out, compareCandidates)
	return out
}

// Plan returns the candidates of Materialize whose natural key is not in
// existing. Passing the store's keys, source keys and tombstones makes repeated
// runs over overlapping windows insert each session at most once.
func (e *Engine) Plan(clients []model.Client, start, end calendar.Date, today time.Time, existing KeySet) []model.Occurrence {
	candidates := e.Materialize(clients, start, end, today)
	if len(existing) == 0 {
		return candidates
	}
	delta := candidates[:0]
	for _, candidate := range candidates {
		if existing.Has(candidate.Key()) {
			continue
		}
		delta = append(delta, candidate)
	}
	return delta
}

func (e *Engine) expandSlot(weekday time.Weekday, at calendar.TimeOfDay, window calendar.Range) []calendar.Date {
	byDay, ok := rruleWeekday(weekday)
	if !ok {
		return nil
	}

	dtstart := calendar.At(window.Start, at)
	until := calendar.At(window.End, at)
	rule, err := rrule.NewRRule(rrule.ROption{
		Freq:      rrule.WEEKLY,
		Byweekday: []rrule.Weekday{byDay},
		Dtstart:   dtstart,
		Until:     until,
	})
	if err != nil {
		return nil
	}

	instants := rule.Between(dtstart, until, true)
	dates := make([]calendar.Date, 0, len(instants))
	for _, instant := range instants {
		date := calendar.DateOf(instant.In(time.UTC))
		if date.Weekday() != weekday || !window.Contains(date) {
			continue
		}
		dates = append(dates, date)
	}
	return dates
}

func rruleWeekday(day time.Weekday) (rrule.Weekday, bool) {
	switch day {
	case time.Monday:
		return rrule.MO, true
	case time.Tuesday:
		return rrule.TU, true
	case time.Wednesday:
		return rrule.WE, true
	case time.Thursday:
		return rrule.TH, true
	case time.Friday:
		return rrule.FR, true
	case time.Saturday:
		return rrule.SA, true
	case time.Sunday:
		return rrule.SU, true
	default:
		return rrule.Weekday{}, false
	}
}

func compareCandidates(a, b model.Occurrence) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	return strings.Compare(a.ClientID, b.ClientID)
}
