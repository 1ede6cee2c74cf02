package occurrence

import (
	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
)

// Overlap describes another session sharing time with a candidate. Double
// bookings are allowed, so overlaps are informational and never block a write.
type Overlap struct {
	WithOccurrenceID string
	ClientID         string
	SameClient       bool
}

// DetectOverlaps lists the sessions in existing whose time span intersects the
// candidate's. The candidate itself, matched by id, is ignored.
func DetectOverlaps(existing []model.Occurrence, candidate model.Occurrence) []Overlap {
	start, end := candidate.Start(), candidate.End()
	var overlaps []Overlap
	for _, other := range existing {
		if other.ID == candidate.ID || other.Date != candidate.Date {
			continue
		}
		if other.Start().Before(end) && start.Before(other.End()) {
			overlaps = append(overlaps, Overlap{
				WithOccurrenceID: other.ID,
				ClientID:         other.ClientID,
				SameClient:       other.ClientID == candidate.ClientID,
			})
		}
	}
	return overlaps
}

// Overlaps reports the stored sessions overlapping the given occurrence.
func (s *Store) Overlaps(candidate model.Occurrence) []Overlap {
	return DetectOverlaps(s.ListByDateRange(candidate.Date, candidate.Date), candidate)
}

// DaySummary totals one day of the agenda.
type DaySummary struct {
	Date         calendar.Date
	Sessions     int
	Completed    int
	TotalMinutes int
	// BySlot groups the day's sessions under the hourly grid slot they start in.
	BySlot map[calendar.TimeOfDay][]model.Occurrence
}

// DaySummary returns the sessions booked on date grouped into hourly slots.
func (s *Store) DaySummary(date calendar.Date) DaySummary {
	summary := DaySummary{
		Date:   date,
		BySlot: make(map[calendar.TimeOfDay][]model.Occurrence),
	}
	for _, o := range s.ListByDateRange(date, date) {
		summary.Sessions++
		summary.TotalMinutes += o.Duration()
		if o.Completed {
			summary.Completed++
		}
		slot := calendar.NewTimeOfDay(o.Time.Hour, 0)
		summary.BySlot[slot] = append(summary.BySlot[slot], o)
	}
	return summary
}
