package calendar

import (
	"fmt"
	"iter"
)

// Range is an inclusive window of calendar days.
type Range struct {
	Start Date
	End   Date
}

// MonthRange returns the calendar month containing d.
func MonthRange(d Date) Range {
	return Range{Start: StartOfMonth(d), End: EndOfMonth(d)}
}

// WeekRange returns the Monday..Sunday week containing d.
func WeekRange(d Date) Range {
	start := StartOfWeek(d)
	return Range{Start: start, End: start.AddDays(6)}
}

// Validate returns ErrInvalidRange when the window is empty or unset.
func (r Range) Validate() error {
	if r.Start.IsZero() || r.End.IsZero() || r.End.Before(r.Start) {
		return fmt.Errorf("%w: %s..%s", ErrInvalidRange, r.Start, r.End)
	}
	return nil
}

// Contains reports whether d falls inside the window.
func (r Range) Contains(d Date) bool {
	return !d.Before(r.Start) && !d.After(r.End)
}

// Days iterates the window; see DaysBetween.
func (r Range) Days() iter.Seq[Date] {
	return DaysBetween(r.Start, r.End)
}

// Len returns the number of days in the window, or 0 when it is invalid.
func (r Range) Len() int {
	if r.Validate() != nil {
		return 0
	}
	return DaysUntil(r.Start, r.End) + 1
}

// String formats the window as start..end.
func (r Range) String() string {
	return r.Start.String() + ".." + r.End.String()
}
