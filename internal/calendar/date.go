// Package calendar provides the civil date and time-of-day arithmetic shared by
// the scheduling and billing engines. Every function is pure and deterministic;
// nothing here reads the wall clock.
package calendar

import (
	"errors"
	"fmt"
	"iter"
	"time"
)

var (
	// ErrInvalidRange indicates a window whose end precedes its start.
	ErrInvalidRange = errors.New("calendar: invalid range")
	// ErrInvalidDate indicates a value that is not an ISO calendar date (YYYY-MM-DD).
	ErrInvalidDate = errors.New("calendar: invalid date")
	// ErrInvalidTime indicates a value that is not a 24-hour HH:MM time.
	ErrInvalidTime = errors.New("calendar: invalid time of day")
)

const isoDate = "2006-01-02"

// Date is a calendar day without a time zone. The zero value is not a valid
// date and reports IsZero.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// NewDate returns the normalized date for the given components, so that
// NewDate(2024, time.February, 30) yields March 1st.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the calendar date of t as observed in t's own location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses the ISO form used at the persistence boundary.
func ParseDate(value string) (Date, error) {
	t, err := time.Parse(isoDate, value)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
	}
	return DateOf(t), nil
}

// MustParseDate is ParseDate for literals known to be valid.
func MustParseDate(value string) Date {
	d, err := ParseDate(value)
	if err != nil {
		panic(err)
	}
	return d
}

// IsZero reports whether d is the zero Date.
func (d Date) IsZero() bool {
	return d == Date{}
}

// Time returns midnight UTC of d.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

// AddDays returns d shifted by n days.
func (d Date) AddDays(n int) Date {
	return DateOf(d.Time().AddDate(0, 0, n))
}

// AddMonths returns d shifted by n months, normalizing overflowing days.
func (d Date) AddMonths(n int) Date {
	return DateOf(d.Time().AddDate(0, n, 0))
}

// Compare returns -1, 0 or +1 depending on whether d is before, equal to or after other.
func (d Date) Compare(other Date) int {
	switch {
	case d.Year != other.Year:
		return cmpInt(d.Year, other.Year)
	case d.Month != other.Month:
		return cmpInt(int(d.Month), int(other.Month))
	default:
		return cmpInt(d.Day, other.Day)
	}
}

// Before reports whether d falls strictly before other.
func (d Date) Before(other Date) bool { return d.Compare(other) < 0 }

// After reports whether d falls strictly after other.
func (d Date) After(other Date) bool { return d.Compare(other) > 0 }

// Weekday returns the day of the week of d.
func (d Date) Weekday() time.Weekday {
	return d.Time().Weekday()
}

// String formats d as YYYY-MM-DD.
func (d Date) String() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// MarshalText implements encoding.TextMarshaler.
func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Date) UnmarshalText(text []byte) error {
	parsed, err := ParseDate(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// WeekdayOf maps d to one of Monday..Sunday.
func WeekdayOf(d Date) time.Weekday {
	return d.Weekday()
}

// StartOfWeek returns the Monday of the week containing d.
func StartOfWeek(d Date) Date {
	// Go numbers Sunday as 0; shift so Monday is the first day.
	offset := (int(d.Weekday()) + 6) % 7
	return d.AddDays(-offset)
}

// StartOfMonth returns the first day of d's month.
func StartOfMonth(d Date) Date {
	return Date{Year: d.Year, Month: d.Month, Day: 1}
}

// EndOfMonth returns the last day of d's month.
func EndOfMonth(d Date) Date {
	return Date{Year: d.Year, Month: d.Month, Day: DaysInMonth(d)}
}

// DaysInMonth returns the number of days in d's month.
func DaysInMonth(d Date) int {
	return time.Date(d.Year, d.Month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDay returns the date in d's month whose day is day, clamped to
// [1, DaysInMonth(d)].
func ClampDay(d Date, day int) Date {
	if day < 1 {
		day = 1
	}
	if last := DaysInMonth(d); day > last {
		day = last
	}
	return Date{Year: d.Year, Month: d.Month, Day: day}
}

// DaysUntil returns the signed number of whole days from from to to.
func DaysUntil(from, to Date) int {
	return int(to.Time().Sub(from.Time()).Hours() / 24)
}

// DaysBetween yields every date from start to end inclusive. The sequence is
// empty when end precedes start and can be ranged over any number of times.
func DaysBetween(start, end Date) iter.Seq[Date] {
	return func(yield func(Date) bool) {
		if start.IsZero() || end.IsZero() || end.Before(start) {
			return
		}
		for d := start; !d.After(end); d = d.AddDays(1) {
			if !yield(d) {
				return
			}
		}
	}
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
