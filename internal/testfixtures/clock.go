package testfixtures

import (
	"sync"
	"time"

	"github.com/example/trainer-scheduler/internal/calendar"
)

// Clock is a settable time source. Services capture "today" from it once per
// pass, so tests move it between calls to walk through billing cycles.
type Clock struct {
	mu      sync.Mutex
	current time.Time
}

// NewClock starts at start, or at ReferenceTime when start is zero.
func NewClock(start time.Time) *Clock {
	if start.IsZero() {
		start = ReferenceTime()
	}
	return &Clock{current: start}
}

// Now returns the clock reading.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NowFunc returns Now for injection; a nil clock falls back to time.Now.
func (c *Clock) NowFunc() func() time.Time {
	if c == nil {
		return time.Now
	}
	return c.Now
}

// Set moves the clock to t.
func (c *Clock) Set(t time.Time) {
	c.mu.Lock()
	c.current = t
	c.mu.Unlock()
}

// SetDay moves the clock to the wall time at ("HH:MM") on date, keeping the
// clock's location.
func (c *Clock) SetDay(date calendar.Date, at string) time.Time {
	clock := calendar.MustParseTimeOfDay(at)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = time.Date(date.Year, date.Month, date.Day, clock.Hour, clock.Minute, 0, 0, c.current.Location())
	return c.current
}

// Advance moves the clock forward by d and returns the new reading.
func (c *Clock) Advance(d time.Duration) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
	return c.current
}

// AdvanceDays moves the clock by whole calendar days, keeping the wall time.
func (c *Clock) AdvanceDays(n int) time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.AddDate(0, 0, n)
	return c.current
}

// Today returns the calendar date of the current reading.
func (c *Clock) Today() calendar.Date {
	return calendar.DateOf(c.Now())
}
