// Package export renders sessions and payment reminders for consumption
// outside the engine: an iCalendar feed and WhatsApp-ready reminder text.
package export

import (
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/example/trainer-scheduler/internal/model"
)

const productID = "-//trainer-scheduler//sessions//PT"

// CalendarFeed renders occurrences as an iCalendar document. Session wall
// times are interpreted in loc; a nil loc means UTC. stamp is written as
// DTSTAMP on every event.
func CalendarFeed(name string, occurrences []model.Occurrence, loc *time.Location, stamp time.Time) string {
	if loc == nil {
		loc = time.UTC
	}

	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(productID)
	if name != "" {
		cal.SetXWRCalName(name)
	}
	cal.SetXWRTimezone(loc.String())

	for _, o := range occurrences {
		start := inLocation(o.Start(), loc)
		event := cal.AddEvent(eventUID(o))
		event.SetDtStampTime(stamp.UTC())
		event.SetStartAt(start)
		event.SetEndAt(start.Add(time.Duration(o.Duration()) * time.Minute))
		event.SetSummary(summary(o))
		if o.Notes != "" {
			event.SetDescription(o.Notes)
		}
		if tags := model.NormalizeTags(o.Tags); len(tags) > 0 {
			event.SetProperty(ical.ComponentPropertyCategories, strings.Join(tags, ","))
		}
		event.SetProperty(ical.ComponentPropertyStatus, eventStatus(o))
	}
	return cal.Serialize()
}

// inLocation reinterprets a wall-clock time, stored in UTC, as the same wall
// clock in loc.
func inLocation(wall time.Time, loc *time.Location) time.Time {
	return time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), 0, 0, loc)
}

func eventUID(o model.Occurrence) string {
	id := o.ID
	if id == "" {
		id = o.Key()
	}
	return id + "@trainer-scheduler"
}

func summary(o model.Occurrence) string {
	if o.ClientName != "" {
		return o.ClientName
	}
	return o.ClientID
}

func eventStatus(o model.Occurrence) string {
	if o.Completed {
		return string(ical.ObjectStatusCompleted)
	}
	return string(ical.ObjectStatusConfirmed)
}
