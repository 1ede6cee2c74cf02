// Package model holds the client and occurrence types shared by the
// scheduling, billing and persistence layers.
package model

import (
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/trainer-scheduler/internal/calendar"
)

// Plan discriminates the two billing semantics a client can be on.
type Plan string

const (
	// PlanMonthly bills a flat fee per month regardless of session count.
	PlanMonthly Plan = "monthly"
	// PlanPerSession bills the fee once per realized session.
	PlanPerSession Plan = "session"
)

// Valid reports whether p is one of the known plans.
func (p Plan) Valid() bool {
	return p == PlanMonthly || p == PlanPerSession
}

// DefaultDurationMinutes is the length of a materialized session.
const DefaultDurationMinutes = 60

// Slot is one recurring (weekday, time) entry of a client's weekly template.
type Slot struct {
	Weekday time.Weekday       `json:"weekday" validate:"gte=0,lte=6"`
	Time    calendar.TimeOfDay `json:"time"`
}

// Client is a trainee together with their billing model and weekly template.
type Client struct {
	ID             string          `json:"id"`
	Name           string          `json:"name" validate:"required"`
	Phone          string          `json:"phone"`
	Plan           Plan            `json:"plan" validate:"oneof=monthly session"`
	BillingDay     int             `json:"billing_day" validate:"gte=0,lte=31"`
	Fee            decimal.Decimal `json:"fee"`
	Template       []Slot          `json:"template" validate:"dive"`
	Active         bool            `json:"active"`
	ConsultingOnly bool            `json:"consulting_only"`
}

// Clone returns a deep copy of c.
func (c Client) Clone() Client {
	out := c
	out.Template = slices.Clone(c.Template)
	return out
}

// Occurrence is one dated, timed session of a client, either materialized from
// the weekly template or added ad hoc.
type Occurrence struct {
	ID              string             `json:"id"`
	ClientID        string             `json:"client_id"`
	ClientName      string             `json:"client_name"`
	Date            calendar.Date      `json:"date"`
	Time            calendar.TimeOfDay `json:"time"`
	DurationMinutes int                `json:"duration_minutes"`
	Completed       bool               `json:"completed"`
	Tags            []string           `json:"tags"`
	Notes           string             `json:"notes"`
	// SourceKey is the natural key of the template slot this occurrence was
	// materialized from. Empty for ad-hoc sessions.
	SourceKey string `json:"source_key"`
	AdHoc     bool   `json:"ad_hoc"`
}

// NaturalKey builds the (client, date, time) identity used to keep
// materialization idempotent.
func NaturalKey(clientID string, date calendar.Date, at calendar.TimeOfDay) string {
	return clientID + "-" + date.String() + "-" + at.String()
}

// Key returns the natural key of the occurrence's current client, date and time.
func (o Occurrence) Key() string {
	return NaturalKey(o.ClientID, o.Date, o.Time)
}

// Start returns the wall-clock start of the session; see calendar.At.
func (o Occurrence) Start() time.Time {
	return calendar.At(o.Date, o.Time)
}

// End returns the wall-clock end of the session.
func (o Occurrence) End() time.Time {
	return o.Start().Add(time.Duration(o.Duration()) * time.Minute)
}

// Duration returns the session length in minutes, falling back to the default.
func (o Occurrence) Duration() int {
	if o.DurationMinutes <= 0 {
		return DefaultDurationMinutes
	}
	return o.DurationMinutes
}

// Clone returns a deep copy of o.
func (o Occurrence) Clone() Occurrence {
	out := o
	out.Tags = slices.Clone(o.Tags)
	return out
}

// Compare orders occurrences by date, then time, then ID.
func Compare(a, b Occurrence) int {
	if c := a.Date.Compare(b.Date); c != 0 {
		return c
	}
	if c := a.Time.Compare(b.Time); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

// SortOccurrences orders occurrences in place; see Compare.
func SortOccurrences(occurrences []Occurrence) {
	slices.SortStableFunc(occurrences, Compare)
}

// NormalizeTags trims, de-duplicates and sorts a label set. Empty labels are dropped.
func NormalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		out = append(out, tag)
	}
	slices.Sort(out)
	out = slices.Compact(out)
	if len(out) == 0 {
		return nil
	}
	return out
}

// Patch is a partial update merged into an occurrence. Nil fields are left untouched.
type Patch struct {
	Completed       *bool
	Tags            *[]string
	Notes           *string
	DurationMinutes *int
	ClientName      *string
}

// IsEmpty reports whether the patch changes nothing.
func (p Patch) IsEmpty() bool {
	return p.Completed == nil && p.Tags == nil && p.Notes == nil && p.DurationMinutes == nil && p.ClientName == nil
}

// ApplyTo returns o with the patch merged in.
func (p Patch) ApplyTo(o Occurrence) Occurrence {
	out := o.Clone()
	if p.Completed != nil {
		out.Completed = *p.Completed
	}
	if p.Tags != nil {
		out.Tags = NormalizeTags(*p.Tags)
	}
	if p.Notes != nil {
		out.Notes = *p.Notes
	}
	if p.DurationMinutes != nil && *p.DurationMinutes > 0 {
		out.DurationMinutes = *p.DurationMinutes
	}
	if p.ClientName != nil {
		out.ClientName = *p.ClientName
	}
	return out
}
