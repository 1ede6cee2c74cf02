package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
)

var (
	clientCounter     uint64
	occurrenceCounter uint64
)

// referenceTime is a Friday in the middle of March 2024.
var referenceTime = time.Date(2024, time.March, 15, 10, 30, 0, 0, time.UTC)

// ReferenceTime returns the canonical baseline timestamp used by fixtures.
func ReferenceTime() time.Time {
	return referenceTime
}

// ReferenceDate returns the calendar date of ReferenceTime.
func ReferenceDate() calendar.Date {
	return calendar.DateOf(referenceTime)
}

// ----------------------------- Client fixtures -----------------------------

// ClientOption configures the generated client.
type ClientOption func(*clientFixture)

type clientFixture struct {
	client         model.Client
	customTemplate bool
}

// NewClient returns an active monthly client training Monday and Wednesday at
// 08:00, with optional overrides.
func NewClient(opts ...ClientOption) model.Client {
	idx := atomic.AddUint64(&clientCounter, 1)
	fixture := clientFixture{client: model.Client{
		ID:         fmt.Sprintf("client-%03d", idx),
		Name:       fmt.Sprintf("Client %03d", idx),
		Phone:      fmt.Sprintf("(11) 90000-%04d", idx),
		Plan:       model.PlanMonthly,
		BillingDay: 10,
		Fee:        decimal.NewFromInt(150),
		Template: []model.Slot{
			{Weekday: time.Monday, Time: calendar.NewTimeOfDay(8, 0)},
			{Weekday: time.Wednesday, Time: calendar.NewTimeOfDay(8, 0)},
		},
		Active: true,
	}}
	for _, opt := range opts {
		opt(&fixture)
	}
	return fixture.client
}

// WithClientID overrides the generated client ID.
func WithClientID(id string) ClientOption {
	return func(f *clientFixture) {
		f.client.ID = id
	}
}

// WithClientName overrides the generated name.
func WithClientName(name string) ClientOption {
	return func(f *clientFixture) {
		f.client.Name = name
	}
}

// WithClientPhone overrides the generated phone number.
func WithClientPhone(phone string) ClientOption {
	return func(f *clientFixture) {
		f.client.Phone = phone
	}
}

// WithClientPlan sets the billing plan and fee.
func WithClientPlan(plan model.Plan, fee int64) ClientOption {
	return func(f *clientFixture) {
		f.client.Plan = plan
		f.client.Fee = decimal.NewFromInt(fee)
	}
}

// WithClientFee overrides the fee with a decimal string such as "49.90".
func WithClientFee(fee string) ClientOption {
	return func(f *clientFixture) {
		f.client.Fee = decimal.RequireFromString(fee)
	}
}

// WithClientBillingDay overrides the monthly billing day.
func WithClientBillingDay(day int) ClientOption {
	return func(f *clientFixture) {
		f.client.BillingDay = day
	}
}

// WithClientSlot appends a weekly slot. The first call replaces the default
// template.
func WithClientSlot(weekday time.Weekday, at string) ClientOption {
	return func(f *clientFixture) {
		if !f.customTemplate {
			f.client.Template = nil
			f.customTemplate = true
		}
		f.client.Template = append(f.client.Template, model.Slot{Weekday: weekday, Time: calendar.MustParseTimeOfDay(at)})
	}
}

// WithClientTemplate replaces the template.
func WithClientTemplate(slots ...model.Slot) ClientOption {
	return func(f *clientFixture) {
		f.client.Template = append([]model.Slot(nil), slots...)
		f.customTemplate = true
	}
}

// WithClientActive toggles the active flag.
func WithClientActive(active bool) ClientOption {
	return func(f *clientFixture) {
		f.client.Active = active
	}
}

// WithClientConsultingOnly marks the client as consulting only.
func WithClientConsultingOnly() ClientOption {
	return func(f *clientFixture) {
		f.client.ConsultingOnly = true
	}
}

// --------------------------- Occurrence fixtures ---------------------------

// OccurrenceOption configures the generated occurrence.
type OccurrenceOption func(*occurrenceFixture)

type occurrenceFixture struct {
	occurrence model.Occurrence
	explicitID bool
}

// NewOccurrence returns a sixty minute template occurrence. Unless overridden,
// its id and source key equal its natural key.
func NewOccurrence(opts ...OccurrenceOption) model.Occurrence {
	idx := atomic.AddUint64(&occurrenceCounter, 1)
	fixture := occurrenceFixture{
		occurrence: model.Occurrence{
			ClientID:        fmt.Sprintf("client-%03d", idx),
			ClientName:      fmt.Sprintf("Client %03d", idx),
			Date:            ReferenceDate(),
			Time:            calendar.NewTimeOfDay(8, 0),
			DurationMinutes: model.DefaultDurationMinutes,
		},
	}
	for _, opt := range opts {
		opt(&fixture)
	}

	o := fixture.occurrence
	if !fixture.explicitID {
		o.ID = o.Key()
	}
	if o.SourceKey == "" && !o.AdHoc {
		o.SourceKey = o.Key()
	}
	return o
}

// WithOccurrenceSlot sets the client, date (YYYY-MM-DD) and time (HH:MM).
func WithOccurrenceSlot(clientID, date, at string) OccurrenceOption {
	return func(f *occurrenceFixture) {
		f.occurrence.ClientID = clientID
		f.occurrence.Date = calendar.MustParseDate(date)
		f.occurrence.Time = calendar.MustParseTimeOfDay(at)
	}
}

// WithOccurrenceClientName overrides the denormalized client name.
func WithOccurrenceClientName(name string) OccurrenceOption {
	return func(f *occurrenceFixture) {
		f.occurrence.ClientName = name
	}
}

// WithOccurrenceID pins the id instead of deriving it from the natural key.
func WithOccurrenceID(id string) OccurrenceOption {
	return func(f *occurrenceFixture) {
		f.occurrence.ID = id
		f.explicitID = true
	}
}

// WithOccurrenceAdHoc marks the occurrence as added by hand under id.
func WithOccurrenceAdHoc(id string) OccurrenceOption {
	return func(f *occurrenceFixture) {
		f.occurrence.ID = id
		f.occurrence.AdHoc = true
		f.explicitID = true
	}
}

// WithOccurrenceCompleted sets the completed flag.
func WithOccurrenceCompleted(completed bool) OccurrenceOption {
	return func(f *occurrenceFixture) {
		f.occurrence.Completed = completed
	}
}

// WithOccurrenceTags sets the tags.
func WithOccurrenceTags(tags ...string) OccurrenceOption {
	return func(f *occurrenceFixture) {
		f.occurrence.Tags = append([]string(nil), tags...)
	}
}

// WithOccurrenceNotes sets the notes.
func WithOccurrenceNotes(notes string) OccurrenceOption {
	return func(f *occurrenceFixture) {
		f.occurrence.Notes = notes
	}
}

// WithOccurrenceDuration overrides the duration in minutes.
func WithOccurrenceDuration(minutes int) OccurrenceOption {
	return func(f *occurrenceFixture) {
		f.occurrence.DurationMinutes = minutes
	}
}
