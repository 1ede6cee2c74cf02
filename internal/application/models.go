package application

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"

	"github.com/example/trainer-scheduler/internal/billing"
	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/observability"
	"github.com/example/trainer-scheduler/internal/occurrence"
	"github.com/example/trainer-scheduler/internal/payment"
	"github.com/example/trainer-scheduler/internal/recurrence"
)

// ClientRepository captures the roster persistence needed by the services.
type ClientRepository interface {
	LoadClients(ctx context.Context) ([]model.Client, error)
	SaveClient(ctx context.Context, client model.Client) error
}

// OccurrenceRepository captures session persistence.
type OccurrenceRepository interface {
	LoadOccurrences(ctx context.Context, start, end calendar.Date) ([]model.Occurrence, error)
	SaveOccurrence(ctx context.Context, occurrence model.Occurrence) error
	DeleteOccurrence(ctx context.Context, id string) error
	SaveTombstone(ctx context.Context, key string) error
	LoadTombstones(ctx context.Context) ([]string, error)
}

// StatusStore persists payment status snapshots.
type StatusStore interface {
	LoadStatuses(ctx context.Context) ([]payment.Status, error)
	SaveStatuses(ctx context.Context, statuses []payment.Status) error
}

// ReminderLedger remembers which reminders already went out. MarkReminderSent
// reports false when the client was already reminded on day.
type ReminderLedger interface {
	MarkReminderSent(ctx context.Context, clientID string, day calendar.Date) (bool, error)
}

// SessionInput describes an ad-hoc session.
type SessionInput struct {
	ClientID        string
	Date            calendar.Date
	Time            calendar.TimeOfDay
	DurationMinutes int
	Tags            []string
	Notes           string
}

// OverlapWarning flags another session sharing time with a written one.
// Double bookings are allowed; warnings never block a write.
type OverlapWarning struct {
	OccurrenceID     string
	WithOccurrenceID string
	ClientID         string
	SameClient       bool
}

// SyncResult reports one materialization pass.
type SyncResult struct {
	Window      calendar.Range
	Clients     []model.Client
	Inserted    []model.Occurrence
	Withdrawn   []model.Occurrence
	Occurrences []model.Occurrence
}

// MonthView is the reconciled financial picture of one month.
type MonthView struct {
	Window      calendar.Range
	Today       time.Time
	Summary     billing.Summary
	ByPlan      []billing.PlanTotals
	Daily       []billing.DayRevenue
	Counts      billing.Counts
	Statuses    []payment.Status
	Occurrences []model.Occurrence
}

// ReminderNotice is a payment reminder ready to send.
type ReminderNotice struct {
	Reminder payment.Reminder
	Amount   decimal.Decimal
	Message  string
	Link     string
}

type serviceOptions struct {
	logger   *slog.Logger
	metrics  *observability.Metrics
	engine   *recurrence.Engine
	store    *occurrence.Store
	language language.Tag
}

// Option customizes a service.
type Option func(*serviceOptions)

// WithLogger sets the base logger. Loggers carried in the context win.
func WithLogger(logger *slog.Logger) Option {
	return func(o *serviceOptions) { o.logger = logger }
}

// WithMetrics records engine activity on m.
func WithMetrics(m *observability.Metrics) Option {
	return func(o *serviceOptions) { o.metrics = m }
}

// WithEngine replaces the default recurrence engine.
func WithEngine(engine *recurrence.Engine) Option {
	return func(o *serviceOptions) { o.engine = engine }
}

// WithStore seeds the service with an existing occurrence store.
func WithStore(store *occurrence.Store) Option {
	return func(o *serviceOptions) { o.store = store }
}

// WithLanguage selects the language of reminder messages.
func WithLanguage(tag language.Tag) Option {
	return func(o *serviceOptions) { o.language = tag }
}

func buildOptions(opts []Option) serviceOptions {
	o := serviceOptions{language: language.BrazilianPortuguese}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	o.logger = defaultLogger(o.logger)
	if o.engine == nil {
		o.engine = recurrence.NewEngine()
	}
	if o.store == nil {
		o.store = occurrence.NewStore()
	}
	return o
}

func toWarnings(occurrenceID string, overlaps []occurrence.Overlap) []OverlapWarning {
	if len(overlaps) == 0 {
		return nil
	}
	out := make([]OverlapWarning, 0, len(overlaps))
	for _, o := range overlaps {
		out = append(out, OverlapWarning{
			OccurrenceID:     occurrenceID,
			WithOccurrenceID: o.WithOccurrenceID,
			ClientID:         o.ClientID,
			SameClient:       o.SameClient,
		})
	}
	return out
}
