// Package payment tracks the paid or unpaid state of each client's current
// billing period.
package payment

import (
	"cmp"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/example/trainer-scheduler/internal/billing"
	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
)

// ReminderCadenceDays is the spacing between reminders for an overdue client.
const ReminderCadenceDays = 3

// Status is the billing state of one client. A client has one status at a time.
type Status struct {
	ClientID string        `json:"client_id"`
	DueDate  calendar.Date `json:"due_date"`
	Paid     bool          `json:"paid"`
	PaidAt   *time.Time    `json:"paid_at,omitempty"`
}

// Tracker holds the statuses of the current roster.
type Tracker struct {
	mu             sync.RWMutex
	clients        map[string]model.Client
	statuses       map[string]Status
	referenceMonth calendar.Date
}

// NewTracker returns an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		clients:  make(map[string]model.Client),
		statuses: make(map[string]Status),
	}
}

// MonthlyDueDate returns the billing day of the reference month, clamped to
// the month's length. A billing day of zero is treated as the first.
func MonthlyDueDate(client model.Client, referenceMonth calendar.Date) calendar.Date {
	day := client.BillingDay
	if day < 1 {
		day = 1
	}
	return calendar.ClampDay(calendar.StartOfMonth(referenceMonth), day)
}

// NextPendingDate returns the date of the client's nearest session that is
// neither completed nor started at today.
func NextPendingDate(clientID string, occurrences []model.Occurrence, today time.Time) (calendar.Date, bool) {
	var (
		next  model.Occurrence
		found bool
	)
	for _, o := range occurrences {
		if o.ClientID != clientID || billing.IsRealized(o, today) {
			continue
		}
		if !found || model.Compare(o, next) < 0 {
			next, found = o, true
		}
	}
	return next.Date, found
}

// DueDate computes the initial due date of a client's period.
func DueDate(client model.Client, occurrences []model.Occurrence, referenceMonth calendar.Date, today time.Time) calendar.Date {
	if client.Plan == model.PlanPerSession {
		if next, ok := NextPendingDate(client.ID, occurrences, today); ok {
			return next
		}
		return calendar.DateOf(today)
	}
	return MonthlyDueDate(client, referenceMonth)
}

// Rebuild recomputes every status for the given roster. Clients absent from
// the roster are dropped; a paid status survives for clients still present.
func (t *Tracker) Rebuild(clients []model.Client, occurrences []model.Occurrence, referenceMonth calendar.Date, today time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	nextClients := make(map[string]model.Client, len(clients))
	nextStatuses := make(map[string]Status, len(clients))
	for _, client := range clients {
		nextClients[client.ID] = client.Clone()
		if prev, ok := t.statuses[client.ID]; ok && prev.Paid {
			nextStatuses[client.ID] = prev
			continue
		}
		nextStatuses[client.ID] = Status{
			ClientID: client.ID,
			DueDate:  DueDate(client, occurrences, referenceMonth, today),
		}
	}
	t.clients = nextClients
	t.statuses = nextStatuses
	t.referenceMonth = calendar.StartOfMonth(referenceMonth)
}

// Toggle flips the client's status; see MarkPaid and MarkUnpaid. The read and
// the flip happen under one lock.
func (t *Tracker) Toggle(clientID string, occurrences []model.Occurrence, today, now time.Time) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, client, err := t.lookupLocked(clientID)
	if err != nil {
		return Status{}, err
	}
	if status.Paid {
		return t.markUnpaidLocked(status, client, occurrences, today), nil
	}
	return t.markPaidLocked(status, client, occurrences, today, now), nil
}

// MarkPaid records payment at now. Per-session clients roll their due date to
// the next pending session; the payment covers the whole period up to today.
func (t *Tracker) MarkPaid(clientID string, occurrences []model.Occurrence, today, now time.Time) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, client, err := t.lookupLocked(clientID)
	if err != nil {
		return Status{}, err
	}
	return t.markPaidLocked(status, client, occurrences, today, now), nil
}

// MarkUnpaid reverts a payment and recomputes the due date from scratch.
func (t *Tracker) MarkUnpaid(clientID string, occurrences []model.Occurrence, today time.Time) (Status, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	status, client, err := t.lookupLocked(clientID)
	if err != nil {
		return Status{}, err
	}
	return t.markUnpaidLocked(status, client, occurrences, today), nil
}

func (t *Tracker) markPaidLocked(status Status, client model.Client, occurrences []model.Occurrence, today, now time.Time) Status {
	paidAt := now
	status.Paid = true
	status.PaidAt = &paidAt
	if client.Plan == model.PlanPerSession {
		status.DueDate = DueDate(client, occurrences, t.referenceMonth, today)
	}
	t.statuses[client.ID] = status
	return status
}

func (t *Tracker) markUnpaidLocked(status Status, client model.Client, occurrences []model.Occurrence, today time.Time) Status {
	status.Paid = false
	status.PaidAt = nil
	status.DueDate = DueDate(client, occurrences, t.referenceMonth, today)
	t.statuses[client.ID] = status
	return status
}

// Status returns the client's current status.
func (t *Tracker) Status(clientID string) (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	status, ok := t.statuses[clientID]
	return status, ok
}

// Snapshot returns every status ordered by client id.
func (t *Tracker) Snapshot() []Status {
	t.mu.RLock()
	out := make([]Status, 0, len(t.statuses))
	for _, status := range t.statuses {
		out = append(out, status)
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b Status) int { return cmp.Compare(a.ClientID, b.ClientID) })
	return out
}

// Restore replaces the tracked statuses with persisted ones. Call Rebuild
// afterwards to attach the roster and drop stale entries.
func (t *Tracker) Restore(statuses []Status) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.statuses = make(map[string]Status, len(statuses))
	for _, status := range statuses {
		if status.ClientID == "" {
			continue
		}
		t.statuses[status.ClientID] = status
	}
}

func (t *Tracker) lookupLocked(clientID string) (Status, model.Client, error) {
	status, ok := t.statuses[clientID]
	if !ok {
		return Status{}, model.Client{}, fmt.Errorf("%w: payment status %s", model.ErrNotFound, clientID)
	}
	client, ok := t.clients[clientID]
	if !ok {
		return Status{}, model.Client{}, fmt.Errorf("%w: client %s", model.ErrNotFound, clientID)
	}
	return status, client, nil
}
