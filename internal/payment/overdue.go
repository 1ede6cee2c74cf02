package payment

import (
	"cmp"
	"slices"
	"time"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
)

// OverdueDays returns how many whole days the status is past due at today.
// Paid statuses and due dates not yet passed yield 0.
func OverdueDays(status Status, today time.Time) int {
	day := calendar.DateOf(today)
	if status.Paid || !status.DueDate.Before(day) {
		return 0
	}
	return calendar.DaysUntil(status.DueDate, day)
}

// ReminderDue reports whether a reminder should go out after days overdue.
func ReminderDue(days int) bool {
	return days > 0 && days%ReminderCadenceDays == 0
}

// Reminder is an unpaid client whose reminder is due.
type Reminder struct {
	Client      model.Client
	Status      Status
	OverdueDays int
}

// Reminders lists every unpaid client whose reminder is due at today, most
// overdue first.
func (t *Tracker) Reminders(today time.Time) []Reminder {
	t.mu.RLock()
	out := make([]Reminder, 0)
	for id, status := range t.statuses {
		client, ok := t.clients[id]
		if !ok {
			continue
		}
		days := OverdueDays(status, today)
		if !ReminderDue(days) {
			continue
		}
		out = append(out, Reminder{Client: client.Clone(), Status: status, OverdueDays: days})
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b Reminder) int {
		if c := cmp.Compare(b.OverdueDays, a.OverdueDays); c != 0 {
			return c
		}
		return cmp.Compare(a.Client.ID, b.Client.ID)
	})
	return out
}

// Overdue lists every unpaid client past due at today regardless of cadence.
func (t *Tracker) Overdue(today time.Time) []Reminder {
	t.mu.RLock()
	out := make([]Reminder, 0)
	for id, status := range t.statuses {
		client, ok := t.clients[id]
		if !ok {
			continue
		}
		if days := OverdueDays(status, today); days > 0 {
			out = append(out, Reminder{Client: client.Clone(), Status: status, OverdueDays: days})
		}
	}
	t.mu.RUnlock()

	slices.SortFunc(out, func(a, b Reminder) int { return cmp.Compare(a.Client.ID, b.Client.ID) })
	return out
}
