package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/text/language"

	"github.com/example/trainer-scheduler/internal/billing"
	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/export"
	"github.com/example/trainer-scheduler/internal/observability"
	"github.com/example/trainer-scheduler/internal/payment"
)

// FinanceService reconciles expected against earned revenue and tracks who
// has paid for the current period.
type FinanceService struct {
	schedule *ScheduleService
	statuses StatusStore
	ledger   ReminderLedger
	tracker  *payment.Tracker
	metrics  *observability.Metrics
	language language.Tag
	now      func() time.Time
	logger   *slog.Logger

	// restoreMu guards the first successful read of persisted statuses.
	restoreMu sync.Mutex
	restored  bool
}

// NewFinanceService wires the finance service. statuses and ledger may be nil,
// in which case statuses live only in memory and reminders are not deduplicated.
func NewFinanceService(schedule *ScheduleService, statuses StatusStore, ledger ReminderLedger, now func() time.Time, opts ...Option) *FinanceService {
	if now == nil {
		now = time.Now
	}
	o := buildOptions(opts)
	return &FinanceService{
		schedule: schedule,
		statuses: statuses,
		ledger:   ledger,
		tracker:  payment.NewTracker(),
		metrics:  o.metrics,
		language: o.language,
		now:      now,
		logger:   o.logger,
	}
}

func (s *FinanceService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "FinanceService", operation, attrs...)
}

// MonthSummary materializes the month containing month, overlays the stored
// edits and reconciles every client against one captured instant.
func (s *FinanceService) MonthSummary(ctx context.Context, month calendar.Date) (view MonthView, err error) {
	if s == nil {
		err = fmt.Errorf("FinanceService is nil")
		return
	}
	window := calendar.MonthRange(month)
	logger := s.loggerWith(ctx, "MonthSummary", "window", window.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to summarize month", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "month summarized",
			"expected", view.Summary.TotalExpected.String(),
			"earned", view.Summary.TotalEarned.String(),
		)
	}()

	synced, err := s.schedule.SyncWindow(ctx, window)
	if err != nil {
		return MonthView{}, err
	}
	today := s.now()
	statuses, err := s.refresh(ctx, synced, window.Start, today)
	if err != nil {
		return MonthView{}, err
	}

	summary := billing.Summarize(synced.Clients, synced.Occurrences, today)
	s.metrics.SetReconciled(
		summary.TotalExpected.InexactFloat64(),
		summary.TotalEarned.InexactFloat64(),
		summary.TotalPending.InexactFloat64(),
	)

	view = MonthView{
		Window:      window,
		Today:       today,
		Summary:     summary,
		ByPlan:      summary.ByPlan(),
		Daily:       billing.DailyRevenue(synced.Clients, synced.Occurrences, window.Start, window.End),
		Counts:      billing.RosterCounts(synced.Clients),
		Statuses:    statuses,
		Occurrences: synced.Occurrences,
	}
	return view, nil
}

// RefreshStatuses rebuilds the payment statuses of the month containing month.
// Paid flags recorded earlier survive the rebuild.
func (s *FinanceService) RefreshStatuses(ctx context.Context, month calendar.Date) (statuses []payment.Status, err error) {
	window := calendar.MonthRange(month)
	logger := s.loggerWith(ctx, "RefreshStatuses", "window", window.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to refresh statuses", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "statuses refreshed", "clients", len(statuses))
	}()

	synced, err := s.schedule.SyncWindow(ctx, window)
	if err != nil {
		return nil, err
	}
	return s.refresh(ctx, synced, window.Start, s.now())
}

// TogglePaid flips the client's paid flag. RefreshStatuses or MonthSummary
// must have run first so the client is tracked.
func (s *FinanceService) TogglePaid(ctx context.Context, clientID string) (status payment.Status, err error) {
	logger := s.loggerWith(ctx, "TogglePaid", "client_id", clientID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to toggle payment", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "payment toggled", "paid", status.Paid, "due_date", status.DueDate.String())
	}()

	if err = s.restore(ctx); err != nil {
		return payment.Status{}, err
	}
	now := s.now()
	status, err = s.tracker.Toggle(clientID, s.schedule.ListClientSessions(clientID), now, now)
	if err != nil {
		return payment.Status{}, err
	}
	if err = s.save(ctx); err != nil {
		return payment.Status{}, err
	}
	return status, nil
}

// DueReminders refreshes the statuses of the current month and returns a
// ready-to-send reminder for every unpaid client whose cadence day is today.
// With a ledger configured each client is reminded at most once per day.
func (s *FinanceService) DueReminders(ctx context.Context) (notices []ReminderNotice, err error) {
	logger := s.loggerWith(ctx, "DueReminders")
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to compute reminders", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "reminders computed", "count", len(notices))
	}()

	today := s.now()
	month := calendar.StartOfMonth(calendar.DateOf(today))
	window := calendar.MonthRange(month)

	synced, err := s.schedule.SyncWindow(ctx, window)
	if err != nil {
		return nil, err
	}
	if _, err = s.refresh(ctx, synced, month, today); err != nil {
		return nil, err
	}
	summary := billing.Summarize(synced.Clients, synced.Occurrences, today)

	for _, reminder := range s.tracker.Reminders(today) {
		if s.ledger != nil {
			fresh, markErr := s.ledger.MarkReminderSent(ctx, reminder.Client.ID, calendar.DateOf(today))
			if markErr != nil {
				return nil, fmt.Errorf("mark reminder %s: %w", reminder.Client.ID, markErr)
			}
			if !fresh {
				continue
			}
		}
		amount := reminder.Client.Fee
		if row, ok := summary.Row(reminder.Client.ID); ok {
			amount = row.Outstanding()
		}
		message := export.ReminderMessage(reminder, amount, month, s.language)
		notices = append(notices, ReminderNotice{
			Reminder: reminder,
			Amount:   amount,
			Message:  message,
			Link:     export.WhatsAppLink(reminder.Client.Phone, message),
		})
	}
	s.metrics.AddReminders(len(notices))
	return notices, nil
}

// Overdue lists every tracked client past due at the current instant.
func (s *FinanceService) Overdue() []payment.Reminder {
	return s.tracker.Overdue(s.now())
}

func (s *FinanceService) refresh(ctx context.Context, synced SyncResult, month calendar.Date, today time.Time) ([]payment.Status, error) {
	if err := s.restore(ctx); err != nil {
		return nil, err
	}
	s.tracker.Rebuild(synced.Clients, s.schedule.store.All(), month, today)
	if err := s.save(ctx); err != nil {
		return nil, err
	}
	return s.tracker.Snapshot(), nil
}

// restore loads persisted statuses until one read succeeds. A failed read is
// retried on the next call.
func (s *FinanceService) restore(ctx context.Context) error {
	if s.statuses == nil {
		return nil
	}
	s.restoreMu.Lock()
	defer s.restoreMu.Unlock()

	if s.restored {
		return nil
	}
	stored, err := s.statuses.LoadStatuses(ctx)
	if err != nil {
		return fmt.Errorf("load statuses: %w", err)
	}
	s.tracker.Restore(stored)
	s.restored = true
	return nil
}

func (s *FinanceService) save(ctx context.Context) error {
	if s.statuses == nil {
		return nil
	}
	if err := s.statuses.SaveStatuses(ctx, s.tracker.Snapshot()); err != nil {
		return mapRepoError(fmt.Errorf("save statuses: %w", err))
	}
	return nil
}
