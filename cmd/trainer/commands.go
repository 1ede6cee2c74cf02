package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/export"
	"github.com/example/trainer-scheduler/internal/roster"
)

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseFlags(fs *flag.FlagSet, args []string) error {
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%w: %s: %v", errUsage, fs.Name(), err)
	}
	return nil
}

// month resolves a YYYY-MM flag, defaulting to the current month.
func (a *app) month(value string) (calendar.Date, error) {
	if value == "" {
		return calendar.StartOfMonth(calendar.DateOf(a.now())), nil
	}
	t, err := time.Parse("2006-01", value)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("%w: month must be YYYY-MM, got %q", errUsage, value)
	}
	return calendar.DateOf(t), nil
}

func (a *app) cmdImport(ctx context.Context, args []string) error {
	fs := newFlagSet("import")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	path := a.cfg.RosterPath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}

	doc, err := roster.Load(path)
	if err != nil {
		return err
	}
	imported, err := a.roster.ImportRoster(ctx, doc)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "imported %d clients from %s\n", len(imported), path)
	return nil
}

func (a *app) cmdSync(ctx context.Context, args []string) error {
	fs := newFlagSet("sync")
	monthFlag := fs.String("month", "", "month to materialize (YYYY-MM)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	month, err := a.month(*monthFlag)
	if err != nil {
		return err
	}

	result, err := a.schedule.SyncWindow(ctx, calendar.MonthRange(month))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "%s: %d new sessions, %d total\n", result.Window, len(result.Inserted), len(result.Occurrences))

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tTIME\tCLIENT\tSTATUS\tTAGS")
	for _, o := range result.Occurrences {
		status := "pending"
		if o.Completed {
			status = "done"
		}
		fmt.Fprintf(tw, "%s %s\t%s\t%s\t%s\t%s\n", o.Date, o.Date.Weekday().String()[:3], o.Time, o.ClientName, status, strings.Join(o.Tags, ","))
	}
	return tw.Flush()
}

func (a *app) cmdFinance(ctx context.Context, args []string) error {
	fs := newFlagSet("finance")
	monthFlag := fs.String("month", "", "month to reconcile (YYYY-MM)")
	toggle := fs.String("toggle", "", "client id whose paid flag to flip")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	month, err := a.month(*monthFlag)
	if err != nil {
		return err
	}

	view, err := a.finance.MonthSummary(ctx, month)
	if err != nil {
		return err
	}
	statuses := view.Statuses
	if *toggle != "" {
		if _, err := a.finance.TogglePaid(ctx, *toggle); err != nil {
			return err
		}
		if statuses, err = a.finance.RefreshStatuses(ctx, month); err != nil {
			return err
		}
	}
	paid := make(map[string]bool, len(statuses))
	due := make(map[string]calendar.Date, len(statuses))
	for _, status := range statuses {
		paid[status.ClientID] = status.Paid
		due[status.ClientID] = status.DueDate
	}

	summary := view.Summary
	fmt.Fprintf(a.stdout, "%s: expected %s, earned %s, pending %s (%d%%)\n",
		view.Window, summary.TotalExpected.StringFixed(2), summary.TotalEarned.StringFixed(2),
		summary.TotalPending.StringFixed(2), summary.Percent)
	fmt.Fprintf(a.stdout, "clients: %d active (%d monthly, %d per session), %d inactive\n",
		view.Counts.Active, view.Counts.ActiveMonthly, view.Counts.ActivePerSession, view.Counts.Inactive)

	tw := tabwriter.NewWriter(a.stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CLIENT\tPLAN\tSESSIONS\tEXPECTED\tEARNED\tPAID\tDUE")
	for _, row := range summary.Rows {
		fmt.Fprintf(tw, "%s\t%s\t%d/%d\t%s\t%s\t%t\t%s\n",
			row.ClientName, row.Plan, row.Done, row.Total,
			row.Expected.StringFixed(2), row.Earned.StringFixed(2),
			paid[row.ClientID], due[row.ClientID])
	}
	return tw.Flush()
}

func (a *app) cmdReminders(ctx context.Context, args []string) error {
	fs := newFlagSet("reminders")
	watch := fs.Bool("watch", false, "keep running and sweep on the reminder schedule")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	if !*watch {
		return a.sweepReminders(ctx)
	}

	c := cron.New(cron.WithLocation(a.cfg.Location))
	if _, err := c.AddFunc(a.cfg.ReminderCron, func() {
		if err := a.sweepReminders(ctx); err != nil {
			a.logger.ErrorContext(ctx, "reminder sweep failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("schedule reminders: %w", err)
	}
	a.logger.InfoContext(ctx, "watching reminders", "schedule", a.cfg.ReminderCron, "timezone", a.cfg.Location.String())
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

func (a *app) sweepReminders(ctx context.Context) error {
	notices, err := a.finance.DueReminders(ctx)
	if err != nil {
		return err
	}
	if len(notices) == 0 {
		fmt.Fprintln(a.stdout, "no reminders due")
		return nil
	}
	for _, notice := range notices {
		fmt.Fprintf(a.stdout, "== %s (%d days overdue, %s)\n%s\n", notice.Reminder.Client.Name,
			notice.Reminder.OverdueDays, notice.Amount.StringFixed(2), notice.Message)
		if notice.Link != "" {
			fmt.Fprintln(a.stdout, notice.Link)
		}
		fmt.Fprintln(a.stdout)
	}
	return nil
}

func (a *app) cmdICS(ctx context.Context, args []string) error {
	fs := newFlagSet("ics")
	monthFlag := fs.String("month", "", "month to export (YYYY-MM)")
	out := fs.String("out", "", "output file, stdout when empty")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	month, err := a.month(*monthFlag)
	if err != nil {
		return err
	}

	result, err := a.schedule.SyncWindow(ctx, calendar.MonthRange(month))
	if err != nil {
		return err
	}
	feed := export.CalendarFeed("Treinos "+month.String()[:7], result.Occurrences, a.cfg.Location, a.now())
	if *out == "" {
		_, err = io.WriteString(a.stdout, feed)
		return err
	}
	if err := os.WriteFile(*out, []byte(feed), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *out, err)
	}
	fmt.Fprintf(a.stdout, "wrote %d sessions to %s\n", len(result.Occurrences), *out)
	return nil
}
