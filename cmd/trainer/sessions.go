package main

import (
	"context"
	"flag"
	"fmt"
	"strings"

	"github.com/example/trainer-scheduler/internal/application"
	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
)

// loadMonth syncs the month holding the sessions a command edits. Mutations
// only see sessions loaded this way.
func (a *app) loadMonth(ctx context.Context, month calendar.Date) error {
	_, err := a.schedule.SyncWindow(ctx, calendar.MonthRange(month))
	return err
}

// sessionArg returns the single positional session id.
func sessionArg(fs *flag.FlagSet) (string, error) {
	if fs.NArg() != 1 || strings.TrimSpace(fs.Arg(0)) == "" {
		return "", fmt.Errorf("%w: %s needs exactly one session id", errUsage, fs.Name())
	}
	return fs.Arg(0), nil
}

func parseDay(value string) (calendar.Date, error) {
	day, err := calendar.ParseDate(value)
	if err != nil {
		return calendar.Date{}, fmt.Errorf("%w: date must be YYYY-MM-DD, got %q", errUsage, value)
	}
	return day, nil
}

func parseClock(value string) (calendar.TimeOfDay, error) {
	at, err := calendar.ParseTimeOfDay(value)
	if err != nil {
		return calendar.TimeOfDay{}, fmt.Errorf("%w: time must be HH:MM, got %q", errUsage, value)
	}
	return at, nil
}

func splitTags(value string) []string {
	var tags []string
	for _, tag := range strings.Split(value, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// flagSet reports whether name was given on the command line.
func flagSet(fs *flag.FlagSet, name string) bool {
	set := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			set = true
		}
	})
	return set
}

func (a *app) printSession(verb string, o model.Occurrence, warnings []application.OverlapWarning) {
	fmt.Fprintf(a.stdout, "%s %s: %s %s %s\n", verb, o.ID, o.ClientName, o.Date, o.Time)
	for _, w := range warnings {
		kind := "another client"
		if w.SameClient {
			kind = "same client"
		}
		fmt.Fprintf(a.stdout, "warning: overlaps %s (%s)\n", w.WithOccurrenceID, kind)
	}
}

func (a *app) cmdAdd(ctx context.Context, args []string) error {
	fs := newFlagSet("add")
	clientID := fs.String("client", "", "client id")
	dateFlag := fs.String("date", "", "session date (YYYY-MM-DD)")
	timeFlag := fs.String("time", "", "start time (HH:MM)")
	duration := fs.Int("duration", 0, "length in minutes, 60 when zero")
	tags := fs.String("tags", "", "comma separated tags")
	notes := fs.String("notes", "", "free text notes")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	day, err := parseDay(*dateFlag)
	if err != nil {
		return err
	}
	at, err := parseClock(*timeFlag)
	if err != nil {
		return err
	}
	if err := a.loadMonth(ctx, calendar.StartOfMonth(day)); err != nil {
		return err
	}

	session, warnings, err := a.schedule.AddSession(ctx, application.SessionInput{
		ClientID:        *clientID,
		Date:            day,
		Time:            at,
		DurationMinutes: *duration,
		Tags:            splitTags(*tags),
		Notes:           *notes,
	})
	if err != nil {
		return err
	}
	a.printSession("added", session, warnings)
	return nil
}

func (a *app) cmdMove(ctx context.Context, args []string) error {
	fs := newFlagSet("move")
	monthFlag := fs.String("month", "", "month holding the session (YYYY-MM)")
	dateFlag := fs.String("date", "", "new date (YYYY-MM-DD)")
	timeFlag := fs.String("time", "", "new start time (HH:MM)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := sessionArg(fs)
	if err != nil {
		return err
	}
	day, err := parseDay(*dateFlag)
	if err != nil {
		return err
	}
	at, err := parseClock(*timeFlag)
	if err != nil {
		return err
	}
	month, err := a.month(*monthFlag)
	if err != nil {
		return err
	}
	if err := a.loadMonth(ctx, month); err != nil {
		return err
	}

	session, warnings, err := a.schedule.MoveSession(ctx, id, day, at)
	if err != nil {
		return err
	}
	a.printSession("moved", session, warnings)
	return nil
}

func (a *app) cmdComplete(ctx context.Context, args []string) error {
	fs := newFlagSet("complete")
	monthFlag := fs.String("month", "", "month holding the session (YYYY-MM)")
	tags := fs.String("tags", "", "comma separated tags, replacing the current ones")
	notes := fs.String("notes", "", "session notes, replacing the current ones")
	reopen := fs.Bool("reopen", false, "clear the completed flag instead")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := sessionArg(fs)
	if err != nil {
		return err
	}
	month, err := a.month(*monthFlag)
	if err != nil {
		return err
	}
	if err := a.loadMonth(ctx, month); err != nil {
		return err
	}

	if *reopen {
		session, err := a.schedule.ReopenSession(ctx, id)
		if err != nil {
			return err
		}
		a.printSession("reopened", session, nil)
		return nil
	}
	session, err := a.schedule.CompleteSession(ctx, id, splitTags(*tags), *notes)
	if err != nil {
		return err
	}
	a.printSession("completed", session, nil)
	return nil
}

func (a *app) cmdAnnotate(ctx context.Context, args []string) error {
	fs := newFlagSet("annotate")
	monthFlag := fs.String("month", "", "month holding the session (YYYY-MM)")
	tagsFlag := fs.String("tags", "", "comma separated tags; left alone when omitted")
	notesFlag := fs.String("notes", "", "session notes; left alone when omitted")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := sessionArg(fs)
	if err != nil {
		return err
	}
	month, err := a.month(*monthFlag)
	if err != nil {
		return err
	}
	if err := a.loadMonth(ctx, month); err != nil {
		return err
	}

	var (
		tags  *[]string
		notes *string
	)
	if flagSet(fs, "tags") {
		split := splitTags(*tagsFlag)
		tags = &split
	}
	if flagSet(fs, "notes") {
		notes = notesFlag
	}
	session, err := a.schedule.AnnotateSession(ctx, id, tags, notes)
	if err != nil {
		return err
	}
	a.printSession("annotated", session, nil)
	if len(session.Tags) > 0 {
		fmt.Fprintf(a.stdout, "tags: %s\n", strings.Join(session.Tags, ","))
	}
	if session.Notes != "" {
		fmt.Fprintf(a.stdout, "notes: %s\n", session.Notes)
	}
	return nil
}

func (a *app) cmdDelete(ctx context.Context, args []string) error {
	fs := newFlagSet("delete")
	monthFlag := fs.String("month", "", "month holding the session (YYYY-MM)")
	if err := parseFlags(fs, args); err != nil {
		return err
	}
	id, err := sessionArg(fs)
	if err != nil {
		return err
	}
	month, err := a.month(*monthFlag)
	if err != nil {
		return err
	}
	if err := a.loadMonth(ctx, month); err != nil {
		return err
	}

	if err := a.schedule.DeleteSession(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.stdout, "deleted %s\n", id)
	return nil
}
