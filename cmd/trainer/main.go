// Command trainer materializes the trainer's weekly agenda, reconciles the
// month's billing and prepares payment reminders.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/example/trainer-scheduler/internal/config"
	"github.com/example/trainer-scheduler/internal/logging"
)

const usage = `usage: trainer <command> [flags]

commands:
  import [path]                 load the roster file into storage
  sync [-month YYYY-MM]         materialize the month's sessions
  add -client -date -time       book an ad-hoc session [-duration -tags -notes]
  move [-month] -date -time id  reschedule a session
  complete [-month] [-reopen] id
                                mark a session done [-tags -notes]
  annotate [-month] id          set a session's -tags and/or -notes
  delete [-month] id            remove a session for good
  finance [-month] [-toggle id] reconcile the month, optionally flipping a paid flag
  reminders [-watch]            print due payment reminders
  ics [-month] [-out file]      write the month as an iCalendar feed
`

var errUsage = errors.New("invalid usage")

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(".env")
	if err != nil {
		slog.New(slog.NewJSONHandler(os.Stderr, nil)).Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger := logging.New(os.Stderr, cfg.LogFormat, cfg.LogLevel)

	if err := run(ctx, cfg, logger, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) || errors.Is(err, flag.ErrHelp) {
			fmt.Fprint(os.Stderr, usage)
			os.Exit(2)
		}
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *slog.Logger, args []string, stdout io.Writer) (err error) {
	if len(args) == 0 {
		return errUsage
	}
	command, rest := args[0], args[1:]

	a, err := newApp(ctx, cfg, logger, stdout)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := a.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	ctx = logging.ContextWithLogger(ctx, logger.With("command", command))
	switch command {
	case "import":
		err = a.cmdImport(ctx, rest)
	case "sync":
		err = a.cmdSync(ctx, rest)
	case "add":
		err = a.cmdAdd(ctx, rest)
	case "move":
		err = a.cmdMove(ctx, rest)
	case "complete":
		err = a.cmdComplete(ctx, rest)
	case "annotate":
		err = a.cmdAnnotate(ctx, rest)
	case "delete":
		err = a.cmdDelete(ctx, rest)
	case "finance":
		err = a.cmdFinance(ctx, rest)
	case "reminders":
		err = a.cmdReminders(ctx, rest)
	case "ics":
		err = a.cmdICS(ctx, rest)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, command)
	}
	if err != nil {
		return err
	}
	return a.writeMetrics()
}
