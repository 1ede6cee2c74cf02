package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/example/trainer-scheduler/internal/application"
	"github.com/example/trainer-scheduler/internal/config"
)

const rosterYAML = `clients:
  - id: ana
    name: Ana Souza
    phone: "(11) 98888-7777"
    plan: monthly
    billing_day: 10
    fee: "150.00"
    template:
      - {weekday: monday, time: "08:00"}
      - {weekday: wednesday, time: "08:00"}
  - id: bruno
    name: Bruno Lima
    plan: session
    fee: "50"
    template:
      - {weekday: monday, time: "18:30"}
`

func testConfig(t *testing.T) config.Config {
	t.Helper()
	dir := t.TempDir()
	rosterPath := filepath.Join(dir, "roster.yaml")
	require.NoError(t, os.WriteFile(rosterPath, []byte(rosterYAML), 0o600))
	return config.Config{
		Storage:      config.StorageSQLite,
		SQLiteDSN:    filepath.Join(dir, "trainer.db"),
		Location:     time.UTC,
		Language:     language.BrazilianPortuguese,
		ReminderCron: "0 9 * * *",
		RosterPath:   rosterPath,
		MetricsFile:  filepath.Join(dir, "metrics.prom"),
	}
}

func runCommand(t *testing.T, cfg config.Config, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	err := run(context.Background(), cfg, logger, args, &out)
	return out.String(), err
}

func TestRun_ImportSyncFinanceICS(t *testing.T) {
	cfg := testConfig(t)

	out, err := runCommand(t, cfg, "import")
	require.NoError(t, err)
	assert.Contains(t, out, "imported 2 clients")

	out, err = runCommand(t, cfg, "sync", "-month", "2024-03")
	require.NoError(t, err)
	assert.Contains(t, out, "2024-03-01..2024-03-31: 12 new sessions, 12 total")
	assert.Contains(t, out, "Ana Souza")

	out, err = runCommand(t, cfg, "sync", "-month", "2024-03")
	require.NoError(t, err)
	assert.Contains(t, out, "0 new sessions, 12 total", "a second sync inserts nothing")

	out, err = runCommand(t, cfg, "finance", "-month", "2024-03", "-toggle", "ana")
	require.NoError(t, err)
	assert.Contains(t, out, "expected 350.00, earned 350.00")
	assert.Regexp(t, `Ana Souza\s+monthly\s+8/8\s+150.00\s+150.00\s+true`, out)

	icsPath := filepath.Join(t.TempDir(), "march.ics")
	out, err = runCommand(t, cfg, "ics", "-month", "2024-03", "-out", icsPath)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote 12 sessions")

	data, err := os.ReadFile(icsPath)
	require.NoError(t, err)
	cal, err := ical.ParseCalendar(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Len(t, cal.Events(), 12)

	metrics, err := os.ReadFile(cfg.MetricsFile)
	require.NoError(t, err)
	assert.Contains(t, string(metrics), "trainer_")
}

func TestRun_SessionCommands(t *testing.T) {
	cfg := testConfig(t)
	cfg.MetricsFile = ""

	_, err := runCommand(t, cfg, "import")
	require.NoError(t, err)

	out, err := runCommand(t, cfg, "add", "-client", "ana", "-date", "2024-03-18", "-time", "08:00", "-tags", "trial")
	require.NoError(t, err)
	assert.Contains(t, out, "Ana Souza 2024-03-18 08:00")
	assert.Contains(t, out, "warning: overlaps ana-2024-03-18-08:00 (same client)")

	out, err = runCommand(t, cfg, "move", "-month", "2024-03", "-date", "2024-03-21", "-time", "09:00", "ana-2024-03-20-08:00")
	require.NoError(t, err)
	assert.Contains(t, out, "moved ana-2024-03-20-08:00: Ana Souza 2024-03-21 09:00")

	out, err = runCommand(t, cfg, "complete", "-month", "2024-03", "-tags", "strength", "ana-2024-03-04-08:00")
	require.NoError(t, err)
	assert.Contains(t, out, "completed ana-2024-03-04-08:00")

	out, err = runCommand(t, cfg, "annotate", "-month", "2024-03", "-notes", "knee ok", "ana-2024-03-04-08:00")
	require.NoError(t, err)
	assert.Contains(t, out, "tags: strength", "omitted tags are kept")
	assert.Contains(t, out, "notes: knee ok")

	out, err = runCommand(t, cfg, "delete", "-month", "2024-03", "bruno-2024-03-25-18:30")
	require.NoError(t, err)
	assert.Equal(t, "deleted bruno-2024-03-25-18:30\n", out)

	out, err = runCommand(t, cfg, "sync", "-month", "2024-03")
	require.NoError(t, err)
	assert.Contains(t, out, "0 new sessions, 12 total", "one added, one deleted, nothing re-created")
	assert.Regexp(t, `2024-03-04 Mon\s+08:00\s+Ana Souza\s+done\s+strength`, out)
	assert.Contains(t, out, "2024-03-21 Thu  09:00")

	_, err = runCommand(t, cfg, "delete", "-month", "2024-03", "bruno-2024-03-25-18:30")
	assert.ErrorIs(t, err, application.ErrNotFound)
}

func TestRun_RemindersWithEmptyRoster(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage = config.StorageMemory
	cfg.MetricsFile = ""

	out, err := runCommand(t, cfg, "reminders")
	require.NoError(t, err)
	assert.Equal(t, "no reminders due\n", out)
}

func TestRun_UsageErrors(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage = config.StorageMemory

	for _, args := range [][]string{
		nil, {"dance"}, {"sync", "-month", "March"}, {"sync", "-bogus"},
		{"move", "-date", "2024-03-21", "-time", "09:00"},
		{"add", "-client", "ana", "-date", "tomorrow", "-time", "08:00"},
		{"complete", "a", "b"},
	} {
		_, err := runCommand(t, cfg, args...)
		assert.True(t, errors.Is(err, errUsage), "args %v: %v", args, err)
	}
}

func TestRun_ImportRejectsInvalidRoster(t *testing.T) {
	cfg := testConfig(t)
	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("clients:\n  - name: \"\"\n    plan: weekly\n"), 0o600))

	_, err := runCommand(t, cfg, "import", bad)
	require.Error(t, err)
	assert.True(t, strings.Contains(err.Error(), "validation failed"), err.Error())
}
