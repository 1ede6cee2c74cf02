package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/example/trainer-scheduler/internal/application"
	"github.com/example/trainer-scheduler/internal/config"
	"github.com/example/trainer-scheduler/internal/observability"
	"github.com/example/trainer-scheduler/internal/persistence"
	"github.com/example/trainer-scheduler/internal/persistence/memory"
	"github.com/example/trainer-scheduler/internal/persistence/postgres"
	"github.com/example/trainer-scheduler/internal/persistence/redisstatus"
	"github.com/example/trainer-scheduler/internal/persistence/sqlite"
)

// backend is what every storage option provides.
type backend interface {
	persistence.Store
	persistence.StatusRepository
}

type app struct {
	cfg      config.Config
	logger   *slog.Logger
	stdout   io.Writer
	now      func() time.Time
	registry *prometheus.Registry

	roster   *application.RosterService
	schedule *application.ScheduleService
	finance  *application.FinanceService

	closers []func() error
}

func newApp(ctx context.Context, cfg config.Config, logger *slog.Logger, stdout io.Writer) (*app, error) {
	a := &app{
		cfg:      cfg,
		logger:   logger,
		stdout:   stdout,
		now:      func() time.Time { return time.Now().In(cfg.Location) },
		registry: prometheus.NewRegistry(),
	}

	store, err := openBackend(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, store.Close)

	var (
		statuses application.StatusStore = store
		ledger   application.ReminderLedger
	)
	if cfg.RedisAddr != "" {
		client, err := redisstatus.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		redisStore := redisstatus.New(client, cfg.RedisPrefix)
		statuses, ledger = redisStore, redisStore
		logger.Debug("payment statuses kept in redis", "addr", cfg.RedisAddr)
	}

	metrics := observability.NewMetrics(a.registry)
	opts := []application.Option{
		application.WithLogger(logger),
		application.WithMetrics(metrics),
		application.WithLanguage(cfg.Language),
	}
	a.roster = application.NewRosterService(store, uuid.NewString, opts...)
	a.schedule = application.NewScheduleService(store, store, uuid.NewString, a.now, opts...)
	a.finance = application.NewFinanceService(a.schedule, statuses, ledger, a.now, opts...)
	return a, nil
}

func openBackend(ctx context.Context, cfg config.Config, logger *slog.Logger) (backend, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		return memory.New(), nil
	case config.StorageSQLite:
		store, err := sqlite.Open(cfg.SQLiteDSN, sqlite.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate sqlite: %w", err)
		}
		return store, nil
	case config.StoragePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN, cfg.PostgresMaxConns)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
		if err := store.Migrate(ctx); err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("migrate postgres: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage %q", cfg.Storage)
	}
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *app) writeMetrics() error {
	if a.cfg.MetricsFile == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(a.cfg.MetricsFile, a.registry); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
