package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/observability"
	"github.com/example/trainer-scheduler/internal/occurrence"
	"github.com/example/trainer-scheduler/internal/persistence"
	"github.com/example/trainer-scheduler/internal/recurrence"
)

// ScheduleService materializes client templates into sessions and applies the
// trainer's edits. Mutations operate on the sessions loaded by SyncWindow.
type ScheduleService struct {
	clients     ClientRepository
	occurrences OccurrenceRepository
	store       *occurrence.Store
	engine      *recurrence.Engine
	metrics     *observability.Metrics
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewScheduleService wires dependencies for schedule operations.
func NewScheduleService(clients ClientRepository, occurrences OccurrenceRepository, idGenerator func() string, now func() time.Time, opts ...Option) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	o := buildOptions(opts)
	return &ScheduleService{
		clients:     clients,
		occurrences: occurrences,
		store:       o.store,
		engine:      o.engine,
		metrics:     o.metrics,
		idGenerator: idGenerator,
		now:         now,
		logger:      o.logger,
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// SyncWindow loads the roster and the stored sessions of window, inserts the
// template occurrences still missing and persists them. Running it again over
// the same or an overlapping window inserts nothing new. Pending template
// sessions of inactive clients dated after today are withdrawn first.
func (s *ScheduleService) SyncWindow(ctx context.Context, window calendar.Range) (result SyncResult, err error) {
	if s == nil {
		err = fmt.Errorf("ScheduleService is nil")
		return
	}
	if err = window.Validate(); err != nil {
		return SyncResult{}, fmt.Errorf("sync %s: %w", window, err)
	}

	started := s.now()
	logger := s.loggerWith(ctx, "SyncWindow", "window", window.String())
	insertedByClient := make(map[string]int)
	defer func() {
		s.metrics.ObserveSync(started, insertedByClient, err)
		if err != nil {
			logger.ErrorContext(ctx, "failed to sync window", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "window synced", "inserted", len(result.Inserted), "withdrawn", len(result.Withdrawn), "sessions", len(result.Occurrences))
	}()

	var (
		clients    []model.Client
		stored     []model.Occurrence
		tombstones []string
	)
	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		loaded, err := s.clients.LoadClients(gctx)
		if err != nil {
			return fmt.Errorf("load clients: %w", err)
		}
		clients = loaded
		return nil
	})
	group.Go(func() error {
		loaded, err := s.occurrences.LoadOccurrences(gctx, window.Start, window.End)
		if err != nil {
			return fmt.Errorf("load occurrences: %w", err)
		}
		stored = loaded
		return nil
	})
	group.Go(func() error {
		loaded, err := s.occurrences.LoadTombstones(gctx)
		if err != nil {
			return fmt.Errorf("load tombstones: %w", err)
		}
		tombstones = loaded
		return nil
	})
	if err = group.Wait(); err != nil {
		err = mapRepoError(err)
		return
	}

	s.store.Load(stored, tombstones)
	today := s.now()
	withdrawn, err := s.withdrawInactive(ctx, clients, calendar.DateOf(today))
	if err != nil {
		return SyncResult{}, err
	}
	delta := s.engine.Plan(clients, window.Start, window.End, today, s.store.Keys())
	inserted := s.store.Apply(delta)

	for _, o := range inserted {
		if err = s.occurrences.SaveOccurrence(ctx, o); err != nil {
			err = mapRepoError(fmt.Errorf("save occurrence %s: %w", o.ID, err))
			return
		}
		insertedByClient[o.ClientID]++
	}

	result = SyncResult{
		Window:      window,
		Clients:     clients,
		Inserted:    inserted,
		Withdrawn:   withdrawn,
		Occurrences: s.store.ListByDateRange(window.Start, window.End),
	}
	return result, nil
}

// withdrawInactive deletes the pending template sessions an inactive client
// still holds after today. They are not tombstoned, so reactivating the
// client brings them back on the next sync.
func (s *ScheduleService) withdrawInactive(ctx context.Context, clients []model.Client, today calendar.Date) ([]model.Occurrence, error) {
	var withdrawn []model.Occurrence
	for _, client := range clients {
		if client.Active {
			continue
		}
		for _, o := range s.store.ListByClient(client.ID) {
			if !withdrawable(o, today) {
				continue
			}
			if err := s.occurrences.DeleteOccurrence(ctx, o.ID); err != nil && !errors.Is(err, persistence.ErrNotFound) {
				return withdrawn, mapRepoError(fmt.Errorf("withdraw occurrence %s: %w", o.ID, err))
			}
			if _, err := s.store.Withdraw(o.ID); err != nil {
				return withdrawn, err
			}
			s.metrics.CountMutation("withdraw")
			withdrawn = append(withdrawn, o)
		}
	}
	return withdrawn, nil
}

// withdrawable reports whether o is an untouched template session dated after
// today. Completed, ad-hoc and moved sessions are kept.
func withdrawable(o model.Occurrence, today calendar.Date) bool {
	if o.Completed || o.AdHoc || o.SourceKey == "" {
		return false
	}
	return o.Key() == o.SourceKey && today.Before(o.Date)
}

// AddSession books an ad-hoc session. It may double book; overlaps come back
// as warnings.
func (s *ScheduleService) AddSession(ctx context.Context, input SessionInput) (session model.Occurrence, warnings []OverlapWarning, err error) {
	logger := s.loggerWith(ctx, "AddSession", "client_id", input.ClientID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to add session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("occurrence_id", session.ID).InfoContext(ctx, "session added", "overlaps", len(warnings))
	}()

	vErr := validateSessionInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	client, err := s.findClient(ctx, input.ClientID)
	if err != nil {
		return model.Occurrence{}, nil, err
	}

	candidate := model.Occurrence{
		ID:              s.idGenerator(),
		ClientID:        client.ID,
		ClientName:      client.Name,
		Date:            input.Date,
		Time:            input.Time,
		DurationMinutes: input.DurationMinutes,
		Tags:            model.NormalizeTags(input.Tags),
		Notes:           strings.TrimSpace(input.Notes),
		AdHoc:           true,
	}
	if candidate.DurationMinutes <= 0 {
		candidate.DurationMinutes = model.DefaultDurationMinutes
	}

	if err = s.store.Add(candidate, occurrence.Force()); err != nil {
		return model.Occurrence{}, nil, err
	}
	if err = s.occurrences.SaveOccurrence(ctx, candidate); err != nil {
		_, _ = s.store.Remove(candidate.ID)
		return model.Occurrence{}, nil, mapRepoError(err)
	}
	s.metrics.CountMutation("add")

	return candidate, toWarnings(candidate.ID, s.store.Overlaps(candidate)), nil
}

// MoveSession reschedules a session, keeping its identity. The vacated
// template slot is tombstoned. Moving onto the current date and time is a
// no-op.
func (s *ScheduleService) MoveSession(ctx context.Context, id string, date calendar.Date, at calendar.TimeOfDay) (session model.Occurrence, warnings []OverlapWarning, err error) {
	logger := s.loggerWith(ctx, "MoveSession", "occurrence_id", id, "date", date.String(), "time", at.String())
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to move session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session moved", "overlaps", len(warnings))
	}()

	vErr := &ValidationError{}
	if date.IsZero() {
		vErr.add("date", "date is required")
	}
	if !at.Valid() {
		vErr.add("time", "must be a valid HH:MM time")
	}
	if vErr.HasErrors() {
		err = vErr
		return
	}

	current, err := s.store.Get(id)
	if err != nil {
		return model.Occurrence{}, nil, err
	}
	if current.Date == date && current.Time == at {
		return current, nil, nil
	}

	// The tombstone goes first: on its own it only blocks re-creating a slot
	// the loaded session still holds.
	if err = s.occurrences.SaveTombstone(ctx, current.SourceKey); err != nil {
		return model.Occurrence{}, nil, mapRepoError(err)
	}
	moved := current.Clone()
	moved.Date = date
	moved.Time = at
	if err = s.occurrences.SaveOccurrence(ctx, moved); err != nil {
		return model.Occurrence{}, nil, mapRepoError(err)
	}
	if moved, err = s.store.Move(id, date, at); err != nil {
		return model.Occurrence{}, nil, err
	}
	s.metrics.CountMutation("move")

	return moved, toWarnings(moved.ID, s.store.Overlaps(moved)), nil
}

// CompleteSession marks a session as delivered, replacing its tags and notes.
func (s *ScheduleService) CompleteSession(ctx context.Context, id string, tags []string, notes string) (model.Occurrence, error) {
	completed := true
	notes = strings.TrimSpace(notes)
	return s.patch(ctx, "CompleteSession", id, model.Patch{Completed: &completed, Tags: &tags, Notes: &notes})
}

// ReopenSession clears the completed flag.
func (s *ScheduleService) ReopenSession(ctx context.Context, id string) (model.Occurrence, error) {
	completed := false
	return s.patch(ctx, "ReopenSession", id, model.Patch{Completed: &completed})
}

// AnnotateSession updates tags and notes. Nil arguments are left untouched.
func (s *ScheduleService) AnnotateSession(ctx context.Context, id string, tags *[]string, notes *string) (model.Occurrence, error) {
	return s.patch(ctx, "AnnotateSession", id, model.Patch{Tags: tags, Notes: notes})
}

func (s *ScheduleService) patch(ctx context.Context, operation, id string, patch model.Patch) (session model.Occurrence, err error) {
	logger := s.loggerWith(ctx, operation, "occurrence_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session updated", "completed", session.Completed)
	}()

	current, err := s.store.Get(id)
	if err != nil {
		return model.Occurrence{}, err
	}
	if patch.IsEmpty() {
		return current, nil
	}
	if err = s.occurrences.SaveOccurrence(ctx, patch.ApplyTo(current)); err != nil {
		return model.Occurrence{}, mapRepoError(err)
	}
	if session, err = s.store.Update(id, patch); err != nil {
		return model.Occurrence{}, err
	}
	s.metrics.CountMutation(strings.ToLower(strings.TrimSuffix(operation, "Session")))
	return session, nil
}

// DeleteSession removes a session for good. Template-derived sessions are
// tombstoned so later syncs do not bring them back.
func (s *ScheduleService) DeleteSession(ctx context.Context, id string) (err error) {
	logger := s.loggerWith(ctx, "DeleteSession", "occurrence_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to delete session", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "session deleted")
	}()

	current, err := s.store.Get(id)
	if err != nil {
		return err
	}
	if err = s.occurrences.SaveTombstone(ctx, current.SourceKey); err != nil {
		return mapRepoError(err)
	}
	if err = s.occurrences.DeleteOccurrence(ctx, id); err != nil {
		return mapRepoError(err)
	}
	if _, err = s.store.Remove(id); err != nil {
		return err
	}
	s.metrics.CountMutation("delete")
	return nil
}

// Session returns one loaded session.
func (s *ScheduleService) Session(id string) (model.Occurrence, error) {
	return s.store.Get(id)
}

// ListClientSessions returns every loaded session of the client in order.
func (s *ScheduleService) ListClientSessions(clientID string) []model.Occurrence {
	return s.store.ListByClient(clientID)
}

// ListRange returns the loaded sessions dated inside window.
func (s *ScheduleService) ListRange(window calendar.Range) ([]model.Occurrence, error) {
	if err := window.Validate(); err != nil {
		return nil, fmt.Errorf("list %s: %w", window, err)
	}
	return s.store.ListByDateRange(window.Start, window.End), nil
}

// Day returns the agenda of one date grouped by hourly slot.
func (s *ScheduleService) Day(date calendar.Date) occurrence.DaySummary {
	return s.store.DaySummary(date)
}

func (s *ScheduleService) findClient(ctx context.Context, id string) (model.Client, error) {
	clients, err := s.clients.LoadClients(ctx)
	if err != nil {
		return model.Client{}, mapRepoError(err)
	}
	for _, client := range clients {
		if client.ID == id {
			return client, nil
		}
	}
	return model.Client{}, fmt.Errorf("%w: client %s", ErrNotFound, id)
}

func validateSessionInput(input SessionInput) *ValidationError {
	vErr := &ValidationError{}
	if strings.TrimSpace(input.ClientID) == "" {
		vErr.add("client_id", "client is required")
	}
	if input.Date.IsZero() {
		vErr.add("date", "date is required")
	}
	if !input.Time.Valid() {
		vErr.add("time", "must be a valid HH:MM time")
	}
	if input.DurationMinutes < 0 {
		vErr.add("duration_minutes", "must not be negative")
	}
	return vErr
}
