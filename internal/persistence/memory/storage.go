// Package memory provides an in-process implementation of the persistence
// repositories, used by tests and by the CLI when no database is configured.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/payment"
	"github.com/example/trainer-scheduler/internal/persistence"
)

// Storage keeps every record in maps guarded by a RWMutex and hands out clones.
type Storage struct {
	mu          sync.RWMutex
	clients     map[string]model.Client
	occurrences map[string]model.Occurrence
	tombstones  map[string]struct{}
	statuses    map[string]payment.Status
}

var (
	_ persistence.Store            = (*Storage)(nil)
	_ persistence.StatusRepository = (*Storage)(nil)
)

// New returns an empty Storage.
func New() *Storage {
	return &Storage{
		clients:     make(map[string]model.Client),
		occurrences: make(map[string]model.Occurrence),
		tombstones:  make(map[string]struct{}),
		statuses:    make(map[string]payment.Status),
	}
}

// Close releases resources held by the storage. No-op for the in-memory implementation.
func (s *Storage) Close() error {
	return nil
}

// --- ClientRepository implementation ---

// LoadClients returns every client ordered by name, then id.
func (s *Storage) LoadClients(ctx context.Context) ([]model.Client, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	clients := make([]model.Client, 0, len(s.clients))
	for _, client := range s.clients {
		clients = append(clients, client.Clone())
	}
	sort.Slice(clients, func(i, j int) bool {
		if clients[i].Name == clients[j].Name {
			return clients[i].ID < clients[j].ID
		}
		return clients[i].Name < clients[j].Name
	})
	return clients, nil
}

// SaveClient inserts or replaces a client.
func (s *Storage) SaveClient(ctx context.Context, client model.Client) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if client.ID == "" {
		return fmt.Errorf("%w: client id is required", persistence.ErrConstraintViolation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.clients[client.ID] = client.Clone()
	return nil
}

// --- OccurrenceRepository implementation ---

// LoadOccurrences returns the occurrences dated inside the inclusive window.
func (s *Storage) LoadOccurrences(ctx context.Context, start, end calendar.Date) ([]model.Occurrence, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	window := calendar.Range{Start: start, End: end}
	if err := window.Validate(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	occurrences := make([]model.Occurrence, 0)
	for _, o := range s.occurrences {
		if window.Contains(o.Date) {
			occurrences = append(occurrences, o.Clone())
		}
	}
	model.SortOccurrences(occurrences)
	return occurrences, nil
}

// SaveOccurrence inserts or replaces an occurrence by id.
func (s *Storage) SaveOccurrence(ctx context.Context, occurrence model.Occurrence) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if occurrence.ID == "" {
		return fmt.Errorf("%w: occurrence id is required", persistence.ErrConstraintViolation)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.occurrences[occurrence.ID] = occurrence.Clone()
	return nil
}

// DeleteOccurrence removes an occurrence by id.
func (s *Storage) DeleteOccurrence(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.occurrences[id]; !ok {
		return persistence.ErrNotFound
	}
	delete(s.occurrences, id)
	return nil
}

// SaveTombstone records a consumed natural key. Saving the same key twice is a no-op.
func (s *Storage) SaveTombstone(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if key == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tombstones[key] = struct{}{}
	return nil
}

// LoadTombstones returns every consumed natural key, sorted.
func (s *Storage) LoadTombstones(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.tombstones))
	for key := range s.tombstones {
		keys = append(keys, key)
	}
	slices.Sort(keys)
	return keys, nil
}

// --- StatusRepository implementation ---

// LoadStatuses returns the saved payment statuses ordered by client id.
func (s *Storage) LoadStatuses(ctx context.Context) ([]payment.Status, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	statuses := make([]payment.Status, 0, len(s.statuses))
	for _, status := range s.statuses {
		statuses = append(statuses, cloneStatus(status))
	}
	sort.Slice(statuses, func(i, j int) bool { return statuses[i].ClientID < statuses[j].ClientID })
	return statuses, nil
}

// SaveStatuses replaces the saved snapshot.
func (s *Storage) SaveStatuses(ctx context.Context, statuses []payment.Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.statuses = make(map[string]payment.Status, len(statuses))
	for _, status := range statuses {
		s.statuses[status.ClientID] = cloneStatus(status)
	}
	return nil
}

func cloneStatus(status payment.Status) payment.Status {
	if status.PaidAt != nil {
		paidAt := *status.PaidAt
		status.PaidAt = &paidAt
	}
	return status
}
