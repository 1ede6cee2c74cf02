// Package occurrence owns the mutable set of materialized and ad-hoc sessions.
package occurrence

import (
	"fmt"
	"slices"
	"sync"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/recurrence"
)

// Store keeps occurrences in memory and hands out copies. The mutex provides
// memory safety only; concurrent writers to the same occurrence resolve as
// last-writer-wins.
type Store struct {
	mu         sync.RWMutex
	byID       map[string]model.Occurrence
	byKey      map[string]string
	sources    recurrence.KeySet
	tombstones recurrence.KeySet
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		byID:       make(map[string]model.Occurrence),
		byKey:      make(map[string]string),
		sources:    make(recurrence.KeySet),
		tombstones: make(recurrence.KeySet),
	}
}

type addOptions struct {
	force bool
}

// AddOption customizes Add.
type AddOption func(*addOptions)

// Force bypasses the natural-key collision check. Ad-hoc sessions use it with a
// caller chosen id; id collisions are still rejected.
func Force() AddOption {
	return func(o *addOptions) { o.force = true }
}

// Add inserts o. It fails with model.ErrConflict when the id is taken or, unless
// forced, when another occurrence already holds the same natural key.
func (s *Store) Add(o model.Occurrence, opts ...AddOption) error {
	var options addOptions
	for _, opt := range opts {
		opt(&options)
	}
	if o.ID == "" {
		o.ID = o.Key()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[o.ID]; exists {
		return fmt.Errorf("%w: id %s", model.ErrConflict, o.ID)
	}
	if !options.force {
		if _, exists := s.byKey[o.Key()]; exists {
			return fmt.Errorf("%w: key %s", model.ErrConflict, o.Key())
		}
	}
	s.insertLocked(o)
	return nil
}

// Update merges patch into the occurrence with the given id and returns the result.
func (s *Store) Update(id string, patch model.Patch) (model.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return model.Occurrence{}, fmt.Errorf("%w: occurrence %s", model.ErrNotFound, id)
	}
	updated := patch.ApplyTo(current)
	s.byID[id] = updated
	return updated.Clone(), nil
}

// Move reschedules an occurrence. Moving to the current date and time is a
// no-op. Other sessions at the destination are left alone, so double bookings
// are allowed. The vacated template slot is tombstoned so later
// materialization passes do not re-create it.
func (s *Store) Move(id string, date calendar.Date, at calendar.TimeOfDay) (model.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return model.Occurrence{}, fmt.Errorf("%w: occurrence %s", model.ErrNotFound, id)
	}
	if current.Date == date && current.Time == at {
		return current.Clone(), nil
	}

	s.unindexLocked(current)
	s.tombstones.Add(current.SourceKey)
	moved := current.Clone()
	moved.Date = date
	moved.Time = at
	s.insertLocked(moved)
	return moved.Clone(), nil
}

// Remove deletes an occurrence, template-derived or ad hoc, and tombstones its
// source slot.
func (s *Store) Remove(id string) (model.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return model.Occurrence{}, fmt.Errorf("%w: occurrence %s", model.ErrNotFound, id)
	}
	s.unindexLocked(current)
	delete(s.byID, id)
	s.tombstones.Add(current.SourceKey)
	return current, nil
}

// Withdraw deletes an occurrence without tombstoning it. Its source slot is
// released once no other occurrence claims it, so a later materialization pass
// may create the session again.
func (s *Store) Withdraw(id string) (model.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.byID[id]
	if !ok {
		return model.Occurrence{}, fmt.Errorf("%w: occurrence %s", model.ErrNotFound, id)
	}
	s.unindexLocked(current)
	delete(s.byID, id)
	if current.SourceKey != "" && !s.sourceClaimedLocked(current.SourceKey) {
		s.sources.Remove(current.SourceKey)
	}
	return current, nil
}

// Get returns a copy of the occurrence with the given id.
func (s *Store) Get(id string) (model.Occurrence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	current, ok := s.byID[id]
	if !ok {
		return model.Occurrence{}, fmt.Errorf("%w: occurrence %s", model.ErrNotFound, id)
	}
	return current.Clone(), nil
}

// ListByClient returns the client's occurrences ordered by date, time, then id.
func (s *Store) ListByClient(clientID string) []model.Occurrence {
	return s.collect(func(o model.Occurrence) bool { return o.ClientID == clientID })
}

// ListByDateRange returns occurrences dated inside the inclusive window. A
// malformed window yields nothing.
func (s *Store) ListByDateRange(start, end calendar.Date) []model.Occurrence {
	window := calendar.Range{Start: start, End: end}
	if window.Validate() != nil {
		return nil
	}
	return s.collect(func(o model.Occurrence) bool { return window.Contains(o.Date) })
}

// All returns every stored occurrence in order.
func (s *Store) All() []model.Occurrence {
	return s.collect(func(model.Occurrence) bool { return true })
}

// Apply inserts a materialization delta and returns what was actually inserted.
// Entries colliding with a stored key, source key or tombstone are skipped, so
// applying the same delta twice inserts nothing the second time.
func (s *Store) Apply(delta []model.Occurrence) []model.Occurrence {
	s.mu.Lock()
	defer s.mu.Unlock()

	inserted := make([]model.Occurrence, 0, len(delta))
	for _, o := range delta {
		if o.ID == "" {
			o.ID = o.Key()
		}
		if s.occupiedLocked(o) {
			continue
		}
		s.insertLocked(o)
		inserted = append(inserted, o.Clone())
	}
	return inserted
}

// Keys returns every natural key the materializer must not re-create: current
// keys, source keys and tombstones.
func (s *Store) Keys() recurrence.KeySet {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make(recurrence.KeySet, len(s.byKey)+len(s.sources)+len(s.tombstones))
	for key := range s.byKey {
		keys.Add(key)
	}
	keys.Merge(s.sources)
	keys.Merge(s.tombstones)
	return keys
}

// Tombstones returns the consumed natural keys, sorted.
func (s *Store) Tombstones() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.tombstones))
	for key := range s.tombstones {
		out = append(out, key)
	}
	slices.Sort(out)
	return out
}

// Load seeds the store from persisted state. Occurrences whose id is already
// present are replaced by the loaded copy.
func (s *Store) Load(occurrences []model.Occurrence, tombstones []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, key := range tombstones {
		s.tombstones.Add(key)
	}
	for _, o := range occurrences {
		if o.ID == "" {
			o.ID = o.Key()
		}
		if current, ok := s.byID[o.ID]; ok {
			s.unindexLocked(current)
		}
		s.insertLocked(o)
	}
}

// Len returns the number of stored occurrences.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *Store) collect(keep func(model.Occurrence) bool) []model.Occurrence {
	s.mu.RLock()
	out := make([]model.Occurrence, 0)
	for _, o := range s.byID {
		if keep(o) {
			out = append(out, o.Clone())
		}
	}
	s.mu.RUnlock()

	model.SortOccurrences(out)
	return out
}

func (s *Store) occupiedLocked(o model.Occurrence) bool {
	if _, exists := s.byID[o.ID]; exists {
		return true
	}
	if _, exists := s.byKey[o.Key()]; exists {
		return true
	}
	return s.sources.Has(o.Key()) || s.tombstones.Has(o.Key()) || s.tombstones.Has(o.SourceKey)
}

func (s *Store) sourceClaimedLocked(key string) bool {
	for _, o := range s.byID {
		if o.SourceKey == key {
			return true
		}
	}
	return false
}

func (s *Store) insertLocked(o model.Occurrence) {
	o.Tags = model.NormalizeTags(o.Tags)
	s.byID[o.ID] = o.Clone()
	s.sources.Add(o.SourceKey)
	if _, exists := s.byKey[o.Key()]; !exists {
		s.byKey[o.Key()] = o.ID
	}
}

// unindexLocked drops o's natural key entry, handing it to another occurrence
// at the same slot when one exists.
func (s *Store) unindexLocked(o model.Occurrence) {
	key := o.Key()
	if s.byKey[key] != o.ID {
		return
	}
	delete(s.byKey, key)
	for id, other := range s.byID {
		if id != o.ID && other.Key() == key {
			s.byKey[key] = id
			return
		}
	}
}
