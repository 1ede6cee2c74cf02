package postgres

import (
	"context"
	"fmt"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/persistence"
)

// LoadOccurrences returns the occurrences dated inside the inclusive window
// ordered by date, time, then id.
func (s *Storage) LoadOccurrences(ctx context.Context, start, end calendar.Date) ([]model.Occurrence, error) {
	if err := (calendar.Range{Start: start, End: end}).Validate(); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, client_id, client_name, date::text, time, duration_minutes, completed, tags::text,
		       notes, source_key, ad_hoc, updated_at
		FROM occurrences
		WHERE date BETWEEN $1::date AND $2::date
		ORDER BY date, time, id`,
		start.String(), end.String())
	if err != nil {
		return nil, fmt.Errorf("postgres: load occurrences: %w", mapError(err))
	}
	defer rows.Close()

	occurrences := []model.Occurrence{}
	for rows.Next() {
		var record persistence.OccurrenceRecord
		if err := rows.Scan(&record.ID, &record.ClientID, &record.ClientName, &record.Date, &record.Time,
			&record.DurationMinutes, &record.Completed, &record.Tags, &record.Notes, &record.SourceKey,
			&record.AdHoc, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan occurrence: %w", err)
		}
		occurrence, err := record.Occurrence()
		if err != nil {
			return nil, err
		}
		occurrences = append(occurrences, occurrence)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load occurrences: %w", mapError(err))
	}
	return occurrences, nil
}

// SaveOccurrence inserts or replaces an occurrence by id.
func (s *Storage) SaveOccurrence(ctx context.Context, occurrence model.Occurrence) error {
	if occurrence.ID == "" {
		return fmt.Errorf("%w: occurrence id is required", persistence.ErrConstraintViolation)
	}
	record, err := persistence.NewOccurrenceRecord(occurrence, s.now())
	if err != nil {
		return err
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO occurrences (id, client_id, client_name, date, time, duration_minutes, completed, tags,
		                         notes, source_key, ad_hoc, updated_at)
		VALUES ($1, $2, $3, $4::date, $5, $6, $7, $8::jsonb, $9, $10, $11, $12)
		ON CONFLICT (id) DO UPDATE SET
			client_id = EXCLUDED.client_id,
			client_name = EXCLUDED.client_name,
			date = EXCLUDED.date,
			time = EXCLUDED.time,
			duration_minutes = EXCLUDED.duration_minutes,
			completed = EXCLUDED.completed,
			tags = EXCLUDED.tags,
			notes = EXCLUDED.notes,
			source_key = EXCLUDED.source_key,
			ad_hoc = EXCLUDED.ad_hoc,
			updated_at = EXCLUDED.updated_at`,
		record.ID, record.ClientID, record.ClientName, record.Date, record.Time, record.DurationMinutes,
		record.Completed, record.Tags, record.Notes, record.SourceKey, record.AdHoc, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: save occurrence %s: %w", occurrence.ID, mapError(err))
	}
	return nil
}

// DeleteOccurrence removes an occurrence by id.
func (s *Storage) DeleteOccurrence(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM occurrences WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("postgres: delete occurrence %s: %w", id, mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("postgres: delete occurrence %s: %w", id, persistence.ErrNotFound)
	}
	return nil
}

// SaveTombstone records a consumed natural key. Saving the same key twice is a no-op.
func (s *Storage) SaveTombstone(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO tombstones (key, created_at) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
		key, s.now().UTC())
	if err != nil {
		return fmt.Errorf("postgres: save tombstone %s: %w", key, mapError(err))
	}
	return nil
}

// LoadTombstones returns every consumed natural key, sorted.
func (s *Storage) LoadTombstones(ctx context.Context) ([]string, error) {
	rows, err := s.pool.Query(ctx, `SELECT key FROM tombstones ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load tombstones: %w", mapError(err))
	}
	defer rows.Close()

	keys := []string{}
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("postgres: scan tombstone: %w", err)
		}
		keys = append(keys, key)
	}
	return keys, rows.Err()
}
