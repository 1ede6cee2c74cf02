package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/persistence"
)

const selectOccurrenceColumns = `id, client_id, client_name, date, time, duration_minutes, completed, tags, notes, source_key, ad_hoc, updated_at`

// LoadOccurrences returns the occurrences dated inside the inclusive window
// ordered by date, time, then id.
func (s *Storage) LoadOccurrences(ctx context.Context, start, end calendar.Date) ([]model.Occurrence, error) {
	window := calendar.Range{Start: start, End: end}
	if err := window.Validate(); err != nil {
		return nil, err
	}

	var occurrences []model.Occurrence
	err := s.retry.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, `
			SELECT `+selectOccurrenceColumns+`
			FROM occurrences
			WHERE date BETWEEN ? AND ?
			ORDER BY date ASC, time ASC, id ASC`,
			start.String(), end.String())
		if err != nil {
			return err
		}
		defer rows.Close()

		occurrences = occurrences[:0]
		for rows.Next() {
			occurrence, err := scanOccurrence(rows)
			if err != nil {
				return err
			}
			occurrences = append(occurrences, occurrence)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: load occurrences %s: %w", window, err)
	}
	if occurrences == nil {
		occurrences = []model.Occurrence{}
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

	err = s.retry.do(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO occurrences (`+selectOccurrenceColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				client_id = excluded.client_id,
				client_name = excluded.client_name,
				date = excluded.date,
				time = excluded.time,
				duration_minutes = excluded.duration_minutes,
				completed = excluded.completed,
				tags = excluded.tags,
				notes = excluded.notes,
				source_key = excluded.source_key,
				ad_hoc = excluded.ad_hoc,
				updated_at = excluded.updated_at`,
			record.ID, record.ClientID, record.ClientName, record.Date, record.Time, record.DurationMinutes,
			record.Completed, record.Tags, record.Notes, record.SourceKey, record.AdHoc, s.timestamp())
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlite: save occurrence %s: %w", occurrence.ID, err)
	}
	return nil
}

// DeleteOccurrence removes an occurrence by id.
func (s *Storage) DeleteOccurrence(ctx context.Context, id string) error {
	var affected int64
	err := s.retry.do(ctx, func() error {
		result, err := s.db.ExecContext(ctx, `DELETE FROM occurrences WHERE id = ?`, id)
		if err != nil {
			return err
		}
		affected, err = result.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlite: delete occurrence %s: %w", id, err)
	}
	if affected == 0 {
		return fmt.Errorf("sqlite: delete occurrence %s: %w", id, persistence.ErrNotFound)
	}
	return nil
}

// SaveTombstone records a consumed natural key. Saving the same key twice is a no-op.
func (s *Storage) SaveTombstone(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	err := s.retry.do(ctx, func() error {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO tombstones (key, created_at) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
			key, s.timestamp())
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlite: save tombstone %s: %w", key, err)
	}
	return nil
}

// LoadTombstones returns every consumed natural key, sorted.
func (s *Storage) LoadTombstones(ctx context.Context) ([]string, error) {
	keys := []string{}
	err := s.retry.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx, `SELECT key FROM tombstones ORDER BY key ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		keys = keys[:0]
		for rows.Next() {
			var key string
			if err := rows.Scan(&key); err != nil {
				return err
			}
			keys = append(keys, key)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: load tombstones: %w", err)
	}
	return keys, nil
}

func scanOccurrence(rows *sql.Rows) (model.Occurrence, error) {
	var (
		record    persistence.OccurrenceRecord
		updatedAt string
	)
	if err := rows.Scan(&record.ID, &record.ClientID, &record.ClientName, &record.Date, &record.Time,
		&record.DurationMinutes, &record.Completed, &record.Tags, &record.Notes, &record.SourceKey,
		&record.AdHoc, &updatedAt); err != nil {
		return model.Occurrence{}, err
	}
	record.UpdatedAt = parseTimestamp(updatedAt)
	return record.Occurrence()
}
