package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/payment"
	"github.com/example/trainer-scheduler/internal/persistence"
)

// LoadStatuses returns the saved payment statuses ordered by client id.
func (s *Storage) LoadStatuses(ctx context.Context) ([]payment.Status, error) {
	statuses := []payment.Status{}
	err := s.retry.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT client_id, due_date, paid, paid_at FROM payment_statuses ORDER BY client_id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		statuses = statuses[:0]
		for rows.Next() {
			var (
				status  payment.Status
				dueDate string
				paidAt  sql.NullString
			)
			if err := rows.Scan(&status.ClientID, &dueDate, &status.Paid, &paidAt); err != nil {
				return err
			}
			status.DueDate, err = calendar.ParseDate(dueDate)
			if err != nil {
				return fmt.Errorf("%w: status %s: %v", persistence.ErrConstraintViolation, status.ClientID, err)
			}
			if paidAt.Valid {
				t := parseTimestamp(paidAt.String)
				status.PaidAt = &t
			}
			statuses = append(statuses, status)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: load statuses: %w", err)
	}
	return statuses, nil
}

// SaveStatuses replaces the saved snapshot in one transaction.
func (s *Storage) SaveStatuses(ctx context.Context, statuses []payment.Status) error {
	err := s.retry.do(ctx, func() error {
		return inTx(ctx, s.db, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, `DELETE FROM payment_statuses`); err != nil {
				return err
			}
			for _, status := range statuses {
				var paidAt sql.NullString
				if status.PaidAt != nil {
					paidAt = sql.NullString{String: status.PaidAt.UTC().Format(time.RFC3339Nano), Valid: true}
				}
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO payment_statuses (client_id, due_date, paid, paid_at) VALUES (?, ?, ?, ?)`,
					status.ClientID, status.DueDate.String(), status.Paid, paidAt); err != nil {
					return err
				}
			}
			return nil
		})
	})
	if err != nil {
		return fmt.Errorf("sqlite: save statuses: %w", err)
	}
	return nil
}
