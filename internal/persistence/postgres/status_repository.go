package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/payment"
	"github.com/example/trainer-scheduler/internal/persistence"
)

// LoadStatuses returns the saved payment statuses ordered by client id.
func (s *Storage) LoadStatuses(ctx context.Context) ([]payment.Status, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT client_id, due_date::text, paid, paid_at FROM payment_statuses ORDER BY client_id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load statuses: %w", mapError(err))
	}
	defer rows.Close()

	statuses := []payment.Status{}
	for rows.Next() {
		var (
			status  payment.Status
			dueDate string
			paidAt  *time.Time
		)
		if err := rows.Scan(&status.ClientID, &dueDate, &status.Paid, &paidAt); err != nil {
			return nil, fmt.Errorf("postgres: scan status: %w", err)
		}
		status.DueDate, err = calendar.ParseDate(dueDate)
		if err != nil {
			return nil, fmt.Errorf("%w: status %s: %v", persistence.ErrConstraintViolation, status.ClientID, err)
		}
		status.PaidAt = paidAt
		statuses = append(statuses, status)
	}
	return statuses, rows.Err()
}

// SaveStatuses replaces the saved snapshot in one transaction.
func (s *Storage) SaveStatuses(ctx context.Context, statuses []payment.Status) error {
	err := s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM payment_statuses`); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, status := range statuses {
			batch.Queue(
				`INSERT INTO payment_statuses (client_id, due_date, paid, paid_at) VALUES ($1, $2::date, $3, $4)`,
				status.ClientID, status.DueDate.String(), status.Paid, status.PaidAt)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("postgres: save statuses: %w", mapError(err))
	}
	return nil
}
