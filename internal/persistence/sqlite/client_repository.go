package sqlite

import (
	"context"
	"fmt"

	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/persistence"
)

const selectClientColumns = `id, name, phone, plan, billing_day, fee, template, active, consulting_only, updated_at`

// LoadClients returns every client ordered by name, then id.
func (s *Storage) LoadClients(ctx context.Context) ([]model.Client, error) {
	var clients []model.Client
	err := s.retry.do(ctx, func() error {
		rows, err := s.db.QueryContext(ctx,
			`SELECT `+selectClientColumns+` FROM clients ORDER BY name ASC, id ASC`)
		if err != nil {
			return err
		}
		defer rows.Close()

		clients = clients[:0]
		for rows.Next() {
			var (
				record    persistence.ClientRecord
				updatedAt string
			)
			if err := rows.Scan(&record.ID, &record.Name, &record.Phone, &record.Plan, &record.BillingDay,
				&record.Fee, &record.Template, &record.Active, &record.ConsultingOnly, &updatedAt); err != nil {
				return err
			}
			record.UpdatedAt = parseTimestamp(updatedAt)
			client, err := record.Client()
			if err != nil {
				return err
			}
			clients = append(clients, client)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite: load clients: %w", err)
	}
	if clients == nil {
		clients = []model.Client{}
	}
	return clients, nil
}

// SaveClient inserts or replaces a client by id.
func (s *Storage) SaveClient(ctx context.Context, client model.Client) error {
	if client.ID == "" {
		return fmt.Errorf("%w: client id is required", persistence.ErrConstraintViolation)
	}
	record, err := persistence.NewClientRecord(client, s.now())
	if err != nil {
		return err
	}

	err = s.retry.do(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO clients (`+selectClientColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				phone = excluded.phone,
				plan = excluded.plan,
				billing_day = excluded.billing_day,
				fee = excluded.fee,
				template = excluded.template,
				active = excluded.active,
				consulting_only = excluded.consulting_only,
				updated_at = excluded.updated_at`,
			record.ID, record.Name, record.Phone, record.Plan, record.BillingDay, record.Fee,
			record.Template, record.Active, record.ConsultingOnly, s.timestamp())
		return err
	})
	if err != nil {
		return fmt.Errorf("sqlite: save client %s: %w", client.ID, err)
	}
	return nil
}
