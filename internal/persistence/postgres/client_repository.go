package postgres

import (
	"context"
	"fmt"

	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/persistence"
)

// LoadClients returns every client ordered by name, then id.
func (s *Storage) LoadClients(ctx context.Context) ([]model.Client, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, name, phone, plan, billing_day, fee::text, template::text, active, consulting_only, updated_at
		FROM clients
		ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: load clients: %w", mapError(err))
	}
	defer rows.Close()

	clients := []model.Client{}
	for rows.Next() {
		var record persistence.ClientRecord
		if err := rows.Scan(&record.ID, &record.Name, &record.Phone, &record.Plan, &record.BillingDay,
			&record.Fee, &record.Template, &record.Active, &record.ConsultingOnly, &record.UpdatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan client: %w", err)
		}
		client, err := record.Client()
		if err != nil {
			return nil, err
		}
		clients = append(clients, client)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: load clients: %w", mapError(err))
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

	_, err = s.pool.Exec(ctx, `
		INSERT INTO clients (id, name, phone, plan, billing_day, fee, template, active, consulting_only, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::jsonb, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			phone = EXCLUDED.phone,
			plan = EXCLUDED.plan,
			billing_day = EXCLUDED.billing_day,
			fee = EXCLUDED.fee,
			template = EXCLUDED.template,
			active = EXCLUDED.active,
			consulting_only = EXCLUDED.consulting_only,
			updated_at = EXCLUDED.updated_at`,
		record.ID, record.Name, record.Phone, record.Plan, record.BillingDay, record.Fee,
		record.Template, record.Active, record.ConsultingOnly, record.UpdatedAt)
	if err != nil {
		return fmt.Errorf("postgres: save client %s: %w", client.ID, mapError(err))
	}
	return nil
}
