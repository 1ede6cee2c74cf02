package persistence

import (
	"context"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/payment"
)

// ClientRepository stores the roster.
type ClientRepository interface {
	LoadClients(ctx context.Context) ([]model.Client, error)
	SaveClient(ctx context.Context, client model.Client) error
}

// OccurrenceRepository stores sessions and the tombstones of slots the user
// deleted or moved away from.
type OccurrenceRepository interface {
	LoadOccurrences(ctx context.Context, start, end calendar.Date) ([]model.Occurrence, error)
	SaveOccurrence(ctx context.Context, occurrence model.Occurrence) error
	DeleteOccurrence(ctx context.Context, id string) error
	SaveTombstone(ctx context.Context, key string) error
	LoadTombstones(ctx context.Context) ([]string, error)
}

// StatusRepository stores payment status snapshots.
type StatusRepository interface {
	LoadStatuses(ctx context.Context) ([]payment.Status, error)
	SaveStatuses(ctx context.Context, statuses []payment.Status) error
}

// Store bundles the repositories a backend provides.
type Store interface {
	ClientRepository
	OccurrenceRepository
	Close() error
}
