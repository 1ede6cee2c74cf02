package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/trainer-scheduler/internal/model"
	"github.com/example/trainer-scheduler/internal/roster"
)

// RosterService manages the client list.
type RosterService struct {
	clients     ClientRepository
	idGenerator func() string
	logger      *slog.Logger
}

// NewRosterService constructs a roster service with the provided dependencies.
func NewRosterService(clients ClientRepository, idGenerator func() string, opts ...Option) *RosterService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	o := buildOptions(opts)
	return &RosterService{clients: clients, idGenerator: idGenerator, logger: o.logger}
}

func (s *RosterService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RosterService", operation, attrs...)
}

// SaveClient validates and stores a client, assigning an id to new ones.
func (s *RosterService) SaveClient(ctx context.Context, client model.Client) (saved model.Client, err error) {
	if s == nil {
		err = fmt.Errorf("RosterService is nil")
		return
	}
	logger := s.loggerWith(ctx, "SaveClient", "client_id", client.ID)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to save client", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("client_id", saved.ID).InfoContext(ctx, "client saved")
	}()

	client = normalizeClient(client)
	if problems := client.Validate(); len(problems) > 0 {
		vErr := &ValidationError{}
		vErr.merge("", problems)
		err = vErr
		return
	}
	if client.ID == "" {
		client.ID = s.idGenerator()
	}
	if err = s.clients.SaveClient(ctx, client); err != nil {
		err = mapRepoError(err)
		return
	}
	return client, nil
}

// ImportRoster validates every entry of r and stores the clients. Nothing is
// stored when any entry is invalid.
func (s *RosterService) ImportRoster(ctx context.Context, r roster.Roster) (imported []model.Client, err error) {
	logger := s.loggerWith(ctx, "ImportRoster", "entries", len(r.Clients))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to import roster", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "roster imported", "clients", len(imported))
	}()

	vErr := &ValidationError{}
	clients := make([]model.Client, 0, len(r.Clients))
	for i, entry := range r.Clients {
		field := fmt.Sprintf("clients[%d]", i)
		client, convErr := entry.Client()
		if convErr != nil {
			vErr.add(field, convErr.Error())
			continue
		}
		client = normalizeClient(client)
		vErr.merge(field, client.Validate())
		clients = append(clients, client)
	}
	if vErr.HasErrors() {
		return nil, vErr
	}

	for _, client := range clients {
		if client.ID == "" {
			client.ID = s.idGenerator()
		}
		if err = s.clients.SaveClient(ctx, client); err != nil {
			return imported, mapRepoError(fmt.Errorf("save client %s: %w", client.Name, err))
		}
		imported = append(imported, client)
	}
	return imported, nil
}

// ListClients returns the roster.
func (s *RosterService) ListClients(ctx context.Context) ([]model.Client, error) {
	clients, err := s.clients.LoadClients(ctx)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return clients, nil
}

// Export returns the roster as a file document.
func (s *RosterService) Export(ctx context.Context) (roster.Roster, error) {
	clients, err := s.ListClients(ctx)
	if err != nil {
		return roster.Roster{}, err
	}
	return roster.FromClients(clients), nil
}

// Deactivate marks a client inactive. Sessions already on the calendar up to
// today stay; later template sessions stop being materialized.
func (s *RosterService) Deactivate(ctx context.Context, id string) (client model.Client, err error) {
	logger := s.loggerWith(ctx, "Deactivate", "client_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to deactivate client", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "client deactivated")
	}()

	clients, err := s.ListClients(ctx)
	if err != nil {
		return model.Client{}, err
	}
	for _, candidate := range clients {
		if candidate.ID != id {
			continue
		}
		candidate.Active = false
		if err = s.clients.SaveClient(ctx, candidate); err != nil {
			return model.Client{}, mapRepoError(err)
		}
		return candidate, nil
	}
	return model.Client{}, fmt.Errorf("%w: client %s", ErrNotFound, id)
}

func normalizeClient(client model.Client) model.Client {
	client.ID = strings.TrimSpace(client.ID)
	client.Name = strings.TrimSpace(client.Name)
	client.Phone = strings.TrimSpace(client.Phone)
	return client
}
