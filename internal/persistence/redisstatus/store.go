// Package redisstatus keeps payment status snapshots and sent-reminder marks
// in Redis, so several processes share the paid toggles of the current period.
package redisstatus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/example/trainer-scheduler/internal/calendar"
	"github.com/example/trainer-scheduler/internal/payment"
	"github.com/example/trainer-scheduler/internal/persistence"
)

const defaultPrefix = "trainer"

// Store implements persistence.StatusRepository on a Redis hash.
type Store struct {
	client *redis.Client
	prefix string
}

var _ persistence.StatusRepository = (*Store)(nil)

// Connect creates a client for addr and pings it.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redisstatus: ping: %w", err)
	}
	return client, nil
}

// New wraps client. Keys are namespaced under prefix, "trainer" when empty.
func New(client *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix}
}

func (s *Store) key(parts ...string) string {
	return s.prefix + ":" + strings.Join(parts, ":")
}

// LoadStatuses returns the saved payment statuses ordered by client id.
func (s *Store) LoadStatuses(ctx context.Context) ([]payment.Status, error) {
	raw, err := s.client.HGetAll(ctx, s.key("payment", "statuses")).Result()
	if err != nil {
		return nil, fmt.Errorf("redisstatus: load statuses: %w", err)
	}

	statuses := make([]payment.Status, 0, len(raw))
	for clientID, value := range raw {
		var status payment.Status
		if err := json.Unmarshal([]byte(value), &status); err != nil {
			return nil, fmt.Errorf("%w: status %s: %v", persistence.ErrConstraintViolation, clientID, err)
		}
		statuses = append(statuses, status)
	}
	slices.SortFunc(statuses, func(a, b payment.Status) int { return strings.Compare(a.ClientID, b.ClientID) })
	return statuses, nil
}

// SaveStatuses replaces the saved snapshot atomically.
func (s *Store) SaveStatuses(ctx context.Context, statuses []payment.Status) error {
	fields := make(map[string]any, len(statuses))
	for _, status := range statuses {
		encoded, err := json.Marshal(status)
		if err != nil {
			return fmt.Errorf("%w: status %s: %v", persistence.ErrConstraintViolation, status.ClientID, err)
		}
		fields[status.ClientID] = encoded
	}

	key := s.key("payment", "statuses")
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		if len(fields) > 0 {
			pipe.HSet(ctx, key, fields)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redisstatus: save statuses: %w", err)
	}
	return nil
}

// MarkReminderSent records that clientID was reminded on day. It reports
// false when the mark already existed, so a reminder goes out at most once a
// day even when several schedulers run.
func (s *Store) MarkReminderSent(ctx context.Context, clientID string, day calendar.Date) (bool, error) {
	if clientID == "" {
		return false, errors.New("redisstatus: client id required")
	}
	ok, err := s.client.SetNX(ctx, s.key("reminder", clientID, day.String()), 1, 48*time.Hour).Result()
	if err != nil {
		return false, fmt.Errorf("redisstatus: mark reminder: %w", err)
	}
	return ok, nil
}
