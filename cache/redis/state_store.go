package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/pilab-dev/creator-insights/cache"
	"github.com/redis/go-redis/v9"
)

// StateStore is a cache.StateStore shared by every instance through Redis.
type StateStore struct {
	client *redis.Client
	prefix string
}

func NewStateStore(client *redis.Client, prefix string) *StateStore {
	return &StateStore{client: client, prefix: prefix}
}

func (s *StateStore) key(state string) string {
	return fmt.Sprintf("%s:oauth_state:%s", s.prefix, state)
}

func (s *StateStore) Save(ctx context.Context, state string, pending cache.PendingState, ttl time.Duration) error {
	payload, err := json.Marshal(pending)
	if err != nil {
		return fmt.Errorf("failed to marshal oauth state: %w", err)
	}
	if err := s.client.Set(ctx, s.key(state), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store oauth state in Redis: %w", err)
	}
	return nil
}

// Consume reads and deletes the state atomically with GETDEL.
func (s *StateStore) Consume(ctx context.Context, state string) (*cache.PendingState, error) {
	raw, err := s.client.GetDel(ctx, s.key(state)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, cache.ErrStateNotFound
		}
		return nil, fmt.Errorf("failed to read oauth state from Redis: %w", err)
	}
	var pending cache.PendingState
	if err := json.Unmarshal(raw, &pending); err != nil {
		return nil, fmt.Errorf("failed to unmarshal oauth state: %w", err)
	}
	return &pending, nil
}

var _ cache.StateStore = (*StateStore)(nil)
