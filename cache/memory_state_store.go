package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryStateStore is a StateStore for single-instance deployments.
type MemoryStateStore struct {
	cache *ttlcache.Cache[string, PendingState]
}

// NewMemoryStateStore starts the expiry loop; call Stop on shutdown.
func NewMemoryStateStore(defaultTTL time.Duration) *MemoryStateStore {
	c := ttlcache.New(
		ttlcache.WithTTL[string, PendingState](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, PendingState](),
	)
	go c.Start()
	return &MemoryStateStore{cache: c}
}

func (s *MemoryStateStore) Save(_ context.Context, state string, pending PendingState, ttl time.Duration) error {
	s.cache.Set(state, pending, ttl)
	return nil
}

func (s *MemoryStateStore) Consume(_ context.Context, state string) (*PendingState, error) {
	item, found := s.cache.GetAndDelete(state)
	if !found || item == nil || item.IsExpired() {
		return nil, ErrStateNotFound
	}
	pending := item.Value()
	return &pending, nil
}

func (s *MemoryStateStore) Stop() {
	s.cache.Stop()
}

var _ StateStore = (*MemoryStateStore)(nil)
