package redis

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/pilab-dev/creator-insights/cache"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRedis(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skipf("Redis not available: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestStateStore(t *testing.T) {
	client := setupRedis(t)
	store := NewStateStore(client, "test_"+time.Now().Format("150405.000"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "abc", cache.PendingState{UserID: "user-1"}, time.Minute))

	got, err := store.Consume(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)

	_, err = store.Consume(ctx, "abc")
	assert.ErrorIs(t, err, cache.ErrStateNotFound)
}
