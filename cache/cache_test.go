package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStateStore_SingleUse(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s1", PendingState{UserID: "user-1"}, time.Minute))

	got, err := store.Consume(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)

	_, err = store.Consume(ctx, "s1")
	assert.ErrorIs(t, err, ErrStateNotFound)

	_, err = store.Consume(ctx, "never-saved")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestMemoryStateStore_Expiry(t *testing.T) {
	store := NewMemoryStateStore(time.Minute)
	defer store.Stop()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "s2", PendingState{UserID: "user-1"}, 20*time.Millisecond))
	time.Sleep(60 * time.Millisecond)

	_, err := store.Consume(ctx, "s2")
	assert.ErrorIs(t, err, ErrStateNotFound)
}

func TestRateLimiter_FixedWindow(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Stop()

	current := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return current }

	ok, _ := limiter.Allow("sync:user-1")
	assert.True(t, ok)
	ok, _ = limiter.Allow("sync:user-1")
	assert.True(t, ok)

	ok, retry := limiter.Allow("sync:user-1")
	assert.False(t, ok)
	assert.Equal(t, time.Minute, retry)

	ok, _ = limiter.Allow("sync:user-2")
	assert.True(t, ok, "keys are independent")

	current = current.Add(time.Minute + time.Second)
	ok, _ = limiter.Allow("sync:user-1")
	assert.True(t, ok, "new window")
}
