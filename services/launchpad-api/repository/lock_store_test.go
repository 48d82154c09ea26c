package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/AmentiAI/solmaker-sub001/pkg/clock"
	"github.com/AmentiAI/solmaker-sub001/services/launchpad-api/repository"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// lockStoreContract runs the shared lock table behaviour. advance moves both
// the store's notion of time and its backend past expiries.
func lockStoreContract(t *testing.T, store repository.LockStore, advance func(time.Duration)) {
	ctx := context.Background()
	const ttl = 5 * time.Minute

	lock, err := store.Acquire(ctx, "col", "item-1", "alice", ttl)
	require.NoError(t, err)
	assert.Equal(t, "alice", lock.Wallet)
	assert.Equal(t, epoch.Add(ttl), lock.Until)

	_, err = store.Acquire(ctx, "col", "item-1", "bob", ttl)
	assert.ErrorIs(t, err, repository.ErrLockHeld)

	// same wallet extends
	advance(time.Minute)
	lock, err = store.Acquire(ctx, "col", "item-1", "alice", ttl)
	require.NoError(t, err)
	assert.Equal(t, epoch.Add(time.Minute+ttl), lock.Until)

	// another collection is independent
	_, err = store.Acquire(ctx, "other", "item-1", "bob", ttl)
	require.NoError(t, err)

	got, err := store.Get(ctx, "col", []string{"item-1", "item-2"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "alice", got["item-1"].Wallet)
	assert.WithinDuration(t, epoch.Add(time.Minute+ttl), got["item-1"].Until, time.Second)

	assert.ErrorIs(t, store.Release(ctx, "col", "item-1", "bob"), repository.ErrNotLockHolder)
	assert.NoError(t, store.Release(ctx, "col", "item-2", "bob"), "releasing a missing lock is a no-op")

	require.NoError(t, store.Release(ctx, "col", "item-1", "alice"))
	got, err = store.Get(ctx, "col", []string{"item-1"})
	require.NoError(t, err)
	assert.Empty(t, got)

	// expiry frees the item for someone else
	_, err = store.Acquire(ctx, "col", "item-3", "alice", ttl)
	require.NoError(t, err)
	advance(ttl + time.Second)

	got, err = store.Get(ctx, "col", []string{"item-3"})
	require.NoError(t, err)
	assert.Empty(t, got)

	lock, err = store.Acquire(ctx, "col", "item-3", "bob", ttl)
	require.NoError(t, err)
	assert.Equal(t, "bob", lock.Wallet)
}

func TestMemoryLockStore(t *testing.T) {
	clk := clock.NewManual(epoch)
	lockStoreContract(t, repository.NewMemoryLockStore(clk), clk.Advance)
}

func TestRedisLockStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	clk := clock.NewManual(epoch)
	store := repository.NewRedisLockStore(client, clk)
	lockStoreContract(t, store, func(d time.Duration) {
		clk.Advance(d)
		mr.FastForward(d)
	})
}

func TestRedisLockStore_KeyLayout(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := repository.NewRedisLockStore(client, clock.NewFixed(epoch))
	_, err := store.Acquire(context.Background(), "col", "item-9", "alice", time.Minute)
	require.NoError(t, err)

	val, err := mr.Get("lock:col:item-9")
	require.NoError(t, err)
	assert.Equal(t, "alice", val)
	assert.Equal(t, time.Minute, mr.TTL("lock:col:item-9"))
}

func TestRedisLockStore_GetEmpty(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	got, err := repository.NewRedisLockStore(client, nil).Get(context.Background(), "col", nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}
