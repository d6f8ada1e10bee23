package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/sonartis/panelshop/internal/repository"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c := NewCache(0)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestCacheSetGet(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))

	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)
}

func TestCacheGetMissing(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Get(context.Background(), "absent")
	require.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCacheOverwrite(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("one"), 0))
	require.NoError(t, c.Set(ctx, "key", []byte("two"), 0))

	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("two"), got)
}

func TestCacheExpiry(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 10*time.Millisecond))

	got, err := c.Get(ctx, "key")
	require.NoError(t, err)
	require.Equal(t, []byte("value"), got)

	time.Sleep(20 * time.Millisecond)

	_, err = c.Get(ctx, "key")
	require.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCacheDelete(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))
	require.NoError(t, c.Delete(ctx, "key"))

	_, err := c.Get(ctx, "key")
	require.ErrorIs(t, err, repository.ErrCacheMiss)

	// Deleting a missing key is fine.
	require.NoError(t, c.Delete(ctx, "key"))
}

func TestCacheExists(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	exists, err := c.Exists(ctx, "key")
	require.NoError(t, err)
	require.False(t, exists)

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))

	exists, err = c.Exists(ctx, "key")
	require.NoError(t, err)
	require.True(t, exists)
}

func TestCacheExpire(t *testing.T) {
	c := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 0))
	require.NoError(t, c.Expire(ctx, "key", 10*time.Millisecond))

	time.Sleep(20 * time.Millisecond)

	_, err := c.Get(ctx, "key")
	require.ErrorIs(t, err, repository.ErrCacheMiss)
}

func TestCacheJanitorEvicts(t *testing.T) {
	c := NewCache(10 * time.Millisecond)
	t.Cleanup(func() { c.Close() })
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "key", []byte("value"), 5*time.Millisecond))

	require.Eventually(t, func() bool {
		exists, err := c.Exists(ctx, "key")
		return err == nil && !exists
	}, time.Second, 10*time.Millisecond)
}
