package lock

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestLocker(t *testing.T) *MemoryLocker {
	t.Helper()
	l := NewMemoryLocker()
	t.Cleanup(func() { l.Close() })
	return l
}

func TestMemoryLockerAcquireRelease(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()

	acquired, err := l.Acquire(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	// Held locks cannot be acquired again.
	acquired, err = l.Acquire(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	require.False(t, acquired)

	held, err := l.IsHeld(ctx, "lock:test")
	require.NoError(t, err)
	require.True(t, held)

	released, err := l.Release(ctx, "lock:test")
	require.NoError(t, err)
	require.True(t, released)

	acquired, err = l.Acquire(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestMemoryLockerReleaseNotHeld(t *testing.T) {
	l := newTestLocker(t)

	released, err := l.Release(context.Background(), "lock:never")
	require.NoError(t, err)
	require.False(t, released)
}

func TestMemoryLockerExpiry(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()

	acquired, err := l.Acquire(ctx, "lock:test", 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	time.Sleep(20 * time.Millisecond)

	// Expired locks are free for the taking.
	acquired, err = l.Acquire(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestMemoryLockerExtend(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()

	acquired, err := l.Acquire(ctx, "lock:test", 50*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	extended, err := l.Extend(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	require.True(t, extended)

	time.Sleep(60 * time.Millisecond)

	// Still held past the original TTL.
	held, err := l.IsHeld(ctx, "lock:test")
	require.NoError(t, err)
	require.True(t, held)
}

func TestMemoryLockerExtendNotHeld(t *testing.T) {
	l := newTestLocker(t)

	extended, err := l.Extend(context.Background(), "lock:never", time.Minute)
	require.NoError(t, err)
	require.False(t, extended)
}

func TestMemoryLockerAcquireWithRetry(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()

	acquired, err := l.Acquire(ctx, "lock:test", 30*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)

	// Retries outlive the holder's TTL.
	acquired, err = l.AcquireWithRetry(ctx, "lock:test", time.Minute, 10, 10*time.Millisecond)
	require.NoError(t, err)
	require.True(t, acquired)
}

func TestMemoryLockerAcquireWithRetryGivesUp(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()

	acquired, err := l.Acquire(ctx, "lock:test", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	acquired, err = l.AcquireWithRetry(ctx, "lock:test", time.Minute, 2, time.Millisecond)
	require.NoError(t, err)
	require.False(t, acquired)
}

func TestMemoryLockerCancelledContext(t *testing.T) {
	l := newTestLocker(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Acquire(ctx, "lock:test", time.Minute)
	require.Error(t, err)
}

func TestLockWrapper(t *testing.T) {
	l := newTestLocker(t)
	ctx := context.Background()

	lk := NewLock(l, "lock:wrapped")
	require.False(t, lk.IsHeld())

	acquired, err := lk.Acquire(ctx, time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)
	require.True(t, lk.IsHeld())

	require.NoError(t, lk.Release(ctx))
	require.False(t, lk.IsHeld())

	// Releasing twice is harmless.
	require.NoError(t, lk.Release(ctx))
}
