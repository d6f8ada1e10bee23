package lock

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryLocker is the single-node Locker. Locks live in process memory
// and are lost on restart; deployments running more than one node must
// use the Redis locker instead.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
	done  chan struct{}
	once  sync.Once
}

type lockEntry struct {
	expiresAt time.Time
	token     string
}

func (e *lockEntry) expired(now time.Time) bool {
	return now.After(e.expiresAt)
}

// NewMemoryLocker creates an in-memory locker with a background sweep
// of expired entries.
func NewMemoryLocker() *MemoryLocker {
	ml := &MemoryLocker{
		locks: make(map[string]*lockEntry),
		done:  make(chan struct{}),
	}
	go ml.cleanupLoop()
	return ml
}

// Close stops the cleanup goroutine.
func (m *MemoryLocker) Close() error {
	m.once.Do(func() { close(m.done) })
	return nil
}

func (m *MemoryLocker) cleanupLoop() {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for key, entry := range m.locks {
				if entry.expired(now) {
					delete(m.locks, key)
				}
			}
			m.mu.Unlock()
		case <-m.done:
			return
		}
	}
}

// Acquire takes the lock unless a live entry holds it. Expired entries
// are claimable immediately; the sweep only reclaims memory.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if entry, ok := m.locks[key]; ok && !entry.expired(now) {
		return false, nil
	}

	m.locks[key] = &lockEntry{
		expiresAt: now.Add(ttl),
		token:     uuid.NewString(),
	}
	return true, nil
}

// AcquireWithRetry retries Acquire up to maxRetries times, sleeping
// retryDelay between attempts.
func (m *MemoryLocker) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for attempt := 0; ; attempt++ {
		acquired, err := m.Acquire(ctx, key, ttl)
		if acquired || err != nil {
			return acquired, err
		}
		if attempt >= maxRetries {
			return false, nil
		}
		select {
		case <-ctx.Done():
			return false, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
}

// Release frees the lock. Returns false when it was not held.
func (m *MemoryLocker) Release(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.locks[key]; !ok {
		return false, nil
	}
	delete(m.locks, key)
	return true, nil
}

// Extend pushes out the expiry of a held lock.
func (m *MemoryLocker) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[key]
	if !ok || entry.expired(time.Now()) {
		delete(m.locks, key)
		return false, nil
	}
	entry.expiresAt = time.Now().Add(ttl)
	return true, nil
}

// IsHeld reports whether a live entry holds the lock.
func (m *MemoryLocker) IsHeld(ctx context.Context, key string) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.locks[key]
	if !ok || entry.expired(time.Now()) {
		delete(m.locks, key)
		return false, nil
	}
	return true, nil
}

var _ Locker = (*MemoryLocker)(nil)
