// Package lock provides the locking abstraction used to serialize
// upload reconciliation. Single-node deployments use in-memory locks;
// multi-node deployments back the same interface with Redis.
package lock

import (
	"context"
	"time"
)

// Locker is the mutual-exclusion primitive for reconcile passes.
// Acquisitions carry a TTL so a crashed holder cannot wedge a path
// forever.
type Locker interface {
	// Acquire takes the lock, reporting false when another holder has
	// it. The lock expires on its own after ttl.
	Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// AcquireWithRetry retries Acquire up to maxRetries times with
	// retryDelay between attempts.
	AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error)

	// Release frees the lock, reporting false when it was not held.
	Release(ctx context.Context, key string) (bool, error)

	// Extend pushes out the TTL of a held lock.
	Extend(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// IsHeld reports whether the lock is currently held.
	IsHeld(ctx context.Context, key string) (bool, error)
}

// Lock binds a Locker to one key and tracks whether this caller holds
// it, so release and extend can be written without re-deciding the key.
type Lock struct {
	locker Locker
	key    string
	held   bool
}

func NewLock(locker Locker, key string) *Lock {
	return &Lock{locker: locker, key: key}
}

func (l *Lock) Acquire(ctx context.Context, ttl time.Duration) (bool, error) {
	acquired, err := l.locker.Acquire(ctx, l.key, ttl)
	if err != nil {
		return false, err
	}
	l.held = acquired
	return acquired, nil
}

func (l *Lock) Release(ctx context.Context) error {
	if !l.held {
		return nil
	}
	_, err := l.locker.Release(ctx, l.key)
	l.held = false
	return err
}

func (l *Lock) Extend(ctx context.Context, ttl time.Duration) error {
	if !l.held {
		return nil
	}
	extended, err := l.locker.Extend(ctx, l.key, ttl)
	if err != nil {
		return err
	}
	if !extended {
		l.held = false
	}
	return nil
}

// IsHeld reports whether this caller holds the lock.
func (l *Lock) IsHeld() bool {
	return l.held
}

// Keys namespaces the lock keys used across the system.
var Keys = lockKeys{}

type lockKeys struct{}

// UploadClaim guards the reconciliation of one upload path, so a claim
// and a concurrent reclaim of the same file serialize.
func (lockKeys) UploadClaim(path string) string {
	return "lock:upload:" + path
}

// MaintenancePurge guards the periodic ledger purge.
func (lockKeys) MaintenancePurge() string {
	return "lock:maintenance:purge"
}
