package redis

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/sonartis/panelshop/internal/repository"
)

// releaseScript deletes a lock only if it is still owned by the caller.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// extendScript refreshes the TTL of a lock only if the caller owns it.
var extendScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// DistributedLock implements repository.DistributedLock on Redis using
// SET NX with per-acquisition ownership tokens.
type DistributedLock struct {
	client *goredis.Client

	mu     sync.Mutex
	tokens map[string]string
}

// NewDistributedLock creates a Redis-backed distributed lock.
func NewDistributedLock(client *goredis.Client) *DistributedLock {
	return &DistributedLock{
		client: client,
		tokens: make(map[string]string),
	}
}

func (d *DistributedLock) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	token := uuid.NewString()
	ok, err := d.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire lock %q: %w", key, err)
	}
	if ok {
		d.mu.Lock()
		d.tokens[key] = token
		d.mu.Unlock()
	}
	return ok, nil
}

func (d *DistributedLock) AcquireWithRetry(ctx context.Context, key string, ttl time.Duration, maxRetries int, retryDelay time.Duration) (bool, error) {
	for i := 0; i <= maxRetries; i++ {
		acquired, err := d.Acquire(ctx, key, ttl)
		if err != nil {
			return false, err
		}
		if acquired {
			return true, nil
		}
		if i < maxRetries {
			select {
			case <-ctx.Done():
				return false, ctx.Err()
			case <-time.After(retryDelay):
			}
		}
	}
	return false, nil
}

func (d *DistributedLock) Release(ctx context.Context, key string) (bool, error) {
	d.mu.Lock()
	token, ok := d.tokens[key]
	delete(d.tokens, key)
	d.mu.Unlock()
	if !ok {
		return false, nil
	}

	n, err := releaseScript.Run(ctx, d.client, []string{key}, token).Int()
	if err != nil {
		return false, fmt.Errorf("failed to release lock %q: %w", key, err)
	}
	return n == 1, nil
}

func (d *DistributedLock) Extend(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	d.mu.Lock()
	token, ok := d.tokens[key]
	d.mu.Unlock()
	if !ok {
		return false, nil
	}

	n, err := extendScript.Run(ctx, d.client, []string{key}, token, ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("failed to extend lock %q: %w", key, err)
	}
	return n == 1, nil
}

func (d *DistributedLock) IsHeld(ctx context.Context, key string) (bool, error) {
	n, err := d.client.Exists(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check lock %q: %w", key, err)
	}
	return n > 0, nil
}

var _ repository.DistributedLock = (*DistributedLock)(nil)
