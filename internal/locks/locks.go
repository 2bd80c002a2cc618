// Package locks serializes analysis passes. One pass per (customer, source
// tag) may run at a time across all copilot instances; the lock lives in
// Redis so horizontally scaled deployments agree.
package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrLockHeld is returned when another pass already holds the run lock.
var ErrLockHeld = errors.New("analysis run already in progress")

// RunLock acquires per-run mutual exclusion via Redis SET NX.
type RunLock struct {
	client *redis.Client
}

// NewRunLock connects to Redis and verifies the connection.
func NewRunLock(redisURL string) (*RunLock, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &RunLock{client: client}, nil
}

// NewRunLockWithClient wraps an existing client. Used by tests and by
// callers sharing one Redis connection pool.
func NewRunLockWithClient(client *redis.Client) *RunLock {
	return &RunLock{client: client}
}

func lockKey(customer, tag string) string {
	return fmt.Sprintf("copilot:runlock:%s:%s", customer, tag)
}

// Acquire takes the run lock for a (customer, tag) pair. The TTL bounds how
// long a crashed pass can wedge the pair. Returns ErrLockHeld when the lock
// is already taken.
func (l *RunLock) Acquire(ctx context.Context, customer, tag string, ttl time.Duration) (func(), error) {
	key := lockKey(customer, tag)

	ok, err := l.client.SetNX(ctx, key, time.Now().UTC().Format(time.RFC3339), ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock %s: %w", key, err)
	}
	if !ok {
		return nil, ErrLockHeld
	}

	release := func() {
		// Release uses a background context so a cancelled pass still
		// frees the lock.
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		l.client.Del(releaseCtx, key)
	}
	return release, nil
}

// Close releases the underlying Redis connection.
func (l *RunLock) Close() error {
	if l.client != nil {
		return l.client.Close()
	}
	return nil
}
