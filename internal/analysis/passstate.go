package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// PassState is a Redis-backed dedup set shared by analysis passes. Adapters
// use it to remember keys they have already raised (checked IPs, flagged
// users) so repeated passes over overlapping windows do not re-fire. Each
// scope is a Redis set with a TTL so abandoned state ages out on its own.
type PassState struct {
	client *redis.Client
	ttl    time.Duration
}

// NewPassState wraps a Redis client. TTL bounds how long a scope's members
// suppress re-firing.
func NewPassState(client *redis.Client, ttl time.Duration) *PassState {
	return &PassState{client: client, ttl: ttl}
}

func (s *PassState) key(scope string) string {
	return fmt.Sprintf("copilot:state:%s", scope)
}

// Seen reports whether member is already recorded under scope.
func (s *PassState) Seen(ctx context.Context, scope, member string) (bool, error) {
	seen, err := s.client.SIsMember(ctx, s.key(scope), member).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check pass state %s: %w", scope, err)
	}
	return seen, nil
}

// Record adds member to scope and refreshes the scope's TTL.
func (s *PassState) Record(ctx context.Context, scope, member string) error {
	key := s.key(scope)
	if err := s.client.SAdd(ctx, key, member).Err(); err != nil {
		return fmt.Errorf("failed to record pass state %s: %w", scope, err)
	}
	if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to expire pass state %s: %w", scope, err)
	}
	return nil
}

// Clear drops a scope entirely.
func (s *PassState) Clear(ctx context.Context, scope string) error {
	if err := s.client.Del(ctx, s.key(scope)).Err(); err != nil {
		return fmt.Errorf("failed to clear pass state %s: %w", scope, err)
	}
	return nil
}
