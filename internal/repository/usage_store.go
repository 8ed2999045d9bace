package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/vibecodefixers/help-request-service/internal/domain"
)

// ErrQueueEmpty signals an empty retry queue.
var ErrQueueEmpty = errors.New("usage retry queue empty")

const usageRetryQueueKey = "usage:retry"

// UsageStore keeps per-period usage counters and the retry queue for
// increments that failed after the primary state change had been persisted.
type UsageStore interface {
	Increment(ctx context.Context, userID string, kind domain.UsageKind, period string) (int64, error)
	Current(ctx context.Context, userID string, kind domain.UsageKind, period string) (int64, error)
	EnqueueRetry(ctx context.Context, payload []byte) error
	DequeueRetry(ctx context.Context) ([]byte, error)
}

type redisUsageStore struct {
	client *redis.Client
}

// NewRedisUsageStore returns a Redis-backed implementation.
func NewRedisUsageStore(client *redis.Client) UsageStore {
	return &redisUsageStore{client: client}
}

func usageKey(userID string, kind domain.UsageKind, period string) string {
	return fmt.Sprintf("usage:%s:%s:%s", kind, userID, period)
}

func (s *redisUsageStore) Increment(ctx context.Context, userID string, kind domain.UsageKind, period string) (int64, error) {
	return s.client.Incr(ctx, usageKey(userID, kind, period)).Result()
}

func (s *redisUsageStore) Current(ctx context.Context, userID string, kind domain.UsageKind, period string) (int64, error) {
	val, err := s.client.Get(ctx, usageKey(userID, kind, period)).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, err
	}
	return val, nil
}

func (s *redisUsageStore) EnqueueRetry(ctx context.Context, payload []byte) error {
	return s.client.RPush(ctx, usageRetryQueueKey, payload).Err()
}

func (s *redisUsageStore) DequeueRetry(ctx context.Context) ([]byte, error) {
	payload, err := s.client.LPop(ctx, usageRetryQueueKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrQueueEmpty
		}
		return nil, err
	}
	return payload, nil
}
