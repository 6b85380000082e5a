package lockout

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/redis/go-redis/v9"
)

// DefaultKeyPrefix namespaces lockout counters in a shared Redis.
const DefaultKeyPrefix = "lockout:"

const scanBatchSize = 256

var globEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`, `[`, `\[`, `]`, `\]`)

// RedisTracker keeps counters in Redis so they survive restarts and are
// shared between replicas. INCR provides the per-identifier atomicity.
type RedisTracker struct {
	client    redis.UniversalClient
	prefix    string
	threshold int
}

// NewRedisTracker builds a tracker over an existing client.
func NewRedisTracker(client redis.UniversalClient, prefix string, threshold int) *RedisTracker {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return &RedisTracker{
		client:    client,
		prefix:    prefix,
		threshold: normalizeThreshold(threshold),
	}
}

func (t *RedisTracker) key(identifier string) string {
	return t.prefix + identifier
}

func (t *RedisTracker) RecordFailure(ctx context.Context, identifier string) (int, error) {
	count, err := t.client.Incr(ctx, t.key(identifier)).Result()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", common.ErrLockoutUnavailable, err)
	}
	return int(count), nil
}

func (t *RedisTracker) Reset(ctx context.Context, identifier string) error {
	if err := t.client.Del(ctx, t.key(identifier)).Err(); err != nil {
		return fmt.Errorf("%w: %v", common.ErrLockoutUnavailable, err)
	}
	return nil
}

func (t *RedisTracker) Count(ctx context.Context, identifier string) (int, error) {
	count, err := t.client.Get(ctx, t.key(identifier)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", common.ErrLockoutUnavailable, err)
	}
	return count, nil
}

func (t *RedisTracker) IsLocked(ctx context.Context, identifier string) (bool, error) {
	count, err := t.Count(ctx, identifier)
	if err != nil {
		return false, err
	}
	return count >= t.threshold, nil
}

// ResetAll deletes every key under the tracker prefix. The prefix is matched
// literally even when it contains glob characters.
func (t *RedisTracker) ResetAll(ctx context.Context) error {
	match := globEscaper.Replace(t.prefix) + "*"

	var cursor uint64
	for {
		keys, next, err := t.client.Scan(ctx, cursor, match, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("%w: %v", common.ErrLockoutUnavailable, err)
		}
		if len(keys) > 0 {
			if err := t.client.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("%w: %v", common.ErrLockoutUnavailable, err)
			}
		}
		if next == 0 {
			return nil
		}
		cursor = next
	}
}

func (t *RedisTracker) Threshold() int {
	return t.threshold
}
