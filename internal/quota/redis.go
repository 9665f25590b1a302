// redis.go - Shared counter store for multi-replica deployments

package quota

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultKeyPrefix = "quota"
	// Day keys outlive their day so late readers still see a value
	dayKeyTTL = 48 * time.Hour
)

// RedisStore keeps counters under quota:<provider>:<yyyymmdd>. A new day
// means a new key, which is how counters reset.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore wraps an existing client.
func NewRedisStore(client redis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = defaultKeyPrefix
	}
	return &RedisStore{client: client, prefix: prefix}
}

// ConnectRedis parses a redis:// URL, creates a client and pings it.
func ConnectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

func (s *RedisStore) key(provider string, now time.Time) string {
	return fmt.Sprintf("%s:%s:%d", s.prefix, provider, dayKey(now))
}

// Count returns today's counter value; a missing key is zero.
func (s *RedisStore) Count(ctx context.Context, provider string, now time.Time) (int64, error) {
	n, err := s.client.Get(ctx, s.key(provider, now)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("redis get: %w", err)
	}
	return n, nil
}

// Incr increments today's counter and refreshes its expiry.
func (s *RedisStore) Incr(ctx context.Context, provider string, now time.Time) (int64, error) {
	key := s.key(provider, now)

	pipe := s.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, dayKeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr: %w", err)
	}
	return incr.Val(), nil
}
