package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// recordScript implements the check-and-record step atomically server-side:
// prune timestamps outside the window, admit when under the limit, and report
// the count plus the oldest surviving score (unix milliseconds).
//
// KEYS[1] window key
// ARGV[1] now (unix ms), ARGV[2] window (ms), ARGV[3] limit, ARGV[4] member
var recordScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local limit = tonumber(ARGV[3])

redis.call('ZREMRANGEBYSCORE', KEYS[1], 0, now - window)
local count = redis.call('ZCARD', KEYS[1])

if count < limit then
  redis.call('ZADD', KEYS[1], now, ARGV[4])
  redis.call('PEXPIRE', KEYS[1], window)
  local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
  return {1, count + 1, oldest[2]}
end

local oldest = redis.call('ZRANGE', KEYS[1], 0, 0, 'WITHSCORES')
return {0, count, oldest[2]}
`)

// RedisStore keeps sliding windows in a Redis sorted set per key, one member
// per admitted request scored by unix milliseconds. Use it when several
// gateway replicas must share one admission window per account. State is
// volatile by design: keys expire one window after the last admission.
type RedisStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// RedisStoreOption configures a RedisStore.
type RedisStoreOption func(*RedisStore)

// WithKeyPrefix overrides the default "ratelimit:" key prefix.
func WithKeyPrefix(prefix string) RedisStoreOption {
	return func(s *RedisStore) {
		if prefix != "" {
			s.keyPrefix = prefix
		}
	}
}

// NewRedisStore creates a store over an established Redis client.
func NewRedisStore(client redis.UniversalClient, opts ...RedisStoreOption) *RedisStore {
	s := &RedisStore{
		client:    client,
		keyPrefix: "ratelimit:",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStore) RecordIfAllowed(ctx context.Context, key string, now time.Time, window time.Duration, limit int) (bool, int64, time.Time, error) {
	res, err := recordScript.Run(ctx, s.client,
		[]string{s.keyPrefix + key},
		now.UnixMilli(),
		window.Milliseconds(),
		limit,
		uuid.NewString(),
	).Slice()
	if err != nil {
		return false, 0, time.Time{}, fmt.Errorf("ratelimit: redis record: %w", err)
	}
	if len(res) < 2 {
		return false, 0, time.Time{}, fmt.Errorf("ratelimit: redis record: unexpected reply %v", res)
	}

	allowed := res[0].(int64) == 1
	count := res[1].(int64)

	var oldest time.Time
	if len(res) > 2 {
		if ms, err := strconv.ParseFloat(fmt.Sprint(res[2]), 64); err == nil {
			oldest = time.UnixMilli(int64(ms))
		}
	}
	return allowed, count, oldest, nil
}

func (s *RedisStore) Count(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := time.Now()
	rkey := s.keyPrefix + key

	pipe := s.client.TxPipeline()
	pipe.ZRemRangeByScore(ctx, rkey, "0", strconv.FormatInt(now.Add(-window).UnixMilli(), 10))
	card := pipe.ZCard(ctx, rkey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("ratelimit: redis count: %w", err)
	}
	return card.Val(), nil
}

func (s *RedisStore) Reset(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("ratelimit: redis reset: %w", err)
	}
	return nil
}
