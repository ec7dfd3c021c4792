package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	attemptKeyPrefix        = "idcheck:attempts:"
	DefaultAttemptRetention = 7 * 24 * time.Hour
)

// NewRedisClient connects to url. It returns nil when url is empty
// (Redis not configured).
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return client, nil
}

// RedisAttemptTracker keeps one sorted set per user scored by attempt time in
// milliseconds. Entries older than the retention are trimmed on write.
type RedisAttemptTracker struct {
	client    redis.Cmdable
	retention time.Duration
}

func NewRedisAttemptTracker(client redis.Cmdable, retention time.Duration) *RedisAttemptTracker {
	if retention <= 0 {
		retention = DefaultAttemptRetention
	}
	return &RedisAttemptTracker{client: client, retention: retention}
}

func attemptKey(userID uuid.UUID) string {
	return attemptKeyPrefix + userID.String()
}

func (t *RedisAttemptTracker) RecordAttempt(ctx context.Context, userID uuid.UUID, at time.Time) error {
	key := attemptKey(userID)
	cutoff := strconv.FormatInt(at.Add(-t.retention).UnixMilli(), 10)

	pipe := t.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(at.UnixMilli()), Member: uuid.NewString()})
	pipe.ZRemRangeByScore(ctx, key, "-inf", "("+cutoff)
	pipe.Expire(ctx, key, t.retention)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record attempt in redis: %w", err)
	}
	return nil
}

// AttemptsSince returns attempt times at or after since, newest first.
func (t *RedisAttemptTracker) AttemptsSince(ctx context.Context, userID uuid.UUID, since time.Time) ([]time.Time, error) {
	entries, err := t.client.ZRevRangeByScoreWithScores(ctx, attemptKey(userID), &redis.ZRangeBy{
		Min: strconv.FormatInt(since.UnixMilli(), 10),
		Max: "+inf",
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("read attempts from redis: %w", err)
	}

	attempts := make([]time.Time, 0, len(entries))
	for _, e := range entries {
		attempts = append(attempts, time.UnixMilli(int64(e.Score)))
	}
	return attempts, nil
}
