package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "ratelimit:"

// redisAPI is the subset of *redis.Client used by RedisRateStore.
type redisAPI interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// NewRedis opens a client for the shared rate-limit store.
func NewRedis(addr, password string, db int) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

// RedisRateStore implements ratelimit.Store on Redis. Keys expire after ttl;
// pass RateLimitTTL(window) so a record outlives its cooldown.
type RedisRateStore struct {
	rdb redisAPI
	ttl time.Duration
}

func NewRedisRateStore(rdb redisAPI, ttl time.Duration) (*RedisRateStore, error) {
	if rdb == nil {
		return nil, errors.New("repository: redis client must not be nil")
	}
	if ttl <= 0 {
		ttl = DefaultRateLimitTTL
	}
	return &RedisRateStore{rdb: rdb, ttl: ttl}, nil
}

func (r *RedisRateStore) LastTimestamp(ctx context.Context, userID string) (time.Time, bool, error) {
	val, err := r.rdb.Get(ctx, redisKeyPrefix+userID).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("repository: redis LastTimestamp: %w", err)
	}
	ms, err := strconv.ParseInt(strings.TrimSpace(val), 10, 64)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("repository: redis LastTimestamp decode: %w", err)
	}
	return time.UnixMilli(ms).UTC(), true, nil
}

// Record keeps the newer of the stored and given timestamps. The read and the
// write are not atomic; a concurrent writer can win with an older value.
func (r *RedisRateStore) Record(ctx context.Context, userID string, ts time.Time) error {
	prev, ok, err := r.LastTimestamp(ctx, userID)
	if err != nil {
		return err
	}
	if ok && prev.After(ts) {
		return nil
	}
	if err := r.rdb.Set(ctx, redisKeyPrefix+userID, strconv.FormatInt(ts.UnixMilli(), 10), r.ttl).Err(); err != nil {
		return fmt.Errorf("repository: redis Record: %w", err)
	}
	return nil
}
