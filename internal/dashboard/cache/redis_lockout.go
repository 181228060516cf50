package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "dashboard:lockout:"

// RedisLockoutStore counts failed dashboard logins per identifier in a
// Redis hash and locks the identifier once the threshold is reached.
type RedisLockoutStore struct {
	client    *redis.Client
	threshold int
	window    time.Duration
}

func NewRedisLockoutStore(client *redis.Client, threshold int, window time.Duration) *RedisLockoutStore {
	return &RedisLockoutStore{
		client:    client,
		threshold: threshold,
		window:    window,
	}
}

// NewRedisClient parses a redis:// URL and pings the server.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (s *RedisLockoutStore) IsLocked(ctx context.Context, key string, now time.Time) (bool, error) {
	raw, err := s.client.HGet(ctx, keyPrefix+key, "locked_until").Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	unix, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || unix <= 0 {
		return false, nil
	}
	return now.Before(time.Unix(unix, 0)), nil
}

// RecordFailure counts one failed login. The counter and its expiry are set
// in one transaction so a key can never outlive the window.
func (s *RedisLockoutStore) RecordFailure(ctx context.Context, key string, now time.Time) (bool, error) {
	redisKey := keyPrefix + key

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		incr = p.HIncrBy(ctx, redisKey, "failed_count", 1)
		p.Expire(ctx, redisKey, s.window)
		return nil
	})
	if err != nil {
		return false, err
	}

	if int(incr.Val()) < s.threshold {
		return false, nil
	}

	lockedUntil := now.Add(s.window).UTC()
	if err := s.client.HSet(ctx, redisKey, "locked_until", lockedUntil.Unix()).Err(); err != nil {
		return false, err
	}
	return true, nil
}

func (s *RedisLockoutStore) Clear(ctx context.Context, key string) error {
	return s.client.Del(ctx, keyPrefix+key).Err()
}
