package database

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/eRom/health-sub001/internal/config"
)

// Redis wraps a Redis client.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a new Redis client.
func NewRedis(cfg config.RedisConfig) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &Redis{client: client}, nil
}

// NewRedisFromClient wraps an existing client.
func NewRedisFromClient(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// Client returns the underlying Redis client.
func (r *Redis) Client() *redis.Client {
	return r.client
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Ping verifies the Redis connection is alive.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// IncrWithExpire increments a key and refreshes its expiration.
func (r *Redis) IncrWithExpire(ctx context.Context, key string, expiration time.Duration) (int64, error) {
	pipe := r.client.Pipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, expiration)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, err
	}
	return incr.Val(), nil
}

// reserveEventScript prunes the sorted set at KEYS[1] to the window, then
// records ARGV[5] at ARGV[1] unless the cooldown or the per-window maximum
// is hit. It returns the wait in milliseconds, 0 when the event was added.
var reserveEventScript = redis.NewScript(`
local now = tonumber(ARGV[1])
local window = tonumber(ARGV[2])
local cooldown = tonumber(ARGV[3])
local max = tonumber(ARGV[4])

redis.call('ZREMRANGEBYSCORE', KEYS[1], '-inf', '(' .. (now - window))
local events = redis.call('ZRANGE', KEYS[1], 0, -1, 'WITHSCORES')
local n = #events / 2

local wait = 0
if n > 0 then
	local d = tonumber(events[n * 2]) + cooldown - now
	if d > wait then wait = d end
	if n >= max then
		d = tonumber(events[(n - max) * 2 + 2]) + window - now
		if d > wait then wait = d end
	end
end
if wait > 0 then
	return wait
end

redis.call('ZADD', KEYS[1], now, ARGV[5])
redis.call('PEXPIRE', KEYS[1], window)
return 0
`)

// ReserveEvent records an event at now in the sorted set at key, unless
// the last event is within cooldown or limit events already fall inside
// window. The check and the write run as one script, so concurrent callers
// cannot both pass. It returns how long to wait, zero when recorded.
func (r *Redis) ReserveEvent(ctx context.Context, key string, now time.Time, window, cooldown time.Duration, limit int) (time.Duration, error) {
	waitMs, err := reserveEventScript.Run(ctx, r.client, []string{key},
		now.UnixMilli(),
		window.Milliseconds(),
		cooldown.Milliseconds(),
		limit,
		strconv.FormatInt(now.UnixNano(), 10),
	).Int64()
	if err != nil {
		return 0, err
	}
	return time.Duration(waitMs) * time.Millisecond, nil
}
