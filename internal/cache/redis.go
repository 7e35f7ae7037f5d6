// AngelaMos | 2026
// redis.go

package cache

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

type redisStore struct {
	client    *redis.Client
	opTimeout time.Duration
}

const defaultOpTimeout = 2 * time.Second

// NewRedis wraps a go-redis client in the Store port. opTimeout bounds
// every operation; zero selects the default.
func NewRedis(client *redis.Client, opTimeout time.Duration) Store {
	if opTimeout <= 0 {
		opTimeout = defaultOpTimeout
	}

	return &redisStore{
		client:    client,
		opTimeout: opTimeout,
	}
}

func (s *redisStore) Get(ctx context.Context, key string) (string, bool) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	value, err := s.client.Get(opCtx, key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			logUnavailable("get", key, err)
		}
		return "", false
	}

	return value, true
}

func (s *redisStore) Set(
	ctx context.Context,
	key, value string,
	ttl time.Duration,
) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Set(opCtx, key, value, ttl).Err(); err != nil {
		logUnavailable("set", key, err)
	}
}

func (s *redisStore) Delete(ctx context.Context, key string) {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	if err := s.client.Del(opCtx, key).Err(); err != nil {
		logUnavailable("delete", key, err)
	}
}

func (s *redisStore) TrySetIfAbsent(
	ctx context.Context,
	key, value string,
	ttl time.Duration,
) LockOutcome {
	opCtx, cancel := context.WithTimeout(ctx, s.opTimeout)
	defer cancel()

	acquired, err := s.client.SetNX(opCtx, key, value, ttl).Result()
	if err != nil {
		logUnavailable("setnx", key, err)
		return LockUnavailable
	}

	if !acquired {
		return LockHeld
	}

	return LockAcquired
}

// Keys only, never values: cached entitlement snapshots carry tenant
// state that does not belong in logs.
func logUnavailable(op, key string, err error) {
	slog.Warn("cache unavailable",
		"op", op,
		"key", key,
		"error", err,
	)
}
