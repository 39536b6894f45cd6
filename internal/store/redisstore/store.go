// Package redisstore holds the redis-backed pieces of the request path,
// currently the fixed-window chat rate limiter.
package redisstore

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

type Store struct {
	client *redis.Client
}

func New(addr, password string, db int) *Store {
	return &Store{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Allow increments the caller's fixed-window counter and reports whether the
// request is within the limit. window starts on first hit.
func (s *Store) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	rk := fmt.Sprintf("rl:%s", key)

	n, err := s.client.Incr(ctx, rk).Result()
	if err != nil {
		return false, err
	}
	if n == 1 {
		if err := s.client.Expire(ctx, rk, window).Err(); err != nil {
			return false, err
		}
	}
	return n <= int64(limit), nil
}
