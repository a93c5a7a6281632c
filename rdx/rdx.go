// Package rdx holds the shared Redis connection and thin helpers over it.
package rdx

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

var Conn *redis.Client

// ErrMissing is returned by RdxGet when the key does not exist.
var ErrMissing = errors.New("key not found")

func Init(ctx context.Context, addr, password string, db int) error {
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	if err := client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis %s: %w", addr, err)
	}
	Conn = client
	log.Printf("[rdx] connected to %s", addr)
	return nil
}

func Close() {
	if Conn == nil {
		return
	}
	if err := Conn.Close(); err != nil {
		log.Printf("[rdx] close error: %v", err)
	}
}

func RdxGet(ctx context.Context, key string) (string, error) {
	v, err := Conn.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrMissing
	}
	return v, err
}

func RdxSet(ctx context.Context, key, value string) error {
	return Conn.Set(ctx, key, value, 0).Err()
}

func SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	return Conn.Set(ctx, key, value, ttl).Err()
}

func RdxDel(ctx context.Context, keys ...string) (int64, error) {
	return Conn.Del(ctx, keys...).Result()
}

// RdxIncrWithExpiry bumps a counter, starting its TTL on first use.
func RdxIncrWithExpiry(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	n, err := Conn.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if n == 1 {
		if err := Conn.Expire(ctx, key, ttl).Err(); err != nil {
			return n, err
		}
	}
	return n, nil
}
