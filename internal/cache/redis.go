// Package cache builds the Redis client used by the outbound mail stream and
// health checks. No session or OTP state is cached here.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"caseportal/internal/config"
)

const (
	pingAttempts = 3
	pingTimeout  = 5 * time.Second
)

// NewRedisClient connects and pings, retrying briefly so the process can start
// alongside Redis.
func NewRedisClient(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: pingTimeout,
	})

	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		if err = ping(ctx, client); err == nil {
			return client, nil
		}
		if attempt == pingAttempts {
			break
		}
		select {
		case <-ctx.Done():
			_ = client.Close()
			return nil, ctx.Err()
		case <-time.After(time.Duration(attempt) * time.Second):
		}
	}

	_ = client.Close()
	return nil, fmt.Errorf("redis ping: %w", err)
}

func ping(ctx context.Context, client *redis.Client) error {
	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	return client.Ping(ctx).Err()
}
