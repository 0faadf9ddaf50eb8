// Package redis holds the Redis client helper and the submission
// idempotency store built on it.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/knowledgehub/workflow/internal/core/domain"
)

const defaultTimeout = 5 * time.Second

// Config selects the Redis server. Timeout bounds the initial ping and
// every later command; zero means five seconds.
type Config struct {
	Addr    string
	DB      int
	Timeout time.Duration
}

// Connect returns a client that has answered one ping. Failures wrap
// domain.ErrBackendUnavailable.
func Connect(ctx context.Context, cfg Config) (*redis.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		DB:           cfg.DB,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	})

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("%w: redis %s: %w", domain.ErrBackendUnavailable, cfg.Addr, err)
	}
	return client, nil
}

// Pinger adapts a client to the readiness check.
type Pinger struct {
	Client *redis.Client
}

func (p Pinger) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := p.Client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("%w: redis: %w", domain.ErrBackendUnavailable, err)
	}
	return nil
}
