package infra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
)

const retryInterval = 500 * time.Millisecond

// PostgresOptions tunes the connection pool.
type PostgresOptions struct {
	MaxConns int32
	// Timeout bounds the whole connect-and-ping sequence, retries included.
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewPostgresPool opens a pool and pings it until the server answers or the
// timeout elapses.
func NewPostgresPool(ctx context.Context, url string, opts PostgresOptions) (*pgxpool.Pool, error) {
	if url == "" {
		return nil, fmt.Errorf("database url is required")
	}

	cfg, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse postgres config: %w", err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := retry(ctx, opts.Timeout, opts.Logger, "postgres", pool.Ping); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

// NewRedisClient builds a client from a redis:// URL and waits for it to
// answer PING, within timeout.
func NewRedisClient(ctx context.Context, url string, timeout time.Duration, logger *slog.Logger) (*redis.Client, error) {
	if url == "" {
		return nil, fmt.Errorf("redis url is required")
	}

	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opt)

	ping := func(ctx context.Context) error { return client.Ping(ctx).Err() }
	if err := retry(ctx, timeout, logger, "redis", ping); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

// retry calls fn until it succeeds or timeout elapses. A zero timeout means
// one attempt.
func retry(ctx context.Context, timeout time.Duration, logger *slog.Logger, name string, fn func(context.Context) error) error {
	if timeout <= 0 {
		return fn(ctx)
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for attempt := 1; ; attempt++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		if logger != nil {
			logger.Warn("dependency not ready", "dependency", name, "attempt", attempt, "error", err)
		}
		select {
		case <-ctx.Done():
			return err
		case <-time.After(retryInterval):
		}
	}
}
