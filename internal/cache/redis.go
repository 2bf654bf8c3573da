// Package cache holds the shared Redis client and the read-through helpers
// the feed uses on top of it. Every helper is a no-op while no client is set.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"medfeed/internal/observability"

	"github.com/redis/go-redis/v9"
)

const pingTimeout = 5 * time.Second

var client *redis.Client

// Open builds a client for url, a redis:// URL or a bare host:port, and
// checks it answers a PING. An empty url means caching is disabled and
// returns a nil client without error.
func Open(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := clientOptions(url)
	if err != nil {
		return nil, err
	}

	rdb := redis.NewClient(opts)
	rdb.AddHook(failureCounter{})

	ctx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}
	return rdb, nil
}

func clientOptions(url string) (*redis.Options, error) {
	if !strings.Contains(url, "://") {
		return &redis.Options{Addr: url}, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	return opts, nil
}

// Connect opens url and installs the result as the package client. Redis is
// optional: on failure the service keeps running uncached and Connect
// returns nil.
func Connect(ctx context.Context, url string) *redis.Client {
	rdb, err := Open(ctx, url)
	switch {
	case err != nil:
		observability.GlobalLogger.WarnContext(ctx, "redis unavailable, continuing without cache",
			slog.String("error", err.Error()))
	case rdb == nil:
		observability.GlobalLogger.InfoContext(ctx, "REDIS_URL not set, caching disabled")
	default:
		observability.GlobalLogger.InfoContext(ctx, "redis connected", slog.String("addr", rdb.Options().Addr))
	}
	SetClient(rdb)
	return rdb
}

// GetClient returns the installed client, nil when caching is off.
func GetClient() *redis.Client {
	return client
}

// SetClient replaces the package client.
func SetClient(c *redis.Client) {
	client = c
}

// failureCounter feeds RedisErrorRate. A cache miss is not a failure.
type failureCounter struct{}

func (failureCounter) DialHook(next redis.DialHook) redis.DialHook { return next }

func (failureCounter) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		err := next(ctx, cmd)
		countFailure(cmd.Name(), err)
		return err
	}
}

func (failureCounter) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return func(ctx context.Context, cmds []redis.Cmder) error {
		err := next(ctx, cmds)
		countFailure("pipeline", err)
		return err
	}
}

func countFailure(op string, err error) {
	if err != nil && !errors.Is(err, redis.Nil) {
		observability.RedisErrorRate.WithLabelValues(op).Inc()
	}
}
