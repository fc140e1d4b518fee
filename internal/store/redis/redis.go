// Package redis provides distributed lock, queue, and shared-memory
// backends on go-redis/v9, grounded on the teacher corpus's own Redis
// adapter style (pithecene-io-quarry's quarry/adapter/redis: ParseURL
// config). Calls are not retried and have no per-call timeout beyond the
// caller's context.
package redis

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
)

// Config configures a Redis connection, mirroring quarry's adapter/redis.Config.
type Config struct {
	URL string // redis://[:password@]host:port[/db]
}

// Open parses cfg and returns a ready client.
func Open(cfg Config) (*goredis.Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("redis: URL is required")
	}
	opts, err := goredis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("redis: invalid URL: %w", err)
	}
	return goredis.NewClient(opts), nil
}

// Ping verifies connectivity, used by health checks.
func Ping(ctx context.Context, client *goredis.Client) error {
	return client.Ping(ctx).Err()
}
