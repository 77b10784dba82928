// Package cache connects to the Redis instance backing the metadata cache.
package cache

import (
	"context"
	"crypto/tls"
	"fmt"
	"strings"

	"github.com/redis/go-redis/v9"
)

// ParseOptions converts a Redis address into client options. Accepted forms:
//   - redis://[:password@]host:port[/db]
//   - rediss://[:password@]host:port[/db] (TLS)
//   - host:port
func ParseOptions(redisURL string) (*redis.Options, error) {
	if !strings.Contains(redisURL, "://") {
		if redisURL == "" {
			return nil, fmt.Errorf("redis URL is empty")
		}
		return &redis.Options{Addr: redisURL}, nil
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	if opts.TLSConfig != nil && opts.TLSConfig.MinVersion < tls.VersionTLS12 {
		opts.TLSConfig.MinVersion = tls.VersionTLS12
	}

	return opts, nil
}

// Connect opens a client and checks that the server answers.
func Connect(ctx context.Context, redisURL string) (*redis.Client, error) {
	opts, err := ParseOptions(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", opts.Addr, err)
	}

	return client, nil
}
