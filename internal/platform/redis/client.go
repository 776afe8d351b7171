// Package redis owns the connection to the transaction state store.
// The rest of the gateway sees a go-redis client plus a health probe;
// pool sizing and timeouts are applied once, from config, here.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"sellergate/internal/platform/config"
)

// connectTimeout bounds the startup ping. A state store that cannot
// answer within this is treated as absent, not waited on.
const connectTimeout = 5 * time.Second

// Client is a connected go-redis client with a health probe for the
// readiness endpoint.
type Client struct {
	*redis.Client
}

// New connects using the configured URL, or returns (nil, nil) when no
// URL is set and the gateway should fall back to in-memory state. The
// connection is verified with a ping before it is handed out.
func New(cfg config.RedisConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	opts.PoolSize = cfg.PoolSize
	opts.MinIdleConns = cfg.MinIdleConns
	opts.DialTimeout = cfg.DialTimeout
	opts.ReadTimeout = cfg.ReadTimeout
	opts.WriteTimeout = cfg.WriteTimeout

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &Client{Client: client}, nil
}

// Health reports whether the connection still answers. Wired into
// /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.Ping(ctx).Err()
}
