// Package redis implements the market cache, shared rate limiter, scan lock
// and signal bus on go-redis/v9.
package redis

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	clientName   = "sportsedge"
	dialTimeout  = 5 * time.Second
	ioTimeout    = 3 * time.Second
	defaultRetry = 3
)

// ClientConfig holds connection parameters for the Redis client.
type ClientConfig struct {
	Addr       string
	Password   string
	DB         int
	PoolSize   int
	MaxRetries int
	TLSEnabled bool
}

// Client is the shared connection used by the cache, limiter, lock and bus.
type Client struct {
	rdb *redis.Client
}

func options(cfg ClientConfig) *redis.Options {
	opts := &redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.PoolSize,
		MaxRetries:   cfg.MaxRetries,
		ClientName:   clientName,
		DialTimeout:  dialTimeout,
		ReadTimeout:  ioTimeout,
		WriteTimeout: ioTimeout,
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = defaultRetry
	}
	if cfg.TLSEnabled {
		host, _, err := net.SplitHostPort(cfg.Addr)
		if err != nil {
			host = cfg.Addr
		}
		opts.TLSConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			ServerName: host,
		}
	}
	return opts
}

// New connects and pings. A failed ping closes the client.
func New(ctx context.Context, cfg ClientConfig) (*Client, error) {
	rdb := redis.NewClient(options(cfg))
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis: ping %s: %w", cfg.Addr, err)
	}
	return &Client{rdb: rdb}, nil
}

// Close closes the connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}

// Ping checks the connection.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
