package queue

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const connectTimeout = 5 * time.Second

// Client owns the Redis connection shared by the intent queue, the engine
// lock, snapshots and event pub/sub.
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewClient connects to redisURL and fails if the server does not answer
// within a few seconds.
func NewClient(redisURL string, logger *slog.Logger) (*Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}

	c := &Client{rdb: redis.NewClient(opt), logger: logger}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := c.Ping(ctx); err != nil {
		_ = c.rdb.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Connected to Redis", "addr", opt.Addr, "db", opt.DB)
	return c, nil
}

// Ping reports whether Redis is reachable. It lets the client serve as a
// health check component.
func (c *Client) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}

func (c *Client) Close() error {
	return c.rdb.Close()
}

// GetRedisClient exposes the connection for the lock, snapshot and pub/sub users.
func (c *Client) GetRedisClient() *redis.Client {
	return c.rdb
}
