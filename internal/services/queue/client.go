package queue

import (
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// Client wraps the Redis connection the transcript lists live on. It
// shares the storage layer's connection rather than dialling its own.
type Client struct {
	rdb    *redis.Client
	logger *slog.Logger
}

// NewClientFromRedis shares an existing connection.
func NewClientFromRedis(rdb *redis.Client, logger *slog.Logger) *Client {
	return &Client{
		rdb:    rdb,
		logger: logger,
	}
}

// GetRedisClient returns the underlying Redis client for direct operations
func (c *Client) GetRedisClient() *redis.Client {
	return c.rdb
}
