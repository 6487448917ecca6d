package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// CursorPrefix namespaces round-robin cursors in Redis.
const CursorPrefix = "leadrouter:rr:"

// Client holds the Redis client
type Client struct {
	Redis *redis.Client
}

// NewClient creates a new Redis client
func NewClient(redisURL string) (*Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed connecting to redis: %w", err)
	}

	return &Client{
		Redis: client,
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.Redis.Close()
}

// Ping checks the connection, used by the health endpoint.
func (c *Client) Ping(ctx context.Context) error {
	return c.Redis.Ping(ctx).Err()
}

// Next atomically increments the round-robin cursor for key and returns the
// new ticket. INCR makes the sequence shared by every API replica.
func (c *Client) Next(ctx context.Context, key string) (int64, error) {
	n, err := c.Redis.Incr(ctx, CursorPrefix+key).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to increment cursor %s: %w", key, err)
	}
	return n, nil
}
