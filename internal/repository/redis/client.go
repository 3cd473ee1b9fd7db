package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Client wraps redis.Client for publishing session events
type Client struct {
	client *redis.Client
}

// Connect opens a Redis connection and checks it with a ping. Callers treat an
// error as "run without Redis" rather than a startup failure.
func Connect(ctx context.Context, addr, password string, log zerolog.Logger) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", addr, err)
	}

	log.Info().Str("addr", addr).Msg("[REDIS] Connected successfully")
	return &Client{client: client}, nil
}

// Publish sends message to every subscriber of channel
func (c *Client) Publish(ctx context.Context, channel string, message interface{}) error {
	return c.client.Publish(ctx, channel, message).Err()
}

func (c *Client) Close() error {
	if c.client != nil {
		return c.client.Close()
	}
	return nil
}
