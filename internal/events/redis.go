package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultChannelPrefix = "zenamanage:"

// RedisPublisher publishes events through redis PUBLISH.
// Each event goes to the channel "<prefix><event name>", so subscribers can
// PSUBSCRIBE "<prefix>rbac.*" or narrower patterns.
type RedisPublisher struct {
	client  *redis.Client
	prefix  string
	source  string
	timeout time.Duration
}

// NewRedisPublisher creates a redis client from cfg and wraps it.
func NewRedisPublisher(cfg Config) (*RedisPublisher, error) {
	if cfg.Redis.Addr == "" {
		return nil, ErrNoRedisAddr
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	return NewRedisPublisherWithClient(client, cfg), nil
}

// NewRedisPublisherWithClient wraps an existing client.
func NewRedisPublisherWithClient(client *redis.Client, cfg Config) *RedisPublisher {
	prefix := cfg.Redis.ChannelPrefix
	if prefix == "" {
		prefix = defaultChannelPrefix
	}

	return &RedisPublisher{
		client:  client,
		prefix:  prefix,
		source:  cfg.source(),
		timeout: cfg.timeout(),
	}
}

// Channel returns the channel an event with the given name is published on.
func (p *RedisPublisher) Channel(name string) string {
	return p.prefix + name
}

// Ping checks the connection to redis.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("events: redis ping: %w", err)
	}

	return nil
}

// Publish implements Publisher.
func (p *RedisPublisher) Publish(ctx context.Context, name string, payload map[string]any) error {
	body, err := newEnvelope(p.source, name, payload).marshal()
	if err != nil {
		return fmt.Errorf("events: marshal %s: %w", name, err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	if err := p.client.Publish(ctx, p.Channel(name), body).Err(); err != nil {
		return fmt.Errorf("events: redis publish %s: %w", name, err)
	}

	return nil
}

// Close closes the redis client.
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
