package events

import (
	"context"
	"fmt"
	"io"
	"time"
)

const (
	// DriverNone drops all events.
	DriverNone = "none"
	// DriverMemory records events in process.
	DriverMemory = "memory"
	// DriverRedis publishes to redis pub/sub.
	DriverRedis = "redis"
	// DriverKafka produces to a kafka topic.
	DriverKafka = "kafka"

	defaultSource  = "zenamanage-rbac"
	defaultTimeout = 3 * time.Second
)

// Redis holds the redis pub/sub settings.
type Redis struct {
	Addr          string `toml:"addr"`
	Password      string `toml:"password"`
	DB            int    `toml:"db"`
	ChannelPrefix string `toml:"channelPrefix" split_words:"true"`
}

// Kafka holds the kafka producer settings.
type Kafka struct {
	Brokers  []string `toml:"brokers"`
	Topic    string   `toml:"topic"`
	ClientID string   `toml:"clientId" split_words:"true"`
}

// Config selects and configures the event bus.
type Config struct {
	Driver         string `toml:"driver"`
	Source         string `toml:"source"`
	TimeoutSeconds int    `toml:"timeoutSeconds" split_words:"true"` // publish timeout per event
	Redis          Redis  `toml:"redis"`
	Kafka          Kafka  `toml:"kafka"`
}

func (c Config) source() string {
	if c.Source == "" {
		return defaultSource
	}

	return c.Source
}

func (c Config) timeout() time.Duration {
	if c.TimeoutSeconds <= 0 {
		return defaultTimeout
	}

	return time.Duration(c.TimeoutSeconds) * time.Second
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// New builds the Publisher selected by cfg.Driver.
// The returned io.Closer releases the underlying bus connection.
func New(cfg Config) (Publisher, io.Closer, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return Nop{}, nopCloser{}, nil
	case DriverMemory:
		return NewRecorder(), nopCloser{}, nil
	case DriverRedis:
		p, err := NewRedisPublisher(cfg)
		if err != nil {
			return nil, nil, err
		}

		return p, p, nil
	case DriverKafka:
		p, err := NewKafkaPublisher(cfg)
		if err != nil {
			return nil, nil, err
		}

		return p, p, nil
	default:
		return nil, nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

// Pinger is implemented by publishers backed by a remote bus.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Check reports whether the bus behind pub is reachable. Publishers without a
// remote bus always pass.
func Check(ctx context.Context, pub Publisher) error {
	if p, ok := pub.(Pinger); ok {
		return p.Ping(ctx)
	}

	return nil
}
