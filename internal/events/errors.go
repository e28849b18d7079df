package events

import "errors"

var (
	// ErrUnknownDriver is returned by New for an unsupported Config.Driver value.
	ErrUnknownDriver = errors.New("unknown event bus driver")

	// ErrNoBrokers is returned when the kafka driver is selected without brokers.
	ErrNoBrokers = errors.New("kafka driver requires at least one broker")

	// ErrNoRedisAddr is returned when the redis driver is selected without an address.
	ErrNoRedisAddr = errors.New("redis driver requires an address")
)
