package config

import (
	"errors"
)

var (
	// ErrEmptyURL error if config webserver.URL is empty.
	ErrEmptyURL = errors.New("toml config webserver.url can not be empty")

	// ErrWebServerPortCanNotBeZero error if config webserver listening port is 0.
	ErrWebServerPortCanNotBeZero = errors.New("toml config webserver.port listening port can not be 0")

	// ErrUnknownDBEngine error if config db.gormEngine is not mysql, postgres or sqlite.
	ErrUnknownDBEngine = errors.New("toml config db.gormEngine is not supported")

	// ErrEmptyDBName error if config db.name is empty.
	ErrEmptyDBName = errors.New("toml config db.name can not be empty")

	// ErrUnknownEventDriver error if config events.driver is not supported.
	ErrUnknownEventDriver = errors.New("toml config events.driver is not supported")
)
