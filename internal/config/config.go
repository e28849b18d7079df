// Package config handles input from etc/*.toml files
package config

import (
	"bytes"
	"encoding/json"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"github.com/pkg/errors"

	"github.com/kha997/zenamanagephp-sub030/internal/events"
)

const (
	// EnvConfigJSON holds a JSON document merged over main.toml.
	EnvConfigJSON = "ZENAMANAGE_RBAC_CONFIG_JSON"

	// EnvPrefix prefixes the per-setting environment overrides,
	// e.g. ZENAMANAGE_DB_PASSWORD or ZENAMANAGE_EVENTS_REDIS_ADDR.
	EnvPrefix = "ZENAMANAGE"

	// DefaultMaxImportBytes bounds an uploaded permission matrix when RBAC.MaxImportBytes is unset.
	DefaultMaxImportBytes = 5 << 20

	defaultShutDownTime = 5
	defaultCacheTTL     = 300
)

// ReadConfig from config file.
func ReadConfig(path string) (Config, error) {
	var (
		c             Config
		JSONConfigEnv string
		err           error
	)

	// Read main configuration
	if path == "" {
		path = "./etc/"
	}

	if _, err = toml.DecodeFile(path+"main.toml", &c); err != nil {
		return Config{}, errors.Wrap(err, "failed to read main config file")
	}

	// override it from env
	JSONConfigEnv = os.Getenv(EnvConfigJSON)

	if JSONConfigEnv != "" {
		c, err = decodeAndMergeConfig(c, JSONConfigEnv)
		if err != nil {
			return c, err
		}
	}

	if err = overlayEnv(&c); err != nil {
		return c, err
	}

	return c, validate(&c)
}

func decodeAndMergeConfig(c Config, configAsJSON string) (Config, error) {
	err := json.Unmarshal([]byte(configAsJSON), &c)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config from "+EnvConfigJSON)
	}

	return c, nil
}

// overlayEnv applies single value overrides, mostly secrets, from the environment.
func overlayEnv(c *Config) error {
	if err := envconfig.Process(EnvPrefix+"_DB", &c.DB); err != nil {
		return errors.Wrap(err, "failed to read db settings from env")
	}

	if err := envconfig.Process(EnvPrefix+"_EVENTS", &c.Events); err != nil {
		return errors.Wrap(err, "failed to read event bus settings from env")
	}

	return nil
}

// DumpConfig config as TOML String.
func DumpConfig(c Config) (string, error) {
	var buffer bytes.Buffer
	t := toml.NewEncoder(&buffer)

	if err := t.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// DumpConfigJSON config as JSON String.
func DumpConfigJSON(c Config) (string, error) {
	var buffer bytes.Buffer
	j := json.NewEncoder(&buffer)
	j.SetIndent("", "  ")

	if err := j.Encode(c); err != nil {
		return "", err //nolint: wrapcheck
	}

	return buffer.String(), nil
}

// validate checks the settings the service cannot start without and fills defaults.
func validate(c *Config) error {
	invalidErrMessage := "invalid config"

	// validate webserver listening port
	if c.Webserver.Port == 0 {
		return errors.Wrap(ErrWebServerPortCanNotBeZero, invalidErrMessage)
	}

	if c.Webserver.URL == "" {
		return errors.Wrap(ErrEmptyURL, invalidErrMessage)
	}

	if c.Webserver.ShutDownTime == 0 {
		c.Webserver.ShutDownTime = defaultShutDownTime
	}

	if c.Webserver.HierarchyCacheTTL == 0 {
		c.Webserver.HierarchyCacheTTL = defaultCacheTTL
	}

	switch c.DB.GormEngine {
	case "":
		c.DB.GormEngine = EngineMySQL
	case EngineMySQL, EnginePostgres, EngineSQLite:
	default:
		return errors.Wrapf(ErrUnknownDBEngine, "%s: %q", invalidErrMessage, c.DB.GormEngine)
	}

	if c.DB.Name == "" {
		return errors.Wrap(ErrEmptyDBName, invalidErrMessage)
	}

	switch c.Events.Driver {
	case "", events.DriverNone, events.DriverMemory, events.DriverRedis, events.DriverKafka:
	default:
		return errors.Wrapf(ErrUnknownEventDriver, "%s: %q", invalidErrMessage, c.Events.Driver)
	}

	if c.RBAC.MaxImportBytes <= 0 {
		c.RBAC.MaxImportBytes = DefaultMaxImportBytes
	}

	return nil
}
