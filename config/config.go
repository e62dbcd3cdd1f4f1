// Package config loads socket engine defaults from an optional YAML file,
// falling back to the reference hardcoded values when none is given.
package config

import (
	"os"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/philip727/nautilus-sockets/ack"
	"github.com/philip727/nautilus-sockets/registry"
)

// Config holds the tunables a server binary needs at startup.
type Config struct {
	Host             string        `yaml:"host"`
	Port             int           `yaml:"port"`
	MaxConnections   uint8         `yaml:"max_connections"`
	IdleTimeout      time.Duration `yaml:"idle_timeout"`
	AckRetryInterval time.Duration `yaml:"ack_retry_interval"`
}

// Default returns the same hardcoded values the reference config carried
// before a YAML file could override them.
func Default() Config {
	return Config{
		Host:             "0.0.0.0",
		Port:             7777,
		MaxConnections:   registry.DefaultMaxConnections,
		IdleTimeout:      registry.DefaultIdleTimeout,
		AckRetryInterval: ack.DefaultRetryInterval,
	}
}

// Load reads a YAML config file at path, starting from Default() and letting
// the file override any field it sets. An empty path returns Default()
// unchanged.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, errors.Wrapf(err, "read config file %q", path)
	}

	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, errors.Wrapf(err, "parse config file %q", path)
	}

	return cfg, nil
}
