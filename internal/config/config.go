// Package config loads the avatar server configuration.
//
// Precedence, lowest first: defaults, YAML file, environment, flags
// (applied by the command).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/teslashibe/go-avatar/pkg/motion"
	"github.com/teslashibe/go-avatar/pkg/source"
	"github.com/teslashibe/go-avatar/pkg/stream"
	"github.com/teslashibe/go-avatar/pkg/tap"
)

// ErrInvalidEnv is returned when an environment override cannot be parsed.
var ErrInvalidEnv = errors.New("config: invalid environment value")

// Config is the complete server configuration.
type Config struct {
	Log     LogConfig     `yaml:"log"`
	Server  stream.Config `yaml:"server"`
	Motion  motion.Config `yaml:"motion"`
	Source  source.Config `yaml:"source"`
	Tap     tap.Config    `yaml:"tap"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// LogConfig contains logging settings
type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

// MetricsConfig contains Prometheus settings
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Log:     LogConfig{Level: "info"},
		Server:  stream.DefaultConfig(),
		Motion:  motion.DefaultConfig(),
		Source:  source.DefaultConfig(),
		Tap:     tap.DefaultConfig(),
		Metrics: MetricsConfig{Enabled: true, Namespace: "avatar"},
	}
}

// Load reads a YAML file over the defaults, applies environment overrides
// and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// ApplyEnv overrides fields from the environment:
//
//	PORT, HOST, LOG_LEVEL, AVATAR_SOURCE, CAMERA_DEVICE,
//	MQTT_BROKER, MQTT_TOPIC, NATS_URL
//
// Setting NATS_URL enables the frame tap.
func (c *Config) ApplyEnv() error {
	if v, ok := os.LookupEnv("PORT"); ok && v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: PORT=%q", ErrInvalidEnv, v)
		}
		c.Server.Port = port
	}
	if v, ok := os.LookupEnv("HOST"); ok && v != "" {
		c.Server.Host = v
	}
	if v, ok := os.LookupEnv("LOG_LEVEL"); ok && v != "" {
		c.Log.Level = v
	}
	if v, ok := os.LookupEnv("AVATAR_SOURCE"); ok && v != "" {
		c.Source.Kind = source.Kind(v)
	}
	if v, ok := os.LookupEnv("CAMERA_DEVICE"); ok && v != "" {
		dev, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: CAMERA_DEVICE=%q", ErrInvalidEnv, v)
		}
		c.Source.Device = dev
	}
	if v, ok := os.LookupEnv("MQTT_BROKER"); ok && v != "" {
		c.Source.MQTT.Broker = v
	}
	if v, ok := os.LookupEnv("MQTT_TOPIC"); ok && v != "" {
		c.Source.MQTT.Topic = v
	}
	if v, ok := os.LookupEnv("NATS_URL"); ok && v != "" {
		c.Tap.URL = v
		c.Tap.Enabled = true
	}
	return nil
}

// Validate checks every section.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return err
	}
	if err := c.Motion.Validate(); err != nil {
		return err
	}
	if err := c.Source.Validate(); err != nil {
		return err
	}
	if err := c.Tap.Validate(); err != nil {
		return err
	}
	switch strings.ToLower(c.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error, got %q", c.Log.Level)
	}
	return nil
}
