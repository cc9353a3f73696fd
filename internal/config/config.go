package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines configuration for the inatdl CLI.
type Config struct {
	CSVPath     string        `yaml:"csv"`
	Destination string        `yaml:"destination"`
	Column      string        `yaml:"column"`
	Timeout     time.Duration `yaml:"timeout"`
	MaxRetries  int           `yaml:"max_retries"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MinBytes    int           `yaml:"min_bytes"`
	RateLimit   float64       `yaml:"rate_limit"`
	UserAgent   string        `yaml:"user_agent"`
	Progress    bool          `yaml:"progress"`
}

// Default returns a Config with sensible defaults.
func Default() Config {
	return Config{
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		BaseDelay:  2 * time.Second,
		MinBytes:   100,
		UserAgent:  "inatdl/1.0",
	}
}

// yamlConfig is used for YAML unmarshaling with string durations.
type yamlConfig struct {
	CSVPath     string  `yaml:"csv"`
	Destination string  `yaml:"destination"`
	Column      string  `yaml:"column"`
	Timeout     string  `yaml:"timeout"`
	MaxRetries  int     `yaml:"max_retries"`
	BaseDelay   string  `yaml:"base_delay"`
	MinBytes    int     `yaml:"min_bytes"`
	RateLimit   float64 `yaml:"rate_limit"`
	UserAgent   string  `yaml:"user_agent"`
	Progress    bool    `yaml:"progress"`
}

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config file: %w", err)
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return Config{}, fmt.Errorf("parse config file: %w", err)
	}

	cfg := Default()

	if yc.CSVPath != "" {
		cfg.CSVPath = yc.CSVPath
	}
	if yc.Destination != "" {
		cfg.Destination = yc.Destination
	}
	if yc.Column != "" {
		cfg.Column = yc.Column
	}
	if yc.Timeout != "" {
		d, err := time.ParseDuration(yc.Timeout)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
		cfg.Timeout = d
	}
	if yc.MaxRetries != 0 {
		cfg.MaxRetries = yc.MaxRetries
	}
	if yc.BaseDelay != "" {
		d, err := time.ParseDuration(yc.BaseDelay)
		if err != nil {
			return Config{}, fmt.Errorf("parse base_delay: %w", err)
		}
		cfg.BaseDelay = d
	}
	if yc.MinBytes != 0 {
		cfg.MinBytes = yc.MinBytes
	}
	if yc.RateLimit != 0 {
		cfg.RateLimit = yc.RateLimit
	}
	if yc.UserAgent != "" {
		cfg.UserAgent = yc.UserAgent
	}
	cfg.Progress = yc.Progress

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables.
// Environment variables use the INATDL_ prefix.
func (c *Config) LoadFromEnv() error {
	if v := os.Getenv("INATDL_CSV"); v != "" {
		c.CSVPath = v
	}
	if v := os.Getenv("INATDL_DESTINATION"); v != "" {
		c.Destination = v
	}
	if v := os.Getenv("INATDL_COLUMN"); v != "" {
		c.Column = v
	}
	if v := os.Getenv("INATDL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse INATDL_TIMEOUT: %w", err)
		}
		c.Timeout = d
	}
	if v := os.Getenv("INATDL_MAX_RETRIES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse INATDL_MAX_RETRIES: %w", err)
		}
		c.MaxRetries = n
	}
	if v := os.Getenv("INATDL_BASE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("parse INATDL_BASE_DELAY: %w", err)
		}
		c.BaseDelay = d
	}
	if v := os.Getenv("INATDL_MIN_BYTES"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse INATDL_MIN_BYTES: %w", err)
		}
		c.MinBytes = n
	}
	if v := os.Getenv("INATDL_RATE_LIMIT"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("parse INATDL_RATE_LIMIT: %w", err)
		}
		c.RateLimit = f
	}
	if v := os.Getenv("INATDL_USER_AGENT"); v != "" {
		c.UserAgent = v
	}
	if v := os.Getenv("INATDL_PROGRESS"); v != "" {
		c.Progress = v == "true" || v == "1"
	}

	return nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.CSVPath == "" {
		return errors.New("config: csv path is required")
	}
	if c.Destination == "" {
		return errors.New("config: destination is required")
	}
	if c.Timeout <= 0 {
		return errors.New("config: timeout must be positive")
	}
	if c.MaxRetries <= 0 {
		return errors.New("config: max_retries must be positive")
	}
	if c.BaseDelay <= 0 {
		return errors.New("config: base_delay must be positive")
	}
	if c.MinBytes < 0 {
		return errors.New("config: min_bytes must not be negative")
	}
	if c.RateLimit < 0 {
		return errors.New("config: rate_limit must not be negative")
	}
	return nil
}

// Merge merges override values into c, returning a new Config.
// Zero values in override are ignored.
func (c Config) Merge(override Config) Config {
	if override.CSVPath != "" {
		c.CSVPath = override.CSVPath
	}
	if override.Destination != "" {
		c.Destination = override.Destination
	}
	if override.Column != "" {
		c.Column = override.Column
	}
	if override.Timeout != 0 {
		c.Timeout = override.Timeout
	}
	if override.MaxRetries != 0 {
		c.MaxRetries = override.MaxRetries
	}
	if override.BaseDelay != 0 {
		c.BaseDelay = override.BaseDelay
	}
	if override.MinBytes != 0 {
		c.MinBytes = override.MinBytes
	}
	if override.RateLimit != 0 {
		c.RateLimit = override.RateLimit
	}
	if override.UserAgent != "" {
		c.UserAgent = override.UserAgent
	}
	if override.Progress {
		c.Progress = override.Progress
	}
	return c
}
