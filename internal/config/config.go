package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Bind    string `yaml:"bind"`
		Port    int    `yaml:"port"`
		Prefix  string `yaml:"prefix"`
		Verbose bool   `yaml:"verbose"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		ID           string `yaml:"id"`
		Dir          string `yaml:"dir"`
		TTL          string `yaml:"ttl"`
		ResetAnswers bool   `yaml:"reset_answers"`
		DefaultName  string `yaml:"default_name"`
	} `yaml:"quiz"`
	Rooms struct {
		IdleTimeout string `yaml:"idle_timeout"`
	} `yaml:"rooms"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	cfg := Config{}
	cfg.Server.Bind = "0.0.0.0"
	cfg.Server.Port = 8888
	cfg.Quiz.ID = "default"
	cfg.Quiz.DefaultName = "Jim"
	return cfg
}

// Load reads YAML config from path on top of Default. A missing file is not
// an error.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks values the server cannot start without.
func (c Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Server.Port)
	}
	if c.Quiz.ID == "" {
		return errors.New("quiz id must not be empty")
	}
	if c.Rooms.IdleTimeout != "" {
		if _, err := time.ParseDuration(c.Rooms.IdleTimeout); err != nil {
			return fmt.Errorf("invalid rooms.idle_timeout %q: %w", c.Rooms.IdleTimeout, err)
		}
	}
	return nil
}

// Addr is the listen address.
func (c Config) Addr() string {
	return net.JoinHostPort(c.Server.Bind, strconv.Itoa(c.Server.Port))
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
