// Package config reads the simulator's settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every setting the raidsim process reads at startup.
type Config struct {
	Seed        int64         `env:"RAIDSIM_SEED" envDefault:"42"`
	DBPath      string        `env:"RAIDSIM_DB_PATH" envDefault:"data/raidsim.db"`
	Port        int           `env:"RAIDSIM_PORT" envDefault:"8080"`
	AdminKey    string        `env:"RAIDSIM_ADMIN_KEY"`
	DayInterval time.Duration `env:"RAIDSIM_DAY_INTERVAL" envDefault:"10s"`
	LogLevel    string        `env:"RAIDSIM_LOG_LEVEL" envDefault:"info"`
	BalanceFile string        `env:"RAIDSIM_BALANCE_FILE"`

	// Demo world
	Settlements    int `env:"RAIDSIM_SETTLEMENTS" envDefault:"12"`
	PlayerWarriors int `env:"RAIDSIM_PLAYER_WARRIORS" envDefault:"150"`
	PlayerFood     int `env:"RAIDSIM_PLAYER_FOOD" envDefault:"4000"`
	Leaders        int `env:"RAIDSIM_LEADERS" envDefault:"4"`

	// Raid launches and recalls allowed per client per minute. 0 = unlimited.
	OrdersPerMinute int `env:"RAIDSIM_ORDERS_PER_MINUTE" envDefault:"30"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load parses and validates the process configuration.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the simulator cannot run with.
func (c Config) Validate() error {
	switch {
	case c.Port <= 0 || c.Port > 65535:
		return fmt.Errorf("config: port %d out of range", c.Port)
	case c.DayInterval <= 0:
		return fmt.Errorf("config: day interval must be positive, got %s", c.DayInterval)
	case c.Settlements < 2:
		return fmt.Errorf("config: need at least 2 settlements, got %d", c.Settlements)
	case c.PlayerWarriors < 0 || c.PlayerFood < 0:
		return fmt.Errorf("config: starting warriors and food cannot be negative")
	case c.Leaders < 0 || c.OrdersPerMinute < 0:
		return fmt.Errorf("config: leaders and order limit cannot be negative")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level maps LogLevel onto a slog level.
func (c Config) Level() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("config: log level: %w", err)
	}
	return lvl, nil
}
