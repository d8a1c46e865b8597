// Package config loads and saves the YAML application configuration.
// Secrets (OAuth client, CalDAV password, postgres DSN) are never stored
// here; they come from the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// GroupConfig declares one scheduling group and its members.
type GroupConfig struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Members []string `yaml:"members"`
}

// Config is the top-level application configuration.
type Config struct {
	// Listen is the HTTP listen address for the API server.
	Listen string `yaml:"listen"`

	// Timezone is the IANA timezone used to resolve all-day events and
	// display times (e.g. "America/New_York").
	Timezone string `yaml:"timezone"`

	// HorizonDays is how many future days each sync cycle fetches.
	HorizonDays int `yaml:"horizon_days"`

	// RefreshCron is the cron expression used by watch mode
	// (e.g. "*/5 * * * *").
	RefreshCron string `yaml:"refresh"`

	// CalendarIDs restricts syncing to specific provider calendars.
	// Empty means all calendars the provider exposes.
	CalendarIDs []string `yaml:"calendar_ids"`

	// Groups seeds the document store with group definitions at startup.
	Groups []GroupConfig `yaml:"groups"`
}

// Default returns the in-memory default configuration.
func Default() *Config {
	return &Config{
		Listen:      "127.0.0.1:8080",
		Timezone:    "UTC",
		HorizonDays: 30,
		RefreshCron: "*/5 * * * *",
	}
}

// Normalize fills missing values with defaults so partially-filled configs
// still behave.
func (c *Config) Normalize() {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8080"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	if c.HorizonDays <= 0 {
		c.HorizonDays = 30
	}
	if c.RefreshCron == "" {
		c.RefreshCron = "*/5 * * * *"
	}
}

// Location resolves the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// Horizon returns the sync fetch window length.
func (c *Config) Horizon() time.Duration {
	return time.Duration(c.HorizonDays) * 24 * time.Hour
}

// Load reads the configuration from path. If the file does not exist, a
// default config is written there first.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := Default()
			if err := Save(path, cfg); err != nil {
				return cfg, err
			}
			return cfg, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.Normalize()
	return &cfg, nil
}

// Save writes the configuration atomically (temp file + rename, 0600).
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".booked-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
