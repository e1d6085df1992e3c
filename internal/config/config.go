package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

type Config struct {
	HTTPAddr     string `json:"http_addr"`
	DatabasePath string `json:"database_path"`

	MonitorInterval int `json:"monitor_interval_ms"`
	MaxItemSize     int `json:"max_item_size_bytes"`

	DedupWindowHours int `json:"dedup_window_hours"`

	CleanupInitialDelayMinutes int `json:"cleanup_initial_delay_minutes"`
	CleanupIntervalHours       int `json:"cleanup_interval_hours"`
	RetentionHours             int `json:"retention_hours"`

	CheckUpdatesOnStartup bool `json:"check_updates_on_startup"`

	LogLevel  string `json:"log_level"`
	LogFormat string `json:"log_format"`
}

func Default() *Config {
	return &Config{
		HTTPAddr:     "127.0.0.1:8090",
		DatabasePath: "", // resolved under the config dir when empty

		MonitorInterval: 500,
		MaxItemSize:     10 * 1024 * 1024, // 10MB

		DedupWindowHours: 24,

		CleanupInitialDelayMinutes: 60,
		CleanupIntervalHours:       24,
		RetentionHours:             7 * 24,

		CheckUpdatesOnStartup: true,

		LogLevel:  "info",
		LogFormat: "console",
	}
}

func Load(path string) (*Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil // Return default config if file doesn't exist
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	config.validate()

	return config, nil
}

func (c *Config) Save(path string) error {
	// Ensure directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

func (c *Config) validate() {
	if c.HTTPAddr == "" {
		c.HTTPAddr = "127.0.0.1:8090"
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = 500
	}
	if c.MaxItemSize <= 0 {
		c.MaxItemSize = 10 * 1024 * 1024
	}
	if c.DedupWindowHours <= 0 {
		c.DedupWindowHours = 24
	}
	if c.CleanupInitialDelayMinutes < 0 {
		c.CleanupInitialDelayMinutes = 60
	}
	if c.CleanupIntervalHours <= 0 {
		c.CleanupIntervalHours = 24
	}
	if c.RetentionHours <= 0 {
		c.RetentionHours = 7 * 24
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogFormat == "" {
		c.LogFormat = "console"
	}
}
