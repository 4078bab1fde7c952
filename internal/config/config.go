// Package config provides configuration management.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"parkfee/internal/logging"
)

// Config is the main application configuration
type Config struct {
	// Version is the configuration version
	Version string `json:"version"`

	// Storage contains rule/order store configuration
	Storage StorageConfig `json:"storage"`

	// Billing contains fee computation defaults
	Billing BillingConfig `json:"billing"`

	// Output contains output configuration
	Output OutputConfig `json:"output"`

	// Logging contains logging configuration
	Logging logging.Config `json:"logging"`
}

// StorageConfig contains rule/order store settings
type StorageConfig struct {
	// DatabasePath is the path to the sqlite database
	DatabasePath string `json:"database_path"`

	// SnowflakeNode is the node ID for order number generation
	SnowflakeNode int64 `json:"snowflake_node"`
}

// BillingConfig contains fee computation defaults
type BillingConfig struct {
	// DefaultTimezone applies to segments that omit a timezone
	DefaultTimezone string `json:"default_timezone"`

	// Currency is the display currency code
	Currency string `json:"currency"`

	// MaxIntervalDays bounds [entry, exit) before the engine is invoked
	MaxIntervalDays int `json:"max_interval_days"`

	// TieBreak selects the resolver tie-break policy (priority_first, scope_first)
	TieBreak string `json:"tie_break"`
}

// OutputConfig contains output-related settings
type OutputConfig struct {
	// DefaultFormat is the default output format (text, json)
	DefaultFormat string `json:"default_format"`

	// ShowBreakdown shows the per-segment fee breakdown
	ShowBreakdown bool `json:"show_breakdown"`
}

// Default returns a default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	dbPath := filepath.Join(homeDir, ".parkfee", "parkfee.db")

	return &Config{
		Version: "1.0",
		Storage: StorageConfig{
			DatabasePath:  dbPath,
			SnowflakeNode: 1,
		},
		Billing: BillingConfig{
			DefaultTimezone: "Asia/Shanghai",
			Currency:        "CNY",
			MaxIntervalDays: 92,
			TieBreak:        "priority_first",
		},
		Output: OutputConfig{
			DefaultFormat: "text",
			ShowBreakdown: true,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, err
	}

	return config, nil
}

// Save saves configuration to a file
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Global configuration instance
var globalConfig = Default()

// Get returns the global configuration
func Get() *Config {
	return globalConfig
}

// Set sets the global configuration
func Set(config *Config) {
	globalConfig = config
}
