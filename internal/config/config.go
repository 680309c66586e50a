package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the application configuration
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Data      DataConfig      `json:"data" yaml:"data"`
	Analytics AnalyticsConfig `json:"analytics" yaml:"analytics"`
	Logging   LoggingConfig   `json:"logging" yaml:"logging"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port           string   `json:"port" yaml:"port"`
	Host           string   `json:"host" yaml:"host"`
	RequestTimeout Duration `json:"request_timeout" yaml:"request_timeout"`
	MetricsEnabled *bool    `json:"metrics_enabled,omitempty" yaml:"metrics_enabled,omitempty"`
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	Driver         string   `json:"driver" yaml:"driver"` // sqlite3 or postgres
	Path           string   `json:"path" yaml:"path"`     // sqlite3 file
	DSN            string   `json:"dsn" yaml:"dsn"`       // postgres connection string
	MaxConnections int32    `json:"max_connections" yaml:"max_connections"`
	ConnectTimeout Duration `json:"connect_timeout" yaml:"connect_timeout"`
}

// DataConfig represents data loading and generation configuration
type DataConfig struct {
	SeedFile      string `json:"seed_file" yaml:"seed_file"`
	RawDataFolder string `json:"raw_data_folder" yaml:"raw_data_folder"`
	GenerateCount int    `json:"generate_count" yaml:"generate_count"`
	AircraftCount int    `json:"aircraft_count" yaml:"aircraft_count"`
	GenerateDays  int    `json:"generate_days" yaml:"generate_days"`
}

// AnalyticsConfig tunes the corpus snapshot
type AnalyticsConfig struct {
	CacheTTL     Duration `json:"cache_ttl" yaml:"cache_ttl"`
	TopN         int      `json:"top_n" yaml:"top_n"`
	RecentWindow Duration `json:"recent_window" yaml:"recent_window"`
}

// LoggingConfig selects log level and format
type LoggingConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"` // text or json
}

// Duration is a time.Duration read from strings like "300s" or "5m"
type Duration time.Duration

// Std returns the value as a time.Duration
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalJSON accepts a duration string or a number of seconds
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		return d.parse(s)
	}
	var secs float64
	if err := json.Unmarshal(b, &secs); err != nil {
		return fmt.Errorf("invalid duration %s", string(b))
	}
	*d = Duration(secs * float64(time.Second))
	return nil
}

// UnmarshalYAML accepts a duration string or a number of seconds
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var secs float64
	if err := node.Decode(&secs); err == nil {
		*d = Duration(secs * float64(time.Second))
		return nil
	}
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration %q", node.Value)
	}
	return d.parse(s)
}

// MarshalJSON writes the duration as a string
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

func (d *Duration) parse(s string) error {
	v, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(v)
	return nil
}

// Default returns the configuration used when no file is present
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// LoadConfig loads configuration from a JSON or YAML file, chosen by extension
func LoadConfig(configPath string) (*Config, error) {
	// Default config path
	if configPath == "" {
		configPath = "config.json"
	}

	// Read config file
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	switch strings.ToLower(filepath.Ext(configPath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &config)
	default:
		err = json.Unmarshal(data, &config)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// LoadConfigWithDefaults loads config with fallback to defaults if file doesn't exist
func LoadConfigWithDefaults(configPath string) (*Config, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		// If file doesn't exist, return default config
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	return config, nil
}

// MetricsOn reports whether the /metrics endpoint is served
func (c *Config) MetricsOn() bool {
	return c.Server.MetricsEnabled == nil || *c.Server.MetricsEnabled
}

// DSN returns the data source for the configured driver
func (c *Config) DSN() string {
	if c.Database.Driver == "postgres" {
		return c.Database.DSN
	}
	return c.Database.Path
}

func (c *Config) applyDefaults() {
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.RequestTimeout == 0 {
		c.Server.RequestTimeout = Duration(10 * time.Second)
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite3"
	}
	if c.Database.Path == "" {
		c.Database.Path = "defects.db"
	}
	if c.Database.MaxConnections == 0 {
		c.Database.MaxConnections = 10
	}
	if c.Database.ConnectTimeout == 0 {
		c.Database.ConnectTimeout = Duration(30 * time.Second)
	}
	if c.Data.SeedFile == "" {
		c.Data.SeedFile = "data/defects.json"
	}
	if c.Data.RawDataFolder == "" {
		c.Data.RawDataFolder = "data"
	}
	if c.Data.GenerateCount == 0 {
		c.Data.GenerateCount = 1000
	}
	if c.Data.AircraftCount == 0 {
		c.Data.AircraftCount = 25
	}
	if c.Data.GenerateDays == 0 {
		c.Data.GenerateDays = 90
	}
	if c.Analytics.CacheTTL == 0 {
		c.Analytics.CacheTTL = Duration(300 * time.Second)
	}
	if c.Analytics.TopN == 0 {
		c.Analytics.TopN = 10
	}
	if c.Analytics.RecentWindow == 0 {
		c.Analytics.RecentWindow = Duration(7 * 24 * time.Hour)
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
}

// Validate checks values that have no sensible fallback
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite3":
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Analytics.CacheTTL < 0 {
		return fmt.Errorf("analytics.cache_ttl must not be negative")
	}
	if c.Analytics.TopN < 0 {
		return fmt.Errorf("analytics.top_n must not be negative")
	}
	if c.Data.GenerateCount < 0 || c.Data.AircraftCount < 0 || c.Data.GenerateDays < 0 {
		return fmt.Errorf("data generation sizes must not be negative")
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported logging.format %q", c.Logging.Format)
	}
	return nil
}
