// Package config provides configuration loading and structs for the trendlens server.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
type Config struct {
	Debug    bool           `yaml:"debug"`
	Server   ServerConfig   `yaml:"server"`
	Storage  StorageConfig  `yaml:"storage"`
	Backend  BackendConfig  `yaml:"backend"`
	Analysis AnalysisConfig `yaml:"analysis"`
	History  HistoryConfig  `yaml:"history"`
	Export   ExportConfig   `yaml:"export"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns host:port.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// BaseURL returns the http URL of the server.
func (s ServerConfig) BaseURL() string {
	return "http://" + s.Addr()
}

// StorageConfig selects the key/value and result log store.
type StorageConfig struct {
	Driver       string `yaml:"driver"`
	DatabasePath string `yaml:"database_path"`
}

// BackendConfig holds analysis backend settings. When Embedded is set the server also
// serves a deterministic development backend on POST /analyze.
type BackendConfig struct {
	URL             string        `yaml:"url"`
	Timeout         time.Duration `yaml:"timeout"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	Embedded        bool          `yaml:"embedded"`
	Unavailable     []string      `yaml:"unavailable"`
	// Months and Horizon shape the embedded backend's series. A negative Horizon
	// disables forecasts.
	Months  int `yaml:"months"`
	Horizon int `yaml:"horizon"`
}

// AnalysisConfig holds the analysis cache settings. CacheSize 0 disables caching.
type AnalysisConfig struct {
	CacheSize int           `yaml:"cache_size"`
	CacheTTL  time.Duration `yaml:"cache_ttl"`
}

// HistoryConfig holds recent-search settings.
type HistoryConfig struct {
	Key        string `yaml:"key"`
	MaxEntries int    `yaml:"max_entries"`
}

// ExportConfig holds export settings.
type ExportConfig struct {
	DefaultWindow int `yaml:"default_window"`
	RasterWidth   int `yaml:"raster_width"`
	RasterHeight  int `yaml:"raster_height"`
}

// Default returns the config used when no file exists: environment overrides, then
// defaults. Without TRENDLENS_BACKEND_URL the embedded backend is enabled.
func Default() *Config {
	var cfg Config
	applyEnvOverrides(&cfg)
	if cfg.Backend.URL == "" {
		cfg.Backend.Embedded = true
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = expandPath(".trendlens/trendlens.db", "")
	}
	ApplyDefaults(&cfg)
	return &cfg
}

// Load reads and parses the config file at path, applies environment overrides,
// expands paths, and applies defaults. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	applyEnvOverrides(&cfg)
	ApplyDefaults(&cfg)

	if cfg.Storage.Driver == "sqlite" {
		cfg.Storage.DatabasePath = expandPath(cfg.Storage.DatabasePath, filepath.Dir(path))
	}

	return &cfg, nil
}

// Save writes the config to path.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Validate reports settings that cannot work.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "memory":
	default:
		return fmt.Errorf("storage.driver must be sqlite or memory, got %q", c.Storage.Driver)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}
	if !c.Backend.Embedded && c.Backend.URL == "" {
		return fmt.Errorf("backend.url is required unless backend.embedded is set")
	}
	if c.Backend.Months < 0 {
		return fmt.Errorf("backend.months must be positive, got %d", c.Backend.Months)
	}
	switch c.Export.DefaultWindow {
	case 6, 12, 24, 60:
	default:
		return fmt.Errorf("export.default_window must be 6, 12, 24 or 60, got %d", c.Export.DefaultWindow)
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("TRENDLENS_BACKEND_URL"); v != "" {
		cfg.Backend.URL = v
	}
	if v := os.Getenv("TRENDLENS_DB_PATH"); v != "" {
		cfg.Storage.DatabasePath = v
	}
	if v := os.Getenv("TRENDLENS_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("TRENDLENS_DEBUG"); v != "" {
		if debug, err := strconv.ParseBool(v); err == nil {
			cfg.Debug = debug
		}
	}
}

// expandPath converts a path to absolute. Paths starting with "./" are relative to configDir;
// other relative paths are relative to the home directory.
func expandPath(path string, configDir string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if strings.HasPrefix(path, "./") || path == "." {
		return filepath.Join(configDir, path)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, path)
	}
	return path
}
