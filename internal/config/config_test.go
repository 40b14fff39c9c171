package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  host: "127.0.0.1"
  port: 9000
storage:
  database_path: "test.db"
backend:
  url: "http://analysis.local"
  timeout: 5s
  rate_limit_per_min: 30
analysis:
  cache_size: 64
  cache_ttl: 1m
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Host != "127.0.0.1" || cfg.Server.Port != 9000 {
		t.Errorf("unexpected server config: %+v", cfg.Server)
	}
	if cfg.Storage.DatabasePath == "" {
		t.Error("database_path should be set")
	}
	if cfg.Backend.URL != "http://analysis.local" || cfg.Backend.Timeout != 5*time.Second {
		t.Errorf("unexpected backend config: %+v", cfg.Backend)
	}
	if cfg.Backend.RateLimitPerMin != 30 {
		t.Errorf("rate_limit_per_min = %d", cfg.Backend.RateLimitPerMin)
	}
	if cfg.Analysis.CacheSize != 64 || cfg.Analysis.CacheTTL != time.Minute {
		t.Errorf("unexpected analysis config: %+v", cfg.Analysis)
	}
	if cfg.Debug {
		t.Error("debug should default to false when unset")
	}
}

func TestLoad_debugTrue(t *testing.T) {
	path := writeConfig(t, `
debug: true
backend:
  embedded: true
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if !cfg.Debug {
		t.Error("debug should be true when set in config")
	}
	if cfg.Backend.URL != "http://localhost:8080" {
		t.Errorf("embedded backend url = %s", cfg.Backend.URL)
	}
}

func TestLoad_expandPathDotSlashRelativeToConfigDir(t *testing.T) {
	path := writeConfig(t, `
storage:
  database_path: "./data/db/trendlens.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	want := filepath.Join(filepath.Dir(path), "data", "db", "trendlens.db")
	if cfg.Storage.DatabasePath != want {
		t.Errorf("database_path = %s, want %s", cfg.Storage.DatabasePath, want)
	}
}

func TestLoad_memoryDriverKeepsPath(t *testing.T) {
	path := writeConfig(t, `
storage:
  driver: memory
  database_path: "./ignored.db"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Storage.DatabasePath != "./ignored.db" {
		t.Errorf("database_path = %s", cfg.Storage.DatabasePath)
	}
}

func TestLoad_envOverrides(t *testing.T) {
	t.Setenv("TRENDLENS_BACKEND_URL", "http://env-backend")
	t.Setenv("TRENDLENS_PORT", "9191")
	t.Setenv("TRENDLENS_DEBUG", "true")
	t.Setenv("TRENDLENS_DB_PATH", "/tmp/env.db")

	path := writeConfig(t, `
server:
  port: 9000
backend:
  url: "http://file-backend"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Backend.URL != "http://env-backend" {
		t.Errorf("backend url = %s", cfg.Backend.URL)
	}
	if cfg.Server.Port != 9191 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if !cfg.Debug {
		t.Error("debug should be overridden by env")
	}
	if cfg.Storage.DatabasePath != "/tmp/env.db" {
		t.Errorf("database_path = %s", cfg.Storage.DatabasePath)
	}
}

func TestLoad_invalidPortEnvIgnored(t *testing.T) {
	t.Setenv("TRENDLENS_PORT", "not-a-port")
	path := writeConfig(t, "server:\n  port: 9000\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != 9000 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
}

func TestLoad_missingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoad_invalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	if cfg.Server.Host != "localhost" {
		t.Errorf("default host: got %s", cfg.Server.Host)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default port: got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("default driver: got %s", cfg.Storage.Driver)
	}
	if cfg.Backend.Timeout != 30*time.Second {
		t.Errorf("default timeout: got %s", cfg.Backend.Timeout)
	}
	if cfg.Backend.URL != "" {
		t.Errorf("backend url should stay empty when not embedded, got %s", cfg.Backend.URL)
	}
	if cfg.Backend.Months != 60 || cfg.Backend.Horizon != 3 {
		t.Errorf("default backend shape: got %d months, horizon %d", cfg.Backend.Months, cfg.Backend.Horizon)
	}
	if cfg.History.Key != "trendlens.recent_searches" || cfg.History.MaxEntries != 10 {
		t.Errorf("default history: got %+v", cfg.History)
	}
	if cfg.Export.DefaultWindow != 12 {
		t.Errorf("default window: got %d", cfg.Export.DefaultWindow)
	}
	if cfg.Export.RasterWidth != 1200 || cfg.Export.RasterHeight != 600 {
		t.Errorf("default raster size: got %dx%d", cfg.Export.RasterWidth, cfg.Export.RasterHeight)
	}
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := &Config{Backend: BackendConfig{URL: "http://x"}}
		ApplyDefaults(cfg)
		return cfg
	}
	if err := valid().Validate(); err != nil {
		t.Fatalf("valid config: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad driver", func(c *Config) { c.Storage.Driver = "postgres" }},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }},
		{"no backend", func(c *Config) { c.Backend.URL = "" }},
		{"bad window", func(c *Config) { c.Export.DefaultWindow = 7 }},
		{"negative months", func(c *Config) { c.Backend.Months = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestSave_roundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := &Config{Backend: BackendConfig{URL: "http://x", Unavailable: []string{"ghost"}}}
	ApplyDefaults(cfg)
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("mode = %v", info.Mode().Perm())
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Backend.Timeout != cfg.Backend.Timeout || len(loaded.Backend.Unavailable) != 1 {
		t.Errorf("round trip mismatch: %+v", loaded.Backend)
	}
}

func TestDefault(t *testing.T) {
	t.Setenv("TRENDLENS_PORT", "7070")
	t.Setenv("TRENDLENS_BACKEND_URL", "")
	cfg := Default()
	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d", cfg.Server.Port)
	}
	if !cfg.Backend.Embedded || cfg.Backend.URL != "http://localhost:7070" {
		t.Errorf("expected embedded backend on the server port, got %+v", cfg.Backend)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}

	t.Setenv("TRENDLENS_BACKEND_URL", "http://remote")
	cfg = Default()
	if cfg.Backend.Embedded || cfg.Backend.URL != "http://remote" {
		t.Errorf("env backend should disable embedding, got %+v", cfg.Backend)
	}
}
