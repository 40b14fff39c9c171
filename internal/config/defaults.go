package config

import "time"

// ApplyDefaults sets default values for any zero values in cfg.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = "sqlite"
	}
	if cfg.Storage.DatabasePath == "" {
		cfg.Storage.DatabasePath = "/usr/local/var/trendlens/data/trendlens.db"
	}
	if cfg.Backend.Timeout == 0 {
		cfg.Backend.Timeout = 30 * time.Second
	}
	if cfg.Backend.URL == "" && cfg.Backend.Embedded {
		cfg.Backend.URL = "http://" + cfg.Server.Addr()
	}
	if cfg.Backend.Months == 0 {
		cfg.Backend.Months = 60
	}
	if cfg.Backend.Horizon == 0 {
		cfg.Backend.Horizon = 3
	}
	if cfg.Analysis.CacheTTL == 0 {
		cfg.Analysis.CacheTTL = 10 * time.Minute
	}
	if cfg.History.Key == "" {
		cfg.History.Key = "trendlens.recent_searches"
	}
	if cfg.History.MaxEntries == 0 {
		cfg.History.MaxEntries = 10
	}
	if cfg.Export.DefaultWindow == 0 {
		cfg.Export.DefaultWindow = 12
	}
	if cfg.Export.RasterWidth == 0 {
		cfg.Export.RasterWidth = 1200
	}
	if cfg.Export.RasterHeight == 0 {
		cfg.Export.RasterHeight = 600
	}
}
