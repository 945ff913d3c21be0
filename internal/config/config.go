package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the stock dashboard.
type Config struct {
	Server  Server  `yaml:"server"`
	Storage Storage `yaml:"storage"`
	Logging Logging `yaml:"logging"`
	Chart   Chart   `yaml:"chart"`
	UI      UI      `yaml:"ui"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// Addr returns the listen address in host:port form.
func (s Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Storage holds paths for data persistence.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
	PrefsPath  string `yaml:"prefs_path"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Chart controls synthetic chart generation.
type Chart struct {
	HistoryDays    int    `yaml:"history_days"`
	PredictionDays int    `yaml:"prediction_days"`
	Seed           uint64 `yaml:"seed"`          // 0 = random each run
	Location       string `yaml:"location"`      // IANA zone deciding "today"
	SnapshotCron   string `yaml:"snapshot_cron"` // empty = no scheduled export
}

// UI holds presentation defaults.
type UI struct {
	DefaultTheme string `yaml:"default_theme"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, applies environment variable overrides and then defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("STOCKDASH_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("STOCKDASH_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = n
		}
	}

	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("PREFS_PATH"); v != "" {
		cfg.Storage.PrefsPath = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}

	if v := os.Getenv("CHART_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			cfg.Chart.Seed = n
		}
	}
	if v := os.Getenv("CHART_LOCATION"); v != "" {
		cfg.Chart.Location = v
	}
	if v := os.Getenv("SNAPSHOT_CRON"); v != "" {
		cfg.Chart.SnapshotCron = v
	}

	if v := os.Getenv("DEFAULT_THEME"); v != "" {
		cfg.UI.DefaultTheme = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = "data"
	}
	if cfg.Storage.SQLitePath == "" {
		cfg.Storage.SQLitePath = "data/stockdash.db"
	}
	if cfg.Storage.PrefsPath == "" {
		cfg.Storage.PrefsPath = "data/prefs.json"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Chart.HistoryDays == 0 {
		cfg.Chart.HistoryDays = 30
	}
	if cfg.Chart.PredictionDays == 0 {
		cfg.Chart.PredictionDays = 15
	}
	if cfg.Chart.Location == "" {
		cfg.Chart.Location = "Local"
	}
	if cfg.UI.DefaultTheme == "" {
		cfg.UI.DefaultTheme = "light"
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Chart.HistoryDays <= 0 {
		return fmt.Errorf("chart.history_days must be positive")
	}
	if c.Chart.PredictionDays < 0 {
		return fmt.Errorf("chart.prediction_days must not be negative")
	}
	if c.UI.DefaultTheme != "light" && c.UI.DefaultTheme != "dark" {
		return fmt.Errorf("ui.default_theme must be light or dark, got %q", c.UI.DefaultTheme)
	}
	return nil
}
