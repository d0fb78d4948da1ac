// Package config handles configuration loading and validation for tasklet.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/colonyops/tasklet/internal/core/styles"
	"github.com/colonyops/tasklet/internal/web"
)

// Config holds the application configuration.
type Config struct {
	Worker   WorkerConfig   `yaml:"worker" toml:"worker"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Status   StatusConfig   `yaml:"status" toml:"status"`
	Serve    ServeConfig    `yaml:"serve" toml:"serve"`
	TUI      TUIConfig      `yaml:"tui" toml:"tui"`
	DataDir  string         `yaml:"-" toml:"-"` // set by caller, not from config file
}

// WorkerConfig configures the offline cache worker.
type WorkerConfig struct {
	Version        string        `yaml:"version" toml:"version"`                 // current cache bucket name
	Origin         string        `yaml:"origin" toml:"origin"`                   // base URL the assets live on
	Assets         []string      `yaml:"assets" toml:"assets"`                   // precached on install, relative to origin
	Scope          []string      `yaml:"scope" toml:"scope"`                     // path globs the worker controls
	OfflineMessage string        `yaml:"offline_message" toml:"offline_message"` // body of the offline placeholder
	RecordFallback bool          `yaml:"record_fallback" toml:"record_fallback"` // serve records when offline
	QueueWorkers   int           `yaml:"queue_workers" toml:"queue_workers"`
	FetchTimeout   time.Duration `yaml:"fetch_timeout" toml:"fetch_timeout"`
}

// DatabaseConfig holds SQLite connection settings.
type DatabaseConfig struct {
	MaxOpenConns int `yaml:"max_open_conns" toml:"max_open_conns"`
	MaxIdleConns int `yaml:"max_idle_conns" toml:"max_idle_conns"`
	BusyTimeout  int `yaml:"busy_timeout" toml:"busy_timeout"` // milliseconds
}

// StatusConfig configures the online/offline probe.
type StatusConfig struct {
	ProbeURL string        `yaml:"probe_url" toml:"probe_url"` // defaults to the worker origin
	Interval time.Duration `yaml:"interval" toml:"interval"`
}

// ServeConfig holds listen addresses for `tasklet serve`.
type ServeConfig struct {
	Addr       string `yaml:"addr" toml:"addr"`               // worker proxy and /metrics
	OriginAddr string `yaml:"origin_addr" toml:"origin_addr"` // embedded shell origin
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	Theme string `yaml:"theme" toml:"theme"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Worker: WorkerConfig{
			Version:        "todo-pwa-v1",
			Origin:         "http://127.0.0.1:8080/",
			Assets:         slices.Clone(web.Assets),
			Scope:          []string{"/**"},
			OfflineMessage: "오프라인 상태입니다.",
			QueueWorkers:   4,
			FetchTimeout:   10 * time.Second,
		},
		Database: DatabaseConfig{
			MaxOpenConns: 10,
			MaxIdleConns: 5,
			BusyTimeout:  5000,
		},
		Status: StatusConfig{
			Interval: 5 * time.Second,
		},
		Serve: ServeConfig{
			Addr:       "127.0.0.1:8090",
			OriginAddr: "127.0.0.1:8080",
		},
		TUI: TUIConfig{
			Theme: styles.DefaultTheme,
		},
	}
}

// Load reads configuration from the given path and sets the data directory.
// Files ending in .toml are parsed as TOML, anything else as YAML. If
// configPath is empty or doesn't exist, returns defaults with the provided dataDir.
func Load(configPath, dataDir string) (*Config, error) {
	cfg := DefaultConfig()

	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			data, err := os.ReadFile(configPath)
			if err != nil {
				return nil, fmt.Errorf("read config file: %w", err)
			}

			if err := decode(configPath, data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file: %w", err)
			}
		}
	}

	cfg.DataDir = dataDir
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func decode(path string, data []byte, cfg *Config) error {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		_, err := toml.Decode(string(data), cfg)
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

// applyDefaults sets default values for any unset configuration options.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()

	if c.Worker.Version == "" {
		c.Worker.Version = defaults.Worker.Version
	}
	if c.Worker.Origin == "" {
		c.Worker.Origin = defaults.Worker.Origin
	}
	if c.Worker.Assets == nil {
		c.Worker.Assets = defaults.Worker.Assets
	}
	if len(c.Worker.Scope) == 0 {
		c.Worker.Scope = defaults.Worker.Scope
	}
	if c.Worker.OfflineMessage == "" {
		c.Worker.OfflineMessage = defaults.Worker.OfflineMessage
	}
	if c.Worker.QueueWorkers == 0 {
		c.Worker.QueueWorkers = defaults.Worker.QueueWorkers
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = defaults.Database.MaxOpenConns
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = defaults.Database.MaxIdleConns
	}
	if c.Database.BusyTimeout == 0 {
		c.Database.BusyTimeout = defaults.Database.BusyTimeout
	}
	if c.Status.Interval == 0 {
		c.Status.Interval = defaults.Status.Interval
	}
	if c.Serve.Addr == "" {
		c.Serve.Addr = defaults.Serve.Addr
	}
	if c.Serve.OriginAddr == "" {
		c.Serve.OriginAddr = defaults.Serve.OriginAddr
	}
	if c.TUI.Theme == "" {
		c.TUI.Theme = defaults.TUI.Theme
	}
}

// Validate checks that the configuration is valid.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data directory cannot be empty")
	}

	if c.Worker.Version == "" {
		return fmt.Errorf("worker.version cannot be empty")
	}

	if _, err := c.OriginURL(); err != nil {
		return err
	}

	if c.Worker.QueueWorkers < 1 {
		return fmt.Errorf("worker.queue_workers must be at least 1")
	}

	if c.Worker.FetchTimeout < 0 {
		return fmt.Errorf("worker.fetch_timeout cannot be negative")
	}

	if c.Database.MaxOpenConns < 1 {
		return fmt.Errorf("database.max_open_conns must be at least 1")
	}

	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}

	if c.Database.BusyTimeout < 0 {
		return fmt.Errorf("database.busy_timeout cannot be negative")
	}

	if c.Status.Interval <= 0 {
		return fmt.Errorf("status.interval must be positive")
	}

	if _, ok := styles.GetPalette(c.TUI.Theme); !ok {
		return fmt.Errorf("tui.theme %q is not one of %s", c.TUI.Theme, strings.Join(styles.ThemeNames(), ", "))
	}

	return nil
}

// OriginURL parses worker.origin. The origin must be an absolute http(s) URL.
func (c *Config) OriginURL() (*url.URL, error) {
	u, err := url.Parse(c.Worker.Origin)
	if err != nil {
		return nil, fmt.Errorf("worker.origin: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("worker.origin must be an absolute http(s) URL, got %q", c.Worker.Origin)
	}
	if u.Path == "" {
		u.Path = "/"
	}
	return u, nil
}

// ProbeURL returns the URL the status prober checks.
func (c *Config) ProbeURL() string {
	if c.Status.ProbeURL != "" {
		return c.Status.ProbeURL
	}
	return c.Worker.Origin
}
