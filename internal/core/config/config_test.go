package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/tasklet/internal/web"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), dataDir)
	require.NoError(t, err)

	assert.Equal(t, dataDir, cfg.DataDir)
	assert.Equal(t, "todo-pwa-v1", cfg.Worker.Version)
	assert.Equal(t, "http://127.0.0.1:8080/", cfg.Worker.Origin)
	assert.Equal(t, []string{"./", "./index.html", "./styles.css", "./app.js", "./manifest.json"}, cfg.Worker.Assets)
	assert.Equal(t, "오프라인 상태입니다.", cfg.Worker.OfflineMessage)
	assert.False(t, cfg.Worker.RecordFallback)
	assert.Equal(t, 4, cfg.Worker.QueueWorkers)
	assert.Equal(t, 5000, cfg.Database.BusyTimeout)
	assert.Equal(t, 5*time.Second, cfg.Status.Interval)
	assert.Equal(t, "http://127.0.0.1:8080/", cfg.ProbeURL())
	assert.Equal(t, "tokyo-night", cfg.TUI.Theme)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
worker:
  version: todo-pwa-v2
  origin: http://localhost:9000/app/
  record_fallback: true
  fetch_timeout: 3s
  scope: ["/app/**"]
database:
  busy_timeout: 100
status:
  probe_url: http://localhost:9000/health
  interval: 1m
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "todo-pwa-v2", cfg.Worker.Version)
	assert.True(t, cfg.Worker.RecordFallback)
	assert.Equal(t, 3*time.Second, cfg.Worker.FetchTimeout)
	assert.Equal(t, []string{"/app/**"}, cfg.Worker.Scope)
	assert.Equal(t, 100, cfg.Database.BusyTimeout)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns, "unset values fall back to defaults")
	assert.Equal(t, time.Minute, cfg.Status.Interval)
	assert.Equal(t, "http://localhost:9000/health", cfg.ProbeURL())

	origin, err := cfg.OriginURL()
	require.NoError(t, err)
	assert.Equal(t, "/app/", origin.Path)
}

func TestLoad_TOML(t *testing.T) {
	path := writeFile(t, "config.toml", `
[worker]
version = "todo-pwa-v3"
assets = ["./index.html"]
offline_message = "offline"
queue_workers = 2

[serve]
addr = "0.0.0.0:9999"
`)

	cfg, err := Load(path, t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, "todo-pwa-v3", cfg.Worker.Version)
	assert.Equal(t, []string{"./index.html"}, cfg.Worker.Assets)
	assert.Equal(t, "offline", cfg.Worker.OfflineMessage)
	assert.Equal(t, 2, cfg.Worker.QueueWorkers)
	assert.Equal(t, "0.0.0.0:9999", cfg.Serve.Addr)
	assert.Equal(t, "127.0.0.1:8080", cfg.Serve.OriginAddr)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("malformed yaml", func(t *testing.T) {
		path := writeFile(t, "config.yml", "worker: [unclosed")
		_, err := Load(path, t.TempDir())
		assert.ErrorContains(t, err, "parse config file")
	})

	t.Run("malformed toml", func(t *testing.T) {
		path := writeFile(t, "config.toml", "[worker\nversion =")
		_, err := Load(path, t.TempDir())
		assert.ErrorContains(t, err, "parse config file")
	})

	t.Run("invalid values", func(t *testing.T) {
		path := writeFile(t, "config.yaml", "worker:\n  origin: ftp://example.com/\n")
		_, err := Load(path, t.TempDir())
		assert.ErrorContains(t, err, "invalid config")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid",
			mutate: func(*Config) {},
		},
		{
			name:    "empty data dir",
			mutate:  func(c *Config) { c.DataDir = "" },
			wantErr: "data directory cannot be empty",
		},
		{
			name:    "empty version",
			mutate:  func(c *Config) { c.Worker.Version = "" },
			wantErr: "worker.version cannot be empty",
		},
		{
			name:    "relative origin",
			mutate:  func(c *Config) { c.Worker.Origin = "/just/a/path" },
			wantErr: "absolute http(s) URL",
		},
		{
			name:    "no queue workers",
			mutate:  func(c *Config) { c.Worker.QueueWorkers = 0 },
			wantErr: "worker.queue_workers",
		},
		{
			name:    "negative fetch timeout",
			mutate:  func(c *Config) { c.Worker.FetchTimeout = -time.Second },
			wantErr: "worker.fetch_timeout",
		},
		{
			name:    "no connections",
			mutate:  func(c *Config) { c.Database.MaxOpenConns = 0 },
			wantErr: "database.max_open_conns",
		},
		{
			name:    "unknown theme",
			mutate:  func(c *Config) { c.TUI.Theme = "neon" },
			wantErr: "tui.theme",
		},
		{
			name:    "zero probe interval",
			mutate:  func(c *Config) { c.Status.Interval = 0 },
			wantErr: "status.interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.DataDir = t.TempDir()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestDefaultConfig_AssetsFollowEmbeddedShell(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, web.Assets, cfg.Worker.Assets)

	cfg.Worker.Assets[0] = "./changed.html"
	assert.Equal(t, "./", web.Assets[0], "config owns its copy")
}
