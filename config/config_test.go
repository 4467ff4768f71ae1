package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rustyeddy/stockbot/risk"
	"github.com/rustyeddy/stockbot/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.NotNil(t, cfg)
	assert.Equal(t, "http://localhost:3000", cfg.Gateway.BaseURL)
	assert.Equal(t, 30, cfg.Engine.WarmupPoints)
	assert.False(t, cfg.Engine.Armed)
	assert.Equal(t, 500*time.Millisecond, cfg.Scheduler.IngestInterval)
	assert.Equal(t, "127.0.0.1:8090", cfg.Control.Addr)
	assert.Equal(t, risk.DefaultPolicy(), cfg.Policy())
	assert.NotEmpty(t, cfg.Sim.Instruments)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		errMsg string
	}{
		{"valid config", func(c *Config) {}, ""},
		{"missing base url", func(c *Config) { c.Gateway.BaseURL = "" }, "gateway.base_url is required"},
		{"zero timeout", func(c *Config) { c.Gateway.Timeout = 0 }, "gateway.timeout must be positive"},
		{"zero warmup", func(c *Config) { c.Engine.WarmupPoints = 0 }, "engine.warmup_points must be at least 1"},
		{"drawdown of one", func(c *Config) { c.Engine.MaxDrawdown = 1 }, "engine.max_drawdown must be between 0 and 1"},
		{"kelly above one", func(c *Config) { c.Engine.MaxKelly = 1.5 }, "engine.max_kelly must be between 0 and 1"},
		{"no share cap", func(c *Config) { c.Engine.MaxSharesPerOrder = 0 }, "engine.max_shares_per_order must be positive"},
		{"inverted clip", func(c *Config) { c.Engine.ClipLow, c.Engine.ClipHigh = 1.1, 0.9 }, "engine.clip_low"},
		{"bad mode", func(c *Config) { c.Scheduler.Mode = "parallel" }, "scheduler.mode"},
		{"coupled ignores decide interval", func(c *Config) {
			c.Scheduler.Mode = scheduler.Coupled
			c.Scheduler.DecideInterval = 0
		}, ""},
		{"decoupled needs decide interval", func(c *Config) { c.Scheduler.DecideInterval = 0 }, "scheduler.decide_interval must be positive"},
		{"sqlite without path", func(c *Config) { c.Journal.DBPath = "" }, "journal db_path required for SQLite type"},
		{"csv without files", func(c *Config) { c.Journal.Type = "csv" }, "journal intents_file and equity_file required"},
		{"postgres without host", func(c *Config) { c.Journal.Type = "postgres" }, "journal postgres host and name required"},
		{"unknown journal", func(c *Config) { c.Journal.Type = "kafka" }, "journal.type must be"},
		{"no journal", func(c *Config) { c.Journal = JournalConfig{Type: "none"} }, ""},
		{"control without addr", func(c *Config) { c.Control = ControlConfig{Enabled: true} }, "control.addr is required"},
		{"sim instrument without price", func(c *Config) { c.Sim.Instruments[0].Model.Core = 0 }, "sim.instruments[0].model.core must be positive"},
		{"bad log level", func(c *Config) { c.Log.Level = "loud" }, "log.level"},
		{"bad log format", func(c *Config) { c.Log.Format = "xml" }, "log.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.errMsg == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadFromFileYAML(t *testing.T) {
	t.Setenv("STOCKBOT_TOKEN", "s3cret")

	path := filepath.Join(t.TempDir(), "bot.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
gateway:
  base_url: http://dashboard:3000
  token: ${STOCKBOT_TOKEN}
  timeout: 2s
engine:
  armed: true
  warmup_points: 40
scheduler:
  mode: coupled
  ingest_interval: 250ms
journal:
  type: none
log:
  level: debug
  format: json
`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://dashboard:3000", cfg.Gateway.BaseURL)
	assert.Equal(t, "s3cret", cfg.Gateway.Token)
	assert.Equal(t, 2*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, 3, cfg.Gateway.Retries, "unset fields keep their defaults")
	assert.True(t, cfg.Engine.Armed)
	assert.Equal(t, 40, cfg.Engine.WarmupPoints)
	assert.Equal(t, 0.30, cfg.Engine.MaxDrawdown)
	assert.Equal(t, scheduler.Coupled, cfg.Scheduler.Mode)
	assert.Equal(t, 250*time.Millisecond, cfg.Scheduler.IngestInterval)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFromFileJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"gateway":{"base_url":"http://x"},"journal":{"type":"none"}}`), 0644))

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "http://x", cfg.Gateway.BaseURL)
	assert.Equal(t, "none", cfg.Journal.Type)
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorContains(t, err, "read config file")

	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateway: [unterminated"), 0644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "parse config")

	path = filepath.Join(t.TempDir(), "invalid.yaml")
	require.NoError(t, os.WriteFile(path, []byte("engine:\n  max_drawdown: 2\n"), 0644))
	_, err = LoadFromFile(path)
	assert.ErrorContains(t, err, "invalid config")
}

func TestSaveRoundTrip(t *testing.T) {
	for _, name := range []string{"bot.yaml", "bot.yml", "bot.json"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), name)
			cfg := Default()
			cfg.Engine.WarmupPoints = 55
			cfg.Scheduler.DecideInterval = 2 * time.Second

			require.NoError(t, cfg.SaveToFile(path))
			got, err := LoadFromFile(path)
			require.NoError(t, err)
			assert.Equal(t, cfg, got)
		})
	}
}
