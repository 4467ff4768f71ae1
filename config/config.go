package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rustyeddy/stockbot/journal"
	"github.com/rustyeddy/stockbot/risk"
	"github.com/rustyeddy/stockbot/scheduler"
	"github.com/rustyeddy/stockbot/sim"
	"gopkg.in/yaml.v3"
)

// Config is the complete bot configuration.
type Config struct {
	Gateway   GatewayConfig    `json:"gateway" yaml:"gateway"`
	Engine    EngineConfig     `json:"engine" yaml:"engine"`
	Scheduler scheduler.Config `json:"scheduler" yaml:"scheduler"`
	Journal   JournalConfig    `json:"journal" yaml:"journal"`
	History   HistoryConfig    `json:"history" yaml:"history"`
	Control   ControlConfig    `json:"control" yaml:"control"`
	Sim       sim.Config       `json:"sim" yaml:"sim"`
	Log       LogConfig        `json:"log" yaml:"log"`
}

// GatewayConfig points at the dashboard backend.
type GatewayConfig struct {
	BaseURL      string        `json:"base_url" yaml:"base_url"`
	Token        string        `json:"token,omitempty" yaml:"token,omitempty"`
	Timeout      time.Duration `json:"timeout" yaml:"timeout"`
	Retries      int           `json:"retries" yaml:"retries"`
	RetryBackoff time.Duration `json:"retry_backoff" yaml:"retry_backoff"`
	RateLimit    float64       `json:"rate_limit" yaml:"rate_limit"` // requests per second
	Burst        int           `json:"burst" yaml:"burst"`
}

// EngineConfig holds the warmup, arming and risk policy.
type EngineConfig struct {
	Armed        bool `json:"armed" yaml:"armed"`
	WarmupPoints int  `json:"warmup_points" yaml:"warmup_points"`

	MaxPositionFraction float64       `json:"max_position_fraction" yaml:"max_position_fraction"`
	MaxKelly            float64       `json:"max_kelly" yaml:"max_kelly"`
	MinKellySamples     int           `json:"min_kelly_samples" yaml:"min_kelly_samples"`
	MaxDrawdown         float64       `json:"max_drawdown" yaml:"max_drawdown"`
	MaxSharesPerOrder   int           `json:"max_shares_per_order" yaml:"max_shares_per_order"`
	AffordableFraction  float64       `json:"affordable_fraction" yaml:"affordable_fraction"`
	ClipLow             float64       `json:"clip_low" yaml:"clip_low"`
	ClipHigh            float64       `json:"clip_high" yaml:"clip_high"`
	SkipWarnInterval    time.Duration `json:"skip_warn_interval" yaml:"skip_warn_interval"`
}

// JournalConfig selects where intents and equity snapshots go.
type JournalConfig struct {
	Type        string                 `json:"type" yaml:"type"` // "sqlite", "csv", "postgres" or "none"
	DBPath      string                 `json:"db_path,omitempty" yaml:"db_path,omitempty"`
	IntentsFile string                 `json:"intents_file,omitempty" yaml:"intents_file,omitempty"`
	EquityFile  string                 `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	Postgres    journal.PostgresConfig `json:"postgres,omitempty" yaml:"postgres,omitempty"`
}

// HistoryConfig enables the Redis history mirror when RedisAddr is set.
type HistoryConfig struct {
	RedisAddr     string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db"`
	Restore       bool   `json:"restore" yaml:"restore"`
}

type ControlConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Addr    string `json:"addr" yaml:"addr"`
	Token   string `json:"token,omitempty" yaml:"token,omitempty"` // bearer token, empty disables
}

type LogConfig struct {
	Level  string `json:"level" yaml:"level"`   // debug, info, warn, error
	Format string `json:"format" yaml:"format"` // text or json
}

// LoadFromFile loads configuration from a YAML or JSON file. ${VAR}
// references are expanded from the environment first.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	data = []byte(os.ExpandEnv(string(data)))

	cfg := Default()

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = Default()
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is usable.
func (c *Config) Validate() error {
	if c.Gateway.BaseURL == "" {
		return fmt.Errorf("gateway.base_url is required")
	}
	if c.Gateway.Timeout <= 0 {
		return fmt.Errorf("gateway.timeout must be positive")
	}
	if c.Gateway.Retries < 0 {
		return fmt.Errorf("gateway.retries must not be negative")
	}

	e := c.Engine
	if e.WarmupPoints < 1 {
		return fmt.Errorf("engine.warmup_points must be at least 1")
	}
	if e.MaxPositionFraction <= 0 || e.MaxPositionFraction > 1 {
		return fmt.Errorf("engine.max_position_fraction must be between 0 and 1")
	}
	if e.MaxKelly <= 0 || e.MaxKelly > 1 {
		return fmt.Errorf("engine.max_kelly must be between 0 and 1")
	}
	if e.MaxDrawdown <= 0 || e.MaxDrawdown >= 1 {
		return fmt.Errorf("engine.max_drawdown must be between 0 and 1")
	}
	if e.MaxSharesPerOrder < 1 {
		return fmt.Errorf("engine.max_shares_per_order must be positive")
	}
	if e.AffordableFraction <= 0 || e.AffordableFraction > 1 {
		return fmt.Errorf("engine.affordable_fraction must be between 0 and 1")
	}
	if e.ClipLow <= 0 || e.ClipHigh < e.ClipLow {
		return fmt.Errorf("engine.clip_low must be positive and not above engine.clip_high")
	}

	s := c.Scheduler
	if s.Mode != scheduler.Decoupled && s.Mode != scheduler.Coupled {
		return fmt.Errorf("scheduler.mode must be 'decoupled' or 'coupled'")
	}
	if s.IngestInterval <= 0 {
		return fmt.Errorf("scheduler.ingest_interval must be positive")
	}
	if s.Mode == scheduler.Decoupled && s.DecideInterval <= 0 {
		return fmt.Errorf("scheduler.decide_interval must be positive")
	}

	switch c.Journal.Type {
	case "none":
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for SQLite type")
		}
	case "csv":
		if c.Journal.IntentsFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal intents_file and equity_file required for CSV type")
		}
	case "postgres":
		if c.Journal.Postgres.Host == "" || c.Journal.Postgres.Name == "" {
			return fmt.Errorf("journal postgres host and name required for postgres type")
		}
	default:
		return fmt.Errorf("journal.type must be 'sqlite', 'csv', 'postgres' or 'none'")
	}

	if c.Control.Enabled && c.Control.Addr == "" {
		return fmt.Errorf("control.addr is required when control is enabled")
	}

	for i, inst := range c.Sim.Instruments {
		if inst.Name == "" {
			return fmt.Errorf("sim.instruments[%d].name is required", i)
		}
		if inst.Model.Core <= 0 {
			return fmt.Errorf("sim.instruments[%d].model.core must be positive", i)
		}
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return fmt.Errorf("log.format must be 'text' or 'json'")
	}
	return nil
}

// Policy converts the engine section to a risk policy.
func (c *Config) Policy() risk.Policy {
	e := c.Engine
	return risk.Policy{
		MaxPositionFraction: e.MaxPositionFraction,
		MaxKelly:            e.MaxKelly,
		MinKellySamples:     e.MinKellySamples,
		MaxDrawdown:         e.MaxDrawdown,
		MaxSharesPerOrder:   e.MaxSharesPerOrder,
		AffordableFraction:  e.AffordableFraction,
		ClipLow:             e.ClipLow,
		ClipHigh:            e.ClipHigh,
		SkipWarnInterval:    e.SkipWarnInterval,
	}
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	p := risk.DefaultPolicy()
	return &Config{
		Gateway: GatewayConfig{
			BaseURL:      "http://localhost:3000",
			Timeout:      10 * time.Second,
			Retries:      3,
			RetryBackoff: 250 * time.Millisecond,
			RateLimit:    20,
			Burst:        5,
		},
		Engine: EngineConfig{
			Armed:               false,
			WarmupPoints:        30,
			MaxPositionFraction: p.MaxPositionFraction,
			MaxKelly:            p.MaxKelly,
			MinKellySamples:     p.MinKellySamples,
			MaxDrawdown:         p.MaxDrawdown,
			MaxSharesPerOrder:   p.MaxSharesPerOrder,
			AffordableFraction:  p.AffordableFraction,
			ClipLow:             p.ClipLow,
			ClipHigh:            p.ClipHigh,
			SkipWarnInterval:    p.SkipWarnInterval,
		},
		Scheduler: scheduler.DefaultConfig(),
		Journal: JournalConfig{
			Type:   "sqlite",
			DBPath: "./stockbot.db",
		},
		Control: ControlConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8090",
		},
		Sim: sim.DefaultConfig(),
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
