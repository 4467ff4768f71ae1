package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/rustyeddy/stockbot/broker/httpapi"
	"github.com/rustyeddy/stockbot/config"
	"github.com/rustyeddy/stockbot/journal"
	"github.com/rustyeddy/stockbot/market"
)

func loadConfig() (*config.Config, error) {
	cfg := config.Default()
	if configPath != "" {
		var err error
		cfg, err = config.LoadFromFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, nil
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

// newLogger builds the root logger and installs it as the default.
func newLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(cfg.Level)}

	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	logger := slog.New(h)
	slog.SetDefault(logger)
	return logger
}

func openJournal(ctx context.Context, cfg config.JournalConfig) (journal.Journal, error) {
	switch cfg.Type {
	case "sqlite":
		return journal.NewSQLite(cfg.DBPath)
	case "csv":
		return journal.NewCSV(cfg.IntentsFile, cfg.EquityFile)
	case "postgres":
		return journal.NewPostgres(ctx, cfg.Postgres)
	case "none", "":
		return journal.Nop{}, nil
	}
	return nil, fmt.Errorf("unknown journal type %q", cfg.Type)
}

// openMirror dials Redis when a history address is configured. It returns
// nil without error otherwise.
func openMirror(ctx context.Context, cfg config.HistoryConfig) (*market.RedisMirror, error) {
	if cfg.RedisAddr == "" {
		return nil, nil
	}
	client, err := market.DialRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, err
	}
	return market.NewRedisMirror(client), nil
}

func newGateway(cfg config.GatewayConfig, logger *slog.Logger) *httpapi.Client {
	return httpapi.NewClient(cfg.BaseURL,
		httpapi.WithToken(cfg.Token),
		httpapi.WithTimeout(cfg.Timeout),
		httpapi.WithRetries(cfg.Retries, cfg.RetryBackoff),
		httpapi.WithRateLimit(cfg.RateLimit, cfg.Burst),
		httpapi.WithLogger(logger),
	)
}
