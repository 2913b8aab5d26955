package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jkaninda/kituo/internal/bot"
	"github.com/jkaninda/kituo/internal/config"
	"github.com/jkaninda/kituo/internal/digest"
	"github.com/jkaninda/kituo/internal/gateway/telegram"
	"github.com/jkaninda/kituo/internal/lifecycle"
	"github.com/jkaninda/kituo/internal/observability"
	"github.com/jkaninda/kituo/internal/ratelimit"
	"github.com/jkaninda/kituo/internal/storage"
	pgstore "github.com/jkaninda/kituo/internal/storage/postgres"
	sqlitestore "github.com/jkaninda/kituo/internal/storage/sqlite"
	goutils "github.com/jkaninda/go-utils"
)

var (
	serveConfigPath string
	serveListenAddr string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the bot (webhook or long-polling mode)",
	RunE:  runServe,
}

func init() {
	// Register flags on both root and serve so that
	// `kituo --config path` and `kituo serve --config path` both work.
	for _, cmd := range []*cobra.Command{rootCmd, serveCmd} {
		cmd.Flags().StringVar(&serveConfigPath, "config", config.DefaultConfigPath(), "path to config file")
		cmd.Flags().StringVar(&serveListenAddr, "listen", "", "override webhook listen address (e.g. :8080)")
	}
}

// runServe starts the bot: storage, router, Telegram gateway, and the
// optional digest scheduler.
func runServe(_ *cobra.Command, _ []string) error {
	logger := newLogger()

	cfg, err := config.Load(goutils.Env("KITUO_CONFIG", serveConfigPath))
	if err != nil {
		return err
	}

	// Apply CLI overrides.
	if serveListenAddr != "" {
		cfg.Telegram.ListenAddr = serveListenAddr
	}

	logger.Info("starting call-center bot",
		slog.String("config", serveConfigPath),
		slog.String("storage", cfg.StorageDriverName()),
	)

	// Signal-aware context.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Ensure data directory exists.
	dataDir := cfg.ResolvedDataDir()
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return fmt.Errorf("creating data directory %s: %w", dataDir, err)
	}

	// Observability.
	var metrics *observability.MetricsCollector
	var tracingCfg *config.TracingConfig
	if cfg.Observability != nil {
		if cfg.Observability.Metrics != nil && cfg.Observability.Metrics.Enabled {
			metrics = observability.NewMetricsCollector()
		}
		tracingCfg = cfg.Observability.Tracing
	}

	tracer, err := observability.NewTracerSetup(tracingCfg)
	if err != nil {
		return fmt.Errorf("initializing tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(shutdownCtx); err != nil {
			logger.Error("shutting down tracing", slog.String("error", err.Error()))
		}
	}()

	health := observability.NewHealthChecker(logger)

	// Storage.
	store, err := initStore(cfg, logger)
	if err != nil {
		return fmt.Errorf("initializing storage: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing store", slog.String("error", err.Error()))
		}
	}()

	if err := store.Migrate(ctx); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	health.AddCheck("database", store.Ping)

	if metrics != nil {
		if instrumented, ok := store.(*pgstore.Store); ok {
			instrumented.SetOperationObserver(func(op string, seconds float64) {
				metrics.StoreOpDuration.WithLabelValues(op).Observe(seconds)
			})
		}
	}

	// Request lifecycle engine and router.
	engine := lifecycle.New(store, logger)
	router := bot.NewRouter(store, engine, logger)

	limiter := ratelimit.NewLimiter(ratelimit.Config{
		RequestsPerMinute: cfg.Telegram.RateLimit.RequestsPerMinute,
		BurstSize:         cfg.Telegram.RateLimit.BurstSize,
	})

	// Telegram gateway.
	gwCfg := telegram.Config{
		BotToken:      cfg.Telegram.BotToken,
		WebhookURL:    cfg.Telegram.WebhookURL,
		ListenAddr:    cfg.Telegram.Addr(),
		AllowedChats:  cfg.Telegram.AllowedChats,
		PollTimeout:   cfg.Telegram.PollTimeoutSeconds,
		HealthChecker: health,
		Metrics:       metrics,
	}
	if metrics != nil {
		gwCfg.MetricsRegistry = metrics.Registry
		gwCfg.MetricsPath = cfg.Observability.Metrics.MetricsPath()
	}
	if tracer != nil {
		gwCfg.Tracer = tracer.Tracer()
	}

	gw := telegram.NewGateway(gwCfg, router, limiter, logger)

	mode := "long-polling"
	if cfg.Telegram.WebhookURL != "" {
		mode = "webhook"
	}
	logger.Info("telegram gateway configured", slog.String("mode", mode))

	// Digest scheduler (optional).
	if cfg.Digest != nil && cfg.Digest.Enabled {
		dg := digest.New(digest.Config{
			CronExpression: cfg.Digest.CronExpression,
			ChatIDs:        cfg.Digest.ChatIDs,
			Limit:          cfg.Digest.Limit(),
		}, engine, gw, logger)
		if err := dg.Start(ctx); err != nil {
			return fmt.Errorf("starting digest scheduler: %w", err)
		}
		defer dg.Stop()
	}

	// Run the gateway; wait for signal or gateway error.
	errs := make(chan error, 1)
	go func() {
		errs <- gw.Start(ctx)
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errs:
		if err != nil {
			logger.Error("gateway exited with error", slog.String("error", err.Error()))
		}
	}

	// Graceful shutdown with deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := gw.Stop(shutdownCtx); err != nil {
		logger.Error("stopping gateway", slog.String("error", err.Error()))
	}
	return nil
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
}

// initStore creates the appropriate storage backend from config.
func initStore(cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch driver := cfg.StorageDriverName(); driver {
	case "postgres":
		pgCfg := pgstore.Config{DSN: cfg.Storage.Postgres.DSN}
		pgCfg.MaxOpenConns = cfg.Storage.Postgres.MaxOpenConns
		pgCfg.MaxIdleConns = cfg.Storage.Postgres.MaxIdleConns
		pgCfg.ConnMaxLifetime = cfg.Storage.Postgres.ConnMaxLifetime()
		return pgstore.Open(pgCfg, logger)
	case "sqlite":
		dbPath := cfg.DatabasePath()
		journalMode := "wal"
		if cfg.Storage != nil && cfg.Storage.SQLite != nil {
			if cfg.Storage.SQLite.Path != "" {
				dbPath = cfg.Storage.SQLite.Path
			}
			if cfg.Storage.SQLite.JournalMode != "" {
				journalMode = cfg.Storage.SQLite.JournalMode
			}
		}
		return sqlitestore.Open(sqlitestore.Config{
			Path:        dbPath,
			JournalMode: journalMode,
		}, logger)
	default:
		return nil, fmt.Errorf("unknown storage driver: %q", driver)
	}
}
