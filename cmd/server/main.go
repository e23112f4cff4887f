package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brojonat/dustwatch/service/cache"
	"github.com/brojonat/dustwatch/service/config"
	"github.com/brojonat/dustwatch/service/db"
	"github.com/brojonat/dustwatch/service/inspector"
	"github.com/brojonat/dustwatch/service/metrics"
	natspkg "github.com/brojonat/dustwatch/service/nats"
	"github.com/brojonat/dustwatch/service/outcome"
	"github.com/brojonat/dustwatch/service/server"
	"github.com/brojonat/dustwatch/service/solana"
	"github.com/brojonat/dustwatch/service/temporal"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load and validate configuration from environment
	// This fails fast if any required config is missing or invalid
	cfg := config.MustLoad()

	logger := setupLogger(cfg.LogLevel)
	logger.Info("starting server",
		"addr", cfg.ServerAddr,
		"log_level", cfg.LogLevel,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.NewMetrics(nil) // nil uses default registry

	classifier, err := outcome.New(cfg.ClassifierConfig())
	if err != nil {
		logger.Error("invalid classifier configuration", "error", err)
		os.Exit(1)
	}

	solanaOpts := []solana.Option{solana.WithMaxRetries(cfg.RPCMaxRetries)}
	if cfg.RedisURL != "" {
		rdb, err := cache.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			logger.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer rdb.Close()
		solanaOpts = append(solanaOpts, solana.WithCache(cache.NewRedisCache(rdb, cfg.CacheTTL)))
		logger.Info("connected to redis", "ttl", cfg.CacheTTL)
	}

	// Note: For premium RPC endpoints, include API key in the URL
	solanaClient := solana.NewClient(solana.NewRPCClient(cfg.SolanaRPCURL), cfg.SolanaRPCLabel, m, logger, solanaOpts...)
	logger.Info("initialized solana RPC client", "endpoint", cfg.SolanaRPCLabel)

	inspectorOpts := []inspector.Option{inspector.WithMetrics(m)}

	// Interface values stay nil unless the backing service is configured
	var reports server.ReportStore
	if cfg.DatabaseURL != "" {
		if err := db.Migrate(cfg.DatabaseURL, logger); err != nil {
			logger.Error("failed to apply migrations", "error", err)
			os.Exit(1)
		}
		pool, err := db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()
		store := db.NewStore(pool, m)
		reports = store
		inspectorOpts = append(inspectorOpts, inspector.WithStore(store))
		logger.Info("connected to database")
	}

	var subscriber natspkg.Subscriber
	if cfg.NATSURL != "" {
		publisher, err := natspkg.NewPublisher(cfg.NATSURL, m, logger)
		if err != nil {
			logger.Error("failed to create NATS publisher", "error", err)
			os.Exit(1)
		}
		defer publisher.Close()
		inspectorOpts = append(inspectorOpts, inspector.WithPublisher(publisher))

		sub, err := natspkg.NewSubscriber(cfg.NATSURL, logger)
		if err != nil {
			logger.Error("failed to create NATS subscriber", "error", err)
			os.Exit(1)
		}
		defer sub.Close()
		subscriber = sub
	}

	var scans server.ScanService
	temporalClient, err := temporal.NewClient(cfg.TemporalHost, cfg.TemporalNamespace, cfg.TemporalTaskQueue, logger)
	if err != nil {
		logger.Warn("temporal unavailable, watch and scan endpoints disabled",
			"host", cfg.TemporalHost,
			"error", err,
		)
	} else {
		defer temporalClient.Close()
		scans = temporalClient
	}

	insp := inspector.New(solanaClient, classifier, logger, inspectorOpts...)
	httpServer := server.New(cfg.ServerAddr, cfg, insp, reports, scans, subscriber, m, logger)

	logger.Info("server initialized, all dependencies ready",
		"database", reports != nil,
		"cache", cfg.RedisURL != "",
		"nats", subscriber != nil,
		"temporal", scans != nil,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(httpServer.Start)
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server error", "error", err)
		os.Exit(1)
	}
	logger.Info("server shutdown complete")
}

// setupLogger creates a structured logger with the given log level.
func setupLogger(levelStr string) *slog.Logger {
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}

	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}
