package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/emberalert/fire-risk/internal/api"
	"github.com/emberalert/fire-risk/internal/app/server"
	"github.com/emberalert/fire-risk/internal/cache"
	"github.com/emberalert/fire-risk/internal/cache/memstore"
	"github.com/emberalert/fire-risk/internal/cache/predcache"
	"github.com/emberalert/fire-risk/internal/cache/redisstore"
	"github.com/emberalert/fire-risk/internal/core/config"
	"github.com/emberalert/fire-risk/internal/core/observability"
	"github.com/emberalert/fire-risk/internal/invalidation/kafkaconsumer"
	"github.com/emberalert/fire-risk/internal/logger"
	"github.com/emberalert/fire-risk/internal/predict"
	"github.com/emberalert/fire-risk/internal/scoring"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "api",
	}, os.Stdout)
	appLog := logger.NewSlog(&zl)

	observability.ExposeBuildInfo(Version)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var backend cache.Backend
	if cfg.RedisAddr != "" {
		rc, err := redisstore.New(ctx, cfg.RedisAddr)
		if err != nil {
			zl.Error().Err(err).Str("addr", cfg.RedisAddr).Msg("redis unavailable")
			return 1
		}
		defer func() { _ = rc.Close() }()
		backend = rc
	} else {
		zl.Warn().Msg("no redis configured, using in-process cache")
		backend = memstore.New(cfg.MemCacheSize, 0)
	}

	store := predcache.New(backend, cfg.CacheTTL, cfg.CacheOpTimeout, zl)

	// A missing model artifact degrades the service rather than killing
	// it: health reports degraded and predictions return 503.
	var m scoring.Model
	loaded, err := scoring.Load(cfg.ModelPath)
	switch {
	case err == nil:
		m = loaded
		zl.Info().Str("path", cfg.ModelPath).Str("version", loaded.Version()).Msg("model loaded")
	case errors.Is(err, scoring.ErrNotLoaded):
		zl.Warn().Err(err).Msg("model artifact missing, serving degraded")
	default:
		zl.Error().Err(err).Msg("model load failed")
		return 1
	}

	svc := predict.New(m, store, zl)
	handler := api.NewRouter(api.NewHandler(svc, cfg.MaxBatch, zl), appLog)

	if cfg.Invalidation.Enabled {
		consumer := kafkaconsumer.New(
			kafkaconsumer.NewConfig(cfg.Invalidation.Brokers, cfg.Invalidation.Topic, cfg.Invalidation.GroupID),
			store, zl.With().Str("component", "kafka_consumer").Logger())
		go func() {
			if err := consumer.Start(ctx); err != nil {
				zl.Error().Err(err).Msg("rollout consumer stopped")
			}
		}()
	}

	appLog.Info("starting api", "addr", cfg.Addr, "version", Version, "model_loaded", m != nil)

	if err := server.Run(ctx, cfg.Addr, handler, appLog); err != nil {
		appLog.Error("server failed", "err", err)
		return 1
	}
	return 0
}
