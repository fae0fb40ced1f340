package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/robfig/cron/v3"

	"github.com/emberalert/fire-risk/internal/core/config"
	"github.com/emberalert/fire-risk/internal/etl"
	"github.com/emberalert/fire-risk/internal/etl/extract"
	"github.com/emberalert/fire-risk/internal/logger"
	"github.com/emberalert/fire-risk/internal/storage"
)

var Version = "dev"

func main() {
	os.Exit(run())
}

func run() int {
	once := flag.Bool("once", false, "run a single ingestion pass and exit")
	flag.Parse()

	cfg := config.FromEnv()

	zl := logger.Build(logger.Config{
		Level:     cfg.LogLevel,
		Console:   strings.ToLower(os.Getenv("LOG_CONSOLE")) == "true",
		Component: "etl",
	}, os.Stdout)

	if cfg.Weather.APIKey == "" {
		zl.Error().Msg("WEATHER_API_KEY is required")
		return 1
	}

	locations, err := etl.ParseLocations(cfg.ETLLocations)
	if err != nil {
		zl.Error().Err(err).Msg("bad ETL_LOCATIONS")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, cfg.PostgresDSN)
	if err != nil {
		zl.Error().Err(err).Msg("postgres unavailable")
		return 1
	}
	defer store.Close()

	client := extract.New(cfg.Weather, zl)
	pipeline := etl.NewPipeline(client, store, locations, cfg.ModelVersion, cfg.H3Res, zl)

	zl.Info().
		Str("version", Version).
		Int("locations", len(locations)).
		Str("schedule", cfg.ETLSchedule).
		Bool("once", *once).
		Msg("starting etl")

	if *once {
		if err := pipeline.Run(ctx); err != nil {
			zl.Error().Err(err).Msg("ingestion run failed")
			return 1
		}
		return 0
	}

	c := cron.New()
	if _, err := c.AddFunc(cfg.ETLSchedule, func() {
		if err := pipeline.Run(ctx); err != nil {
			zl.Error().Err(err).Msg("scheduled ingestion run failed")
		}
	}); err != nil {
		zl.Error().Err(err).Str("schedule", cfg.ETLSchedule).Msg("bad cron schedule")
		return 1
	}

	// One pass on startup so a fresh deployment has data before the
	// first scheduled tick.
	if err := pipeline.Run(ctx); err != nil {
		zl.Error().Err(err).Msg("initial ingestion run failed")
	}

	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()

	zl.Info().Msg("etl stopped")
	return 0
}
