// paywalld serves the paywall decision pipeline over HTTP: event tracking,
// campaign snapshot reads and campaign refresh, plus a separate metrics
// listener.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/TimurManjosov/gopaywall/internal/api"
	"github.com/TimurManjosov/gopaywall/internal/config"
	"github.com/TimurManjosov/gopaywall/internal/presentation"
	"github.com/TimurManjosov/gopaywall/internal/snapshot"
	"github.com/TimurManjosov/gopaywall/internal/store"
	"github.com/TimurManjosov/gopaywall/internal/telemetry"
	"github.com/TimurManjosov/gopaywall/internal/trigger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fatal(zerolog.New(os.Stderr), "config load failed", err)
	}

	logger := newLogger(cfg)
	if err := cfg.Validate(); err != nil {
		fatal(logger, "config validation failed", err)
	}

	telemetry.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	assignments, err := store.NewStore(ctx, cfg.StoreType, cfg.DatabaseDSN)
	if err != nil {
		fatal(logger, "store init failed", err)
	}
	defer func() { _ = assignments.Close() }()

	snap, err := snapshot.LoadFile(cfg.CampaignFile)
	if err != nil {
		fatal(logger, "campaign load failed", err)
	}
	provider := snapshot.NewProvider()
	provider.Update(snap)
	logger.Info().
		Int("triggers", len(snap.Triggers)).
		Int("paywalls", len(snap.Paywalls)).
		Str("etag", snap.ETag).
		Msg("campaign loaded")

	pipeline, err := presentation.New(presentation.Deps{
		Config:        provider,
		Assignments:   assignments,
		Identity:      api.ImmediateIdentity{},
		Builder:       api.SnapshotBuilder{Provider: provider},
		Subscriptions: api.RequestSubscriptions{},
		Sink:          api.LogSink{Logger: logger},
		Engine:        trigger.New(nil, logger),
		Locale:        cfg.DefaultLocale,
		Logger:        logger,
	})
	if err != nil {
		fatal(logger, "pipeline init failed", err)
	}

	// Snapshot swaps from any source drop the artifact cache.
	updates, unsubscribe := provider.Subscribe()
	defer unsubscribe()
	go func() {
		for etag := range updates {
			pipeline.InvalidateArtifacts()
			logger.Info().Str("etag", etag).Msg("artifact cache invalidated")
		}
	}()

	srvAPI := api.NewServer(pipeline, provider, cfg.CampaignFile, cfg.ClientAPIKey, logger)

	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      srvAPI.Router(),
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:        cfg.MetricsAddr,
		Handler:     metricsMux,
		ReadTimeout: 3 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("http server listening")
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info().Str("addr", cfg.MetricsAddr).Msg("metrics server listening")
		if err := metricsSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = httpSrv.Shutdown(shutCtx)
		_ = metricsSrv.Shutdown(shutCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		fatal(logger, "server failed", err)
	}
	logger.Info().Msg("stopped")
}

func newLogger(cfg *config.Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger := zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	if cfg.AppEnv == "dev" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
	return logger
}

func fatal(logger zerolog.Logger, msg string, err error) {
	logger.Error().Err(err).Msg(msg)
	os.Exit(1)
}
