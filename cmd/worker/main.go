// Package main provides the entrypoint for the TripRoute background worker.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/triproute/triproute/internal/api/handler"
	"github.com/triproute/triproute/internal/bootstrap"
	"github.com/triproute/triproute/internal/config"
	"github.com/triproute/triproute/internal/telemetry"
	"github.com/triproute/triproute/internal/worker"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "triproute-worker"

	log := zerolog.New(os.Stdout).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	log.Info().
		Str("build_time", BuildTime).
		Msg("starting TripRoute worker")

	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: Version,
		Environment:    cfg.App.Env,
		OTLPEndpoint:   cfg.Telemetry.OTLPEndpoint,
		Enabled:        cfg.Telemetry.Enabled,
		SampleRatio:    cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize telemetry")
	}
	defer func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	engine, err := bootstrap.NewEngine(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize routing engine")
		os.Exit(1) //nolint:gocritic // intentional exit, telemetry cleanup is best-effort
	}

	probeCfg := worker.DefaultProbeConfig()
	if trips := worker.ProbeTripsFromConfig(cfg.Worker.ProbeTrips); len(trips) > 0 {
		probeCfg.Trips = trips
	}
	probe := worker.NewProbeJob(worker.ProbeJobConfig{
		Config:  probeCfg,
		Service: engine.Service,
		Logger:  log,
	})
	processorCfg := worker.ProcessorConfig{
		Service:    engine.Service,
		Probe:      probe,
		JobTimeout: cfg.Worker.JobTimeout,
		Logger:     log,
	}

	// Worker also exposes health endpoints for Cloud Run
	ops := handler.NewOpsHandler(Version, BuildTime, engine.Registry)
	r := chi.NewRouter()
	r.Get("/health", ops.HealthCheck)
	r.Get("/ready", ops.ReadinessCheck)
	r.Get("/status", ops.SystemStatus)

	server := &http.Server{
		Addr:         ":" + strconv.Itoa(cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("health server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("health server error")
		}
	}()

	if cfg.Worker.ProjectID != "" {
		jobs, err := worker.NewPubSubHandler(ctx, worker.PubSubConfig{
			ProjectID:        cfg.Worker.ProjectID,
			SubscriptionName: cfg.Worker.Subscription,
			ResultsTopic:     cfg.Worker.ResultsTopic,
			Processor:        processorCfg,
			Logger:           log,
		})
		if err != nil {
			log.Error().Err(err).Msg("failed to create pubsub handler")
			os.Exit(1)
		}
		defer func() {
			if err := jobs.Close(); err != nil {
				log.Error().Err(err).Msg("failed to close pubsub handler")
			}
		}()

		go func() {
			if err := jobs.Start(ctx); err != nil {
				log.Error().Err(err).Msg("pubsub receive stopped")
				cancel()
			}
		}()
	} else if cfg.Worker.ProbeInterval > 0 {
		log.Info().
			Dur("interval", cfg.Worker.ProbeInterval).
			Msg("no pubsub project configured, running scheduled probes")

		go func() {
			ticker := time.NewTicker(cfg.Worker.ProbeInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					probe.Run(ctx)
				}
			}
		}()
	}

	<-ctx.Done()
	log.Info().Msg("shutting down worker")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("health server forced to shutdown")
	}

	log.Info().Msg("worker stopped")
}
