// Package main provides the TripRoute MCP server over stdio.
package main

import (
	"context"
	"os"
	"time"

	"github.com/mark3labs/mcp-go/server"
	"github.com/rs/zerolog"

	"github.com/triproute/triproute/internal/bootstrap"
	"github.com/triproute/triproute/internal/config"
	"github.com/triproute/triproute/internal/mcptools"
	"github.com/triproute/triproute/internal/telemetry"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	const serviceName = "triproute-mcp"

	// stdout carries the protocol; logs go to stderr
	log := zerolog.New(os.Stderr).
		With().
		Timestamp().
		Str("service", serviceName).
		Str("version", Version).
		Logger()

	cfg, err := config.Load(serviceName)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	ctx := context.Background()
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
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if shutdownErr := tp.Shutdown(shutdownCtx); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("failed to shutdown telemetry")
		}
	}()

	engine, err := bootstrap.NewEngine(cfg, log)
	if err != nil {
		log.Error().Err(err).Msg("failed to initialize routing engine")
		return
	}

	srv := mcptools.NewServer(mcptools.New(engine.Service, log))

	log.Info().
		Str("build_time", BuildTime).
		Str("server", mcptools.ServerName).
		Msg("serving MCP over stdio")

	if err := server.ServeStdio(srv); err != nil {
		log.Error().Err(err).Msg("MCP server stopped")
	}
}
