// Vitals - Personal Fitness Data Sync and Dashboard API
// Copyright 2026 M. Baxter (mbaxter)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/mbaxter/vitals

// Package main is the entry point for the Vitals server.
//
// Vitals is the backend of a personal portfolio site: it keeps WHOOP and
// Strava OAuth tokens fresh, pulls fitness records into an embedded DuckDB
// store on a schedule, exposes health diagnostics, relays chatbot requests to
// an LLM provider, and pushes live sync updates to the dashboard over
// WebSocket.
//
// # Startup order
//
//  1. Configuration (Koanf v2: defaults → config.yaml → environment)
//  2. Logging (zerolog)
//  3. Database (DuckDB, schema creation, checkpoint on close)
//  4. Token service and provider clients (WHOOP circuit-broken)
//  5. WebSocket hub
//  6. Sync orchestrator
//  7. HTTP server (chi)
//
// # Signal handling
//
// SIGINT/SIGTERM stop the HTTP server with a 10-second drain timeout, then
// the hub, then checkpoint and close the database.
//
// # Configuration
//
// See .env.example for the full variable list. The server boots with partial
// configuration: missing secrets are reported by /api/v1/health rather than
// failing startup.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbaxter/vitals/internal/api"
	"github.com/mbaxter/vitals/internal/chat"
	"github.com/mbaxter/vitals/internal/config"
	"github.com/mbaxter/vitals/internal/database"
	"github.com/mbaxter/vitals/internal/logging"
	"github.com/mbaxter/vitals/internal/oauth"
	"github.com/mbaxter/vitals/internal/sync"
	ws "github.com/mbaxter/vitals/internal/websocket"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("db_path", cfg.Database.Path).
		Bool("whoop_configured", cfg.Whoop.Configured()).
		Bool("strava_configured", cfg.Strava.Configured()).
		Msg("Starting Vitals")

	db, err := database.New(&cfg.Database)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	logging.Info().Msg("Database initialized")

	// Token lifecycle: one OAuth client per provider, one service, one policy.
	whoopAuth := oauth.NewWhoopClient(&cfg.Whoop)
	stravaAuth := oauth.NewStravaClient(&cfg.Strava)
	tokens := oauth.NewService(db, cfg.Sync.RefreshDelay, whoopAuth, stravaAuth)

	// Fetch clients. The WHOOP client is circuit-broken so a degraded
	// upstream fails fast instead of stalling every run.
	whoopAPI := sync.NewCircuitBreakerWhoopClient(sync.NewWhoopClient(&cfg.Whoop, &cfg.Sync))
	stravaAPI := sync.NewStravaClient(&cfg.Strava, &cfg.Sync)

	hub := ws.NewHub()
	hubCtx, stopHub := context.WithCancel(context.Background())
	hubDone := make(chan struct{})
	go func() {
		defer close(hubDone)
		if err := hub.Run(hubCtx); err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Websocket hub stopped unexpectedly")
		}
	}()

	orchestrator := sync.NewOrchestrator(
		db, tokens, whoopAPI, stravaAPI, hub,
		cfg.Sync.WindowDays, cfg.Sync.UserDelay,
	)

	chatRelay := chat.NewClient(&cfg.Chat)
	wsHandler := ws.NewHandler(hub, cfg.Security.CORSOrigins)

	server := api.NewServer(
		cfg, db, orchestrator,
		whoopAPI, stravaAPI,
		chatRelay, wsHandler,
		whoopAuth, stravaAuth,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", addr).Msg("HTTP server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logging.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.Error().Err(err).Msg("HTTP server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown failed")
	}

	stopHub()
	select {
	case <-hubDone:
	case <-shutdownCtx.Done():
		logging.Warn().Msg("Websocket hub did not stop before timeout")
	}

	if err := db.Checkpoint(shutdownCtx); err != nil {
		logging.Warn().Err(err).Msg("Final checkpoint failed")
	}

	logging.Info().Msg("Vitals stopped")
}
