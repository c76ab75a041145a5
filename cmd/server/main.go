// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

// Package main runs the Stockroom order notification server.
//
// One process serves the storefront webhook, the broadcast WebSocket
// endpoint and the internal publish API. With PUBLISHER_MODE=remote it is
// a webhook receiver only and forwards events to a broadcast server at
// PUBLISHER_REMOTE_URL.
//
// Startup order:
//
//  1. Configuration (Koanf: defaults, config.yaml, environment)
//  2. Broadcast hub and WebSocket endpoint (unless PUBLISHER_MODE=remote)
//  3. Publisher (local, remote or bus) and the webhook handler
//  4. Chi router and HTTP server
//  5. Supervisor tree: hub, bus bridge, HTTP server
//
// SIGINT and SIGTERM cancel the tree. The HTTP server drains for up to 10s
// and the hub closes every client connection.
//
// Example:
//
//	export WEBHOOK_SECRET=$(openssl rand -hex 32)
//	export CORS_ORIGINS=https://admin.example.com
//	./stockroom-server
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/stockroom/internal/api"
	"github.com/tomtom215/stockroom/internal/broadcast"
	"github.com/tomtom215/stockroom/internal/config"
	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/publisher"
	"github.com/tomtom215/stockroom/internal/supervisor"
	"github.com/tomtom215/stockroom/internal/supervisor/services"
	"github.com/tomtom215/stockroom/internal/webhook"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Caller:  cfg.Logging.Caller,
		Service: "stockroom-server",
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("publisher_mode", cfg.Publisher.Mode).
		Bool("webhook_enabled", cfg.Webhook.Enabled).
		Msg("Starting Stockroom notification server")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server stopped with error")
	}
	logging.Info().Msg("Application stopped gracefully")
}

func run(cfg *config.Config) error {
	var (
		hub      *broadcast.Hub
		wsServer *broadcast.Server
	)
	if cfg.Publisher.Mode != config.PublisherModeRemote {
		hub = broadcast.NewHub(nil)
		wsServer = broadcast.NewServer(hub, broadcast.ServerOptions{
			Client:         clientOptions(cfg.Broadcast),
			AllowedOrigins: cfg.Security.CORSOrigins,
		})
	}

	// A nil *Hub must not become a non-nil interface.
	var orderHub publisher.OrderHub
	if hub != nil {
		orderHub = hub
	}
	pub, bridge, err := publisher.New(&cfg.Publisher, orderHub)
	if err != nil {
		return fmt.Errorf("create publisher: %w", err)
	}
	if closer, ok := pub.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				logging.Warn().Err(err).Msg("Error closing publisher")
			}
		}()
	}

	var wh *webhook.Handler
	if cfg.Webhook.Enabled {
		wh, err = webhook.NewHandler(pub, webhook.Options{
			Secret:           []byte(cfg.Webhook.Secret),
			SignatureHeaders: cfg.Webhook.SignatureHeaders,
			ReplayWindow:     cfg.Webhook.ReplayWindow,
			MaxBodyBytes:     cfg.Webhook.MaxBodyBytes,
			Room:             cfg.Webhook.AdminRoom,
		})
		if err != nil {
			return fmt.Errorf("create webhook handler: %w", err)
		}
		logging.Info().
			Str("room", cfg.Webhook.AdminRoom).
			Dur("replay_window", cfg.Webhook.ReplayWindow).
			Msg("Webhook endpoint enabled")
	} else {
		logging.Warn().Msg("Webhook endpoint disabled (WEBHOOK_ENABLED=false)")
	}

	opts := api.Options{Config: cfg, Webhook: wh}
	if hub != nil {
		opts.Hub = hub
		opts.WebSocket = wsServer
	}
	if bridge != nil {
		opts.Checks = append(opts.Checks, api.ChannelCheck("event_bus", bridge.Ready()))
	}
	router := api.NewRouter(opts)

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	if hub != nil {
		tree.AddMessagingService(services.NewHubService(hub))
	}
	if bridge != nil {
		tree.AddMessagingService(services.NewBridgeService(bridge))
		logging.Info().Str("topic", cfg.Publisher.BusTopic).Msg("Event bus bridge added to supervisor tree")
	}
	tree.AddAPIService(services.NewHTTPServerService("webhook-api", server, 10*time.Second))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logging.Info().Msg("Starting supervisor tree...")
	errCh := tree.ServeBackground(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, waiting for supervisor to finish...")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			runErr = err
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop within timeout")
		}
	}
	return runErr
}

func clientOptions(b config.BroadcastConfig) broadcast.ClientOptions {
	opts := broadcast.DefaultClientOptions()
	if b.SendBuffer > 0 {
		opts.SendBuffer = b.SendBuffer
	}
	if b.MaxMessageSize > 0 {
		opts.MaxMessageSize = b.MaxMessageSize
	}
	if b.WriteWait > 0 {
		opts.WriteWait = b.WriteWait
	}
	if b.PongWait > 0 {
		opts.PongWait = b.PongWait
	}
	if b.PingPeriod > 0 {
		opts.PingPeriod = b.PingPeriod
	}
	if b.InboundRate > 0 {
		opts.InboundRate = b.InboundRate
	}
	if b.InboundBurst > 0 {
		opts.InboundBurst = b.InboundBurst
	}
	return opts
}
