// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

// Package main runs orderwatch, a headless admin client that subscribes to
// the broadcast server and keeps an in-memory notification feed.
//
// The feed is served on HTTP_HOST:HTTP_PORT:
//
//	GET  /notifications        newest first, with the unread count
//	POST /notifications/read   mark ids (JSON {"ids":[...]}), or all when ids is absent
//	GET  /connection           connection status
//	POST /connection/refresh   drop the socket and reconnect
//	GET  /health/live          liveness
//	GET  /metrics              Prometheus metrics
//
// Example:
//
//	export CLIENT_URL=ws://localhost:8080/ws
//	export CLIENT_ROOMS=admins
//	export HTTP_PORT=8081
//	./orderwatch
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

	"github.com/tomtom215/stockroom/internal/client"
	"github.com/tomtom215/stockroom/internal/config"
	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/models"
	"github.com/tomtom215/stockroom/internal/notifications"
	"github.com/tomtom215/stockroom/internal/supervisor"
	"github.com/tomtom215/stockroom/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadClient()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Caller:  cfg.Logging.Caller,
		Service: "orderwatch",
	})

	logging.Info().
		Str("url", cfg.Client.URL).
		Strs("rooms", cfg.Client.Rooms).
		Int("reconnect_attempts", cfg.Client.ReconnectAttempts).
		Msg("Starting orderwatch")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("orderwatch stopped with error")
	}
	logging.Info().Msg("orderwatch stopped gracefully")
}

func run(cfg *config.Config) error {
	manager := client.NewManager(client.Options{
		Address: cfg.Client.URL,
		Rooms:   cfg.Client.Rooms,
		Backoff: client.BackoffPolicy{
			MaxAttempts: cfg.Client.ReconnectAttempts,
			Delay:       cfg.Client.ReconnectDelay,
		},
		HandshakeTimeout: cfg.Client.HandshakeTimeout,
	})
	defer manager.Close()

	projection := notifications.NewProjection()
	detach := projection.Attach(manager.Dispatcher())
	defer detach()

	unwatch := watchEvents(manager.Dispatcher(), projection)
	defer unwatch()

	changes, unsubscribe := projection.Subscribe()
	defer unsubscribe()
	go func() {
		for c := range changes {
			logging.Debug().
				Str("id", c.ID).
				Int("total", c.Total).
				Int("unread", c.Unread).
				Msg("Notification feed changed")
		}
	}()

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           newFeedRouter(projection, manager),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return fmt.Errorf("create supervisor tree: %w", err)
	}
	tree.AddMessagingService(services.NewWatchService(manager, ""))
	tree.AddAPIService(services.NewHTTPServerService("orderwatch-feed", server, 5*time.Second))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := tree.ServeBackground(ctx)

	var runErr error
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received")
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

// watchEvents logs connection lifecycle and incoming notifications.
func watchEvents(d *client.Dispatcher, p *notifications.Projection) func() {
	log := logging.WithComponent("orderwatch")

	unsubs := []func(){
		d.On(client.KindConnected, func(ev client.Event) error {
			c := ev.(client.Connected)
			log.Info().Str("address", c.Address).Strs("rooms", c.Rooms).Msg("Connected to broadcast server")
			return nil
		}),
		d.On(client.KindDisconnected, func(ev client.Event) error {
			dc := ev.(client.Disconnected)
			e := log.Warn().Bool("will_reconnect", dc.WillReconnect)
			if dc.Err != nil {
				e = e.Err(dc.Err)
			}
			e.Msg("Disconnected from broadcast server")
			return nil
		}),
		d.On(client.KindReconnectFailed, func(ev client.Event) error {
			rf := ev.(client.ReconnectFailed)
			log.Error().Err(rf.Err).Int("attempts", rf.Attempts).Msg("Giving up on reconnect; POST /connection/refresh to retry")
			return nil
		}),
		d.On(client.KindServerError, func(ev client.Event) error {
			log.Warn().Str("message", ev.(client.ServerError).Message).Msg("Server rejected frame")
			return nil
		}),
		d.OnOrder(func(order models.OrderEvent) {
			n, ok := p.Get(notifications.NotificationID(order.OrderID, order.EventType))
			if !ok {
				return
			}
			log.Info().
				Str("title", n.Title).
				Str("message", logging.SanitizeValue(n.Message)).
				Int("unread", p.UnreadCount()).
				Msg("Notification")
		}),
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}
