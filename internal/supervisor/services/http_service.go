// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tomtom215/stockroom/internal/logging"
)

// DefaultDrainTimeout bounds Shutdown when NewHTTPServerService gets zero.
const DefaultDrainTimeout = 10 * time.Second

// HTTPServer is the part of *http.Server the service drives.
type HTTPServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

// HTTPServerService serves one listener (the webhook/broadcast API or the
// orderwatch feed) and drains it when the supervisor stops.
type HTTPServerService struct {
	name   string
	server HTTPServer
	drain  time.Duration
}

// NewHTTPServerService wraps server under name, which suture uses in its
// restart logs.
func NewHTTPServerService(name string, server HTTPServer, drain time.Duration) *HTTPServerService {
	if drain <= 0 {
		drain = DefaultDrainTimeout
	}
	if name == "" {
		name = "http-server"
	}
	return &HTTPServerService{name: name, server: server, drain: drain}
}

// Serve implements suture.Service.
func (s *HTTPServerService) Serve(ctx context.Context) error {
	served := make(chan error, 1)
	go func() { served <- s.server.ListenAndServe() }()

	select {
	case err := <-served:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%s: listen: %w", s.name, err)
	case <-ctx.Done():
	}

	// ctx is done, so draining needs its own deadline.
	drainCtx, cancel := context.WithTimeout(context.Background(), s.drain)
	defer cancel()
	err := s.server.Shutdown(drainCtx)
	<-served
	if err != nil {
		logging.Warn().Err(err).Str("service", s.name).Dur("drain", s.drain).Msg("HTTP server did not drain in time")
		return fmt.Errorf("%s: shutdown: %w", s.name, err)
	}
	logging.Info().Str("service", s.name).Msg("HTTP server drained")
	return ctx.Err()
}

func (s *HTTPServerService) String() string {
	return s.name
}
