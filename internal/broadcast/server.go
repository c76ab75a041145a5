// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package broadcast

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/stockroom/internal/logging"
)

// ServerOptions configures the WebSocket endpoint.
type ServerOptions struct {
	Client ClientOptions
	// AllowedOrigins lists browser origins allowed to connect. "*" or an
	// empty list allows any origin.
	AllowedOrigins []string
}

// Server upgrades HTTP requests to broadcast connections.
type Server struct {
	hub      *Hub
	opts     ServerOptions
	upgrader websocket.Upgrader
}

// NewServer creates the WebSocket endpoint for hub.
func NewServer(hub *Hub, opts ServerOptions) *Server {
	s := &Server{hub: hub, opts: opts}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
	return s
}

// Hub returns the underlying hub.
func (s *Server) Hub() *Hub {
	return s.hub
}

// ServeHTTP implements http.Handler (GET /ws).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written an HTTP error response.
		logging.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := NewClient(s.hub, conn, s.opts.Client)
	if err := client.Start(); err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("failed to register broadcast client")
		_ = conn.Close()
		return
	}
	logging.Ctx(r.Context()).Info().
		Str("client_id", client.ID()).
		Int("total_clients", s.hub.ConnectionCount()).
		Msg("broadcast client connected")
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true // non-browser clients
	}
	if len(s.opts.AllowedOrigins) == 0 {
		return true
	}
	for _, allowed := range s.opts.AllowedOrigins {
		if allowed == "*" || strings.EqualFold(allowed, origin) {
			return true
		}
	}
	if u, err := url.Parse(origin); err == nil && strings.EqualFold(u.Host, r.Host) {
		return true
	}
	return false
}
