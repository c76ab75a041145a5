// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package main

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/stockroom/internal/client"
	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/notifications"
)

const maxReadBody = 64 << 10

// connection is the subset of *client.Manager the feed routes use.
type connection interface {
	Status() client.Status
	RefreshConnection() error
}

type feedResponse struct {
	Unread        int                          `json:"unread"`
	Notifications []notifications.Notification `json:"notifications"`
}

// markReadRequest marks everything when IDs is absent. An empty list marks
// nothing.
type markReadRequest struct {
	IDs *[]string `json:"ids"`
}

type markReadResponse struct {
	Marked int `json:"marked"`
	Unread int `json:"unread"`
}

type connectionResponse struct {
	State             string   `json:"state"`
	Address           string   `json:"address"`
	ClientID          string   `json:"clientId,omitempty"`
	Rooms             []string `json:"rooms"`
	ReconnectAttempts int      `json:"reconnectAttempts"`
	Exhausted         bool     `json:"exhausted"`
	LastError         string   `json:"lastError,omitempty"`
}

func newFeedRouter(p *notifications.Projection, conn connection) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "alive"})
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/notifications", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, feedResponse{
				Unread:        p.UnreadCount(),
				Notifications: p.Notifications(),
			})
		})
		r.Post("/read", func(w http.ResponseWriter, req *http.Request) {
			body, err := io.ReadAll(http.MaxBytesReader(w, req.Body, maxReadBody))
			if err != nil {
				writeJSON(w, http.StatusRequestEntityTooLarge, map[string]string{"error": "Request body too large"})
				return
			}
			var in markReadRequest
			if len(body) > 0 {
				if err := json.Unmarshal(body, &in); err != nil {
					writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Invalid JSON payload"})
					return
				}
			}
			var n int
			if in.IDs == nil {
				n = p.MarkAllRead()
			} else {
				n = p.MarkRead(*in.IDs...)
			}
			writeJSON(w, http.StatusOK, markReadResponse{Marked: n, Unread: p.UnreadCount()})
		})
		r.Delete("/", func(w http.ResponseWriter, _ *http.Request) {
			p.Clear()
			w.WriteHeader(http.StatusNoContent)
		})
	})

	r.Route("/connection", func(r chi.Router) {
		r.Get("/", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, statusResponse(conn.Status()))
		})
		r.Post("/refresh", func(w http.ResponseWriter, _ *http.Request) {
			if err := conn.RefreshConnection(); err != nil {
				writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
				return
			}
			writeJSON(w, http.StatusAccepted, statusResponse(conn.Status()))
		})
	})

	return r
}

func statusResponse(s client.Status) connectionResponse {
	rooms := s.Rooms
	if rooms == nil {
		rooms = []string{}
	}
	return connectionResponse{
		State:             s.State.String(),
		Address:           s.Address,
		ClientID:          s.ClientID,
		Rooms:             rooms,
		ReconnectAttempts: s.ReconnectAttempts,
		Exhausted:         s.Exhausted,
		LastError:         s.LastError,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Warn().Err(err).Msg("Failed to encode response")
	}
}
