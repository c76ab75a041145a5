// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package api

import (
	"context"
	"crypto/subtle"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stockroom/internal/broadcast"
	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/models"
	"github.com/tomtom215/stockroom/internal/publisher"
	"github.com/tomtom215/stockroom/internal/validation"
)

const (
	maxPublishBodyBytes = 1 << 20
	readinessTimeout    = 2 * time.Second
)

// ReadinessCheck is one named dependency probed by HealthReady.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// ChannelCheck reports ready once ch is closed.
func ChannelCheck(name string, ch <-chan struct{}) ReadinessCheck {
	return ReadinessCheck{
		Name: name,
		Check: func(context.Context) error {
			select {
			case <-ch:
				return nil
			default:
				return ErrNotReady
			}
		},
	}
}

// Handler serves the non-webhook API endpoints.
type Handler struct {
	hub           *broadcast.Hub
	internalToken string
	checks        []ReadinessCheck
	startTime     time.Time
}

// NewHandler creates a Handler. hub may be nil in a webhook-only process.
func NewHandler(hub *broadcast.Hub, internalToken string, checks ...ReadinessCheck) *Handler {
	return &Handler{
		hub:           hub,
		internalToken: internalToken,
		checks:        checks,
		startTime:     time.Now(),
	}
}

type healthResponse struct {
	Status string            `json:"status"`
	Uptime float64           `json:"uptime_seconds"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthLive returns 200 while the process is alive.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, healthResponse{
		Status: "alive",
		Uptime: time.Since(h.startTime).Seconds(),
	})
}

// HealthReady returns 200 when every readiness check passes, 503 otherwise.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
	defer cancel()

	resp := healthResponse{
		Status: "ready",
		Uptime: time.Since(h.startTime).Seconds(),
		Checks: make(map[string]string, len(h.checks)),
	}
	status := http.StatusOK
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			resp.Checks[c.Name] = err.Error()
			resp.Status = "not_ready"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}
	respondJSON(w, status, resp)
}

// Broadcast publishes an event on behalf of a webhook receiver running in
// another process.
func (h *Handler) Broadcast(w http.ResponseWriter, r *http.Request) {
	logger := logging.Ctx(r.Context())

	if h.internalToken == "" {
		respondError(w, http.StatusNotFound, "Internal broadcast endpoint disabled")
		return
	}
	token := r.Header.Get(publisher.TokenHeader)
	if subtle.ConstantTimeCompare([]byte(token), []byte(h.internalToken)) != 1 {
		logger.Warn().Str("remote_addr", r.RemoteAddr).Msg("Broadcast request with invalid token")
		respondError(w, http.StatusUnauthorized, "Invalid broadcast token")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxPublishBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return
		}
		respondError(w, http.StatusBadRequest, "Failed to read request body")
		return
	}
	var req models.PublishRequest
	if err := json.Unmarshal(body, &req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid JSON payload")
		return
	}
	if err := validation.ValidateStruct(&req); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	event := *req.Event
	if event.OrderID == "" {
		respondError(w, http.StatusBadRequest, "Missing required field: orderId")
		return
	}
	if _, ok := models.ParseEventType(string(event.EventType)); !ok {
		respondError(w, http.StatusBadRequest, "Unknown event type: "+logging.SanitizeValue(string(event.EventType)))
		return
	}
	room, err := broadcast.NormalizeRoom(req.Room)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid room name")
		return
	}

	members := h.hub.Deliver(room, event.EventType.String(), event)
	logger.Info().
		Str("room", room).
		Str("order_id", logging.SanitizeValue(event.OrderID)).
		Str("event_type", event.EventType.String()).
		Int("members", members).
		Msg("Remote publish delivered")

	respondJSON(w, http.StatusOK, models.PublishResponse{Delivered: members > 0, Members: members})
}

// BroadcastStats returns the connection count and per-room member counts.
func (h *Handler) BroadcastStats(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, h.hub.Stats())
}

// WebhookDisabled answers the webhook path when no secret is configured.
func (h *Handler) WebhookDisabled(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusNotFound, "Webhook endpoint disabled")
}

// NotFound is the JSON 404 handler.
func (h *Handler) NotFound(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusNotFound, "Not found")
}

// MethodNotAllowed is the JSON 405 handler.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
