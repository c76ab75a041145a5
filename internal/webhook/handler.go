// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

// Package webhook receives signed storefront order webhooks and forwards
// admitted events to the broadcast hub.
//
// Each POST runs RECEIVE, VERIFY, PARSE, AGE-CHECK, DISPATCH and RESPOND in
// that order. The signature is always checked against the raw body bytes.
// A failed fan-out is logged and still answered with 200, because the order
// itself is already recorded by the storefront.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/metrics"
	"github.com/tomtom215/stockroom/internal/models"
	"github.com/tomtom215/stockroom/internal/publisher"
	"github.com/tomtom215/stockroom/internal/signature"
	"github.com/tomtom215/stockroom/internal/transform"
)

// Defaults applied by NewHandler.
const (
	DefaultReplayWindow = 5 * time.Minute
	DefaultMaxBodyBytes = 1 << 20
	DefaultRoom         = "admins"
)

// DefaultSignatureHeaders are checked in order.
var DefaultSignatureHeaders = []string{"X-Webhook-Signature", "X-Signature"}

// Options configures a Handler.
type Options struct {
	Secret           []byte
	SignatureHeaders []string
	// ReplayWindow is the maximum accepted age of a timestamped payload.
	ReplayWindow time.Duration
	MaxBodyBytes int64
	// Room receives every admitted event.
	Room string
	// Now is the clock, for tests.
	Now func() time.Time
}

// Handler is the storefront webhook endpoint.
type Handler struct {
	pub  publisher.Publisher
	opts Options
}

// NewHandler creates a Handler publishing through pub.
func NewHandler(pub publisher.Publisher, opts Options) (*Handler, error) {
	if pub == nil {
		return nil, errors.New("webhook: publisher required")
	}
	if len(opts.Secret) == 0 {
		return nil, signature.ErrNoSecret
	}
	if len(opts.SignatureHeaders) == 0 {
		opts.SignatureHeaders = DefaultSignatureHeaders
	}
	if opts.ReplayWindow <= 0 {
		opts.ReplayWindow = DefaultReplayWindow
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}
	if opts.Room == "" {
		opts.Room = DefaultRoom
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Handler{pub: pub, opts: opts}, nil
}

// ServeHTTP handles POST deliveries.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	defer func() {
		if rec := recover(); rec != nil {
			logging.Ctx(r.Context()).Error().
				Str("panic", fmt.Sprint(rec)).
				Msg("Webhook handler panicked")
			h.fail(w, r, AsFailure(fmt.Errorf("panic: %v", rec)))
		}
	}()

	ack, err := h.process(r.Context(), r)
	if err != nil {
		h.fail(w, r, AsFailure(err))
		return
	}
	metrics.RecordWebhook(outcomeAccepted)
	writeJSON(w, http.StatusOK, ack)
}

// Liveness answers GET on the webhook path.
func (h *Handler) Liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, models.MessageResponse{Message: msgLive})
}

func (h *Handler) process(ctx context.Context, r *http.Request) (models.WebhookAck, error) {
	// RECEIVE
	body, err := h.readBody(r)
	if err != nil {
		return models.WebhookAck{}, err
	}

	// VERIFY
	header := h.signatureHeader(r)
	if header == "" {
		return models.WebhookAck{}, authFailure(msgMissingSignature, signature.ErrMissing)
	}
	if err := signature.Check(body, header, h.opts.Secret); err != nil {
		return models.WebhookAck{}, authFailure(msgInvalidSignature, err)
	}

	// PARSE
	var envelope models.WebhookEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return models.WebhookAck{}, validationFailure(msgInvalidJSON, outcomeInvalid, err)
	}

	// AGE-CHECK
	emittedAt, err := h.checkAge(envelope.Timestamp)
	if err != nil {
		return models.WebhookAck{}, err
	}

	// DISPATCH
	eventType, ok := models.ParseEventType(envelope.Event)
	if !ok {
		return models.WebhookAck{}, validationFailure(msgUnknownEvent+logging.SanitizeValue(envelope.Event), outcomeUnknownEvent, nil)
	}
	event, err := h.transform(eventType, envelope.Data, emittedAt)
	if err != nil {
		return models.WebhookAck{}, err
	}
	h.publish(ctx, event)

	// RESPOND
	return models.WebhookAck{
		Success:   true,
		Message:   msgProcessed,
		Event:     envelope.Event,
		Timestamp: h.opts.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}

func (h *Handler) readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()

	body, err := io.ReadAll(io.LimitReader(r.Body, h.opts.MaxBodyBytes+1))
	if err != nil {
		return nil, validationFailure(msgUnreadableBody, outcomeInvalid, err)
	}
	if int64(len(body)) > h.opts.MaxBodyBytes {
		return nil, validationFailure(msgBodyTooLarge, outcomeInvalid, nil)
	}
	return body, nil
}

func (h *Handler) signatureHeader(r *http.Request) string {
	for _, name := range h.opts.SignatureHeaders {
		if v := strings.TrimSpace(r.Header.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// checkAge returns the emission time: the payload timestamp when present,
// otherwise the receive time. Future timestamps are accepted.
func (h *Handler) checkAge(ts *string) (time.Time, error) {
	now := h.opts.Now()
	if ts == nil || strings.TrimSpace(*ts) == "" {
		return now, nil
	}
	emittedAt, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(*ts))
	if err != nil {
		return time.Time{}, validationFailure(msgInvalidTimestamp, outcomeInvalid, err)
	}
	if now.Sub(emittedAt) > h.opts.ReplayWindow {
		return time.Time{}, &Failure{
			Kind:    KindStaleness,
			Message: msgTooOld,
			Outcome: outcomeStale,
			Err:     fmt.Errorf("emitted %s ago", now.Sub(emittedAt).Truncate(time.Second)),
		}
	}
	return emittedAt, nil
}

func (h *Handler) transform(eventType models.EventType, data json.RawMessage, emittedAt time.Time) (models.OrderEvent, error) {
	var order models.StorefrontOrder
	if len(data) == 0 || string(data) == "null" {
		return models.OrderEvent{}, validationFailure(msgMissingOrderID, outcomeInvalid, transform.ErrMissingOrderID)
	}
	if err := json.Unmarshal(data, &order); err != nil {
		return models.OrderEvent{}, validationFailure(msgInvalidOrder, outcomeInvalid, err)
	}
	event, err := transform.ToOrderEvent(eventType, order, emittedAt)
	if errors.Is(err, transform.ErrMissingOrderID) {
		return models.OrderEvent{}, validationFailure(msgMissingOrderID, outcomeInvalid, err)
	}
	if err != nil {
		return models.OrderEvent{}, validationFailure(msgInvalidOrder, outcomeInvalid, err)
	}
	return event, nil
}

// publish fans the event out. Failures are logged and never fail the
// request.
//
//nolint:gocritic // OrderEvent is passed by value through the whole pipeline
func (h *Handler) publish(ctx context.Context, event models.OrderEvent) {
	logger := logging.Ctx(ctx)

	delivered, err := h.pub.Publish(ctx, h.opts.Room, event)
	switch {
	case err != nil:
		metrics.RecordWebhookPublishFailure(KindTransport.String())
		logger.Warn().Err(err).
			Str("order_id", logging.SanitizeValue(event.OrderID)).
			Str("room", h.opts.Room).
			Msg("Failed to broadcast order event; webhook still acknowledged")
	case !delivered:
		metrics.RecordWebhookPublishFailure(metrics.PublishResultNoMembers)
		logger.Warn().
			Str("order_id", logging.SanitizeValue(event.OrderID)).
			Str("room", h.opts.Room).
			Msg("No clients in room; order notification not delivered")
	default:
		logger.Info().
			Str("event_type", event.EventType.String()).
			Str("order_id", logging.SanitizeValue(event.OrderID)).
			Str("customer_email", logging.SanitizeEmail(event.Payload.CustomerEmail)).
			Str("room", h.opts.Room).
			Msg("Order event broadcast")
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, f *Failure) {
	metrics.RecordWebhook(f.Outcome)

	logger := logging.Ctx(r.Context())
	event := logger.Info()
	if f.Kind == KindAuthentication {
		event = logger.Warn()
	} else if f.Kind == KindInternal {
		event = logger.Error()
	}
	event.Str("kind", f.Kind.String()).
		Str("reason", logging.SanitizeValue(f.Error())).
		Str("remote_addr", r.RemoteAddr).
		Msg("Webhook rejected")

	status := f.Kind.Status()
	if status >= http.StatusInternalServerError {
		writeJSON(w, status, models.FailureResponse{
			Success: false,
			Error:   f.Message,
			Message: "Webhook could not be processed",
		})
		return
	}
	writeJSON(w, status, models.ErrorResponse{Error: f.Message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal JSON response")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"error":"Internal server error","message":"response encoding failed"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}
