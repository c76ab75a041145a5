// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package webhook

import (
	"errors"
	"net/http"
)

// Kind classifies why a webhook delivery was not accepted.
type Kind int

const (
	// KindAuthentication is a missing or invalid signature.
	KindAuthentication Kind = iota + 1
	// KindValidation is a malformed body, missing field or unknown event.
	KindValidation
	// KindStaleness is a payload older than the replay window.
	KindStaleness
	// KindTransport is a fan-out that could not reach the broadcast server.
	// It never fails the request.
	KindTransport
	// KindInternal is an unexpected failure, including recovered panics.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindAuthentication:
		return "authentication"
	case KindValidation:
		return "validation"
	case KindStaleness:
		return "staleness"
	case KindTransport:
		return "transport"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Status maps the kind to its HTTP status.
func (k Kind) Status() int {
	switch k {
	case KindAuthentication:
		return http.StatusUnauthorized
	case KindValidation, KindStaleness:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Failure is a rejected delivery. Message is safe to return to the caller.
type Failure struct {
	Kind    Kind
	Message string
	// Outcome is the metrics label for the rejection.
	Outcome string
	Err     error
}

func (f *Failure) Error() string {
	if f.Err != nil {
		return f.Message + ": " + f.Err.Error()
	}
	return f.Message
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure extracts a *Failure from err, wrapping anything else as an
// internal failure.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return &Failure{Kind: KindInternal, Message: "Internal server error", Outcome: outcomeError, Err: err}
}

// Client-facing messages.
const (
	msgMissingSignature = "Missing webhook signature"
	msgInvalidSignature = "Invalid webhook signature"
	msgBodyTooLarge     = "Webhook payload too large"
	msgUnreadableBody   = "Failed to read request body"
	msgInvalidJSON      = "Invalid JSON payload"
	msgInvalidTimestamp = "Invalid webhook timestamp"
	msgTooOld           = "Webhook too old"
	msgUnknownEvent     = "Unknown event type: "
	msgInvalidOrder     = "Invalid order data"
	msgMissingOrderID   = "Missing required field: orderId"
	msgProcessed        = "Webhook processed successfully"
	msgLive             = "Order webhook endpoint is live"
)

// Metric outcomes.
const (
	outcomeAccepted     = "accepted"
	outcomeUnauthorized = "unauthorized"
	outcomeInvalid      = "invalid"
	outcomeStale        = "stale"
	outcomeUnknownEvent = "unknown_event"
	outcomeError        = "error"
)

func authFailure(msg string, err error) *Failure {
	return &Failure{Kind: KindAuthentication, Message: msg, Outcome: outcomeUnauthorized, Err: err}
}

func validationFailure(msg, outcome string, err error) *Failure {
	return &Failure{Kind: KindValidation, Message: msg, Outcome: outcome, Err: err}
}
