// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package models

// WebhookAck is the 200 response to an accepted webhook delivery.
type WebhookAck struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	Event     string `json:"event"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the body of every 4xx response.
type ErrorResponse struct {
	Error string `json:"error"`
}

// FailureResponse is the body of a 500 response.
type FailureResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
	Message string `json:"message"`
}

// MessageResponse is a bare informational payload (liveness probes).
type MessageResponse struct {
	Message string `json:"message"`
}

// PublishRequest is the body of POST /api/v1/broadcast, used by a webhook
// receiver that runs in a separate process from the broadcast server.
type PublishRequest struct {
	Room  string      `json:"room" validate:"required,max=128"`
	Event *OrderEvent `json:"event" validate:"required"`
}

// PublishResponse reports the outcome of a remote publish.
type PublishResponse struct {
	Delivered bool `json:"delivered"`
	Members   int  `json:"members"`
}

// BroadcastStats is returned by GET /api/v1/broadcast/stats.
type BroadcastStats struct {
	Connections int            `json:"connections"`
	Rooms       map[string]int `json:"rooms"`
}
