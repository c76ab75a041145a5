// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package api

import (
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/models"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	body, err := json.Marshal(data)
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
	if _, err := w.Write(body); err != nil {
		logging.Debug().Err(err).Msg("Failed to write JSON response")
	}
}

// respondError writes {"error": message}. 5xx responses use the
// {"success":false,...} shape instead.
func respondError(w http.ResponseWriter, status int, message string) {
	if status >= http.StatusInternalServerError {
		respondJSON(w, status, models.FailureResponse{
			Success: false,
			Error:   message,
			Message: http.StatusText(status),
		})
		return
	}
	respondJSON(w, status, models.ErrorResponse{Error: message})
}
