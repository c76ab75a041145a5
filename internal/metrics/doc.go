// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

// Package metrics declares the Prometheus collectors for Stockroom and the
// Record* helpers used to update them. Collectors are registered with the
// default registry through promauto and exposed on GET /metrics.
package metrics
