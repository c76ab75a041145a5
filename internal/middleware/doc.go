// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

/*
Package middleware provides HTTP middleware shared by the order pipeline's
routes.

Key Components:

  - RequestID: X-Request-ID propagation plus request and correlation IDs in
    the logging context
  - PrometheusMetrics: request count, latency and in-flight gauges keyed by
    the chi route pattern
  - AccessLog: one structured log line per completed request

All middleware has the chi signature func(http.Handler) http.Handler and is
installed with r.Use:

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.PrometheusMetrics)
	r.Use(middleware.AccessLog)

The response writer wrapper used for metrics keeps http.Hijacker and
http.Flusher working, so the WebSocket endpoint can sit behind the same
stack as the JSON routes.
*/
package middleware
