// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

/*
Package api wires the HTTP surface of the order notification server using
the Chi router.

Routes:

	GET  /api/v1/health/live         liveness probe
	GET  /api/v1/health/ready        readiness probe
	GET  /api/v1/webhooks/orders     webhook liveness message
	POST /api/v1/webhooks/orders     storefront order webhook
	POST /api/v1/broadcast           internal publish (X-Broadcast-Token)
	GET  /api/v1/broadcast/stats     connection and room counts
	GET  /ws                         broadcast WebSocket
	GET  /metrics                    Prometheus metrics

Middleware order (outermost first): request ID, real IP, access log, panic
recovery, CORS. Route groups add rate limiting, security headers and
request metrics.

Error bodies are always JSON. 4xx responses carry {"error": "..."}.
*/
package api
