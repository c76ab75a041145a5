// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/stockroom/internal/broadcast"
	"github.com/tomtom215/stockroom/internal/config"
	"github.com/tomtom215/stockroom/internal/middleware"
	"github.com/tomtom215/stockroom/internal/webhook"
)

// WebhookPath is where the storefront delivers order events.
const WebhookPath = "/api/v1/webhooks/orders"

// Options holds the components mounted by the router. Hub and WebSocket
// are nil in a webhook-only process; Webhook is nil when disabled.
type Options struct {
	Config    *config.Config
	Hub       *broadcast.Hub
	WebSocket http.Handler
	Webhook   *webhook.Handler
	Checks    []ReadinessCheck
}

// Router builds the HTTP handler tree.
type Router struct {
	handler       *Handler
	webhook       *webhook.Handler
	ws            http.Handler
	hasHub        bool
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a Router.
func NewRouter(opts Options) *Router {
	mwConfig := DefaultChiMiddlewareConfig()
	token := ""
	if opts.Config != nil {
		mwConfig = ChiMiddlewareConfigFromSecurity(opts.Config.Security)
		token = opts.Config.Broadcast.InternalToken
	}
	return &Router{
		handler:       NewHandler(opts.Hub, token, opts.Checks...),
		webhook:       opts.Webhook,
		ws:            opts.WebSocket,
		hasHub:        opts.Hub != nil,
		chiMiddleware: NewChiMiddleware(mwConfig),
	}
}

// Handler returns the endpoint handler.
func (router *Router) Handler() *Handler {
	return router.handler
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.AccessLog)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())

	r.NotFound(router.handler.NotFound)
	r.MethodNotAllowed(router.handler.MethodNotAllowed)

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/live", router.handler.HealthLive)
		r.Get("/ready", router.handler.HealthReady)
	})

	r.Route(WebhookPath, func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitWebhook())
		r.Use(APISecurityHeaders())
		r.Use(middleware.PrometheusMetrics)
		if router.webhook == nil {
			r.Get("/", router.handler.WebhookDisabled)
			r.Post("/", router.handler.WebhookDisabled)
			return
		}
		r.Get("/", router.webhook.Liveness)
		r.Post("/", router.webhook.ServeHTTP)
	})

	if router.hasHub {
		r.Route("/api/v1/broadcast", func(r chi.Router) {
			r.Use(router.chiMiddleware.RateLimit())
			r.Use(APISecurityHeaders())
			r.Use(middleware.PrometheusMetrics)
			r.Post("/", router.handler.Broadcast)
			r.Get("/stats", router.handler.BroadcastStats)
		})
	}

	if router.ws != nil {
		r.With(
			router.chiMiddleware.RateLimitWebSocket(),
			middleware.PrometheusMetrics,
		).Get("/ws", router.ws.ServeHTTP)
	}

	r.Handle("/metrics", promhttp.Handler())

	return r
}
