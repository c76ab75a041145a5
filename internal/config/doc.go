// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

/*
Package config loads Stockroom configuration with Koanf v2.

Sources are layered, later layers overriding earlier ones:
 1. Built-in defaults (defaultConfig)
 2. Optional YAML file (CONFIG_PATH, ./config.yaml, /etc/stockroom/config.yaml)
 3. Environment variables mapped explicitly in envTransformFunc

Unmapped environment variables are ignored so that unrelated process
environment never leaks into configuration.

# Environment Variables

Server:
  - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, ENVIRONMENT

Webhook receiver:
  - WEBHOOK_ENABLED: accept storefront deliveries (default: true)
  - WEBHOOK_SECRET: shared HMAC secret (required when enabled)
  - WEBHOOK_SIGNATURE_HEADERS: comma-separated header names, first match wins
  - WEBHOOK_REPLAY_WINDOW: maximum payload age (default: 5m)
  - WEBHOOK_MAX_BODY_BYTES: request body cap (default: 1MiB)
  - ADMIN_ROOM: room that receives order events (default: admins)

Broadcast server:
  - BROADCAST_SEND_BUFFER, BROADCAST_MAX_MESSAGE_SIZE
  - BROADCAST_PING_PERIOD, BROADCAST_PONG_WAIT, BROADCAST_WRITE_WAIT
  - BROADCAST_INBOUND_RATE, BROADCAST_INBOUND_BURST
  - BROADCAST_TOKEN: enables POST /api/v1/broadcast for remote publishers

Publisher (how the webhook reaches the broadcast server):
  - PUBLISHER_MODE: local, remote or bus (default: local)
  - PUBLISHER_REMOTE_URL, PUBLISHER_REMOTE_TOKEN, PUBLISHER_TIMEOUT
  - PUBLISHER_BUS_TOPIC
  - PUBLISHER_BREAKER_FAILURES, PUBLISHER_BREAKER_TIMEOUT

Order-watch client:
  - CLIENT_URL, CLIENT_ROOMS
  - CLIENT_RECONNECT_ATTEMPTS, CLIENT_RECONNECT_DELAY, CLIENT_HANDSHAKE_TIMEOUT

Security and logging:
  - RATE_LIMIT_REQUESTS, RATE_LIMIT_WINDOW, DISABLE_RATE_LIMIT, CORS_ORIGINS
  - LOG_LEVEL, LOG_FORMAT, LOG_CALLER
*/
package config
