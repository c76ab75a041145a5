// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package config

import "time"

// Publisher modes.
const (
	PublisherModeLocal  = "local"
	PublisherModeRemote = "remote"
	PublisherModeBus    = "bus"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Webhook   WebhookConfig   `koanf:"webhook"`
	Broadcast BroadcastConfig `koanf:"broadcast"`
	Publisher PublisherConfig `koanf:"publisher"`
	Client    ClientConfig    `koanf:"client"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int           `koanf:"port"`
	Host        string        `koanf:"host"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"` // development, staging, production
}

// WebhookConfig holds the storefront webhook receiver settings.
type WebhookConfig struct {
	Enabled          bool          `koanf:"enabled"`
	Secret           string        `koanf:"secret"`
	SignatureHeaders []string      `koanf:"signature_headers"`
	ReplayWindow     time.Duration `koanf:"replay_window"`
	MaxBodyBytes     int64         `koanf:"max_body_bytes"`
	AdminRoom        string        `koanf:"admin_room"`
}

// BroadcastConfig holds room fan-out server settings.
type BroadcastConfig struct {
	SendBuffer     int           `koanf:"send_buffer"`
	MaxMessageSize int64         `koanf:"max_message_size"`
	WriteWait      time.Duration `koanf:"write_wait"`
	PongWait       time.Duration `koanf:"pong_wait"`
	PingPeriod     time.Duration `koanf:"ping_period"`
	InboundRate    float64       `koanf:"inbound_rate"`  // client frames per second
	InboundBurst   int           `koanf:"inbound_burst"` // client frame burst
	InternalToken  string        `koanf:"internal_token"`
}

// PublisherConfig selects how accepted webhook events reach the broadcast server.
type PublisherConfig struct {
	Mode            string        `koanf:"mode"`
	RemoteURL       string        `koanf:"remote_url"`
	RemoteToken     string        `koanf:"remote_token"`
	Timeout         time.Duration `koanf:"timeout"`
	BusTopic        string        `koanf:"bus_topic"`
	BreakerFailures uint32        `koanf:"breaker_failures"`
	BreakerTimeout  time.Duration `koanf:"breaker_timeout"`
}

// ClientConfig holds settings for the order-watch connection manager.
type ClientConfig struct {
	URL               string        `koanf:"url"`
	Rooms             []string      `koanf:"rooms"`
	ReconnectAttempts int           `koanf:"reconnect_attempts"`
	ReconnectDelay    time.Duration `koanf:"reconnect_delay"`
	HandshakeTimeout  time.Duration `koanf:"handshake_timeout"`
}

// SecurityConfig holds HTTP rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}
