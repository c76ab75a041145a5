// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and consistent.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateWebhook(); err != nil {
		return err
	}
	if err := c.validateBroadcast(); err != nil {
		return err
	}
	if err := c.validatePublisher(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %v", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateWebhook() error {
	if !c.Webhook.Enabled {
		return nil
	}
	if c.Webhook.Secret == "" {
		return fmt.Errorf("WEBHOOK_SECRET is required when WEBHOOK_ENABLED=true")
	}
	if len(c.Webhook.SignatureHeaders) == 0 {
		return fmt.Errorf("WEBHOOK_SIGNATURE_HEADERS must name at least one header")
	}
	if c.Webhook.ReplayWindow <= 0 {
		return fmt.Errorf("WEBHOOK_REPLAY_WINDOW must be positive, got %v", c.Webhook.ReplayWindow)
	}
	if c.Webhook.MaxBodyBytes <= 0 {
		return fmt.Errorf("WEBHOOK_MAX_BODY_BYTES must be positive, got %d", c.Webhook.MaxBodyBytes)
	}
	if strings.TrimSpace(c.Webhook.AdminRoom) == "" {
		return fmt.Errorf("ADMIN_ROOM must not be empty")
	}
	return nil
}

func (c *Config) validateBroadcast() error {
	b := c.Broadcast
	if b.SendBuffer <= 0 {
		return fmt.Errorf("BROADCAST_SEND_BUFFER must be positive, got %d", b.SendBuffer)
	}
	if b.PingPeriod >= b.PongWait {
		return fmt.Errorf("BROADCAST_PING_PERIOD (%v) must be shorter than BROADCAST_PONG_WAIT (%v)", b.PingPeriod, b.PongWait)
	}
	if b.InboundRate <= 0 || b.InboundBurst <= 0 {
		return fmt.Errorf("BROADCAST_INBOUND_RATE and BROADCAST_INBOUND_BURST must be positive")
	}
	return nil
}

func (c *Config) validatePublisher() error {
	switch c.Publisher.Mode {
	case PublisherModeLocal, PublisherModeBus:
		return nil
	case PublisherModeRemote:
		if c.Publisher.RemoteURL == "" {
			return fmt.Errorf("PUBLISHER_REMOTE_URL is required when PUBLISHER_MODE=remote")
		}
		if err := validateHTTPURL(c.Publisher.RemoteURL, "PUBLISHER_REMOTE_URL"); err != nil {
			return err
		}
		if c.Publisher.RemoteToken == "" {
			return fmt.Errorf("PUBLISHER_REMOTE_TOKEN is required when PUBLISHER_MODE=remote")
		}
		return nil
	default:
		return fmt.Errorf("PUBLISHER_MODE must be one of local, remote, bus; got %q", c.Publisher.Mode)
	}
}

func (c *Config) validateSecurity() error {
	if !c.Security.RateLimitDisabled && c.Security.RateLimitReqs <= 0 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be positive, got %d", c.Security.RateLimitReqs)
	}
	if c.IsProduction() {
		for _, origin := range c.Security.CORSOrigins {
			if origin == "*" {
				return fmt.Errorf("CORS_ORIGINS must not contain '*' when ENVIRONMENT=production")
			}
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error; got %q", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

// ValidateClient checks the order-watch client section. Only the client
// binary needs it, so it is not part of Validate.
func (c *Config) ValidateClient() error {
	u, err := url.Parse(c.Client.URL)
	if err != nil {
		return fmt.Errorf("CLIENT_URL failed to parse: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("CLIENT_URL scheme must be ws or wss, got: %s", u.Scheme)
	}
	if c.Client.ReconnectAttempts < 0 {
		return fmt.Errorf("CLIENT_RECONNECT_ATTEMPTS must not be negative")
	}
	if c.Client.HandshakeTimeout <= 0 {
		return fmt.Errorf("CLIENT_HANDSHAKE_TIMEOUT must be positive")
	}
	return nil
}

func validateHTTPURL(rawURL, fieldName string) error {
	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%s failed to parse URL: %w", fieldName, err)
	}
	if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		return fmt.Errorf("%s scheme must be http or https, got: %s", fieldName, parsedURL.Scheme)
	}
	if parsedURL.Host == "" {
		return fmt.Errorf("%s host is required", fieldName)
	}
	return nil
}
