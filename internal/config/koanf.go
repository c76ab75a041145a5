// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths searched for a config file, in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/stockroom/config.yaml",
	"/etc/stockroom/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// DefaultAdminRoom is the well-known room that receives every order event.
const DefaultAdminRoom = "admins"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        8080,
			Host:        "0.0.0.0",
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Webhook: WebhookConfig{
			Enabled:          true,
			Secret:           "",
			SignatureHeaders: []string{"x-webhook-signature", "x-signature"},
			ReplayWindow:     5 * time.Minute,
			MaxBodyBytes:     1 << 20,
			AdminRoom:        DefaultAdminRoom,
		},
		Broadcast: BroadcastConfig{
			SendBuffer:     256,
			MaxMessageSize: 64 * 1024,
			WriteWait:      10 * time.Second,
			PongWait:       60 * time.Second,
			PingPeriod:     54 * time.Second,
			InboundRate:    10,
			InboundBurst:   20,
			InternalToken:  "",
		},
		Publisher: PublisherConfig{
			Mode:            PublisherModeLocal,
			RemoteURL:       "",
			RemoteToken:     "",
			Timeout:         5 * time.Second,
			BusTopic:        "orders.events",
			BreakerFailures: 5,
			BreakerTimeout:  30 * time.Second,
		},
		Client: ClientConfig{
			URL:               "ws://127.0.0.1:8080/ws",
			Rooms:             []string{DefaultAdminRoom},
			ReconnectAttempts: 5,
			ReconnectDelay:    time.Second,
			HandshakeTimeout:  10 * time.Second,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load reads server configuration from defaults, an optional YAML file and
// the environment (ENV > File > Defaults), then validates it.
func Load() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

// LoadClient reads configuration for the order-watch client. Server-only
// sections such as the webhook secret are not validated.
func LoadClient() (*Config, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}
	if err := cfg.ValidateClient(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	if err := cfg.validateLogging(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// sliceConfigPaths are parsed from comma-separated strings when set via env.
var sliceConfigPaths = []string{
	"webhook.signature_headers",
	"client.rooms",
	"security.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps environment variable names (lowercased) to koanf paths.
var envMappings = map[string]string{
	"http_port":    "server.port",
	"http_host":    "server.host",
	"http_timeout": "server.timeout",
	"environment":  "server.environment",

	"webhook_enabled":           "webhook.enabled",
	"webhook_secret":            "webhook.secret",
	"webhook_signature_headers": "webhook.signature_headers",
	"webhook_replay_window":     "webhook.replay_window",
	"webhook_max_body_bytes":    "webhook.max_body_bytes",
	"admin_room":                "webhook.admin_room",

	"broadcast_send_buffer":      "broadcast.send_buffer",
	"broadcast_max_message_size": "broadcast.max_message_size",
	"broadcast_write_wait":       "broadcast.write_wait",
	"broadcast_pong_wait":        "broadcast.pong_wait",
	"broadcast_ping_period":      "broadcast.ping_period",
	"broadcast_inbound_rate":     "broadcast.inbound_rate",
	"broadcast_inbound_burst":    "broadcast.inbound_burst",
	"broadcast_token":            "broadcast.internal_token",

	"publisher_mode":             "publisher.mode",
	"publisher_remote_url":       "publisher.remote_url",
	"publisher_remote_token":     "publisher.remote_token",
	"publisher_timeout":          "publisher.timeout",
	"publisher_bus_topic":        "publisher.bus_topic",
	"publisher_breaker_failures": "publisher.breaker_failures",
	"publisher_breaker_timeout":  "publisher.breaker_timeout",

	"client_url":                "client.url",
	"client_rooms":              "client.rooms",
	"client_reconnect_attempts": "client.reconnect_attempts",
	"client_reconnect_delay":    "client.reconnect_delay",
	"client_handshake_timeout":  "client.handshake_timeout",

	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps an environment variable name to its koanf path.
// Unmapped keys return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
