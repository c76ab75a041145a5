// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

// Package logging provides the process-wide zerolog logger for Stockroom.
//
// The webhook receiver, the broadcast server and the orderwatch client all
// log through this package, so one process writes one format under one
// level switch:
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Service: "stockroom-server"})
//	logging.Info().Str("order_id", id).Msg("Order event published")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Publish failed")
//
// Terminate every chain with .Msg() or .Send().
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config selects level, format and destination of the global logger.
type Config struct {
	// Level is trace, debug, info, warn, error or disabled. Unknown
	// values fall back to info.
	Level string
	// Format is json (default) or console.
	Format string
	// Caller adds file:line to every entry.
	Caller bool
	// Service, when set, is added to every entry as "service".
	Service string
	// Output defaults to os.Stderr.
	Output io.Writer
}

var (
	mu   sync.RWMutex
	root zerolog.Logger
)

//nolint:gochecknoinits // packages log before main reaches Init
func init() {
	Init(Config{})
}

// Init replaces the global logger. Later calls reconfigure it.
func Init(cfg Config) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if strings.EqualFold(cfg.Format, "console") {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	zerolog.TimeFieldFormat = time.RFC3339Nano
	zerolog.MessageFieldName = "message"
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	zctx := zerolog.New(out).With().Timestamp()
	if cfg.Service != "" {
		zctx = zctx.Str("service", cfg.Service)
	}
	if cfg.Caller {
		zctx = zctx.Caller()
	}

	mu.Lock()
	root = zctx.Logger()
	mu.Unlock()
}

func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		level = "warn"
	}
	lvl, err := zerolog.ParseLevel(level)
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return root
}

// Debug starts a debug entry on the global logger.
func Debug() *zerolog.Event { l := Logger(); return l.Debug() }

// Info starts an info entry on the global logger.
func Info() *zerolog.Event { l := Logger(); return l.Info() }

// Warn starts a warning entry on the global logger.
func Warn() *zerolog.Event { l := Logger(); return l.Warn() }

// Error starts an error entry on the global logger.
func Error() *zerolog.Event { l := Logger(); return l.Error() }

// Fatal starts a fatal entry. The process exits after the entry is written.
func Fatal() *zerolog.Event { l := Logger(); return l.Fatal() }
