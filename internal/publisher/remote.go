// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package publisher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/metrics"
	"github.com/tomtom215/stockroom/internal/models"
)

// BroadcastPath is the internal publish route on the broadcast server.
const BroadcastPath = "/api/v1/broadcast"

// TokenHeader carries the shared secret for BroadcastPath.
const TokenHeader = "X-Broadcast-Token"

const breakerName = "broadcast-remote"

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 64 << 10

// ErrRejected wraps 4xx answers from the broadcast server. They indicate a
// configuration or payload problem and do not count against the breaker.
var ErrRejected = errors.New("broadcast server rejected event")

// RemoteOptions configures a Remote publisher.
type RemoteOptions struct {
	// URL is the broadcast server base URL, e.g. http://broadcast:8080.
	URL   string
	Token string
	// Timeout bounds each HTTP request. Zero means 5s.
	Timeout time.Duration
	// BreakerFailures consecutive failures open the circuit. Zero means 5.
	BreakerFailures uint32
	// BreakerTimeout is how long the circuit stays open. Zero means 30s.
	BreakerTimeout time.Duration
	// HTTPClient overrides the default client, mainly for tests.
	HTTPClient *http.Client
}

// Remote posts events to a broadcast server in another process.
type Remote struct {
	endpoint string
	token    string
	client   *http.Client
	cb       *gobreaker.CircuitBreaker[bool]
}

// NewRemote creates a Remote publisher.
func NewRemote(opts RemoteOptions) (*Remote, error) {
	if opts.URL == "" {
		return nil, errors.New("publisher: remote URL required")
	}
	endpoint, err := url.JoinPath(opts.URL, BroadcastPath)
	if err != nil {
		return nil, fmt.Errorf("publisher: invalid remote URL: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerTimeout <= 0 {
		opts.BreakerTimeout = 30 * time.Second
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: opts.Timeout}
	}

	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)

	threshold := opts.BreakerFailures
	cb := gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     opts.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			trip := counts.ConsecutiveFailures >= threshold
			if trip {
				logging.Warn().Uint32("consecutive_failures", counts.ConsecutiveFailures).Msg("[CIRCUIT BREAKER] Opening circuit to broadcast server")
			}
			return trip
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrRejected) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr, toStr := stateToString(from), stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
		},
	})

	return &Remote{
		endpoint: endpoint,
		token:    opts.Token,
		client:   client,
		cb:       cb,
	}, nil
}

// Publish implements Publisher.
//
//nolint:gocritic // OrderEvent is passed by value through the whole pipeline
func (p *Remote) Publish(ctx context.Context, room string, event models.OrderEvent) (bool, error) {
	body, err := json.Marshal(models.PublishRequest{Room: room, Event: &event})
	if err != nil {
		return false, fmt.Errorf("encode publish request: %w", err)
	}

	delivered, err := p.cb.Execute(func() (bool, error) {
		return p.post(ctx, body)
	})
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "rejected").Inc()
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(breakerName, "failure").Inc()
	}
	return delivered, err
}

// State reports the breaker state for health output.
func (p *Remote) State() string {
	return stateToString(p.cb.State())
}

func (p *Remote) post(ctx context.Context, body []byte) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return false, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(TokenHeader, p.token)
	if id := logging.RequestIDFromContext(ctx); id != "" {
		req.Header.Set("X-Request-ID", id)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("post to broadcast server: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return false, fmt.Errorf("read broadcast response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return false, fmt.Errorf("%w: status %d", ErrRejected, resp.StatusCode)
	default:
		return false, fmt.Errorf("broadcast server returned status %d", resp.StatusCode)
	}

	var out models.PublishResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return false, fmt.Errorf("decode broadcast response: %w", err)
	}
	return out.Delivered, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
