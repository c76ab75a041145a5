// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package client

import "time"

// BackoffPolicy is a bounded, fixed-delay reconnect policy.
type BackoffPolicy struct {
	// MaxAttempts is the number of reconnect attempts after a failure.
	// Zero disables automatic reconnection.
	MaxAttempts int
	// Delay is waited before every attempt.
	Delay time.Duration
}

// DefaultBackoffPolicy is five attempts one second apart.
func DefaultBackoffPolicy() BackoffPolicy {
	return BackoffPolicy{MaxAttempts: 5, Delay: time.Second}
}

// Next returns the delay before reconnect attempt n (1-based) and whether
// that attempt is allowed.
func (p BackoffPolicy) Next(attempt int) (time.Duration, bool) {
	if attempt < 1 || attempt > p.MaxAttempts {
		return 0, false
	}
	if p.Delay < 0 {
		return 0, true
	}
	return p.Delay, true
}
