// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package services

import "context"

// Runner is satisfied by *publisher.Bridge.
type Runner interface {
	Run(ctx context.Context) error
}

// BridgeService drains the event bus into the hub. A failed subscription
// returns an error so suture restarts it with backoff.
type BridgeService struct {
	bridge Runner
}

// NewBridgeService wraps bridge.
func NewBridgeService(bridge Runner) *BridgeService {
	return &BridgeService{bridge: bridge}
}

// Serve implements suture.Service.
func (s *BridgeService) Serve(ctx context.Context) error {
	return s.bridge.Run(ctx)
}

func (s *BridgeService) String() string {
	return "event-bus-bridge"
}
