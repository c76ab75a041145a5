// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package services

import "context"

// ContextHub is satisfied by *broadcast.Hub.
type ContextHub interface {
	RunWithContext(ctx context.Context) error
}

// HubService ties the broadcast hub's lifetime to the supervisor. On
// shutdown the hub closes every client connection.
type HubService struct {
	hub ContextHub
}

// NewHubService wraps hub.
func NewHubService(hub ContextHub) *HubService {
	return &HubService{hub: hub}
}

// Serve implements suture.Service.
func (s *HubService) Serve(ctx context.Context) error {
	return s.hub.RunWithContext(ctx)
}

func (s *HubService) String() string {
	return "broadcast-hub"
}
