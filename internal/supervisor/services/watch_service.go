// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package services

import (
	"context"
	"fmt"
)

// Connector is satisfied by *client.Manager.
type Connector interface {
	Connect(address string) error
	Disconnect()
}

// WatchService holds an order-watch connection open for the lifetime of
// the supervisor. Reconnects are the manager's job; this service only
// starts and stops it.
type WatchService struct {
	conn    Connector
	address string
}

// NewWatchService wraps conn. An empty address uses the manager default.
func NewWatchService(conn Connector, address string) *WatchService {
	return &WatchService{conn: conn, address: address}
}

// Serve implements suture.Service.
func (s *WatchService) Serve(ctx context.Context) error {
	if err := s.conn.Connect(s.address); err != nil {
		return fmt.Errorf("connect to broadcast server: %w", err)
	}
	<-ctx.Done()
	s.conn.Disconnect()
	return ctx.Err()
}

func (s *WatchService) String() string {
	return "order-watch"
}
