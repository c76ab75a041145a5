// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package publisher

import (
	"context"
	"errors"
	"fmt"

	"github.com/tomtom215/stockroom/internal/config"
	"github.com/tomtom215/stockroom/internal/models"
)

// ErrNoHub is returned when a mode that needs a hub is built without one.
var ErrNoHub = errors.New("publisher: hub required")

// Publisher delivers an order event to the members of a room.
type Publisher interface {
	// Publish returns true when the event reached (or was queued for) at
	// least one listener. An error means the event could not be handed
	// off at all.
	Publish(ctx context.Context, room string, event models.OrderEvent) (bool, error)
}

// OrderHub is the part of the broadcast hub publishers depend on.
type OrderHub interface {
	PublishOrder(room string, event models.OrderEvent) bool
}

// Local publishes straight into a hub in the same process.
type Local struct {
	hub OrderHub
}

// NewLocal creates a Local publisher.
func NewLocal(hub OrderHub) (*Local, error) {
	if hub == nil {
		return nil, ErrNoHub
	}
	return &Local{hub: hub}, nil
}

// Publish implements Publisher.
//
//nolint:gocritic // OrderEvent is passed by value through the whole pipeline
func (l *Local) Publish(ctx context.Context, room string, event models.OrderEvent) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return l.hub.PublishOrder(room, event), nil
}

// New builds the publisher selected by cfg.Mode. In bus mode it also
// returns the Bridge that must run for events to reach hub; in other modes
// the Bridge is nil.
func New(cfg *config.PublisherConfig, hub OrderHub) (Publisher, *Bridge, error) {
	switch cfg.Mode {
	case config.PublisherModeLocal, "":
		p, err := NewLocal(hub)
		return p, nil, err

	case config.PublisherModeRemote:
		p, err := NewRemote(RemoteOptions{
			URL:             cfg.RemoteURL,
			Token:           cfg.RemoteToken,
			Timeout:         cfg.Timeout,
			BreakerFailures: cfg.BreakerFailures,
			BreakerTimeout:  cfg.BreakerTimeout,
		})
		return p, nil, err

	case config.PublisherModeBus:
		if hub == nil {
			return nil, nil, ErrNoHub
		}
		bus := NewBus(BusOptions{Topic: cfg.BusTopic})
		bridge, err := NewBridge(bus, cfg.BusTopic, hub)
		if err != nil {
			_ = bus.Close()
			return nil, nil, err
		}
		return bus, bridge, nil

	default:
		return nil, nil, fmt.Errorf("publisher: unknown mode %q", cfg.Mode)
	}
}
