// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package publisher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"

	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/metrics"
	"github.com/tomtom215/stockroom/internal/models"
)

// Bridge drains a bus topic into the hub.
type Bridge struct {
	sub   message.Subscriber
	topic string
	hub   OrderHub

	readyOnce sync.Once
	ready     chan struct{}

	received  atomic.Int64
	delivered atomic.Int64
	rejected  atomic.Int64
}

// BridgeStats holds runtime counters.
type BridgeStats struct {
	Received  int64
	Delivered int64
	Rejected  int64
}

// NewBridge creates a Bridge reading topic from sub.
func NewBridge(sub message.Subscriber, topic string, hub OrderHub) (*Bridge, error) {
	if sub == nil {
		return nil, errors.New("publisher: subscriber required")
	}
	if hub == nil {
		return nil, ErrNoHub
	}
	if topic == "" {
		topic = DefaultBusTopic
	}
	return &Bridge{
		sub:   sub,
		topic: topic,
		hub:   hub,
		ready: make(chan struct{}),
	}, nil
}

// Ready is closed once the first subscription is active. The gochannel
// bus drops messages published while nobody is subscribed.
func (b *Bridge) Ready() <-chan struct{} {
	return b.ready
}

// Run subscribes and forwards messages until ctx is done or the
// subscription closes.
func (b *Bridge) Run(ctx context.Context) error {
	msgs, err := b.sub.Subscribe(ctx, b.topic)
	if err != nil {
		return fmt.Errorf("subscribe to %s: %w", b.topic, err)
	}
	b.readyOnce.Do(func() { close(b.ready) })

	logging.Info().Str("topic", b.topic).Msg("event bus bridge started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return errors.New("event bus subscription closed")
			}
			b.Handle(msg)
			msg.Ack()
		}
	}
}

// Handle forwards one message. Undecodable messages are logged and dropped
// so they do not block the topic.
func (b *Bridge) Handle(msg *message.Message) {
	b.received.Add(1)
	metrics.RecordBusMessage("consumed")

	var req models.PublishRequest
	if err := json.Unmarshal(msg.Payload, &req); err != nil || req.Event == nil || req.Room == "" {
		b.rejected.Add(1)
		metrics.RecordBusMessage("rejected")
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("dropping malformed event bus message")
		return
	}

	delivered := b.hub.PublishOrder(req.Room, *req.Event)
	if delivered {
		b.delivered.Add(1)
	}
	logging.Debug().
		Str("message_uuid", msg.UUID).
		Str("request_id", msg.Metadata.Get(MetadataRequestID)).
		Str("room", logging.SanitizeValue(req.Room)).
		Str("order_id", logging.SanitizeValue(req.Event.OrderID)).
		Bool("delivered", delivered).
		Msg("event bus message forwarded to hub")
}

// Stats returns current counters.
func (b *Bridge) Stats() BridgeStats {
	return BridgeStats{
		Received:  b.received.Load(),
		Delivered: b.delivered.Load(),
		Rejected:  b.rejected.Load(),
	}
}
