// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package publisher

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/metrics"
	"github.com/tomtom215/stockroom/internal/models"
)

// DefaultBusTopic is used when BusOptions.Topic is empty.
const DefaultBusTopic = "orders.events"

// Metadata keys set on bus messages.
const (
	MetadataRoom      = "room"
	MetadataEventType = "event_type"
	MetadataRequestID = "request_id"
)

// BusOptions configures the in-process bus.
type BusOptions struct {
	Topic string
	// Buffer is the per-subscriber channel size. Zero means 256.
	Buffer int64
	// Logger defaults to the zerolog adapter on the global logger.
	Logger watermill.LoggerAdapter
}

// Bus publishes events onto a watermill gochannel topic.
type Bus struct {
	pubsub *gochannel.GoChannel
	topic  string
}

// NewBus creates a Bus.
func NewBus(opts BusOptions) *Bus {
	if opts.Topic == "" {
		opts.Topic = DefaultBusTopic
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 256
	}
	if opts.Logger == nil {
		opts.Logger = NewWatermillLogger(logging.WithComponent("event-bus"))
	}
	return &Bus{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: opts.Buffer,
		}, opts.Logger),
		topic: opts.Topic,
	}
}

// Topic returns the topic events are published on.
func (b *Bus) Topic() string {
	return b.topic
}

// Publish implements Publisher. It reports true once the event is queued.
//
//nolint:gocritic // OrderEvent is passed by value through the whole pipeline
func (b *Bus) Publish(ctx context.Context, room string, event models.OrderEvent) (bool, error) {
	payload, err := json.Marshal(models.PublishRequest{Room: room, Event: &event})
	if err != nil {
		return false, fmt.Errorf("encode bus message: %w", err)
	}

	msg := message.NewMessage(uuid.NewString(), payload)
	msg.Metadata.Set(MetadataRoom, room)
	msg.Metadata.Set(MetadataEventType, event.EventType.String())
	if id := logging.RequestIDFromContext(ctx); id != "" {
		msg.Metadata.Set(MetadataRequestID, id)
	}
	msg.SetContext(ctx)

	if err := b.pubsub.Publish(b.topic, msg); err != nil {
		return false, fmt.Errorf("publish to %s: %w", b.topic, err)
	}
	metrics.RecordBusMessage("published")
	return true, nil
}

// Subscribe implements message.Subscriber.
func (b *Bus) Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error) {
	return b.pubsub.Subscribe(ctx, topic)
}

// Close shuts the bus down. Subsequent publishes fail.
func (b *Bus) Close() error {
	return b.pubsub.Close()
}
