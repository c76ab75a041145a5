// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package models

import "time"

// EventType is the internal order event taxonomy. The string value is the
// wire name used both in webhook envelopes and in broadcast message frames.
type EventType string

const (
	// EventNewOrder is emitted once when the storefront accepts an order.
	EventNewOrder EventType = "new_order"
	// EventStatusUpdate is emitted on every fulfilment status change.
	EventStatusUpdate EventType = "status_update"
)

// ParseEventType maps a webhook event name to its EventType.
func ParseEventType(name string) (EventType, bool) {
	switch EventType(name) {
	case EventNewOrder:
		return EventNewOrder, true
	case EventStatusUpdate:
		return EventStatusUpdate, true
	default:
		return "", false
	}
}

// String returns the wire name.
func (e EventType) String() string {
	return string(e)
}

// OrderEvent is an admitted order event. OrderID, EventType and EmittedAt
// together identify one delivery attempt; the same OrderID appears in many
// status_update events over an order's lifetime.
type OrderEvent struct {
	EventType EventType    `json:"eventType"`
	OrderID   string       `json:"orderId"`
	Payload   OrderPayload `json:"payload"`
	EmittedAt time.Time    `json:"emittedAt"`
}

// OrderPayload is the flattened order snapshot carried by an OrderEvent.
type OrderPayload struct {
	OrderID       string     `json:"orderId"`
	CustomerName  string     `json:"customerName"`
	CustomerEmail string     `json:"customerEmail,omitempty"`
	Items         []LineItem `json:"items"`
	ItemCount     int        `json:"itemCount"`
	Subtotal      float64    `json:"subtotal"`
	ShippingFee   float64    `json:"shippingFee"`
	TotalAmount   float64    `json:"totalAmount"`
	Currency      string     `json:"currency"`
	Status        string     `json:"status"`
	CreatedAt     *time.Time `json:"createdAt,omitempty"`
	UpdatedAt     *time.Time `json:"updatedAt,omitempty"`
}

// LineItem is one product line of an order.
type LineItem struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
	LineTotal float64 `json:"lineTotal"`
}
