// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package models

import "github.com/goccy/go-json"

// WebhookEnvelope is the top-level body of a storefront webhook delivery.
// Data stays raw until the event name has been routed.
type WebhookEnvelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp *string         `json:"timestamp,omitempty"` // ISO-8601, optional
}

// StorefrontOrder is the storefront's representation of an order.
// Only OrderID is required; everything else is defaulted during transform.
type StorefrontOrder struct {
	OrderID     string             `json:"orderId" validate:"required"`
	Customer    StorefrontCustomer `json:"customer"`
	Items       []StorefrontItem   `json:"items"`
	TotalAmount *float64           `json:"totalAmount,omitempty"`
	ShippingFee *float64           `json:"shippingFee,omitempty"`
	Currency    string             `json:"currency,omitempty"`
	Status      string             `json:"status,omitempty"`
	CreatedAt   string             `json:"createdAt,omitempty"`
	UpdatedAt   string             `json:"updatedAt,omitempty"`
}

// StorefrontCustomer identifies the buyer.
type StorefrontCustomer struct {
	FirstName string `json:"firstName,omitempty"`
	LastName  string `json:"lastName,omitempty"`
	Email     string `json:"email,omitempty"`
}

// StorefrontItem is one line of a storefront order.
type StorefrontItem struct {
	ProductID string  `json:"productId,omitempty"`
	Name      string  `json:"name,omitempty"`
	Quantity  int     `json:"quantity,omitempty"`
	Price     float64 `json:"price,omitempty"`
}
