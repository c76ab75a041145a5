// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

// Package transform maps storefront orders into internal order events.
//
// ToOrderEvent is pure: it performs no I/O and only fails when the order
// has no identifier. Optional fields are defaulted rather than rejected.
package transform

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/stockroom/internal/models"
	"github.com/tomtom215/stockroom/internal/validation"
)

// DefaultCurrency is applied when the storefront omits a currency.
const DefaultCurrency = "USD"

// Default statuses per event type when the storefront omits one.
const (
	StatusPending = "pending"
	StatusUnknown = "unknown"
)

// ErrMissingOrderID is returned when the order carries no orderId.
var ErrMissingOrderID = errors.New("orderId is required")

// ToOrderEvent converts a storefront order into an OrderEvent of the given
// type. emittedAt is the producer's timestamp, or receipt time when the
// producer sent none.
//
//nolint:gocritic // StorefrontOrder is decoded per request and passed by value
func ToOrderEvent(eventType models.EventType, order models.StorefrontOrder, emittedAt time.Time) (models.OrderEvent, error) {
	order.OrderID = strings.TrimSpace(order.OrderID)
	if err := validation.ValidateStruct(&order); err != nil {
		var verr *validation.Error
		if errors.As(err, &verr) && verr.Has("orderId", "required") {
			return models.OrderEvent{}, ErrMissingOrderID
		}
		return models.OrderEvent{}, fmt.Errorf("invalid order: %w", err)
	}

	payload := models.OrderPayload{
		OrderID:       order.OrderID,
		CustomerName:  DisplayName(order.Customer),
		CustomerEmail: strings.TrimSpace(order.Customer.Email),
		Items:         make([]models.LineItem, 0, len(order.Items)),
		Currency:      strings.ToUpper(strings.TrimSpace(order.Currency)),
		Status:        strings.TrimSpace(order.Status),
		CreatedAt:     parseTime(order.CreatedAt),
		UpdatedAt:     parseTime(order.UpdatedAt),
	}

	for _, item := range order.Items {
		line := models.LineItem{
			ProductID: item.ProductID,
			Name:      item.Name,
			Quantity:  item.Quantity,
			Price:     item.Price,
			LineTotal: float64(item.Quantity) * item.Price,
		}
		payload.Items = append(payload.Items, line)
		payload.ItemCount += item.Quantity
		payload.Subtotal += line.LineTotal
	}

	if order.ShippingFee != nil {
		payload.ShippingFee = *order.ShippingFee
	}
	if order.TotalAmount != nil {
		payload.TotalAmount = *order.TotalAmount
	} else {
		payload.TotalAmount = payload.Subtotal + payload.ShippingFee
	}
	if payload.Currency == "" {
		payload.Currency = DefaultCurrency
	}
	if payload.Status == "" {
		payload.Status = defaultStatus(eventType)
	}

	return models.OrderEvent{
		EventType: eventType,
		OrderID:   order.OrderID,
		Payload:   payload,
		EmittedAt: emittedAt.UTC(),
	}, nil
}

// DisplayName joins first and last name, falling back to the email local
// part and finally to "Guest".
func DisplayName(c models.StorefrontCustomer) string {
	name := strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
	if name != "" {
		return name
	}
	if local, _, ok := strings.Cut(strings.TrimSpace(c.Email), "@"); ok && local != "" {
		return local
	}
	return "Guest"
}

func defaultStatus(eventType models.EventType) string {
	if eventType == models.EventNewOrder {
		return StatusPending
	}
	return StatusUnknown
}

// parseTime accepts RFC3339 with or without fractional seconds. Anything
// else is treated as absent.
func parseTime(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return nil
	}
	t = t.UTC()
	return &t
}
