// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

// Package models defines the data shared between the webhook receiver, the
// broadcast server and order-watch clients.
//
// Two shapes of an order exist. StorefrontOrder is what the external
// storefront sends inside a webhook envelope; it is loosely typed and most
// fields are optional. OrderEvent is the internal, immutable record produced
// by the transform package and fanned out to rooms. Clients never see
// StorefrontOrder.
package models
