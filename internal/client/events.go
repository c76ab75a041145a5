// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package client

import (
	"time"

	"github.com/tomtom215/stockroom/internal/models"
)

// EventKind identifies an Event variant.
type EventKind int

const (
	KindConnected EventKind = iota + 1
	KindDisconnected
	KindRoomJoined
	KindRoomLeft
	KindOrderReceived
	KindPong
	KindServerError
	KindReconnectFailed
)

func (k EventKind) String() string {
	switch k {
	case KindConnected:
		return "connected"
	case KindDisconnected:
		return "disconnected"
	case KindRoomJoined:
		return "room_joined"
	case KindRoomLeft:
		return "room_left"
	case KindOrderReceived:
		return "order_received"
	case KindPong:
		return "pong"
	case KindServerError:
		return "server_error"
	case KindReconnectFailed:
		return "reconnect_failed"
	default:
		return "unknown"
	}
}

// Event is implemented by the event types in this file only.
type Event interface {
	Kind() EventKind
	isEvent()
}

// Connected is emitted after the transport is up and rooms were re-joined.
type Connected struct {
	Address string
	Rooms   []string
}

// Disconnected is emitted when an established connection ends.
type Disconnected struct {
	// Err is nil for a caller-requested disconnect.
	Err error
	// WillReconnect reports whether the backoff policy will try again.
	WillReconnect bool
}

// RoomJoined acknowledges a join. ClientID is the server-assigned
// connection ID.
type RoomJoined struct {
	Room     string
	ClientID string
}

// RoomLeft acknowledges a leave.
type RoomLeft struct {
	Room     string
	ClientID string
}

// OrderReceived carries an order event published to a joined room.
type OrderReceived struct {
	Order models.OrderEvent
	// SentAt is the server's fan-out time.
	SentAt time.Time
}

// Pong answers Ping.
type Pong struct {
	Timestamp time.Time
}

// ServerError reports a frame the server rejected.
type ServerError struct {
	Message string
}

// ReconnectFailed is emitted once the backoff policy is exhausted. The
// manager stays Disconnected until Connect or RefreshConnection.
type ReconnectFailed struct {
	Attempts int
	Err      error
}

func (Connected) Kind() EventKind       { return KindConnected }
func (Disconnected) Kind() EventKind    { return KindDisconnected }
func (RoomJoined) Kind() EventKind      { return KindRoomJoined }
func (RoomLeft) Kind() EventKind        { return KindRoomLeft }
func (OrderReceived) Kind() EventKind   { return KindOrderReceived }
func (Pong) Kind() EventKind            { return KindPong }
func (ServerError) Kind() EventKind     { return KindServerError }
func (ReconnectFailed) Kind() EventKind { return KindReconnectFailed }

func (Connected) isEvent()       {}
func (Disconnected) isEvent()    {}
func (RoomJoined) isEvent()      {}
func (RoomLeft) isEvent()        {}
func (OrderReceived) isEvent()   {}
func (Pong) isEvent()            {}
func (ServerError) isEvent()     {}
func (ReconnectFailed) isEvent() {}
