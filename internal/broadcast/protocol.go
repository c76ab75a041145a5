// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package broadcast

import (
	"errors"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Client to server frame types.
const (
	FrameJoinRoom  = "join_room"
	FrameLeaveRoom = "leave_room"
	FramePing      = "ping"
)

// Server to client frame types.
const (
	FrameRoomJoined = "room_joined"
	FrameRoomLeft   = "room_left"
	FrameMessage    = "message"
	FramePong       = "pong"
	FrameError      = "error"
)

// MaxRoomNameLength bounds room names accepted from clients.
const MaxRoomNameLength = 128

// ErrInvalidRoom is returned for empty or oversized room names.
var ErrInvalidRoom = errors.New("invalid room name")

// InboundFrame is a frame sent by a client.
type InboundFrame struct {
	Type string `json:"type"`
	Room string `json:"room,omitempty"`
}

// OutboundFrame is a frame sent to a client.
type OutboundFrame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// RoomAck acknowledges room_joined and room_left.
type RoomAck struct {
	Room     string `json:"room"`
	ClientID string `json:"clientId"`
}

// MessageData wraps a published event.
type MessageData struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// PongData answers a ping.
type PongData struct {
	Timestamp string `json:"timestamp"`
}

// ErrorData reports a rejected client frame.
type ErrorData struct {
	Message string `json:"message"`
}

// NormalizeRoom trims a room name and checks its length.
func NormalizeRoom(room string) (string, error) {
	room = strings.TrimSpace(room)
	if room == "" || len(room) > MaxRoomNameLength {
		return "", ErrInvalidRoom
	}
	return room, nil
}

func encodeFrame(frameType string, data interface{}) ([]byte, error) {
	return json.Marshal(OutboundFrame{Type: frameType, Data: data})
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339Nano)
}
