// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package client

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/stockroom/internal/logging"
)

// Conn is one established transport session. ReadFrame is called from a
// single goroutine and WriteFrame from another; Close may be called from
// anywhere and must unblock ReadFrame.
type Conn interface {
	ReadFrame() ([]byte, error)
	WriteFrame(frame []byte) error
	Close() error
}

// Transport opens sessions. Dial must honor ctx cancellation and deadline.
type Transport interface {
	Dial(ctx context.Context, address string) (Conn, error)
}

// WebsocketTransport dials the broadcast server with gorilla/websocket.
type WebsocketTransport struct {
	// HandshakeTimeout bounds the opening handshake. Zero means 10s.
	HandshakeTimeout time.Duration
	// WriteWait bounds each frame write. Zero means 10s.
	WriteWait time.Duration
	// Header is sent with the upgrade request.
	Header http.Header
}

// Dial implements Transport.
func (t *WebsocketTransport) Dial(ctx context.Context, address string) (Conn, error) {
	handshake := t.HandshakeTimeout
	if handshake <= 0 {
		handshake = 10 * time.Second
	}
	writeWait := t.WriteWait
	if writeWait <= 0 {
		writeWait = 10 * time.Second
	}

	dialer := websocket.Dialer{
		Proxy:            http.ProxyFromEnvironment,
		HandshakeTimeout: handshake,
	}
	conn, resp, err := dialer.DialContext(ctx, address, t.Header)
	if err != nil {
		if resp != nil {
			_ = resp.Body.Close()
			return nil, fmt.Errorf("websocket dial failed (status %d): %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("websocket dial failed: %w", err)
	}
	if resp != nil && resp.Body != nil {
		if cerr := resp.Body.Close(); cerr != nil {
			logging.Debug().Err(cerr).Msg("failed to close handshake response body")
		}
	}
	return &wsConn{conn: conn, writeWait: writeWait}, nil
}

type wsConn struct {
	conn      *websocket.Conn
	writeWait time.Duration

	writeMu   sync.Mutex
	closeOnce sync.Once
}

func (c *wsConn) ReadFrame() ([]byte, error) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) WriteFrame(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeWait)); err != nil {
		return err
	}
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *wsConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		// WriteControl may run concurrently with WriteFrame.
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		err = c.conn.Close()
	})
	return err
}
