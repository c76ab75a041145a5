// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package broadcast

import (
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/time/rate"

	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/metrics"
)

// ClientOptions tunes the per-connection pumps.
type ClientOptions struct {
	SendBuffer     int
	MaxMessageSize int64
	WriteWait      time.Duration
	PongWait       time.Duration
	PingPeriod     time.Duration
	InboundRate    float64
	InboundBurst   int
}

// DefaultClientOptions mirrors the config defaults.
func DefaultClientOptions() ClientOptions {
	return ClientOptions{
		SendBuffer:     256,
		MaxMessageSize: 64 * 1024,
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		InboundRate:    10,
		InboundBurst:   20,
	}
}

// Client is the server side of one WebSocket connection. It implements
// Peer and sits between the socket and the Hub.
type Client struct {
	id      string
	hub     *Hub
	conn    *websocket.Conn
	opts    ClientOptions
	limiter *rate.Limiter

	sendMu sync.Mutex
	send   chan []byte
	closed bool
}

// NewClient wraps an upgraded connection with a fresh connection ID.
func NewClient(hub *Hub, conn *websocket.Conn, opts ClientOptions) *Client {
	return &Client{
		id:      uuid.NewString(),
		hub:     hub,
		conn:    conn,
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.InboundRate), opts.InboundBurst),
		send:    make(chan []byte, opts.SendBuffer),
	}
}

// ID implements Peer.
func (c *Client) ID() string {
	return c.id
}

// Send implements Peer.
func (c *Client) Send(frame []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// Close implements Peer. The write pump drains, sends a close frame and
// closes the socket, which in turn ends the read pump.
func (c *Client) Close() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Start registers the client with the hub and launches both pumps.
func (c *Client) Start() error {
	if err := c.hub.Register(c); err != nil {
		return err
	}
	go c.writePump()
	go c.readPump()
	return nil
}

// readPump decodes client frames until the socket fails.
func (c *Client) readPump() {
	defer func() {
		c.hub.OnDisconnect(c.id)
		c.Close()
		_ = c.conn.Close() // best-effort cleanup
	}()

	c.conn.SetReadLimit(c.opts.MaxMessageSize)
	if err := c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait)); err != nil {
		logging.Error().Err(err).Msg("failed to set read deadline")
		return
	}
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				logging.Warn().Err(err).Str("client_id", c.id).Msg("unexpected websocket close error")
			}
			return
		}

		if !c.limiter.Allow() {
			metrics.RecordInboundFrame("rate_limited")
			c.hub.SendTo(c.id, FrameError, ErrorData{Message: "rate limit exceeded"})
			continue
		}

		var frame InboundFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			metrics.RecordInboundFrame("invalid")
			c.hub.SendTo(c.id, FrameError, ErrorData{Message: "invalid frame"})
			continue
		}
		c.handleFrame(frame)
	}
}

func (c *Client) handleFrame(frame InboundFrame) {
	metrics.RecordInboundFrame(frame.Type)

	switch frame.Type {
	case FrameJoinRoom:
		if _, err := c.hub.Join(c.id, frame.Room); err != nil {
			c.hub.SendTo(c.id, FrameError, ErrorData{Message: err.Error()})
			return
		}
		logging.Debug().Str("client_id", c.id).Str("room", logging.SanitizeValue(frame.Room)).Msg("client joined room")

	case FrameLeaveRoom:
		if _, err := c.hub.Leave(c.id, frame.Room); err != nil {
			c.hub.SendTo(c.id, FrameError, ErrorData{Message: err.Error()})
		}

	case FramePing:
		c.hub.SendTo(c.id, FramePong, PongData{Timestamp: timestamp()})

	default:
		c.hub.SendTo(c.id, FrameError, ErrorData{Message: "unknown frame type: " + frame.Type})
	}
}

// writePump writes queued frames and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close() // best-effort cleanup
	}()

	for {
		select {
		case frame, ok := <-c.send:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
				logging.Error().Err(err).Msg("failed to set write deadline")
				return
			}
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				logging.Debug().Err(err).Str("client_id", c.id).Msg("failed to write frame")
				return
			}
			metrics.WSMessagesSent.Inc()

		case <-ticker.C:
			if err := c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait)); err != nil {
				return
			}
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
