// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package client

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stockroom/internal/broadcast"
	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/metrics"
	"github.com/tomtom215/stockroom/internal/models"
)

// State is the connection state.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "unknown"
	}
}

var (
	// ErrNotConnected is returned by send operations while not Connected.
	ErrNotConnected = errors.New("not connected")
	// ErrSendBufferFull is returned when the outbound queue is full.
	ErrSendBufferFull = errors.New("send buffer full")
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("manager closed")
	// ErrNoAddress is returned by Connect without an address.
	ErrNoAddress = errors.New("no server address")
)

// Status is a snapshot for display.
type Status struct {
	State   State
	Address string
	// ClientID is the server-assigned ID of the current connection.
	ClientID string
	Rooms    []string
	// ReconnectAttempts counts attempts since the last successful connect.
	ReconnectAttempts int
	// Exhausted is true once the backoff policy gave up.
	Exhausted bool
	LastError string
}

// Options configures a Manager.
type Options struct {
	// Address is used when Connect is called with an empty address.
	Address string
	// Rooms are joined on every connect.
	Rooms            []string
	Backoff          BackoffPolicy
	HandshakeTimeout time.Duration
	// SendBuffer is the outbound frame queue size. Zero means 64.
	SendBuffer int
	Transport  Transport
	Dispatcher *Dispatcher
}

// Manager owns one logical connection to the broadcast server.
type Manager struct {
	opts       Options
	transport  Transport
	dispatcher *Dispatcher

	mu        sync.Mutex
	state     State
	gen       uint64
	address   string
	conn      Conn
	send      chan []byte
	cancel    context.CancelFunc
	rooms     map[string]struct{}
	clientID  string
	attempts  int
	exhausted bool
	lastErr   error
	closed    bool

	queueMu sync.Mutex
	queue   []queuedEvent
	wake    chan struct{}
	done    chan struct{}

	wg sync.WaitGroup
}

type queuedEvent struct {
	gen uint64
	// always events are dispatched even if the session has moved on.
	always bool
	ev     Event
}

// NewManager creates a Manager in the Disconnected state.
func NewManager(opts Options) *Manager {
	if opts.Transport == nil {
		opts.Transport = &WebsocketTransport{HandshakeTimeout: opts.HandshakeTimeout}
	}
	if opts.Dispatcher == nil {
		opts.Dispatcher = NewDispatcher()
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = 10 * time.Second
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 64
	}

	m := &Manager{
		opts:       opts,
		transport:  opts.Transport,
		dispatcher: opts.Dispatcher,
		address:    opts.Address,
		rooms:      make(map[string]struct{}),
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
	}
	for _, room := range opts.Rooms {
		if room, err := broadcast.NormalizeRoom(room); err == nil {
			m.rooms[room] = struct{}{}
		}
	}

	m.wg.Add(1)
	go m.dispatchLoop()
	return m
}

// Dispatcher returns the event dispatcher.
func (m *Manager) Dispatcher() *Dispatcher {
	return m.dispatcher
}

// Connect starts connecting to address (or Options.Address when empty).
// It returns immediately; progress is reported through events. Connect is
// a no-op unless the manager is Disconnected.
func (m *Manager) Connect(address string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.state != StateDisconnected {
		return nil
	}
	if address == "" {
		address = m.address
	}
	if address == "" {
		return ErrNoAddress
	}
	m.startLocked(address)
	return nil
}

// RefreshConnection drops the current session and starts a new one with a
// fresh reconnect budget. It works from any state, including after the
// policy was exhausted.
func (m *Manager) RefreshConnection() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrClosed
	}
	if m.address == "" {
		return ErrNoAddress
	}
	m.teardownLocked(nil)
	m.startLocked(m.address)
	return nil
}

// Disconnect closes the connection and stops reconnecting.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardownLocked(nil)
}

// Close disconnects and stops event dispatch. It must not be called from
// an event handler.
func (m *Manager) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.teardownLocked(nil)
	m.closed = true
	m.mu.Unlock()

	close(m.done)
	m.wg.Wait()
}

// JoinRoom adds room to the rooms joined on every connect and, when
// connected, joins it now. While not connected it returns ErrNotConnected
// but the room is still joined on the next connect.
func (m *Manager) JoinRoom(room string) error {
	room, err := broadcast.NormalizeRoom(room)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rooms[room] = struct{}{}
	return m.sendLocked(broadcast.InboundFrame{Type: broadcast.FrameJoinRoom, Room: room})
}

// LeaveRoom forgets room and, when connected, leaves it now.
func (m *Manager) LeaveRoom(room string) error {
	room, err := broadcast.NormalizeRoom(room)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.rooms, room)
	return m.sendLocked(broadcast.InboundFrame{Type: broadcast.FrameLeaveRoom, Room: room})
}

// Ping asks the server for a pong.
func (m *Manager) Ping() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sendLocked(broadcast.InboundFrame{Type: broadcast.FramePing})
}

// Status returns a snapshot of the connection state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		State:             m.state,
		Address:           m.address,
		ClientID:          m.clientID,
		Rooms:             m.roomListLocked(),
		ReconnectAttempts: m.attempts,
		Exhausted:         m.exhausted,
	}
	if m.lastErr != nil {
		s.LastError = m.lastErr.Error()
	}
	return s
}

// State returns the current state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) startLocked(address string) {
	// A previous session may still be waiting out a backoff delay.
	if m.cancel != nil {
		m.cancel()
	}
	m.gen++
	gen := m.gen
	ctx, cancel := context.WithCancel(context.Background())

	m.address = address
	m.cancel = cancel
	m.state = StateConnecting
	m.attempts = 0
	m.exhausted = false
	m.lastErr = nil

	m.wg.Add(1)
	go m.run(ctx, gen, address)
}

// teardownLocked ends the current session. A Disconnected event is emitted
// only when a connection was actually up.
func (m *Manager) teardownLocked(err error) {
	wasConnected := m.state == StateConnected

	m.gen++
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
	m.send = nil
	m.clientID = ""
	m.state = StateDisconnected
	metrics.RecordClientConnected(false)

	if wasConnected {
		m.enqueue(queuedEvent{gen: m.gen, always: true, ev: Disconnected{Err: err}})
	}
}

func (m *Manager) run(ctx context.Context, gen uint64, address string) {
	defer m.wg.Done()

	attempt := 0
	for {
		if attempt > 0 {
			delay, ok := m.opts.Backoff.Next(attempt)
			if !ok {
				m.giveUp(gen, attempt-1)
				return
			}
			if !m.noteAttempt(gen, attempt) {
				return
			}
			if !sleepCtx(ctx, delay) {
				return
			}
			if !m.setState(gen, StateConnecting) {
				return
			}
		}

		conn, err := m.dial(ctx, address)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logging.Warn().Err(err).Str("address", address).Int("attempt", attempt).Msg("broadcast connection attempt failed")
			if !m.dialFailed(gen, err) {
				return
			}
			attempt++
			continue
		}

		send, ok := m.attach(gen, conn, address)
		if !ok {
			_ = conn.Close()
			return
		}
		attempt = 0

		err = m.session(ctx, gen, conn, send)
		_ = conn.Close()
		if ctx.Err() != nil {
			return
		}

		_, willRetry := m.opts.Backoff.Next(1)
		if !m.lost(gen, err, willRetry) {
			return
		}
		attempt = 1
	}
}

func (m *Manager) dial(ctx context.Context, address string) (Conn, error) {
	dialCtx, cancel := context.WithTimeout(ctx, m.opts.HandshakeTimeout)
	defer cancel()
	return m.transport.Dial(dialCtx, address)
}

// attach records a new connection and queues join frames for every
// desired room ahead of any caller frame.
func (m *Manager) attach(gen uint64, conn Conn, address string) (chan []byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return nil, false
	}

	rooms := m.roomListLocked()
	send := make(chan []byte, m.opts.SendBuffer+len(rooms))
	for _, room := range rooms {
		if frame, err := json.Marshal(broadcast.InboundFrame{Type: broadcast.FrameJoinRoom, Room: room}); err == nil {
			send <- frame
		}
	}

	m.conn = conn
	m.send = send
	m.state = StateConnected
	m.attempts = 0
	m.exhausted = false
	m.lastErr = nil
	metrics.RecordClientConnected(true)

	logging.Info().Str("address", address).Strs("rooms", rooms).Msg("connected to broadcast server")
	m.enqueue(queuedEvent{gen: gen, ev: Connected{Address: address, Rooms: rooms}})
	return send, true
}

// session runs the writer and the read loop until the connection fails or
// ctx is canceled.
func (m *Manager) session(ctx context.Context, gen uint64, conn Conn, send chan []byte) error {
	sessCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	writeErr := make(chan error, 1)
	go func() {
		for {
			select {
			case <-sessCtx.Done():
				return
			case frame := <-send:
				if err := conn.WriteFrame(frame); err != nil {
					writeErr <- err
					_ = conn.Close()
					return
				}
			}
		}
	}()

	for {
		data, err := conn.ReadFrame()
		if err != nil {
			select {
			case werr := <-writeErr:
				return werr
			default:
				return err
			}
		}
		m.handleFrame(gen, data)
	}
}

type serverFrame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type messageFrame struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

func (m *Manager) handleFrame(gen uint64, data []byte) {
	var frame serverFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		logging.Debug().Err(err).Msg("ignoring undecodable broadcast frame")
		return
	}

	switch frame.Type {
	case broadcast.FrameRoomJoined:
		var ack broadcast.RoomAck
		if err := json.Unmarshal(frame.Data, &ack); err != nil {
			return
		}
		m.mu.Lock()
		if gen == m.gen {
			m.clientID = ack.ClientID
		}
		m.mu.Unlock()
		m.enqueue(queuedEvent{gen: gen, ev: RoomJoined(ack)})

	case broadcast.FrameRoomLeft:
		var ack broadcast.RoomAck
		if err := json.Unmarshal(frame.Data, &ack); err != nil {
			return
		}
		m.enqueue(queuedEvent{gen: gen, ev: RoomLeft(ack)})

	case broadcast.FrameMessage:
		var msg messageFrame
		if err := json.Unmarshal(frame.Data, &msg); err != nil {
			return
		}
		if _, ok := models.ParseEventType(msg.Type); !ok {
			logging.Debug().Str("type", logging.SanitizeValue(msg.Type)).Msg("ignoring message of unknown type")
			return
		}
		var order models.OrderEvent
		if err := json.Unmarshal(msg.Data, &order); err != nil {
			logging.Warn().Err(err).Msg("ignoring undecodable order event")
			return
		}
		m.enqueue(queuedEvent{gen: gen, ev: OrderReceived{Order: order, SentAt: parseTimestamp(msg.Timestamp)}})

	case broadcast.FramePong:
		var pong broadcast.PongData
		_ = json.Unmarshal(frame.Data, &pong)
		m.enqueue(queuedEvent{gen: gen, ev: Pong{Timestamp: parseTimestamp(pong.Timestamp)}})

	case broadcast.FrameError:
		var e broadcast.ErrorData
		_ = json.Unmarshal(frame.Data, &e)
		m.enqueue(queuedEvent{gen: gen, ev: ServerError{Message: e.Message}})

	default:
		logging.Debug().Str("type", logging.SanitizeValue(frame.Type)).Msg("ignoring unknown frame type")
	}
}

func (m *Manager) setState(gen uint64, state State) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.state = state
	return true
}

func (m *Manager) dialFailed(gen uint64, err error) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.state = StateDisconnected
	m.lastErr = err
	return true
}

func (m *Manager) noteAttempt(gen uint64, attempt int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.attempts = attempt
	metrics.ClientReconnectAttempts.Inc()
	logging.Info().Int("attempt", attempt).Int("max_attempts", m.opts.Backoff.MaxAttempts).Msg("reconnecting to broadcast server")
	return true
}

// lost handles the end of an established session.
func (m *Manager) lost(gen uint64, err error, willRetry bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return false
	}
	m.conn = nil
	m.send = nil
	m.clientID = ""
	m.state = StateDisconnected
	m.lastErr = err
	metrics.RecordClientConnected(false)

	logging.Warn().Err(err).Bool("will_reconnect", willRetry).Msg("broadcast connection lost")
	m.enqueue(queuedEvent{gen: gen, ev: Disconnected{Err: err, WillReconnect: willRetry}})
	return true
}

func (m *Manager) giveUp(gen uint64, attempts int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if gen != m.gen {
		return
	}
	m.state = StateDisconnected
	m.exhausted = true
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}

	logging.Error().Err(m.lastErr).Int("attempts", attempts).Msg("giving up on broadcast server; manual retry required")
	m.enqueue(queuedEvent{gen: gen, ev: ReconnectFailed{Attempts: attempts, Err: m.lastErr}})
}

func (m *Manager) sendLocked(frame broadcast.InboundFrame) error {
	if m.closed {
		return ErrClosed
	}
	if m.state != StateConnected || m.send == nil {
		return ErrNotConnected
	}
	data, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	select {
	case m.send <- data:
		return nil
	default:
		return ErrSendBufferFull
	}
}

func (m *Manager) roomListLocked() []string {
	rooms := make([]string, 0, len(m.rooms))
	for room := range m.rooms {
		rooms = append(rooms, room)
	}
	sort.Strings(rooms)
	return rooms
}

func (m *Manager) currentGen() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.gen
}

// enqueue adds an event to the dispatch queue. It never blocks, so it is
// safe to call with mu held and from handlers.
func (m *Manager) enqueue(e queuedEvent) {
	m.queueMu.Lock()
	m.queue = append(m.queue, e)
	m.queueMu.Unlock()

	select {
	case m.wake <- struct{}{}:
	default:
	}
}

func (m *Manager) dispatchLoop() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			m.drain()
			return
		case <-m.wake:
			m.drain()
		}
	}
}

func (m *Manager) drain() {
	for {
		m.queueMu.Lock()
		if len(m.queue) == 0 {
			m.queueMu.Unlock()
			return
		}
		e := m.queue[0]
		m.queue[0] = queuedEvent{}
		m.queue = m.queue[1:]
		m.queueMu.Unlock()

		if !e.always && e.gen != m.currentGen() {
			continue
		}
		m.dispatcher.Dispatch(e.ev)
	}
}

func parseTimestamp(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
