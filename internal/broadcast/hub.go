// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package broadcast

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"sync"

	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/metrics"
	"github.com/tomtom215/stockroom/internal/models"
)

// ShutdownReason identifies why the hub stopped.
type ShutdownReason string

const (
	// ShutdownReasonContextCanceled is the normal graceful path (SIGTERM).
	ShutdownReasonContextCanceled ShutdownReason = "context_canceled"
	// ShutdownReasonContextDeadline means the context deadline was exceeded.
	ShutdownReasonContextDeadline ShutdownReason = "context_deadline"
)

// roomStripes is the number of room locks. Rooms hashing to the same
// stripe are serialized with each other, which is harmless.
const roomStripes = 64

var (
	// ErrUnknownConnection is returned for operations on an unregistered peer.
	ErrUnknownConnection = errors.New("unknown connection")
	// ErrDuplicateConnection is returned when a peer ID is registered twice.
	ErrDuplicateConnection = errors.New("connection already registered")
)

// Peer is one connected client as seen by the Hub.
type Peer interface {
	// ID is the server-assigned connection identifier.
	ID() string
	// Send enqueues an encoded frame without blocking. It returns false
	// when the peer's buffer is full or the peer is closed.
	Send(frame []byte) bool
	// Close tears down the peer's transport. It must be idempotent.
	Close()
}

// Hub tracks peers and room membership and fans events out to rooms.
// It is an ordinary value: construct one per server (or per test).
type Hub struct {
	store   MembershipStore
	stripes [roomStripes]sync.Mutex

	// mu guards peers. Lock order is stripe before mu.
	mu    sync.RWMutex
	peers map[string]Peer
}

// NewHub creates a Hub backed by store. A nil store uses a MemoryStore.
func NewHub(store MembershipStore) *Hub {
	if store == nil {
		store = NewMemoryStore()
	}
	return &Hub{
		store: store,
		peers: make(map[string]Peer),
	}
}

func (h *Hub) roomLock(room string) *sync.Mutex {
	f := fnv.New32a()
	_, _ = f.Write([]byte(room))
	return &h.stripes[f.Sum32()%roomStripes]
}

// Register adds a peer. It does not join any room.
func (h *Hub) Register(p Peer) error {
	h.mu.Lock()
	if _, exists := h.peers[p.ID()]; exists {
		h.mu.Unlock()
		return ErrDuplicateConnection
	}
	h.peers[p.ID()] = p
	total := len(h.peers)
	h.mu.Unlock()

	metrics.WSConnections.Set(float64(total))
	logging.Debug().Str("client_id", p.ID()).Int("total_clients", total).Msg("broadcast client registered")
	return nil
}

// OnDisconnect forgets a connection and removes it from every room it was
// in. It returns the rooms that were left. Calling it twice is harmless.
func (h *Hub) OnDisconnect(connID string) []string {
	h.mu.Lock()
	_, known := h.peers[connID]
	delete(h.peers, connID)
	total := len(h.peers)
	h.mu.Unlock()

	// No Join can add connID from here on: Join re-checks registration
	// under mu while holding the room lock.
	rooms := h.store.RoomsOf(connID)
	for _, room := range rooms {
		lock := h.roomLock(room)
		lock.Lock()
		h.store.Remove(room, connID)
		lock.Unlock()
	}

	if known {
		metrics.WSConnections.Set(float64(total))
		h.updateRoomGauge()
		logging.Debug().Str("client_id", connID).Int("rooms_left", len(rooms)).Int("total_clients", total).Msg("broadcast client disconnected")
	}
	return rooms
}

// Join adds connID to room and sends the peer a room_joined ack. Joining a
// room twice is a no-op that is acknowledged again. The returned bool
// reports whether membership changed.
func (h *Hub) Join(connID, room string) (bool, error) {
	room, err := NormalizeRoom(room)
	if err != nil {
		return false, err
	}

	lock := h.roomLock(room)
	lock.Lock()
	defer lock.Unlock()

	h.mu.RLock()
	peer, ok := h.peers[connID]
	if !ok {
		h.mu.RUnlock()
		return false, ErrUnknownConnection
	}
	added := h.store.Add(room, connID)
	h.mu.RUnlock()

	// The ack is queued under the room lock so it precedes any event
	// published to the room after this join.
	if frame, err := encodeFrame(FrameRoomJoined, RoomAck{Room: room, ClientID: connID}); err == nil {
		peer.Send(frame)
	}
	if added {
		h.updateRoomGauge()
	}
	return added, nil
}

// Leave removes connID from room. Leaving a room one is not in is a no-op.
// The returned bool reports whether membership changed.
func (h *Hub) Leave(connID, room string) (bool, error) {
	room, err := NormalizeRoom(room)
	if err != nil {
		return false, err
	}

	lock := h.roomLock(room)
	lock.Lock()
	defer lock.Unlock()

	removed := h.store.Remove(room, connID)

	h.mu.RLock()
	peer, ok := h.peers[connID]
	h.mu.RUnlock()
	if ok {
		if frame, err := encodeFrame(FrameRoomLeft, RoomAck{Room: room, ClientID: connID}); err == nil {
			peer.Send(frame)
		}
	}
	if removed {
		h.updateRoomGauge()
	}
	return removed, nil
}

// Publish sends a message frame of msgType to every member of room. It
// returns false when the room has no members, which is the normal
// "nobody online" case rather than an error.
func (h *Hub) Publish(room, msgType string, data interface{}) bool {
	return h.Deliver(room, msgType, data) > 0
}

// PublishOrder publishes an order event under its event type.
//
//nolint:gocritic // OrderEvent is immutable and copied into the frame
func (h *Hub) PublishOrder(room string, event models.OrderEvent) bool {
	return h.Publish(room, event.EventType.String(), event)
}

// Deliver is Publish returning the number of members the frame was
// offered to.
func (h *Hub) Deliver(room, msgType string, data interface{}) int {
	room, err := NormalizeRoom(room)
	if err != nil {
		metrics.RecordPublish(metrics.PublishResultNoMembers)
		return 0
	}

	frame, err := encodeFrame(FrameMessage, MessageData{Type: msgType, Data: data, Timestamp: timestamp()})
	if err != nil {
		logging.Error().Err(err).Str("message_type", msgType).Msg("failed to encode broadcast frame")
		metrics.RecordPublish(metrics.PublishResultError)
		return 0
	}

	lock := h.roomLock(room)
	lock.Lock()
	members := h.store.Members(room)
	var slow []Peer
	h.mu.RLock()
	for _, id := range members {
		peer, ok := h.peers[id]
		if !ok {
			continue
		}
		if !peer.Send(frame) {
			slow = append(slow, peer)
		}
	}
	h.mu.RUnlock()
	lock.Unlock()

	// Evict outside the room lock; OnDisconnect takes other room locks.
	for _, peer := range slow {
		metrics.BroadcastFramesDropped.Inc()
		logging.Warn().Str("client_id", peer.ID()).Str("room", room).Msg("send buffer full, disconnecting slow broadcast client")
		h.OnDisconnect(peer.ID())
		peer.Close()
	}

	if len(members) == 0 {
		metrics.RecordPublish(metrics.PublishResultNoMembers)
		return 0
	}
	metrics.RecordPublish(metrics.PublishResultDelivered)
	return len(members)
}

// SendTo queues a frame for a single peer, used for pong and error replies.
func (h *Hub) SendTo(connID, frameType string, data interface{}) bool {
	h.mu.RLock()
	peer, ok := h.peers[connID]
	h.mu.RUnlock()
	if !ok {
		return false
	}
	frame, err := encodeFrame(frameType, data)
	if err != nil {
		return false
	}
	return peer.Send(frame)
}

// ConnectionCount returns the number of registered peers.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// RoomCounts returns the member count of every room.
func (h *Hub) RoomCounts() map[string]int {
	return h.store.Counts()
}

// RoomCount returns the number of members in room.
func (h *Hub) RoomCount(room string) int {
	return len(h.store.Members(room))
}

// Members returns the connection IDs in room, sorted.
func (h *Hub) Members(room string) []string {
	return h.store.Members(room)
}

// RoomsOf returns the rooms connID belongs to, sorted.
func (h *Hub) RoomsOf(connID string) []string {
	return h.store.RoomsOf(connID)
}

// Stats returns a snapshot for the stats endpoint.
func (h *Hub) Stats() models.BroadcastStats {
	return models.BroadcastStats{
		Connections: h.ConnectionCount(),
		Rooms:       h.RoomCounts(),
	}
}

// RunWithContext blocks until ctx is done, then closes every peer. It is
// the hub's lifecycle hook for supervision.
func (h *Hub) RunWithContext(ctx context.Context) error {
	<-ctx.Done()
	h.logGracefulShutdown(ctx)
	return ctx.Err()
}

func (h *Hub) logGracefulShutdown(ctx context.Context) {
	closed := h.closeAll()
	logging.Info().
		Str("component", "broadcast-hub").
		Str("reason", string(getShutdownReason(ctx))).
		Int("clients_closed", closed).
		Msg("broadcast hub stopped")
}

func getShutdownReason(ctx context.Context) ShutdownReason {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return ShutdownReasonContextDeadline
	}
	return ShutdownReasonContextCanceled
}

// closeAll disconnects every peer in ID order.
func (h *Hub) closeAll() int {
	h.mu.RLock()
	peers := make([]Peer, 0, len(h.peers))
	for _, p := range h.peers {
		peers = append(peers, p)
	}
	h.mu.RUnlock()

	sort.Slice(peers, func(i, j int) bool { return peers[i].ID() < peers[j].ID() })
	for _, p := range peers {
		h.OnDisconnect(p.ID())
		p.Close()
	}
	return len(peers)
}

func (h *Hub) updateRoomGauge() {
	metrics.BroadcastRooms.Set(float64(len(h.store.Counts())))
}
