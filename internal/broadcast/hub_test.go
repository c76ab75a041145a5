// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package broadcast

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

// fakePeer records frames instead of writing to a socket.
type fakePeer struct {
	id       string
	capacity int

	mu     sync.Mutex
	frames []OutboundFrame
	raw    [][]byte
	closed bool
}

func newFakePeer(id string) *fakePeer {
	return &fakePeer{id: id, capacity: 1 << 20}
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(frame []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || len(p.raw) >= p.capacity {
		return false
	}
	var decoded struct {
		Type string          `json:"type"`
		Data json.RawMessage `json:"data"`
	}
	_ = json.Unmarshal(frame, &decoded)
	p.frames = append(p.frames, OutboundFrame{Type: decoded.Type, Data: decoded.Data})
	p.raw = append(p.raw, frame)
	return true
}

func (p *fakePeer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}

func (p *fakePeer) isClosed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closed
}

// messages returns the data of every "message" frame.
func (p *fakePeer) messages(t *testing.T) []MessageData {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []MessageData
	for _, f := range p.frames {
		if f.Type != FrameMessage {
			continue
		}
		var md MessageData
		if err := json.Unmarshal(f.Data.(json.RawMessage), &md); err != nil {
			t.Fatalf("decode message frame: %v", err)
		}
		out = append(out, md)
	}
	return out
}

func (p *fakePeer) countType(frameType string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, f := range p.frames {
		if f.Type == frameType {
			n++
		}
	}
	return n
}

func registerPeers(t *testing.T, h *Hub, ids ...string) []*fakePeer {
	t.Helper()
	peers := make([]*fakePeer, len(ids))
	for i, id := range ids {
		peers[i] = newFakePeer(id)
		if err := h.Register(peers[i]); err != nil {
			t.Fatalf("Register(%s): %v", id, err)
		}
	}
	return peers
}

func TestHub_RegisterDuplicate(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	registerPeers(t, h, "c1")
	if err := h.Register(newFakePeer("c1")); !errors.Is(err, ErrDuplicateConnection) {
		t.Errorf("Register duplicate = %v, want ErrDuplicateConnection", err)
	}
	if h.ConnectionCount() != 1 {
		t.Errorf("ConnectionCount = %d, want 1", h.ConnectionCount())
	}
}

func TestHub_JoinIsIdempotent(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	peers := registerPeers(t, h, "c1")

	added, err := h.Join("c1", "admins")
	if err != nil || !added {
		t.Fatalf("first Join = (%v, %v), want (true, nil)", added, err)
	}
	added, err = h.Join("c1", "admins")
	if err != nil || added {
		t.Fatalf("second Join = (%v, %v), want (false, nil)", added, err)
	}

	if got := h.Members("admins"); len(got) != 1 || got[0] != "c1" {
		t.Errorf("Members = %v, want [c1]", got)
	}
	if got := peers[0].countType(FrameRoomJoined); got != 2 {
		t.Errorf("room_joined acks = %d, want 2 (every join is acknowledged)", got)
	}
}

func TestHub_JoinAckCarriesRoomAndClientID(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	peers := registerPeers(t, h, "c1")
	if _, err := h.Join("c1", "  admins  "); err != nil {
		t.Fatalf("Join: %v", err)
	}

	peers[0].mu.Lock()
	defer peers[0].mu.Unlock()
	var ack RoomAck
	if err := json.Unmarshal(peers[0].frames[0].Data.(json.RawMessage), &ack); err != nil {
		t.Fatalf("decode ack: %v", err)
	}
	if ack.Room != "admins" || ack.ClientID != "c1" {
		t.Errorf("ack = %+v, want room=admins clientId=c1", ack)
	}
}

func TestHub_LeaveIsIdempotentAndDropsEmptyRoom(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	registerPeers(t, h, "c1")
	if _, err := h.Join("c1", "admins"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	removed, err := h.Leave("c1", "admins")
	if err != nil || !removed {
		t.Fatalf("first Leave = (%v, %v), want (true, nil)", removed, err)
	}
	removed, err = h.Leave("c1", "admins")
	if err != nil || removed {
		t.Fatalf("second Leave = (%v, %v), want (false, nil)", removed, err)
	}

	if _, tracked := h.RoomCounts()["admins"]; tracked {
		t.Error("empty room should no longer be tracked")
	}
}

func TestHub_JoinRejectsUnknownConnectionAndBadRoom(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	if _, err := h.Join("ghost", "admins"); !errors.Is(err, ErrUnknownConnection) {
		t.Errorf("Join unknown = %v, want ErrUnknownConnection", err)
	}

	registerPeers(t, h, "c1")
	for _, room := range []string{"", "   ", string(make([]byte, MaxRoomNameLength+1))} {
		if _, err := h.Join("c1", room); !errors.Is(err, ErrInvalidRoom) {
			t.Errorf("Join(%q) = %v, want ErrInvalidRoom", room, err)
		}
	}
}

func TestHub_PublishToEmptyRoomReturnsFalse(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	registerPeers(t, h, "c1")

	if h.Publish("admins", "new_order", map[string]string{"orderId": "A1"}) {
		t.Error("Publish to room without members should return false")
	}
	if h.Publish("never-existed", "new_order", nil) {
		t.Error("Publish to unknown room should return false")
	}
}

func TestHub_PublishReachesOnlyMembers(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	peers := registerPeers(t, h, "c1", "c2", "c3")
	for _, id := range []string{"c1", "c2"} {
		if _, err := h.Join(id, "admins"); err != nil {
			t.Fatalf("Join: %v", err)
		}
	}

	event := models.OrderEvent{EventType: models.EventNewOrder, OrderID: "A100"}
	if !h.PublishOrder("admins", event) {
		t.Fatal("PublishOrder returned false for a populated room")
	}

	for i, want := range []int{1, 1, 0} {
		if got := len(peers[i].messages(t)); got != want {
			t.Errorf("peer %s received %d messages, want %d", peers[i].ID(), got, want)
		}
	}

	msg := peers[0].messages(t)[0]
	if msg.Type != "new_order" {
		t.Errorf("message type = %q, want new_order", msg.Type)
	}
	if _, err := time.Parse(time.RFC3339Nano, msg.Timestamp); err != nil {
		t.Errorf("message timestamp %q not RFC3339: %v", msg.Timestamp, err)
	}
}

func TestHub_DisconnectRemovesFromAllRooms(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	peers := registerPeers(t, h, "c1", "c2")
	rooms := []string{"admins", "fulfilment", "support"}
	for _, room := range rooms {
		if _, err := h.Join("c1", room); err != nil {
			t.Fatalf("Join: %v", err)
		}
	}
	if _, err := h.Join("c2", "support"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	left := h.OnDisconnect("c1")
	if len(left) != 3 {
		t.Fatalf("OnDisconnect left %v, want 3 rooms", left)
	}
	if got := h.RoomsOf("c1"); len(got) != 0 {
		t.Errorf("RoomsOf after disconnect = %v, want none", got)
	}

	for _, room := range rooms {
		h.Publish(room, "new_order", nil)
	}
	if got := len(peers[0].messages(t)); got != 0 {
		t.Errorf("disconnected peer received %d messages", got)
	}
	if got := len(peers[1].messages(t)); got != 1 {
		t.Errorf("remaining peer received %d messages, want 1", got)
	}

	counts := h.RoomCounts()
	if len(counts) != 1 || counts["support"] != 1 {
		t.Errorf("RoomCounts = %v, want only support:1", counts)
	}
	if h.OnDisconnect("c1") != nil {
		t.Error("second OnDisconnect should leave no rooms")
	}
	if _, err := h.Join("c1", "admins"); !errors.Is(err, ErrUnknownConnection) {
		t.Errorf("Join after disconnect = %v, want ErrUnknownConnection", err)
	}
}

func TestHub_PublishOrderIsPreservedPerRoom(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	peers := registerPeers(t, h, "c1", "c2")
	for _, p := range peers {
		if _, err := h.Join(p.ID(), "admins"); err != nil {
			t.Fatalf("Join: %v", err)
		}
	}

	const n = 200
	for i := 0; i < n; i++ {
		h.Publish("admins", "status_update", map[string]int{"seq": i})
	}

	for _, p := range peers {
		msgs := p.messages(t)
		if len(msgs) != n {
			t.Fatalf("peer %s got %d messages, want %d", p.ID(), len(msgs), n)
		}
		for i, m := range msgs {
			raw, _ := json.Marshal(m.Data)
			want := fmt.Sprintf(`{"seq":%d}`, i)
			if string(raw) != want {
				t.Fatalf("peer %s message %d = %s, want %s", p.ID(), i, raw, want)
			}
		}
	}
}

func TestHub_SlowPeerIsEvicted(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	slow := newFakePeer("slow")
	slow.capacity = 1 // the join ack fills it
	fast := newFakePeer("fast")
	for _, p := range []*fakePeer{slow, fast} {
		if err := h.Register(p); err != nil {
			t.Fatalf("Register: %v", err)
		}
		if _, err := h.Join(p.ID(), "admins"); err != nil {
			t.Fatalf("Join: %v", err)
		}
	}

	if !h.Publish("admins", "new_order", nil) {
		t.Fatal("Publish returned false")
	}
	if !slow.isClosed() {
		t.Error("slow peer should be closed")
	}
	if got := h.Members("admins"); len(got) != 1 || got[0] != "fast" {
		t.Errorf("Members = %v, want [fast]", got)
	}
	if h.ConnectionCount() != 1 {
		t.Errorf("ConnectionCount = %d, want 1", h.ConnectionCount())
	}
}

func TestHub_ConcurrentMembershipAndPublish(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	const clients = 50
	peers := make([]*fakePeer, clients)
	for i := range peers {
		peers[i] = newFakePeer(fmt.Sprintf("c%03d", i))
		if err := h.Register(peers[i]); err != nil {
			t.Fatalf("Register: %v", err)
		}
	}

	var wg sync.WaitGroup
	for i, p := range peers {
		wg.Add(1)
		go func(i int, p *fakePeer) {
			defer wg.Done()
			room := fmt.Sprintf("room-%d", i%5)
			for j := 0; j < 20; j++ {
				_, _ = h.Join(p.ID(), room)
				h.Publish(room, "status_update", j)
				_, _ = h.Leave(p.ID(), room)
			}
			_, _ = h.Join(p.ID(), room)
		}(i, p)
	}
	wg.Wait()

	total := 0
	for _, n := range h.RoomCounts() {
		total += n
	}
	if total != clients {
		t.Errorf("total memberships = %d, want %d", total, clients)
	}

	for i := 0; i < clients/2; i++ {
		h.OnDisconnect(peers[i].ID())
	}
	total = 0
	for _, n := range h.RoomCounts() {
		total += n
	}
	if total != clients/2 {
		t.Errorf("total memberships after disconnects = %d, want %d", total, clients/2)
	}
}

func TestHub_RunWithContextClosesPeers(t *testing.T) {
	t.Parallel()

	h := NewHub(nil)
	peers := registerPeers(t, h, "c1", "c2")
	if _, err := h.Join("c1", "admins"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.RunWithContext(ctx) }()
	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("RunWithContext = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("RunWithContext did not return")
	}

	for _, p := range peers {
		if !p.isClosed() {
			t.Errorf("peer %s not closed on shutdown", p.ID())
		}
	}
	if h.ConnectionCount() != 0 || len(h.RoomCounts()) != 0 {
		t.Error("hub should be empty after shutdown")
	}
}

func TestGetShutdownReason(t *testing.T) {
	t.Parallel()

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if got := getShutdownReason(canceled); got != ShutdownReasonContextCanceled {
		t.Errorf("canceled reason = %s", got)
	}

	expired, cancel2 := context.WithTimeout(context.Background(), time.Nanosecond)
	defer cancel2()
	<-expired.Done()
	if got := getShutdownReason(expired); got != ShutdownReasonContextDeadline {
		t.Errorf("deadline reason = %s", got)
	}
}
