// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package publisher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/stockroom/internal/config"
	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/models"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

type recordedPublish struct {
	room  string
	event models.OrderEvent
}

// fakeHub records PublishOrder calls.
type fakeHub struct {
	mu        sync.Mutex
	calls     []recordedPublish
	delivered bool
	notify    chan struct{}
}

func newFakeHub(delivered bool) *fakeHub {
	return &fakeHub{delivered: delivered, notify: make(chan struct{}, 16)}
}

//nolint:gocritic // matches OrderHub
func (h *fakeHub) PublishOrder(room string, event models.OrderEvent) bool {
	h.mu.Lock()
	h.calls = append(h.calls, recordedPublish{room: room, event: event})
	h.mu.Unlock()
	select {
	case h.notify <- struct{}{}:
	default:
	}
	return h.delivered
}

func (h *fakeHub) snapshot() []recordedPublish {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]recordedPublish(nil), h.calls...)
}

func sampleEvent() models.OrderEvent {
	return models.OrderEvent{
		EventType: models.EventNewOrder,
		OrderID:   "A100",
		Payload:   models.OrderPayload{OrderID: "A100", TotalAmount: 42.5, Currency: "USD"},
		EmittedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestLocal(t *testing.T) {
	t.Parallel()

	if _, err := NewLocal(nil); !errors.Is(err, ErrNoHub) {
		t.Errorf("NewLocal(nil) = %v, want ErrNoHub", err)
	}

	for _, delivered := range []bool{true, false} {
		hub := newFakeHub(delivered)
		p, err := NewLocal(hub)
		if err != nil {
			t.Fatal(err)
		}
		got, err := p.Publish(context.Background(), "admins", sampleEvent())
		if err != nil || got != delivered {
			t.Errorf("Publish = (%v, %v), want (%v, nil)", got, err, delivered)
		}
		if calls := hub.snapshot(); len(calls) != 1 || calls[0].room != "admins" {
			t.Errorf("calls = %+v", calls)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	p, _ := NewLocal(newFakeHub(true))
	if _, err := p.Publish(ctx, "admins", sampleEvent()); !errors.Is(err, context.Canceled) {
		t.Errorf("Publish with canceled ctx = %v", err)
	}
}

func TestRemote_Success(t *testing.T) {
	t.Parallel()

	var gotToken string
	var gotReq models.PublishRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != BroadcastPath || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		gotToken = r.Header.Get(TokenHeader)
		_ = json.NewDecoder(r.Body).Decode(&gotReq)
		_ = json.NewEncoder(w).Encode(models.PublishResponse{Delivered: true, Members: 2})
	}))
	defer srv.Close()

	p, err := NewRemote(RemoteOptions{URL: srv.URL + "/", Token: "s3cret"})
	if err != nil {
		t.Fatal(err)
	}
	delivered, err := p.Publish(context.Background(), "admins", sampleEvent())
	if err != nil || !delivered {
		t.Fatalf("Publish = (%v, %v), want (true, nil)", delivered, err)
	}
	if gotToken != "s3cret" {
		t.Errorf("token = %q", gotToken)
	}
	if gotReq.Room != "admins" || gotReq.Event == nil || gotReq.Event.OrderID != "A100" {
		t.Errorf("request = %+v", gotReq)
	}
	if p.State() != "closed" {
		t.Errorf("State = %s, want closed", p.State())
	}
}

func TestRemote_RejectionDoesNotTripBreaker(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	p, err := NewRemote(RemoteOptions{URL: srv.URL, Token: "wrong", BreakerFailures: 2})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := p.Publish(context.Background(), "admins", sampleEvent()); !errors.Is(err, ErrRejected) {
			t.Fatalf("attempt %d: err = %v, want ErrRejected", i, err)
		}
	}
	if p.State() != "closed" {
		t.Errorf("State = %s, want closed", p.State())
	}
}

func TestRemote_ServerErrorsOpenBreaker(t *testing.T) {
	t.Parallel()

	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	p, err := NewRemote(RemoteOptions{URL: srv.URL, Token: "t", BreakerFailures: 3, BreakerTimeout: time.Hour})
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		if _, err := p.Publish(context.Background(), "admins", sampleEvent()); err == nil {
			t.Fatalf("attempt %d should fail", i)
		}
	}
	if p.State() != "open" {
		t.Fatalf("State = %s, want open", p.State())
	}

	_, err = p.Publish(context.Background(), "admins", sampleEvent())
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("err = %v, want ErrOpenState", err)
	}
	if hits.Load() != 3 {
		t.Errorf("server hits = %d, want 3 (open breaker must not call out)", hits.Load())
	}
}

func TestNewRemote_RequiresURL(t *testing.T) {
	t.Parallel()
	if _, err := NewRemote(RemoteOptions{}); err == nil {
		t.Error("NewRemote without URL should fail")
	}
}

func TestBusAndBridge(t *testing.T) {
	t.Parallel()

	hub := newFakeHub(true)
	bus := NewBus(BusOptions{Topic: "orders.test"})
	defer bus.Close()

	bridge, err := NewBridge(bus, bus.Topic(), hub)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bridge.Run(ctx) }()

	select {
	case <-bridge.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("bridge never subscribed")
	}

	queued, err := bus.Publish(context.Background(), "admins", sampleEvent())
	if err != nil || !queued {
		t.Fatalf("Publish = (%v, %v), want (true, nil)", queued, err)
	}

	select {
	case <-hub.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("event never reached hub")
	}
	calls := hub.snapshot()
	if len(calls) != 1 || calls[0].room != "admins" || calls[0].event.OrderID != "A100" {
		t.Errorf("calls = %+v", calls)
	}
	if !calls[0].event.EmittedAt.Equal(sampleEvent().EmittedAt) {
		t.Errorf("EmittedAt = %v", calls[0].event.EmittedAt)
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("bridge did not stop")
	}

	if s := bridge.Stats(); s.Received != 1 || s.Delivered != 1 || s.Rejected != 0 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestBridge_HandleRejectsMalformed(t *testing.T) {
	t.Parallel()

	hub := newFakeHub(true)
	bridge, err := NewBridge(NewBus(BusOptions{}), "", hub)
	if err != nil {
		t.Fatal(err)
	}

	for _, payload := range []string{`not json`, `{"room":"admins"}`, `{"event":{"orderId":"A1"}}`} {
		bridge.Handle(message.NewMessage("m", []byte(payload)))
	}
	if len(hub.snapshot()) != 0 {
		t.Error("malformed messages must not reach the hub")
	}
	if s := bridge.Stats(); s.Rejected != 3 {
		t.Errorf("Rejected = %d, want 3", s.Rejected)
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	hub := newFakeHub(true)
	tests := []struct {
		name       string
		cfg        config.PublisherConfig
		hub        OrderHub
		wantErr    bool
		wantBridge bool
	}{
		{name: "local", cfg: config.PublisherConfig{Mode: config.PublisherModeLocal}, hub: hub},
		{name: "local without hub", cfg: config.PublisherConfig{Mode: config.PublisherModeLocal}, wantErr: true},
		{name: "remote", cfg: config.PublisherConfig{Mode: config.PublisherModeRemote, RemoteURL: "http://broadcast:8080", RemoteToken: "t"}},
		{name: "bus", cfg: config.PublisherConfig{Mode: config.PublisherModeBus, BusTopic: "orders.events"}, hub: hub, wantBridge: true},
		{name: "bus without hub", cfg: config.PublisherConfig{Mode: config.PublisherModeBus}, wantErr: true},
		{name: "unknown", cfg: config.PublisherConfig{Mode: "carrier-pigeon"}, hub: hub, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := tt.cfg
			p, bridge, err := New(&cfg, tt.hub)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if p == nil {
				t.Error("publisher is nil")
			}
			if (bridge != nil) != tt.wantBridge {
				t.Errorf("bridge = %v, wantBridge %v", bridge, tt.wantBridge)
			}
			if bus, ok := p.(*Bus); ok {
				_ = bus.Close()
			}
		})
	}
}
