// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package api

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stockroom/internal/broadcast"
	"github.com/tomtom215/stockroom/internal/config"
	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/models"
	"github.com/tomtom215/stockroom/internal/publisher"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

const testToken = "internal-token"

type fakePeer struct {
	id     string
	mu     sync.Mutex
	frames [][]byte
}

func (p *fakePeer) ID() string { return p.id }

func (p *fakePeer) Send(frame []byte) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.frames = append(p.frames, frame)
	return true
}

func (p *fakePeer) Close() {}

func (p *fakePeer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

func testConfig() *config.Config {
	return &config.Config{
		Broadcast: config.BroadcastConfig{InternalToken: testToken},
		Security:  config.SecurityConfig{RateLimitDisabled: true},
	}
}

func newTestServer(t *testing.T, opts Options) *httptest.Server {
	t.Helper()
	if opts.Config == nil {
		opts.Config = testConfig()
	}
	srv := httptest.NewServer(NewRouter(opts).SetupChi())
	t.Cleanup(srv.Close)
	return srv
}

func decodeError(t *testing.T, resp *http.Response) string {
	t.Helper()
	var body models.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return body.Error
}

func postBroadcast(t *testing.T, url, token, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, url+"/api/v1/broadcast", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(publisher.TokenHeader, token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	t.Parallel()

	ready := make(chan struct{})
	srv := newTestServer(t, Options{
		Hub:    broadcast.NewHub(nil),
		Checks: []ReadinessCheck{ChannelCheck("bus_bridge", ready)},
	})

	resp, err := http.Get(srv.URL + "/api/v1/health/live")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("live status = %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Content-Type-Options") != "nosniff" || resp.Header.Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing")
	}
	if resp.Header.Get("X-Request-ID") == "" {
		t.Error("request id header missing")
	}

	resp, err = http.Get(srv.URL + "/api/v1/health/ready")
	if err != nil {
		t.Fatal(err)
	}
	var body healthResponse
	_ = json.NewDecoder(resp.Body).Decode(&body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable || body.Checks["bus_bridge"] != ErrNotReady.Error() {
		t.Errorf("ready before bridge = %d %+v", resp.StatusCode, body)
	}

	close(ready)
	resp, err = http.Get(srv.URL + "/api/v1/health/ready")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("ready after bridge = %d", resp.StatusCode)
	}
}

func TestBroadcastEndpoint_Rejections(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, Options{Hub: broadcast.NewHub(nil)})
	valid := `{"room":"admins","event":{"eventType":"new_order","orderId":"A1"}}`

	tests := []struct {
		name       string
		token      string
		body       string
		wantStatus int
		wantError  string
	}{
		{"missing token", "", valid, http.StatusUnauthorized, "Invalid broadcast token"},
		{"wrong token", "nope", valid, http.StatusUnauthorized, "Invalid broadcast token"},
		{"bad json", testToken, `{"room":`, http.StatusBadRequest, "Invalid JSON payload"},
		{"missing event", testToken, `{"room":"admins"}`, http.StatusBadRequest, ""},
		{"missing room", testToken, `{"event":{"eventType":"new_order","orderId":"A1"}}`, http.StatusBadRequest, ""},
		{"missing order id", testToken, `{"room":"admins","event":{"eventType":"new_order"}}`, http.StatusBadRequest, "Missing required field: orderId"},
		{"unknown type", testToken, `{"room":"admins","event":{"eventType":"refund","orderId":"A1"}}`, http.StatusBadRequest, "Unknown event type: refund"},
		{"blank room", testToken, `{"room":"   ","event":{"eventType":"new_order","orderId":"A1"}}`, http.StatusBadRequest, "Invalid room name"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			resp := postBroadcast(t, srv.URL, tt.token, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			msg := decodeError(t, resp)
			if msg == "" {
				t.Error("error body must carry a message")
			}
			if tt.wantError != "" && msg != tt.wantError {
				t.Errorf("error = %q, want %q", msg, tt.wantError)
			}
		})
	}
}

func TestBroadcastEndpoint_DisabledWithoutToken(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Broadcast.InternalToken = ""
	srv := newTestServer(t, Options{Config: cfg, Hub: broadcast.NewHub(nil)})

	resp := postBroadcast(t, srv.URL, "", `{}`)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404", resp.StatusCode)
	}
}

func TestBroadcastEndpoint_Delivers(t *testing.T) {
	t.Parallel()

	hub := broadcast.NewHub(nil)
	srv := newTestServer(t, Options{Hub: hub})
	body := `{"room":"admins","event":{"eventType":"new_order","orderId":"A1"}}`

	resp := postBroadcast(t, srv.URL, testToken, body)
	var out models.PublishResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK || out.Delivered || out.Members != 0 {
		t.Errorf("empty room = %d %+v, want 200 undelivered", resp.StatusCode, out)
	}

	peer := &fakePeer{id: "c1"}
	if err := hub.Register(peer); err != nil {
		t.Fatal(err)
	}
	if _, err := hub.Join("c1", "admins"); err != nil {
		t.Fatal(err)
	}
	before := peer.count()

	resp = postBroadcast(t, srv.URL, testToken, body)
	out = models.PublishResponse{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatal(err)
	}
	if !out.Delivered || out.Members != 1 {
		t.Errorf("response = %+v, want delivered to 1", out)
	}
	if peer.count() != before+1 {
		t.Errorf("peer frames = %d, want %d", peer.count(), before+1)
	}

	resp2, err := http.Get(srv.URL + "/api/v1/broadcast/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp2.Body.Close()
	var stats models.BroadcastStats
	if err := json.NewDecoder(resp2.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Connections != 1 || stats.Rooms["admins"] != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func TestBroadcastEndpoint_BodyTooLarge(t *testing.T) {
	t.Parallel()

	handler := NewRouter(Options{Config: testConfig(), Hub: broadcast.NewHub(nil)}).SetupChi()
	big := `{"room":"admins","event":{"eventType":"new_order","orderId":"` + strings.Repeat("x", maxPublishBodyBytes) + `"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/broadcast", strings.NewReader(big))
	req.Header.Set(publisher.TokenHeader, testToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("status = %d, want 413", rec.Code)
	}
}

func TestRouter_WebhookDisabledAndUnknownRoutes(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, Options{})

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req, _ := http.NewRequest(method, srv.URL+WebhookPath, bytes.NewReader([]byte(`{}`)))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("%s webhook status = %d, want 404", method, resp.StatusCode)
		}
		if msg := decodeError(t, resp); msg != "Webhook endpoint disabled" {
			t.Errorf("%s webhook error = %q", method, msg)
		}
		resp.Body.Close()
	}

	for _, path := range []string{"/nope", "/api/v1/broadcast/stats", "/ws"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("GET %s = %d, want 404 without a hub", path, resp.StatusCode)
		}
		if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("GET %s content type = %q", path, ct)
		}
		resp.Body.Close()
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, Options{})
	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(data), "go_goroutines") {
		t.Errorf("metrics = %d, body missing go collector", resp.StatusCode)
	}
}

func TestRouter_RateLimit(t *testing.T) {
	t.Parallel()

	cfg := testConfig()
	cfg.Security = config.SecurityConfig{RateLimitReqs: 2, RateLimitWindow: time.Minute}
	srv := newTestServer(t, Options{Config: cfg, Hub: broadcast.NewHub(nil)})

	var last *http.Response
	for i := 0; i < 3; i++ {
		resp, err := http.Get(srv.URL + "/api/v1/broadcast/stats")
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		last = resp
	}
	if last.StatusCode != http.StatusTooManyRequests {
		t.Errorf("third request = %d, want 429", last.StatusCode)
	}
}

func TestChiMiddlewareConfigFromSecurity(t *testing.T) {
	t.Parallel()

	cfg := ChiMiddlewareConfigFromSecurity(config.SecurityConfig{CORSOrigins: []string{"https://admin.example"}})
	if cfg.RateLimitRequests != 100 || cfg.RateLimitWindow != time.Minute {
		t.Errorf("defaults not kept: %+v", cfg)
	}
	if len(cfg.CORSAllowedOrigins) != 1 {
		t.Errorf("origins = %v", cfg.CORSAllowedOrigins)
	}
}
