// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/stockroom/internal/client"
	"github.com/tomtom215/stockroom/internal/logging"
	"github.com/tomtom215/stockroom/internal/models"
	"github.com/tomtom215/stockroom/internal/notifications"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

type stubConn struct {
	status     client.Status
	refreshErr error
	refreshed  int
}

func (s *stubConn) Status() client.Status { return s.status }

func (s *stubConn) RefreshConnection() error {
	s.refreshed++
	return s.refreshErr
}

func seededProjection(t *testing.T) *notifications.Projection {
	t.Helper()
	p := notifications.NewProjection()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, id := range []string{"ord-1", "ord-2"} {
		_, err := p.Apply(models.OrderEvent{
			EventType: models.EventNewOrder,
			OrderID:   id,
			EmittedAt: base.Add(time.Duration(i) * time.Minute),
			Payload:   models.OrderPayload{OrderID: id, CustomerName: "Ada", Currency: "USD"},
		})
		if err != nil {
			t.Fatalf("Apply(%s): %v", id, err)
		}
	}
	return p
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFeedRouter_ListNotifications(t *testing.T) {
	t.Parallel()

	h := newFeedRouter(seededProjection(t), &stubConn{})
	rec := do(t, h, http.MethodGet, "/notifications/", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	var got feedResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Unread != 2 || len(got.Notifications) != 2 {
		t.Fatalf("unread=%d len=%d, want 2/2", got.Unread, len(got.Notifications))
	}
	if got.Notifications[0].Order.OrderID != "ord-2" {
		t.Errorf("first = %s, want newest ord-2", got.Notifications[0].Order.OrderID)
	}
}

func TestFeedRouter_MarkRead(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantMarked int
		wantUnread int
	}{
		{"one id", `{"ids":["ord-1:new_order"]}`, http.StatusOK, 1, 1},
		{"empty body marks all", ``, http.StatusOK, 2, 0},
		{"absent ids marks all", `{}`, http.StatusOK, 2, 0},
		{"empty ids marks none", `{"ids":[]}`, http.StatusOK, 0, 2},
		{"unknown id", `{"ids":["nope"]}`, http.StatusOK, 0, 2},
		{"bad json", `{"ids":`, http.StatusBadRequest, 0, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := seededProjection(t)
			rec := do(t, newFeedRouter(p, &stubConn{}), http.MethodPost, "/notifications/read", tt.body)
			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if p.UnreadCount() != tt.wantUnread {
				t.Errorf("unread = %d, want %d", p.UnreadCount(), tt.wantUnread)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var got markReadResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Marked != tt.wantMarked {
				t.Errorf("marked = %d, want %d", got.Marked, tt.wantMarked)
			}
		})
	}
}

func TestFeedRouter_Clear(t *testing.T) {
	t.Parallel()

	p := seededProjection(t)
	rec := do(t, newFeedRouter(p, &stubConn{}), http.MethodDelete, "/notifications/", "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if p.Len() != 0 {
		t.Errorf("Len() = %d after clear", p.Len())
	}
}

func TestFeedRouter_Connection(t *testing.T) {
	t.Parallel()

	conn := &stubConn{status: client.Status{
		State:     client.StateDisconnected,
		Address:   "ws://example/ws",
		Exhausted: true,
	}}
	h := newFeedRouter(notifications.NewProjection(), conn)

	rec := do(t, h, http.MethodGet, "/connection/", "")
	var got connectionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.State != "disconnected" || !got.Exhausted || got.Rooms == nil {
		t.Errorf("status = %+v", got)
	}

	rec = do(t, h, http.MethodPost, "/connection/refresh", "")
	if rec.Code != http.StatusAccepted || conn.refreshed != 1 {
		t.Errorf("refresh status=%d calls=%d", rec.Code, conn.refreshed)
	}

	conn.refreshErr = client.ErrClosed
	rec = do(t, h, http.MethodPost, "/connection/refresh", "")
	if rec.Code != http.StatusConflict {
		t.Errorf("refresh on closed manager = %d, want 409", rec.Code)
	}
}

func TestFeedRouter_Health(t *testing.T) {
	t.Parallel()

	rec := do(t, newFeedRouter(notifications.NewProjection(), &stubConn{}), http.MethodGet, "/health/live", "")
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
