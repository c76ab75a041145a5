// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRecordAPIRequest(t *testing.T) {
	before := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/webhooks/orders", "200"))
	RecordAPIRequest("POST", "/api/v1/webhooks/orders", "200", 15*time.Millisecond)
	after := testutil.ToFloat64(APIRequestsTotal.WithLabelValues("POST", "/api/v1/webhooks/orders", "200"))

	if after != before+1 {
		t.Errorf("api_requests_total = %v, want %v", after, before+1)
	}
}

func TestTrackActiveRequest(t *testing.T) {
	before := testutil.ToFloat64(APIActiveRequests)
	TrackActiveRequest(true)
	if got := testutil.ToFloat64(APIActiveRequests); got != before+1 {
		t.Errorf("active requests = %v, want %v", got, before+1)
	}
	TrackActiveRequest(false)
	if got := testutil.ToFloat64(APIActiveRequests); got != before {
		t.Errorf("active requests = %v, want %v", got, before)
	}
}

func TestRecordInboundFrame_BoundsCardinality(t *testing.T) {
	before := testutil.ToFloat64(WSInboundFrames.WithLabelValues("other"))
	RecordInboundFrame("totally-made-up")
	RecordInboundFrame("another-one")
	if got := testutil.ToFloat64(WSInboundFrames.WithLabelValues("other")); got != before+2 {
		t.Errorf("other frames = %v, want %v", got, before+2)
	}

	joinBefore := testutil.ToFloat64(WSInboundFrames.WithLabelValues("join_room"))
	RecordInboundFrame("join_room")
	if got := testutil.ToFloat64(WSInboundFrames.WithLabelValues("join_room")); got != joinBefore+1 {
		t.Errorf("join_room frames = %v, want %v", got, joinBefore+1)
	}
}

func TestRecordDispatch(t *testing.T) {
	before := testutil.ToFloat64(ClientHandlerFailures.WithLabelValues("order"))
	RecordDispatch("order", 0)
	RecordDispatch("order", 2)
	if got := testutil.ToFloat64(ClientHandlerFailures.WithLabelValues("order")); got != before+2 {
		t.Errorf("handler failures = %v, want %v", got, before+2)
	}
}

func TestRecordClientConnected(t *testing.T) {
	RecordClientConnected(true)
	if got := testutil.ToFloat64(ClientConnected); got != 1 {
		t.Errorf("connected gauge = %v, want 1", got)
	}
	RecordClientConnected(false)
	if got := testutil.ToFloat64(ClientConnected); got != 0 {
		t.Errorf("connected gauge = %v, want 0", got)
	}
}
