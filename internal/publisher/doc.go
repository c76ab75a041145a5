// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

/*
Package publisher hands admitted order events from the webhook endpoint to
the broadcast hub.

Three implementations cover the deployment shapes:

  - Local: the webhook endpoint and the hub share a process; Publish calls
    the hub directly and reports whether the room had members.
  - Remote: the hub runs in another process; Publish posts the event to
    that server's internal broadcast endpoint through a circuit breaker.
  - Bus: Publish enqueues the event on an in-process watermill topic and a
    Bridge drains the topic into the hub. Publish reports true once the
    event is queued; delivery is logged by the Bridge.

All implementations are safe for concurrent use. A false result is never an
error: it means nobody was listening.
*/
package publisher
