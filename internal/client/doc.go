// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

/*
Package client is the dashboard side of the broadcast protocol: a
Connection Manager that keeps one logical connection to the broadcast
server alive and turns server frames into typed events.

# States

A Manager is always in one of three states:

	Disconnected --Connect--> Connecting --dial ok--> Connected
	     ^                        |                       |
	     |<------ dial failed ----+                       |
	     |<------------- transport lost ------------------+
	     |
	     +--(BackoffPolicy allows another attempt)--> Connecting

Connect is a no-op unless the manager is Disconnected, so repeated calls
never open a second socket. After a dial failure or a lost connection the
manager waits BackoffPolicy.Delay and tries again, up to MaxAttempts times;
once attempts are exhausted it stays Disconnected, reports Exhausted in
Status and emits ReconnectFailed. RefreshConnection tears the session down
and starts a fresh one with a new attempt budget.

Every successful connect re-sends join_room for each room the caller asked
for, because the server keeps no state across connections.

# Events

Events are dispatched on a single goroutine in the order they occur.
Handlers are registered per EventKind; each handler runs inside its own
recover so a failing subscriber cannot affect the others. The manager does
not deduplicate OrderReceived events: a redelivered order must be safe to
apply twice downstream.
*/
package client
