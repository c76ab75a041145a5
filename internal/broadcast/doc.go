// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

/*
Package broadcast implements the room-based fan-out server that pushes
order events to connected dashboard clients.

# Model

A Hub tracks connections (Peer) and room membership (MembershipStore).
Rooms are not declared up front; a room exists exactly while it has at
least one member. Membership has set semantics: joining twice is a no-op,
and a connection that goes away without leaving is removed from every
room it belonged to.

# Ordering and Concurrency

Join, Leave and Publish on the same room are serialized by a striped room
lock, so a member either receives an event or joined after it was
published; it never misses or double-receives one because of a concurrent
membership change. Publishes to different rooms proceed in parallel. Each
Peer owns a FIFO send buffer, so events published to one room reach every
member in publish order. No ordering is promised across rooms.

Publish never blocks on a slow client: a peer whose buffer is full is
evicted and its transport closed.

# Protocol

Clients speak JSON text frames over a WebSocket (see ServeWS):

	-> {"type":"join_room","room":"admins"}
	<- {"type":"room_joined","data":{"room":"admins","clientId":"..."}}
	-> {"type":"ping"}
	<- {"type":"pong","data":{"timestamp":"..."}}
	<- {"type":"message","data":{"type":"new_order","data":{...},"timestamp":"..."}}
*/
package broadcast
