// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

/*
Package notifications folds received order events into display-ready
notifications with local read state.

A Notification's ID is derived from the order ID and event type, never from
the delivery, so a redelivered event after a reconnect updates the existing
entry instead of adding a second one:

	p := notifications.NewProjection()
	unsubscribe := p.Attach(manager.Dispatcher())
	defer unsubscribe()

	changes, cancel := p.Subscribe()
	defer cancel()
	for c := range changes {
		fmt.Println("unread:", c.Unread)
	}

Reapplying an event overwrites the order snapshot but keeps the read flag,
so a notification the operator already dismissed never comes back as
unread. Notifications() is ordered newest first; entries with equal
timestamps keep their insertion order.

Read state is local to the projection. Nothing is sent to the server.
*/
package notifications
