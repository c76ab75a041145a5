// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

// Package services adapts long-running components to suture.Service so
// the supervisor tree can restart and stop them.
//
// Each wrapper depends on a small interface rather than the concrete type,
// which keeps this package free of import cycles and lets tests use
// doubles:
//
//	HTTPServerService  ListenAndServe / Shutdown (*http.Server)
//	HubService         RunWithContext (*broadcast.Hub)
//	BridgeService      Run (*publisher.Bridge)
//	WatchService       Connect / Close (*client.Manager)
package services
