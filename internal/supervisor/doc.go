// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

/*
Package supervisor runs Stockroom's long-lived services under a suture v4
supervisor tree.

The tree has two layers so a failing bus bridge cannot take the HTTP
listener down with it:

	root ("stockroom")
	├── messaging-layer
	│   ├── broadcast-hub     (services.HubService)
	│   ├── event-bus-bridge  (services.BridgeService, bus mode only)
	│   └── order-watch       (services.WatchService, cmd/orderwatch)
	└── api-layer
	    └── webhook-api       (services.HTTPServerService)

Crashed services are restarted with suture's failure threshold, decay and
backoff. Supervisor events go to zerolog through sutureslog and
logging.NewSlogLogger.

Usage:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
		return err
	}
	tree.AddMessagingService(services.NewHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService("webhook-api", srv, 10*time.Second))
	return tree.Serve(ctx)
*/
package supervisor
