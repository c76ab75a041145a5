// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package api

import "errors"

// ErrNotReady is reported by readiness checks that have not completed.
var ErrNotReady = errors.New("not ready")
