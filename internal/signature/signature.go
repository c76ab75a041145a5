// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

// Package signature verifies HMAC signatures on storefront webhook bodies.
//
// A signature header has the shape "<algorithm>=<hex digest>", for example
// "sha256=9f86d0...", with both parts in lowercase. The digest is an HMAC of the exact raw request body
// keyed with the shared webhook secret.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"errors"
	"hash"
	"strings"

	"github.com/tomtom215/stockroom/internal/logging"
)

// DefaultAlgorithm is used by Sign when no algorithm is given.
const DefaultAlgorithm = "sha256"

// Verification failure reasons. None of them carry the secret or the
// supplied digest.
var (
	ErrMissing              = errors.New("signature header missing")
	ErrMalformed            = errors.New("signature header malformed")
	ErrUnsupportedAlgorithm = errors.New("signature algorithm not supported")
	ErrNoSecret             = errors.New("webhook secret not configured")
	ErrMismatch             = errors.New("signature does not match body")
)

var algorithms = map[string]func() hash.Hash{
	"sha256": sha256.New,
	"sha384": sha512.New384,
	"sha512": sha512.New,
}

// Verify reports whether header is a valid signature of rawBody under
// secret. It never panics; every failure is logged with its reason.
func Verify(rawBody []byte, header string, secret []byte) bool {
	if err := Check(rawBody, header, secret); err != nil {
		logging.Debug().Str("reason", err.Error()).Msg("Webhook signature rejected")
		return false
	}
	return true
}

// Check is Verify with the failure reason returned instead of logged.
func Check(rawBody []byte, header string, secret []byte) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissing
	}
	if len(secret) == 0 {
		return ErrNoSecret
	}

	algo, digest, ok := strings.Cut(header, "=")
	if !ok || algo == "" || digest == "" {
		return ErrMalformed
	}
	// Algorithm names and digests are lowercase on the wire; any other
	// spelling is a different signature.
	newHash, ok := algorithms[algo]
	if !ok {
		return ErrUnsupportedAlgorithm
	}
	if _, err := hex.DecodeString(digest); err != nil {
		return ErrMalformed
	}

	mac := hmac.New(newHash, secret)
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))

	if len(digest) != len(expected) {
		return ErrMismatch
	}
	if !hmac.Equal([]byte(digest), []byte(expected)) {
		return ErrMismatch
	}
	return nil
}

// Sign returns the header value for body under secret using algo
// (sha256, sha384 or sha512). An unknown algo falls back to sha256.
func Sign(body, secret []byte, algo string) string {
	algo = strings.ToLower(algo)
	newHash, ok := algorithms[algo]
	if !ok {
		algo, newHash = DefaultAlgorithm, sha256.New
	}
	mac := hmac.New(newHash, secret)
	mac.Write(body)
	return algo + "=" + hex.EncodeToString(mac.Sum(nil))
}
