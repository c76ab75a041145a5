// Stockroom - Inventory and Order Management Dashboard
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/stockroom

package signature

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/tomtom215/stockroom/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "disabled", Output: io.Discard})
}

var (
	testSecret = []byte("whsec_test_secret")
	testBody   = []byte(`{"event":"new_order","data":{"orderId":"A100"}}`)
)

func TestSignVerify_RoundTrip(t *testing.T) {
	t.Parallel()

	bodies := [][]byte{
		testBody,
		{},
		[]byte("not json at all"),
		[]byte(strings.Repeat("x", 64*1024)),
	}

	for _, algo := range []string{"sha256", "sha384", "sha512", "SHA256"} {
		for _, body := range bodies {
			header := Sign(body, testSecret, algo)
			if !Verify(body, header, testSecret) {
				t.Errorf("Verify(%s, len=%d) = false, want true", algo, len(body))
			}
		}
	}
}

func TestVerify_SingleBitMutations(t *testing.T) {
	t.Parallel()

	header := []byte(Sign(testBody, testSecret, "sha256"))

	for i := 0; i < len(header)*8; i++ {
		mutated := make([]byte, len(header))
		copy(mutated, header)
		mutated[i/8] ^= 1 << (i % 8)

		if Verify(testBody, string(mutated), testSecret) {
			t.Fatalf("bit %d flipped (%q): Verify returned true", i, mutated)
		}
	}
}

func TestVerify_CaseVariantsRejected(t *testing.T) {
	t.Parallel()

	header := Sign(testBody, testSecret, "sha256")
	_, digest, _ := strings.Cut(header, "=")

	tests := []struct {
		name   string
		header string
		want   error
	}{
		{"uppercase algorithm", "SHA256=" + digest, ErrUnsupportedAlgorithm},
		{"mixed case algorithm", "Sha256=" + digest, ErrUnsupportedAlgorithm},
		{"uppercase digest", "sha256=" + strings.ToUpper(digest), ErrMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if err := Check(testBody, tt.header, testSecret); !errors.Is(err, tt.want) {
				t.Errorf("Check(%q) = %v, want %v", tt.header, err, tt.want)
			}
		})
	}
}

func TestVerify_TamperedBody(t *testing.T) {
	t.Parallel()

	header := Sign(testBody, testSecret, "sha256")
	tampered := []byte(strings.Replace(string(testBody), "A100", "A101", 1))

	if err := Check(tampered, header, testSecret); !errors.Is(err, ErrMismatch) {
		t.Errorf("Check(tampered) = %v, want ErrMismatch", err)
	}
}

func TestVerify_WrongSecret(t *testing.T) {
	t.Parallel()

	header := Sign(testBody, []byte("other-secret"), "sha256")
	if Verify(testBody, header, testSecret) {
		t.Error("signature made with another secret should not verify")
	}
}

func TestCheck_MalformedInput(t *testing.T) {
	t.Parallel()

	valid := Sign(testBody, testSecret, "sha256")
	_, digest, _ := strings.Cut(valid, "=")

	tests := []struct {
		name   string
		header string
		secret []byte
		want   error
	}{
		{"empty header", "", testSecret, ErrMissing},
		{"whitespace header", "   ", testSecret, ErrMissing},
		{"no secret", valid, nil, ErrNoSecret},
		{"no separator", digest, testSecret, ErrMalformed},
		{"no algorithm", "=" + digest, testSecret, ErrMalformed},
		{"no digest", "sha256=", testSecret, ErrMalformed},
		{"non-hex digest", "sha256=zzzz", testSecret, ErrMalformed},
		{"odd-length hex", "sha256=abc", testSecret, ErrMalformed},
		{"unknown algorithm", "md5=" + digest, testSecret, ErrUnsupportedAlgorithm},
		{"truncated digest", "sha256=" + digest[:32], testSecret, ErrMismatch},
		{"extended digest", "sha256=" + digest + "00", testSecret, ErrMismatch},
		{"algorithm mismatch", "sha512=" + digest, testSecret, ErrMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := Check(testBody, tt.header, tt.secret)
			if !errors.Is(err, tt.want) {
				t.Errorf("Check() = %v, want %v", err, tt.want)
			}
			if Verify(testBody, tt.header, tt.secret) {
				t.Error("Verify() = true for malformed input")
			}
		})
	}
}

func TestSign_UnknownAlgorithmFallsBack(t *testing.T) {
	t.Parallel()

	header := Sign(testBody, testSecret, "whirlpool")
	if !strings.HasPrefix(header, "sha256=") {
		t.Errorf("Sign() = %q, want sha256 prefix", header)
	}
}

func FuzzVerify(f *testing.F) {
	f.Add([]byte("body"), "sha256=00")
	f.Add([]byte{}, "")
	f.Add(testBody, Sign(testBody, testSecret, "sha256"))

	f.Fuzz(func(t *testing.T, body []byte, header string) {
		// Must not panic on arbitrary input.
		_ = Verify(body, header, testSecret)
	})
}
