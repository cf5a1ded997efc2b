// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// DigestLength is the length of every digest returned by Digest.
const DigestLength = sha256.Size * 2

// Digest returns the hex-encoded SHA-256 of input. It is deterministic and
// fixed-width; it is used for session token material and token-at-rest
// hashing, never for passwords.
func Digest(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// DigestEqual compares two digests in constant time.
func DigestEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
