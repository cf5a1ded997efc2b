// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import "crypto/rand"

// fallbackDummyDigest is used only when the hasher cannot produce a dummy
// digest of its own. It never matches any password.
//
//nolint:gosec // G101: intentionally fake hash for timing equalization, not a credential.
const fallbackDummyDigest = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// PasswordVerifier decides whether a supplied password matches a stored digest.
type PasswordVerifier struct {
	hasher PasswordHasher
	// dummy is verified against when a user doesn't exist. It is hashed with
	// the hasher's own parameters so both paths cost the same.
	dummy string
}

// NewPasswordVerifier creates a verifier backed by hasher.
// A nil hasher selects the default Argon2idHasher.
func NewPasswordVerifier(hasher PasswordHasher) *PasswordVerifier {
	if hasher == nil {
		hasher = NewArgon2idHasher()
	}
	dummy, err := hasher.Hash(rand.Text())
	if err != nil {
		dummy = fallbackDummyDigest
	}
	return &PasswordVerifier{hasher: hasher, dummy: dummy}
}

// Verify returns true only if supplied matches stored. Empty inputs and
// malformed stored digests never match.
func (v *PasswordVerifier) Verify(supplied, stored string) bool {
	if supplied == "" || stored == "" {
		return false
	}
	ok, err := v.hasher.Verify(supplied, stored)
	if err != nil {
		return false
	}
	return ok
}

// Burn verifies supplied against a digest of a random secret made with the
// hasher's current parameters, so it costs the same as a real verification.
func (v *PasswordVerifier) Burn(supplied string) {
	if supplied == "" {
		supplied = "x"
	}
	_, _ = v.hasher.Verify(supplied, v.dummy) //nolint:errcheck // only the elapsed time matters
}

// NeedsUpgrade reports whether stored should be rehashed with the current algorithm.
func (v *PasswordVerifier) NeedsUpgrade(stored string) bool {
	return v.hasher.NeedsUpgrade(stored)
}

// Hash produces a new digest for password.
func (v *PasswordVerifier) Hash(password string) (string, error) {
	return v.hasher.Hash(password)
}
