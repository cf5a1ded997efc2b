// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

// DefaultLockoutThreshold is the number of failures that locks a bucket.
const DefaultLockoutThreshold = 5

// LockoutPolicy decides lockout from a bucket's failure count.
type LockoutPolicy struct {
	// Threshold is the count at or above which authentication is refused.
	Threshold int
}

// DefaultLockoutPolicy returns the policy with DefaultLockoutThreshold.
func DefaultLockoutPolicy() LockoutPolicy {
	return LockoutPolicy{Threshold: DefaultLockoutThreshold}
}

// LockoutResult contains the result of a lockout check.
type LockoutResult struct {
	// Failures is the count the decision was based on.
	Failures int

	// IsLockedOut indicates authentication must be refused without
	// consulting the user store.
	IsLockedOut bool

	// Remaining is the number of further failures allowed before lockout.
	Remaining int
}

// Limit returns the effective threshold.
func (p LockoutPolicy) Limit() int {
	if p.Threshold <= 0 {
		return DefaultLockoutThreshold
	}
	return p.Threshold
}

// Check evaluates the lockout state for failures.
func (p LockoutPolicy) Check(failures int) LockoutResult {
	threshold := p.Limit()

	result := LockoutResult{Failures: failures}
	if failures >= threshold {
		result.IsLockedOut = true
		return result
	}
	result.Remaining = threshold - failures
	return result
}
