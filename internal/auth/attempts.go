// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/oops"
)

// DefaultBuckets is the number of failed-attempt counters per tracker.
const DefaultBuckets = 100

// AttemptTracker counts failed authentication attempts per identity bucket.
// Each operation is atomic with respect to its bucket. The lockout threshold
// is not enforced here; see LockoutPolicy.
type AttemptTracker interface {
	// Get returns the current count for username's bucket (0 if never incremented).
	Get(ctx context.Context, username string) (int, error)

	// Increment adds one to username's bucket and returns the new count.
	Increment(ctx context.Context, username string) (int, error)

	// Reserve adds one to username's bucket only if the count is below limit.
	// It returns the resulting count and whether the attempt was reserved.
	// The check and the increment happen as one step.
	Reserve(ctx context.Context, username string, limit int) (count int, reserved bool, err error)

	// Release takes back one reserved attempt. The count never drops below zero.
	Release(ctx context.Context, username string) error

	// Reset sets username's bucket to zero.
	Reset(ctx context.Context, username string) error
}

// BucketOf maps username to a bucket index in [0, size). Distinct usernames
// may collide and then share a counter.
func BucketOf(username string, size int) int {
	if size <= 0 {
		return 0
	}
	return int(xxhash.Sum64String(username) % uint64(size))
}

// BucketTracker is an in-process AttemptTracker with a fixed number of
// buckets, each guarded by its own mutex.
type BucketTracker struct {
	buckets []bucket
}

type bucket struct {
	mu    sync.Mutex
	count int
}

// NewBucketTracker creates a tracker with size buckets.
// A non-positive size selects DefaultBuckets.
func NewBucketTracker(size int) *BucketTracker {
	if size <= 0 {
		size = DefaultBuckets
	}
	return &BucketTracker{buckets: make([]bucket, size)}
}

// Size returns the number of buckets.
func (t *BucketTracker) Size() int {
	return len(t.buckets)
}

func (t *BucketTracker) bucketFor(username string) *bucket {
	return &t.buckets[BucketOf(username, len(t.buckets))]
}

// Get implements AttemptTracker.
func (t *BucketTracker) Get(ctx context.Context, username string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, oops.With("operation", "get attempts").Wrap(err)
	}
	b := t.bucketFor(username)
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count, nil
}

// Increment implements AttemptTracker.
func (t *BucketTracker) Increment(ctx context.Context, username string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, oops.With("operation", "increment attempts").Wrap(err)
	}
	b := t.bucketFor(username)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.count++
	return b.count, nil
}

// Reserve implements AttemptTracker.
func (t *BucketTracker) Reserve(ctx context.Context, username string, limit int) (int, bool, error) {
	if err := ctx.Err(); err != nil {
		return 0, false, oops.With("operation", "reserve attempt").Wrap(err)
	}
	b := t.bucketFor(username)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count >= limit {
		return b.count, false, nil
	}
	b.count++
	return b.count, true, nil
}

// Release implements AttemptTracker.
func (t *BucketTracker) Release(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "release attempt").Wrap(err)
	}
	b := t.bucketFor(username)
	b.mu.Lock()
	if b.count > 0 {
		b.count--
	}
	b.mu.Unlock()
	return nil
}

// Reset implements AttemptTracker.
func (t *BucketTracker) Reset(ctx context.Context, username string) error {
	if err := ctx.Err(); err != nil {
		return oops.With("operation", "reset attempts").Wrap(err)
	}
	b := t.bucketFor(username)
	b.mu.Lock()
	b.count = 0
	b.mu.Unlock()
	return nil
}
