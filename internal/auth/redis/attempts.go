// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package redis

import (
	"context"
	"errors"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
)

// incrementScript bumps a bucket and refreshes its window in one round trip.
var incrementScript = goredis.NewScript(`
	local count = redis.call('INCR', KEYS[1])
	local window_ms = tonumber(ARGV[1])
	if window_ms > 0 then
		redis.call('PEXPIRE', KEYS[1], window_ms)
	end
	return count
`)

// reserveScript increments a bucket only while it is below ARGV[1].
// It returns {count, reserved}.
var reserveScript = goredis.NewScript(`
	local count = tonumber(redis.call('GET', KEYS[1]) or '0')
	if count >= tonumber(ARGV[1]) then
		return {count, 0}
	end
	count = redis.call('INCR', KEYS[1])
	local window_ms = tonumber(ARGV[2])
	if window_ms > 0 then
		redis.call('PEXPIRE', KEYS[1], window_ms)
	end
	return {count, 1}
`)

// releaseScript decrements a bucket without going below zero.
var releaseScript = goredis.NewScript(`
	local count = tonumber(redis.call('GET', KEYS[1]) or '0')
	if count <= 0 then
		return 0
	end
	return redis.call('DECR', KEYS[1])
`)

// AttemptTracker implements auth.AttemptTracker with one Redis counter per bucket.
type AttemptTracker struct {
	rdb     goredis.UniversalClient
	buckets int
	window  time.Duration
	prefix  string
}

// Compile-time interface check.
var _ auth.AttemptTracker = (*AttemptTracker)(nil)

// AttemptOption configures an AttemptTracker.
type AttemptOption func(*AttemptTracker)

// WithBuckets sets the number of buckets (default auth.DefaultBuckets).
func WithBuckets(n int) AttemptOption {
	return func(t *AttemptTracker) {
		if n > 0 {
			t.buckets = n
		}
	}
}

// WithWindow makes a bucket forget its failures after d without a new one.
// Zero keeps counters until reset.
func WithWindow(d time.Duration) AttemptOption {
	return func(t *AttemptTracker) {
		t.window = d
	}
}

// WithKeyPrefix overrides DefaultKeyPrefix.
func WithKeyPrefix(prefix string) AttemptOption {
	return func(t *AttemptTracker) {
		t.prefix = prefix
	}
}

// NewAttemptTracker creates a tracker on rdb.
func NewAttemptTracker(rdb goredis.UniversalClient, opts ...AttemptOption) *AttemptTracker {
	t := &AttemptTracker{
		rdb:     rdb,
		buckets: auth.DefaultBuckets,
		prefix:  DefaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *AttemptTracker) key(username string) string {
	return t.prefix + "attempts:" + strconv.Itoa(auth.BucketOf(username, t.buckets))
}

// Get implements auth.AttemptTracker.
func (t *AttemptTracker) Get(ctx context.Context, username string) (int, error) {
	n, err := t.rdb.Get(ctx, t.key(username)).Int()
	if errors.Is(err, goredis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, oops.With("operation", "get attempts").
			With("bucket", auth.BucketOf(username, t.buckets)).
			Wrap(err)
	}
	return n, nil
}

// Increment implements auth.AttemptTracker.
func (t *AttemptTracker) Increment(ctx context.Context, username string) (int, error) {
	n, err := incrementScript.Run(ctx, t.rdb, []string{t.key(username)}, t.window.Milliseconds()).Int()
	if err != nil {
		return 0, oops.With("operation", "increment attempts").
			With("bucket", auth.BucketOf(username, t.buckets)).
			Wrap(err)
	}
	return n, nil
}

// Reserve implements auth.AttemptTracker.
func (t *AttemptTracker) Reserve(ctx context.Context, username string, limit int) (int, bool, error) {
	vals, err := reserveScript.Run(ctx, t.rdb, []string{t.key(username)}, limit, t.window.Milliseconds()).Int64Slice()
	if err == nil && len(vals) != 2 {
		err = errors.New("unexpected reserve reply")
	}
	if err != nil {
		return 0, false, oops.With("operation", "reserve attempt").
			With("bucket", auth.BucketOf(username, t.buckets)).
			Wrap(err)
	}
	return int(vals[0]), vals[1] == 1, nil
}

// Release implements auth.AttemptTracker.
func (t *AttemptTracker) Release(ctx context.Context, username string) error {
	if err := releaseScript.Run(ctx, t.rdb, []string{t.key(username)}).Err(); err != nil {
		return oops.With("operation", "release attempt").
			With("bucket", auth.BucketOf(username, t.buckets)).
			Wrap(err)
	}
	return nil
}

// Reset implements auth.AttemptTracker.
func (t *AttemptTracker) Reset(ctx context.Context, username string) error {
	if err := t.rdb.Del(ctx, t.key(username)).Err(); err != nil {
		return oops.With("operation", "reset attempts").
			With("bucket", auth.BucketOf(username, t.buckets)).
			Wrap(err)
	}
	return nil
}
