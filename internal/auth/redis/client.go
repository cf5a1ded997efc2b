// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package redis implements the shared-state auth stores on Redis, so that
// lockout counters and sessions survive restarts and are consistent across
// replicas.
package redis

import (
	"context"
	"crypto/tls"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/samber/oops"
)

// DefaultKeyPrefix namespaces every key written by this package.
const DefaultKeyPrefix = "warden:"

// ClientOptions configures Connect.
type ClientOptions struct {
	Addr     string
	Password string
	DB       int
	TLS      bool
}

// pingTimeout bounds the connectivity check in Connect.
const pingTimeout = 2 * time.Second

// Connect creates a client and verifies it with PING.
func Connect(ctx context.Context, opts ClientOptions) (*goredis.Client, error) {
	if opts.Addr == "" {
		return nil, oops.Code("REDIS_CONFIG_INVALID").Errorf("redis address is required")
	}

	var tlsConf *tls.Config
	if opts.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}

	client := goredis.NewClient(&goredis.Options{
		Addr:      opts.Addr,
		Password:  opts.Password,
		DB:        opts.DB,
		TLSConfig: tlsConf,
	})

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, oops.Code("REDIS_CONNECT_FAILED").
			With("addr", opts.Addr).
			Wrap(err)
	}
	return client, nil
}
