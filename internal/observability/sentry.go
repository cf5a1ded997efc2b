// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package observability

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/samber/oops"
)

// sentryFlushTimeout bounds FlushSentry.
const sentryFlushTimeout = 2 * time.Second

// InitSentry configures the global Sentry client. An empty dsn disables
// reporting; CaptureException is then a no-op.
func InitSentry(dsn, environment, release string) error {
	if dsn == "" {
		return nil
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              dsn,
		Environment:      environment,
		Release:          release,
		AttachStacktrace: true,
	}); err != nil {
		return oops.Code("SENTRY_INIT_FAILED").With("environment", environment).Wrap(err)
	}
	return nil
}

// FlushSentry delivers buffered events before exit.
func FlushSentry() {
	sentry.Flush(sentryFlushTimeout)
}
