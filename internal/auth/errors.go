// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"context"
	"errors"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/pkg/errutil"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// Error codes surfaced by Service. Store implementations never attach a code
// of their own; the service classifies their failures.
const (
	CodeInvalidUser      = "AUTH_INVALID_USER"
	CodeInvalidPassword  = "AUTH_INVALID_PASSWORD"
	CodeAccountLocked    = "AUTH_ACCOUNT_LOCKED"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeUnknownAction    = "ACTION_UNKNOWN"
	CodeUserNotFound     = "USER_NOT_FOUND"
	CodeSessionInvalid   = "SESSION_INVALID"
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeCancelled        = "REQUEST_CANCELLED"
)

// IsRetryable reports whether the failure is transient. Only store outages
// qualify; credential, lockout and permission failures never do. Retrying is
// the caller's decision.
func IsRetryable(err error) bool {
	return errutil.Code(err) == CodeStoreUnavailable
}

// storeError classifies a failed store call. A failure caused by the
// caller's context ending is reported as cancelled, anything else as a
// retryable store outage.
func storeError(ctx context.Context, operation string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return oops.Code(CodeCancelled).With("operation", operation).Wrap(err)
	}
	return oops.Code(CodeStoreUnavailable).With("operation", operation).Wrap(err)
}
