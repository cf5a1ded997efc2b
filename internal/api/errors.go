// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"

	"github.com/wardenauth/warden/internal/auth"
	"github.com/wardenauth/warden/pkg/errutil"
)

// Codes produced by the API layer itself.
const (
	CodeBadRequest        = "REQUEST_INVALID"
	CodeInvalidCredential = "AUTH_INVALID_CREDENTIALS"
	CodeNotFound          = "NOT_FOUND"
	CodeInternal          = "INTERNAL"
)

// statusClientClosedRequest is reported when the caller went away first.
const statusClientClosedRequest = 499

// errorResponse is the body of every failed request.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type apiError struct {
	status  int
	code    string
	message string
}

// classify maps an error to its HTTP status and public code. Unknown user
// and wrong password share one public code so the API does not reveal
// which usernames exist.
func classify(err error) apiError {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		code := CodeBadRequest
		if he.Code == http.StatusNotFound || he.Code == http.StatusMethodNotAllowed {
			code = CodeNotFound
		}
		if he.Code >= http.StatusInternalServerError {
			code = CodeInternal
		}
		return apiError{status: he.Code, code: code, message: msg}
	}

	switch code := errutil.Code(err); code {
	case auth.CodeInvalidUser, auth.CodeInvalidPassword:
		return apiError{http.StatusUnauthorized, CodeInvalidCredential, "invalid username or password"}
	case auth.CodeSessionInvalid:
		return apiError{http.StatusUnauthorized, code, "invalid or expired session"}
	case auth.CodeAccountLocked:
		return apiError{http.StatusLocked, code, "account is temporarily locked"}
	case auth.CodePermissionDenied:
		return apiError{http.StatusForbidden, code, "permission denied"}
	case auth.CodeUserNotFound:
		return apiError{http.StatusNotFound, code, "user not found"}
	case auth.CodeUnknownAction:
		return apiError{http.StatusNotFound, code, "unknown action"}
	case auth.CodeStoreUnavailable:
		return apiError{http.StatusServiceUnavailable, code, "service temporarily unavailable"}
	case auth.CodeCancelled:
		return apiError{statusClientClosedRequest, code, "request cancelled"}
	case CodeBadRequest:
		return apiError{http.StatusBadRequest, code, err.Error()}
	default:
		return apiError{http.StatusInternalServerError, CodeInternal, "internal server error"}
	}
}

// handleError is the echo error handler. Server faults are logged and
// reported to Sentry; client faults are only logged at debug.
func (s *Server) handleError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	ae := classify(err)
	ctx := c.Request().Context()
	attrs := []any{"method", c.Request().Method, "route", c.Path(), "status", ae.status}

	switch {
	case ae.status >= http.StatusInternalServerError:
		errutil.Log(ctx, s.logger, slog.LevelError, "request failed", err, attrs...)
		if ae.status != http.StatusServiceUnavailable {
			sentry.CaptureException(err)
		}
		if auth.IsRetryable(err) {
			c.Response().Header().Set("Retry-After", "1")
		}
	default:
		errutil.Log(ctx, s.logger, slog.LevelDebug, "request rejected", err, attrs...)
	}

	var writeErr error
	if c.Request().Method == http.MethodHead {
		writeErr = c.NoContent(ae.status)
	} else {
		writeErr = c.JSON(ae.status, errorResponse{Error: ae.message, Code: ae.code})
	}
	if writeErr != nil {
		s.logger.DebugContext(ctx, "error response not written", "error", writeErr)
	}
}
