// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package api

import (
	"net/http"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/auth"
)

// Context keys set by requireSession.
const (
	ctxSession = "session"
	ctxToken   = "session_token"
)

// requireSession validates the bearer token and stores the session on the
// echo context.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			return oops.Code(auth.CodeSessionInvalid).Errorf("missing bearer token")
		}
		token = strings.TrimSpace(token)

		session, err := s.svc.ValidateSession(c.Request().Context(), token)
		if err != nil {
			return err
		}
		c.Set(ctxSession, session)
		c.Set(ctxToken, token)
		return next(c)
	}
}

func sessionFrom(c echo.Context) *auth.Session {
	session, _ := c.Get(ctxSession).(*auth.Session) //nolint:errcheck // set by requireSession
	return session
}

func tokenFrom(c echo.Context) string {
	token, _ := c.Get(ctxToken).(string) //nolint:errcheck // set by requireSession
	return token
}

// recordMetrics counts requests by route template, not raw path.
func (s *Server) recordMetrics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()
		err := next(c)

		status := c.Response().Status
		if err != nil {
			status = classify(err).status
		}
		route := c.Path()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request().Method

		s.metrics.RequestsTotal.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
		s.metrics.RequestDuration.WithLabelValues(route, method).Observe(time.Since(start).Seconds())
		return err
	}
}

// recoverPanics turns a handler panic into a 500 and reports it to Sentry.
func (s *Server) recoverPanics(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) (err error) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler { //nolint:errorlint // sentinel passed to panic
				panic(rec)
			}
			stack := string(debug.Stack())
			sentry.WithScope(func(scope *sentry.Scope) {
				scope.SetExtra("panic", rec)
				scope.SetExtra("stack", stack)
				scope.SetTag("route", c.Path())
				sentry.CaptureMessage("panic in request")
			})
			s.logger.ErrorContext(c.Request().Context(), "panic recovered",
				"method", c.Request().Method,
				"route", c.Path(),
				"panic", rec)
			err = oops.Code(CodeInternal).Errorf("panic: %v", rec)
		}()
		return next(c)
	}
}
