// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wardenauth/warden/internal/access"
)

// Result labels for authentication metrics.
const (
	ResultSuccess         = "success"
	ResultInvalidUser     = "invalid_user"
	ResultInvalidPassword = "invalid_password"
	ResultLocked          = "locked"
	ResultError           = "error"
)

// AuthAttempts counts authentication attempts by outcome.
// Use RegisterMetrics to register this with a Prometheus registry.
var AuthAttempts = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warden_auth_attempts_total",
		Help: "Total number of authentication attempts",
	},
	[]string{"result"},
)

// SessionOperations counts session lifecycle operations.
var SessionOperations = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warden_session_operations_total",
		Help: "Total number of session create, validate and destroy operations",
	},
	[]string{"operation", "result"},
)

// PermissionDecisions counts permission checks by role and decision.
var PermissionDecisions = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "warden_permission_decisions_total",
		Help: "Total number of permission decisions",
	},
	[]string{"role", "action", "decision"},
)

// ActionDuration observes executor latency per action.
var ActionDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "warden_action_duration_seconds",
		Help:    "Action execution duration in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"action"},
)

// RegisterMetrics registers auth package metrics with the given Prometheus registry.
// Panics if registration fails (following prometheus convention).
func RegisterMetrics(reg prometheus.Registerer) {
	reg.MustRegister(AuthAttempts)
	reg.MustRegister(SessionOperations)
	reg.MustRegister(PermissionDecisions)
	reg.MustRegister(ActionDuration)
}

func recordAttempt(result string) {
	AuthAttempts.WithLabelValues(result).Inc()
}

func recordSession(operation string, err error) {
	result := ResultSuccess
	if err != nil {
		result = ResultError
	}
	SessionOperations.WithLabelValues(operation, result).Inc()
}

func recordDecision(role access.Role, actionName string, allowed bool) {
	decision := "deny"
	if allowed {
		decision = "allow"
	}
	PermissionDecisions.WithLabelValues(role.String(), actionLabel(actionName), decision).Inc()
}

func recordActionDuration(actionName string, d time.Duration) {
	ActionDuration.WithLabelValues(actionLabel(actionName)).Observe(d.Seconds())
}

// actionLabel bounds label cardinality to the built-in actions.
func actionLabel(name string) string {
	if a, ok := access.ParseAction(name); ok {
		return a.String()
	}
	return "other"
}
