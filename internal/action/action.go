// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

// Package action executes authorized operations against the data store.
// Authorization happens before an Executor is reached; executors only know
// how to perform each built-in action.
package action

import (
	"context"
	"errors"
	"time"
)

// ErrUnknownAction is returned when an executor has no implementation for
// the requested action.
var ErrUnknownAction = errors.New("unknown action")

// Request describes one action invocation on behalf of a user.
type Request struct {
	UserID   int64
	Username string
	Action   string

	// Value is the payload for write.
	Value string

	// RecordID selects the record for delete.
	RecordID int64
}

// Record is a row in the data store.
type Record struct {
	ID        int64     `json:"id"`
	Value     string    `json:"value"`
	Owner     string    `json:"owner"`
	CreatedAt time.Time `json:"created_at"`
}

// Result is the outcome of an executed action.
type Result struct {
	Action   string   `json:"action"`
	Affected int64    `json:"affected"`
	Records  []Record `json:"records,omitempty"`
}

// Executor performs built-in actions.
type Executor interface {
	// Execute runs req. Returns an error wrapping ErrUnknownAction if the
	// action is not implemented.
	Execute(ctx context.Context, req Request) (Result, error)
}
