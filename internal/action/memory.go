// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package action

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/access"
)

// MemoryExecutor is an in-process Executor backed by a map.
type MemoryExecutor struct {
	mu      sync.RWMutex
	records map[int64]Record
	nextID  int64
	now     func() time.Time
}

// NewMemoryExecutor creates an empty MemoryExecutor.
func NewMemoryExecutor() *MemoryExecutor {
	return &MemoryExecutor{
		records: make(map[int64]Record),
		nextID:  1,
		now:     time.Now,
	}
}

// Execute implements Executor.
func (e *MemoryExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, oops.With("operation", "execute action").Wrap(err)
	}

	act, ok := access.ParseAction(req.Action)
	if !ok {
		return Result{}, oops.With("action", req.Action).Wrap(ErrUnknownAction)
	}

	switch act {
	case access.ActionRead:
		return e.read(), nil
	case access.ActionWrite:
		return e.write(req), nil
	case access.ActionDelete:
		return e.delete(req), nil
	default:
		return Result{}, oops.With("action", req.Action).Wrap(ErrUnknownAction)
	}
}

func (e *MemoryExecutor) read() Result {
	e.mu.RLock()
	defer e.mu.RUnlock()

	records := make([]Record, 0, len(e.records))
	for _, r := range e.records {
		records = append(records, r)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })

	return Result{Action: access.ActionRead.String(), Affected: int64(len(records)), Records: records}
}

func (e *MemoryExecutor) write(req Request) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := Record{
		ID:        e.nextID,
		Value:     req.Value,
		Owner:     req.Username,
		CreatedAt: e.now(),
	}
	e.records[r.ID] = r
	e.nextID++

	return Result{Action: access.ActionWrite.String(), Affected: 1, Records: []Record{r}}
}

func (e *MemoryExecutor) delete(req Request) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	var affected int64
	if _, ok := e.records[req.RecordID]; ok {
		delete(e.records, req.RecordID)
		affected = 1
	}

	return Result{Action: access.ActionDelete.String(), Affected: affected}
}
