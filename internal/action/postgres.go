// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Warden Contributors

package action

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/wardenauth/warden/internal/access"
	"github.com/wardenauth/warden/internal/store"
)

// DefaultReadLimit caps the rows returned by read.
const DefaultReadLimit = 1000

// PostgresExecutor runs actions against the data table.
type PostgresExecutor struct {
	pool  store.Pool
	limit int
}

// Compile-time interface check.
var _ Executor = (*PostgresExecutor)(nil)

// NewPostgresExecutor creates a PostgresExecutor.
func NewPostgresExecutor(pool store.Pool) *PostgresExecutor {
	return &PostgresExecutor{pool: pool, limit: DefaultReadLimit}
}

// Execute implements Executor.
func (e *PostgresExecutor) Execute(ctx context.Context, req Request) (Result, error) {
	act, ok := access.ParseAction(req.Action)
	if !ok {
		return Result{}, oops.With("action", req.Action).Wrap(ErrUnknownAction)
	}

	switch act {
	case access.ActionRead:
		return e.read(ctx)
	case access.ActionWrite:
		return e.write(ctx, req)
	case access.ActionDelete:
		return e.delete(ctx, req)
	default:
		return Result{}, oops.With("action", req.Action).Wrap(ErrUnknownAction)
	}
}

func (e *PostgresExecutor) read(ctx context.Context) (Result, error) {
	rows, err := e.pool.Query(ctx,
		`SELECT id, value, owner, created_at FROM data ORDER BY id LIMIT $1`, e.limit)
	if err != nil {
		return Result{}, oops.With("operation", "read data").Wrap(err)
	}

	records, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Record, error) {
		var r Record
		err := row.Scan(&r.ID, &r.Value, &r.Owner, &r.CreatedAt)
		return r, err
	})
	if err != nil {
		return Result{}, oops.With("operation", "scan data").Wrap(err)
	}

	return Result{Action: access.ActionRead.String(), Affected: int64(len(records)), Records: records}, nil
}

func (e *PostgresExecutor) write(ctx context.Context, req Request) (Result, error) {
	r := Record{Value: req.Value, Owner: req.Username}
	err := e.pool.QueryRow(ctx,
		`INSERT INTO data (value, owner) VALUES ($1, $2) RETURNING id, created_at`,
		req.Value, req.Username,
	).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return Result{}, oops.With("operation", "write data").
			With("owner", req.Username).
			Wrap(err)
	}
	return Result{Action: access.ActionWrite.String(), Affected: 1, Records: []Record{r}}, nil
}

func (e *PostgresExecutor) delete(ctx context.Context, req Request) (Result, error) {
	tag, err := e.pool.Exec(ctx, `DELETE FROM data WHERE id = $1`, req.RecordID)
	if err != nil {
		return Result{}, oops.With("operation", "delete data").
			With("record_id", req.RecordID).
			Wrap(err)
	}
	return Result{Action: access.ActionDelete.String(), Affected: tag.RowsAffected()}, nil
}
