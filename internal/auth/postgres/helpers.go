// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

// Package postgres implements the auth repositories using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/moodlog/moodlog/internal/auth"
)

// queryTimeout bounds every persistence call. A query that outlives it
// surfaces as auth.ErrUnavailable, not as an authentication failure.
const queryTimeout = 5 * time.Second

// DB is the subset of *pgxpool.Pool the repositories use. pgxmock satisfies
// it too, which keeps the unit tests off a real database.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
}

// querier abstracts query execution over both DB and pgx.Tx so repository
// methods participate in a transaction when one is stored in the context.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// txKey is the context key under which Transactor stores the active pgx.Tx.
type txKey struct{}

// queryerFrom returns the active transaction from ctx, or db.
func queryerFrom(ctx context.Context, db DB) querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return db
}

// withTimeout applies the repository query deadline. An earlier deadline
// already on ctx wins.
func withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

// classify translates driver-level failures into the auth error taxonomy:
// unique-constraint violations become ErrConflict (the store's constraints
// are the real race safety net behind the resolver's read-then-write
// checks), timeouts and connection failures become ErrUnavailable.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return auth.ErrConflict
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return auth.ErrUnavailable
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return auth.ErrUnavailable
	}
	return err
}
