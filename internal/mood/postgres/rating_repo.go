// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

// Package postgres implements the mood rating repository using PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/moodlog/moodlog/internal/auth"
	"github.com/moodlog/moodlog/internal/mood"
)

// queryTimeout bounds every persistence call. A query that outlives it
// surfaces as auth.ErrUnavailable.
const queryTimeout = 5 * time.Second

// classify translates driver-level failures into the shared error taxonomy.
func classify(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return auth.ErrUnavailable
	}
	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return auth.ErrUnavailable
	}
	return err
}

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// RatingRepository implements mood.Repository using PostgreSQL.
type RatingRepository struct {
	db DB
}

// NewRatingRepository creates a new RatingRepository.
func NewRatingRepository(db DB) *RatingRepository {
	return &RatingRepository{db: db}
}

// Create stores a new rating.
func (r *RatingRepository) Create(ctx context.Context, rating *mood.Rating) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.Exec(ctx, `
		INSERT INTO mood_ratings (id, account_id, value, logged_at)
		VALUES ($1, $2, $3, $4)
	`,
		rating.ID.String(),
		rating.AccountID.String(),
		rating.Value,
		rating.Timestamp,
	)
	if err != nil {
		return oops.Code("RATING_CREATE_FAILED").
			With("operation", "insert rating").
			Wrap(classify(err))
	}
	return nil
}

// ListByAccount returns all ratings for an account, oldest first.
func (r *RatingRepository) ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*mood.Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, value, logged_at
		FROM mood_ratings
		WHERE account_id = $1
		ORDER BY logged_at
	`, accountID.String())
	if err != nil {
		return nil, oops.Code("RATING_LIST_FAILED").
			With("operation", "list ratings").
			Wrap(classify(err))
	}
	defer rows.Close()

	return collectRatings(rows)
}

// ListBetween returns the account's ratings within [from, to], oldest first.
func (r *RatingRepository) ListBetween(ctx context.Context, accountID ulid.ULID, from, to time.Time) ([]*mood.Rating, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	rows, err := r.db.Query(ctx, `
		SELECT id, account_id, value, logged_at
		FROM mood_ratings
		WHERE account_id = $1 AND logged_at BETWEEN $2 AND $3
		ORDER BY logged_at
	`, accountID.String(), from, to)
	if err != nil {
		return nil, oops.Code("RATING_LIST_FAILED").
			With("operation", "list ratings between").
			Wrap(classify(err))
	}
	defer rows.Close()

	return collectRatings(rows)
}

func collectRatings(rows pgx.Rows) ([]*mood.Rating, error) {
	var ratings []*mood.Rating
	for rows.Next() {
		var (
			idStr        string
			accountIDStr string
			value        int
			loggedAt     time.Time
		)
		if err := rows.Scan(&idStr, &accountIDStr, &value, &loggedAt); err != nil {
			return nil, oops.Code("RATING_SCAN_FAILED").Wrap(err)
		}

		id, err := ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("RATING_INVALID_ID").With("id", idStr).Wrap(err)
		}
		accountID, err := ulid.Parse(accountIDStr)
		if err != nil {
			return nil, oops.Code("RATING_INVALID_ACCOUNT_ID").With("account_id", accountIDStr).Wrap(err)
		}

		ratings = append(ratings, &mood.Rating{
			ID:        id,
			AccountID: accountID,
			Value:     value,
			Timestamp: loggedAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("RATING_LIST_FAILED").
			With("operation", "iterate ratings").
			Wrap(err)
	}
	return ratings, nil
}

// Compile-time interface check.
var _ mood.Repository = (*RatingRepository)(nil)
