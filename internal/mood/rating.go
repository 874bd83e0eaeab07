// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

// Package mood provides mood-rating recording and day-bucket statistics.
package mood

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/moodlog/moodlog/internal/auth"
)

// Rating value bounds.
const (
	MinRatingValue = 1
	MaxRatingValue = 10
)

// DayFormat is the wire format for day-bucket dates.
const DayFormat = "2006-01-02"

// Rating is a single mood rating logged by an account.
type Rating struct {
	ID        ulid.ULID
	AccountID ulid.ULID
	Value     int
	Timestamp time.Time
}

// NewRating creates a validated Rating. A zero timestamp means now.
func NewRating(accountID ulid.ULID, value int, timestamp time.Time) (*Rating, error) {
	if accountID.Compare(ulid.ULID{}) == 0 {
		return nil, oops.Code("MOOD_INVALID_ACCOUNT").
			Errorf("account ID cannot be zero: %w", auth.ErrValidation)
	}
	if value < MinRatingValue || value > MaxRatingValue {
		return nil, oops.Code("MOOD_INVALID_VALUE").
			With("value", value).
			Errorf("rating must be between %d and %d: %w", MinRatingValue, MaxRatingValue, auth.ErrValidation)
	}
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return &Rating{
		ID:        ulid.Make(),
		AccountID: accountID,
		Value:     value,
		Timestamp: timestamp,
	}, nil
}

// DayAverage is the average rating for one calendar day. Rating is nil for
// days with no data in the requested range.
type DayAverage struct {
	Date   string
	Rating *float64
}

// Repository manages mood rating persistence.
type Repository interface {
	// Create stores a new rating.
	Create(ctx context.Context, rating *Rating) error

	// ListByAccount returns all ratings for an account, oldest first.
	ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*Rating, error)

	// ListBetween returns the account's ratings with from <= timestamp <= to,
	// oldest first.
	ListBetween(ctx context.Context, accountID ulid.ULID, from, to time.Time) ([]*Rating, error)
}
