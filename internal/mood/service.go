// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package mood

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/moodlog/moodlog/internal/auth"
)

// Service records ratings and computes per-day statistics.
type Service struct {
	ratings  Repository
	accounts auth.AccountRepository
	logger   *slog.Logger
}

// NewService creates a Service.
func NewService(ratings Repository, accounts auth.AccountRepository, logger *slog.Logger) (*Service, error) {
	if ratings == nil {
		return nil, oops.Code("MOOD_SERVICE_INVALID").Errorf("ratings repository is required")
	}
	if accounts == nil {
		return nil, oops.Code("MOOD_SERVICE_INVALID").Errorf("accounts repository is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{ratings: ratings, accounts: accounts, logger: logger}, nil
}

// Create logs a rating and marks the account's last-log timestamp.
func (s *Service) Create(ctx context.Context, accountID ulid.ULID, value int, timestamp time.Time) (*Rating, error) {
	rating, err := NewRating(accountID, value, timestamp)
	if err != nil {
		return nil, err
	}

	if err := s.ratings.Create(ctx, rating); err != nil {
		return nil, oops.Code("MOOD_CREATE_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}

	// Best effort: the rating is already stored.
	if err := s.accounts.TouchLastLog(ctx, accountID, rating.Timestamp); err != nil {
		s.logger.WarnContext(ctx, "failed to record last log",
			"account_id", accountID.String(),
			"error", err,
		)
	}

	return rating, nil
}

// ListByAccount returns all of the account's ratings, oldest first.
func (s *Service) ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*Rating, error) {
	ratings, err := s.ratings.ListByAccount(ctx, accountID)
	if err != nil {
		return nil, oops.Code("MOOD_LIST_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return ratings, nil
}

// ListBetween returns the account's ratings within [from, to], oldest first.
func (s *Service) ListBetween(ctx context.Context, accountID ulid.ULID, from, to time.Time) ([]*Rating, error) {
	if err := validateRange(from, to); err != nil {
		return nil, err
	}
	ratings, err := s.ratings.ListBetween(ctx, accountID, from, to)
	if err != nil {
		return nil, oops.Code("MOOD_LIST_FAILED").
			With("account_id", accountID.String()).
			Wrap(err)
	}
	return ratings, nil
}

// AveragePerDay buckets the account's ratings in [from, to] by UTC calendar
// day and averages each bucket. Days in the range without ratings are
// included with a nil rating, so a 7-day query always yields 7 buckets.
// Buckets are sorted ascending by date.
func (s *Service) AveragePerDay(ctx context.Context, accountID ulid.ULID, from, to time.Time) ([]DayAverage, error) {
	ratings, err := s.ListBetween(ctx, accountID, from, to)
	if err != nil {
		return nil, err
	}
	return averagePerDay(ratings, from, to), nil
}

func validateRange(from, to time.Time) error {
	if from.IsZero() || to.IsZero() {
		return oops.Code("MOOD_INVALID_RANGE").
			Errorf("time range bounds are required: %w", auth.ErrValidation)
	}
	if to.Before(from) {
		return oops.Code("MOOD_INVALID_RANGE").
			Errorf("range end precedes start: %w", auth.ErrValidation)
	}
	return nil
}

// averagePerDay performs the bucketing and gap filling.
func averagePerDay(ratings []*Rating, from, to time.Time) []DayAverage {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, r := range ratings {
		day := r.Timestamp.UTC().Format(DayFormat)
		sums[day] += float64(r.Value)
		counts[day]++
	}

	var result []DayAverage
	first := startOfDay(from)
	last := startOfDay(to)
	for day := first; !day.After(last); day = day.AddDate(0, 0, 1) {
		key := day.Format(DayFormat)
		entry := DayAverage{Date: key}
		if n := counts[key]; n > 0 {
			avg := sums[key] / float64(n)
			entry.Rating = &avg
		}
		result = append(result, entry)
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Date < result[j].Date })
	return result
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
