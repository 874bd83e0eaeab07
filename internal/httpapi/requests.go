// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package httpapi

import (
	"time"

	"github.com/moodlog/moodlog/internal/auth"
	"github.com/moodlog/moodlog/internal/mood"
)

// Request bodies. Field-level shape rules live in the jsonschema tags; the
// domain layer owns semantic rules like email format and password strength.

type registerRequest struct {
	Email           string `json:"email"           jsonschema:"minLength=1"`
	Password        string `json:"password"        jsonschema:"minLength=6,maxLength=128"`
	ConfirmPassword string `json:"confirmPassword" jsonschema:"minLength=1"`
}

type loginRequest struct {
	Email    string `json:"email"    jsonschema:"minLength=1"`
	Password string `json:"password" jsonschema:"minLength=1"`
}

type googleLoginRequest struct {
	ProviderToken string `json:"providerToken" jsonschema:"minLength=1"`
}

type updateMeRequest struct {
	OldPassword string `json:"oldPassword,omitempty"`
	NewPassword string `json:"newPassword,omitempty"`
}

type createRatingRequest struct {
	Value     int        `json:"value"               jsonschema:"minimum=1,maximum=10"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// Response bodies.

type errorResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type sessionResponse struct {
	Token      string    `json:"token"`
	UserID     string    `json:"userId"`
	ExpiresAt  time.Time `json:"expiresAt"`
	ExpiresIn  int64     `json:"expiresIn"` // seconds
	LogOverdue bool      `json:"logOverdue"`
}

func newSessionResponse(s *auth.Session) sessionResponse {
	return sessionResponse{
		Token:      s.Token,
		UserID:     s.AccountID.String(),
		ExpiresAt:  s.ExpiresAt,
		ExpiresIn:  int64(s.ExpiresAt.Sub(s.IssuedAt).Seconds()),
		LogOverdue: s.LogOverdue,
	}
}

type accountResponse struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	HasPassword bool       `json:"hasPassword"`
	LastLoginAt *time.Time `json:"lastLoginAt,omitempty"`
	LastLogAt   *time.Time `json:"lastLogAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

func newAccountResponse(a *auth.Account) accountResponse {
	return accountResponse{
		ID:          a.ID.String(),
		Email:       a.Email,
		HasPassword: a.HasPassword(),
		LastLoginAt: a.LastLoginAt,
		LastLogAt:   a.LastLogAt,
		CreatedAt:   a.CreatedAt,
	}
}

// federatedResponse is the /auth/google reply. Session is present only when
// Status is "logged_in".
type federatedResponse struct {
	Status  string           `json:"status"`
	Session *sessionResponse `json:"session,omitempty"`
}

type ratingResponse struct {
	ID        string    `json:"id"`
	Value     int       `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

func newRatingResponse(r *mood.Rating) ratingResponse {
	return ratingResponse{
		ID:        r.ID.String(),
		Value:     r.Value,
		Timestamp: r.Timestamp,
	}
}

type dayAverageResponse struct {
	Date   string   `json:"date"`
	Rating *float64 `json:"rating"` // null for days without data
}

func newDayAverageResponses(days []mood.DayAverage) []dayAverageResponse {
	out := make([]dayAverageResponse, len(days))
	for i, d := range days {
		out[i] = dayAverageResponse{Date: d.Date, Rating: d.Rating}
	}
	return out
}
