// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package httpapi

import (
	"net/http"
	"time"

	"github.com/samber/oops"

	"github.com/moodlog/moodlog/internal/auth"
)

// rangeDays is the default window for /ratings/average when the caller gives
// no bounds: today plus the six preceding days.
const rangeDays = 7

// handleRegister creates a password account.
// POST /register
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeBody(r, s.schemas.register, &req); err != nil {
		s.writeError(w, err)
		return
	}

	if req.Password != req.ConfirmPassword {
		s.writeError(w, oops.Code("HTTP_PASSWORD_MISMATCH").
			Errorf("password confirmation does not match: %w", auth.ErrValidation))
		return
	}

	account, err := s.auth.Register(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.RegistrationsTotal.Inc()
	}
	s.writeJSON(w, http.StatusCreated, newAccountResponse(account))
}

// handleLogin authenticates an email/password pair and issues a session.
// POST /login
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeBody(r, s.schemas.login, &req); err != nil {
		s.writeError(w, err)
		return
	}

	session, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		s.countLogin("password", "failure")
		s.writeError(w, err)
		return
	}

	s.countLogin("password", "success")
	s.writeJSON(w, http.StatusOK, newSessionResponse(session))
}

// handleGoogleLogin verifies a Google ID token and resolves it to an account.
// POST /auth/google
func (s *Server) handleGoogleLogin(w http.ResponseWriter, r *http.Request) {
	if s.google == nil {
		s.writeError(w, oops.Code("HTTP_PROVIDER_DISABLED").
			Errorf("google login is not configured: %w", auth.ErrUnavailable))
		return
	}

	var req googleLoginRequest
	if err := decodeBody(r, s.schemas.googleLogin, &req); err != nil {
		s.writeError(w, err)
		return
	}

	assertion, err := s.google.Verify(r.Context(), req.ProviderToken)
	if err != nil {
		s.countLogin("google", "failure")
		s.writeError(w, err)
		return
	}

	result, err := s.auth.LoginFederated(r.Context(), assertion)
	if err != nil {
		s.countLogin("google", "failure")
		s.writeError(w, err)
		return
	}

	switch result.Status {
	case auth.StatusLoggedIn:
		s.countLogin("google", "success")
		session := newSessionResponse(result.Session)
		s.writeJSON(w, http.StatusOK, federatedResponse{
			Status:  string(result.Status),
			Session: &session,
		})
	case auth.StatusPromptPasswordLogin:
		s.countLogin("google", "prompt")
		s.writeJSON(w, http.StatusOK, federatedResponse{Status: string(result.Status)})
	default:
		s.writeError(w, oops.Code("HTTP_UNEXPECTED_STATUS").
			Errorf("unexpected federated login status %q", result.Status))
	}
}

// handleGetMe returns the calling account.
// GET /me
func (s *Server) handleGetMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		s.writeError(w, auth.ErrUnauthorized)
		return
	}

	account, err := s.auth.GetAccount(r.Context(), principal.AccountID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newAccountResponse(account))
}

// handleUpdateMe changes the calling account's password.
// PUT /me
func (s *Server) handleUpdateMe(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		s.writeError(w, auth.ErrUnauthorized)
		return
	}

	var req updateMeRequest
	if err := decodeBody(r, s.schemas.updateMe, &req); err != nil {
		s.writeError(w, err)
		return
	}

	account, err := s.auth.ChangePassword(r.Context(), principal.AccountID, req.OldPassword, req.NewPassword)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newAccountResponse(account))
}

// handleCreateRating records a mood rating for the calling account.
// POST /ratings
func (s *Server) handleCreateRating(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		s.writeError(w, auth.ErrUnauthorized)
		return
	}

	var req createRatingRequest
	if err := decodeBody(r, s.schemas.createRating, &req); err != nil {
		s.writeError(w, err)
		return
	}

	var timestamp time.Time
	if req.Timestamp != nil {
		timestamp = *req.Timestamp
	}

	rating, err := s.moods.Create(r.Context(), principal.AccountID, req.Value, timestamp)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if s.metrics != nil {
		s.metrics.RatingsTotal.Inc()
	}
	s.writeJSON(w, http.StatusCreated, newRatingResponse(rating))
}

// handleListRatings returns the calling account's ratings, optionally bounded
// by from/to query parameters.
// GET /ratings?from=...&to=...
func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		s.writeError(w, auth.ErrUnauthorized)
		return
	}

	from, to, bounded, err := parseRange(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var ratings []ratingResponse
	if bounded {
		list, err := s.moods.ListBetween(r.Context(), principal.AccountID, from, to)
		if err != nil {
			s.writeError(w, err)
			return
		}
		ratings = make([]ratingResponse, 0, len(list))
		for _, rating := range list {
			ratings = append(ratings, newRatingResponse(rating))
		}
	} else {
		list, err := s.moods.ListByAccount(r.Context(), principal.AccountID)
		if err != nil {
			s.writeError(w, err)
			return
		}
		ratings = make([]ratingResponse, 0, len(list))
		for _, rating := range list {
			ratings = append(ratings, newRatingResponse(rating))
		}
	}

	s.writeJSON(w, http.StatusOK, ratings)
}

// handleRatingAverages returns per-day averages over the requested range,
// defaulting to the last seven days.
// GET /ratings/average?from=...&to=...
func (s *Server) handleRatingAverages(w http.ResponseWriter, r *http.Request) {
	principal, ok := auth.PrincipalFromContext(r.Context())
	if !ok {
		s.writeError(w, auth.ErrUnauthorized)
		return
	}

	from, to, bounded, err := parseRange(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	if !bounded {
		to = time.Now().UTC()
		from = to.AddDate(0, 0, -(rangeDays - 1))
	}

	days, err := s.moods.AveragePerDay(r.Context(), principal.AccountID, from, to)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, newDayAverageResponses(days))
}

// countLogin records a login attempt if metrics are wired.
func (s *Server) countLogin(method, outcome string) {
	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues(method, outcome).Inc()
	}
}

// parseRange reads optional from/to query parameters. Both must be present
// together. Values are RFC 3339 timestamps or plain dates; a plain "to" date
// extends to the end of that day so the range is inclusive.
func parseRange(r *http.Request) (from, to time.Time, bounded bool, err error) {
	fromRaw := r.URL.Query().Get("from")
	toRaw := r.URL.Query().Get("to")

	if fromRaw == "" && toRaw == "" {
		return time.Time{}, time.Time{}, false, nil
	}
	if fromRaw == "" || toRaw == "" {
		return time.Time{}, time.Time{}, false, oops.Code("HTTP_RANGE_INVALID").
			Errorf("from and to must be given together: %w", auth.ErrValidation)
	}

	from, _, err = parseTimeParam("from", fromRaw)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	to, dateOnly, err := parseTimeParam("to", toRaw)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if dateOnly {
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return from, to, true, nil
}

func parseTimeParam(name, raw string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	if t, err = time.ParseInLocation("2006-01-02", raw, time.UTC); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, oops.Code("HTTP_RANGE_INVALID").
		With("param", name).
		Errorf("%s must be an RFC 3339 timestamp or a YYYY-MM-DD date: %w", name, auth.ErrValidation)
}
