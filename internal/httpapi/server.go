// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

// Package httpapi exposes the moodlog service over HTTP/JSON. It owns request
// shape validation, error-to-status mapping, and the route table; all
// decisions belong to the services underneath.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/oklog/ulid/v2"

	"github.com/moodlog/moodlog/internal/auth"
	"github.com/moodlog/moodlog/internal/mood"
	"github.com/moodlog/moodlog/internal/observability"
	"github.com/moodlog/moodlog/internal/provider"
	"github.com/moodlog/moodlog/pkg/errutil"
)

// AuthService is the slice of the identity resolver the handlers need.
type AuthService interface {
	Register(ctx context.Context, email, password string) (*auth.Account, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	LoginFederated(ctx context.Context, assertion auth.Assertion) (*auth.FederatedLogin, error)
	ChangePassword(ctx context.Context, accountID ulid.ULID, oldPassword, newPassword string) (*auth.Account, error)
	GetAccount(ctx context.Context, id ulid.ULID) (*auth.Account, error)
}

// MoodService is the slice of the mood service the handlers need.
type MoodService interface {
	Create(ctx context.Context, accountID ulid.ULID, value int, timestamp time.Time) (*mood.Rating, error)
	ListByAccount(ctx context.Context, accountID ulid.ULID) ([]*mood.Rating, error)
	ListBetween(ctx context.Context, accountID ulid.ULID, from, to time.Time) ([]*mood.Rating, error)
	AveragePerDay(ctx context.Context, accountID ulid.ULID, from, to time.Time) ([]mood.DayAverage, error)
}

// Server bundles the handlers and their dependencies.
type Server struct {
	auth    AuthService
	moods   MoodService
	google  provider.AssertionVerifier
	codec   *auth.TokenCodec
	metrics *observability.Metrics
	logger  *slog.Logger
	schemas *requestSchemas
}

// Config collects the Server's dependencies. Google and Metrics are optional:
// without Google the /auth/google route answers 503, without Metrics nothing
// is counted.
type Config struct {
	Auth    AuthService
	Moods   MoodService
	Google  provider.AssertionVerifier
	Codec   *auth.TokenCodec
	Metrics *observability.Metrics
	Logger  *slog.Logger
}

// NewServer creates a Server and compiles the request schemas.
func NewServer(cfg Config) (*Server, error) {
	schemas, err := compileSchemas()
	if err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		auth:    cfg.Auth,
		moods:   cfg.Moods,
		google:  cfg.Google,
		codec:   cfg.Codec,
		metrics: cfg.Metrics,
		logger:  logger,
		schemas: schemas,
	}, nil
}

// Router builds the route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Post("/register", s.handleRegister)
	r.Post("/login", s.handleLogin)
	r.Post("/auth/google", s.handleGoogleLogin)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireSession(s.codec))

		r.Get("/me", s.handleGetMe)
		r.Put("/me", s.handleUpdateMe)

		r.Get("/ratings", s.handleListRatings)
		r.Post("/ratings", s.handleCreateRating)
		r.Get("/ratings/average", s.handleRatingAverages)
	})

	return r
}

// requestLogger logs one line per request with method, path, status, and
// duration. Level escalates with the status code.
func requestLogger(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			level := slog.LevelInfo
			switch {
			case ww.Status() >= 500:
				level = slog.LevelError
			case ww.Status() >= 400:
				level = slog.LevelWarn
			}

			logger.Log(r.Context(), level, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", float64(time.Since(start).Nanoseconds())/float64(time.Millisecond),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

// writeJSON writes a JSON response body with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.logger.Warn("failed to write response", "error", err)
	}
}

// writeError maps a service error onto a status code and a safe message.
// Unrecognized errors become 500 and never leak detail to the client.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		errutil.LogError(s.logger, "request failed", err)
	}
	s.writeJSON(w, status, errorResponse{Status: "error", Message: message})
}

func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, auth.ErrInvalidCredentials):
		// Constant body: unknown email, password-less account, and wrong
		// password must be indistinguishable on the wire.
		return http.StatusUnauthorized, auth.ErrInvalidCredentials.Error()
	case errors.Is(err, auth.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, auth.ErrConflict):
		return http.StatusConflict, "already exists"
	case errors.Is(err, auth.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, auth.ErrUnavailable):
		return http.StatusServiceUnavailable, "service unavailable"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
