// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/moodlog/moodlog/internal/auth"
	authpg "github.com/moodlog/moodlog/internal/auth/postgres"
	"github.com/moodlog/moodlog/internal/config"
	"github.com/moodlog/moodlog/internal/httpapi"
	"github.com/moodlog/moodlog/internal/logging"
	"github.com/moodlog/moodlog/internal/mood"
	moodpg "github.com/moodlog/moodlog/internal/mood/postgres"
	"github.com/moodlog/moodlog/internal/observability"
	"github.com/moodlog/moodlog/internal/provider"
	"github.com/moodlog/moodlog/internal/store"
	"github.com/moodlog/moodlog/pkg/errutil"
)

const shutdownTimeout = 15 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the moodlog HTTP server",
		Long: `Start the moodlog HTTP server: the public auth endpoints, the
session-guarded account and rating endpoints, and the observability server.`,
		RunE: runServe,
	}

	cmd.Flags().String("server.addr", "", "API listen address (overrides config)")
	cmd.Flags().String("observability.addr", "", "metrics/health listen address (overrides config)")
	cmd.Flags().String("logging.format", "", "log format: json or text (overrides config)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configFile, cmd.Flags())
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logging.SetDefault("moodlog", version, cfg.Logging.Format)
	logger := slog.Default()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	signKey, err := auth.LoadSigningKey(cfg.Auth.PrivateKeyPath)
	if err != nil {
		return err
	}
	verifyKey, err := auth.LoadVerifyKey(cfg.Auth.PublicKeyPath)
	if err != nil {
		return err
	}
	codec, err := auth.NewTokenCodec(signKey, verifyKey, cfg.Auth.TokenTTL)
	if err != nil {
		return err
	}

	logger.Info("connecting to database")
	pool, err := store.Connect(ctx, cfg.Database.URL)
	if err != nil {
		return err
	}
	defer pool.Close()

	accounts := authpg.NewAccountRepository(pool)
	identities := authpg.NewIdentityRepository(pool)
	transactor := authpg.NewTransactor(pool)
	ratings := moodpg.NewRatingRepository(pool)

	hasher := auth.NewArgon2idHasher()
	authService, err := auth.NewService(accounts, identities, transactor, hasher, codec, logger)
	if err != nil {
		return err
	}
	moodService, err := mood.NewService(ratings, accounts, logger)
	if err != nil {
		return err
	}

	var google *provider.Google
	if cfg.Google.ClientID != "" {
		google, err = provider.NewGoogle(ctx, cfg.Google.ClientID)
		if err != nil {
			return err
		}
	} else {
		logger.Warn("google client ID not configured, /auth/google is disabled")
	}

	var ready atomic.Bool
	obs := observability.NewServer(cfg.Observability.Addr, ready.Load)
	obsErrs, err := obs.Start()
	if err != nil {
		return err
	}
	defer func() {
		stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := obs.Stop(stopCtx); err != nil {
			errutil.LogError(logger, "observability server shutdown failed", err)
		}
	}()

	apiCfg := httpapi.Config{
		Auth:    authService,
		Moods:   moodService,
		Codec:   codec,
		Metrics: obs.Metrics(),
		Logger:  logger,
	}
	if google != nil {
		apiCfg.Google = google
	}
	api, err := httpapi.NewServer(apiCfg)
	if err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           api.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErrs := make(chan error, 1)
	go func() {
		logger.Info("http server started", "addr", cfg.Server.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErrs <- err
		}
	}()
	ready.Store(true)

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErrs:
		return oops.Code("HTTP_SERVE_FAILED").Wrap(err)
	case err := <-obsErrs:
		return oops.Code("OBSERVABILITY_SERVE_FAILED").Wrap(err)
	}

	ready.Store(false)

	stopCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(stopCtx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}

	logger.Info("http server stopped")
	return nil
}
