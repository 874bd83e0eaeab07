// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package main

import (
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/moodlog/moodlog/internal/config"
	"github.com/moodlog/moodlog/internal/store"
)

// NewMigrateCmd creates the migrate subcommand.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long:  `Apply all pending database migrations against the PostgreSQL database.`,
		RunE:  runMigrateUp,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE:  runMigrateDown,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show the current schema version",
		RunE:  runMigrateStatus,
	})

	return cmd
}

func withMigrator(fn func(cmd *cobra.Command, m *store.Migrator) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(configFile, nil)
		if err != nil {
			return err
		}
		if cfg.Database.URL == "" {
			return oops.Code("CONFIG_INVALID").Errorf("database.url (or DATABASE_URL) is required")
		}

		m, err := store.NewMigrator(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer func() { _ = m.Close() }()

		return fn(cmd, m)
	}
}

func runMigrateUp(cmd *cobra.Command, args []string) error {
	return withMigrator(func(cmd *cobra.Command, m *store.Migrator) error {
		cmd.Println("Running migrations...")
		if err := m.Up(); err != nil {
			return err
		}
		cmd.Println("Migrations completed successfully")
		return nil
	})(cmd, args)
}

func runMigrateDown(cmd *cobra.Command, args []string) error {
	return withMigrator(func(cmd *cobra.Command, m *store.Migrator) error {
		cmd.Println("Rolling back one migration...")
		if err := m.Down(); err != nil {
			return err
		}
		cmd.Println("Rollback completed successfully")
		return nil
	})(cmd, args)
}

func runMigrateStatus(cmd *cobra.Command, args []string) error {
	return withMigrator(func(cmd *cobra.Command, m *store.Migrator) error {
		version, dirty, err := m.Version()
		if err != nil {
			return err
		}
		cmd.Printf("Schema version: %d (dirty: %v)\n", version, dirty)
		return nil
	})(cmd, args)
}
