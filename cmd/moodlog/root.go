// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Moodlog Contributors

package main

import (
	"github.com/spf13/cobra"
)

// Global flags available to all subcommands.
var configFile string

// NewRootCmd creates the root command for the moodlog CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "moodlog",
		Short: "Moodlog - mood tracking service",
		Long: `Moodlog is a mood tracking service with password and Google login,
RS256 session tokens, and per-day mood statistics.`,
	}

	// Global flag for config file path
	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewKeygenCmd())

	return cmd
}
