package main

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command.  Running it without a subcommand
// starts the HTTP server.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "account-service",
		Short: "Account and area management API",
		Long: `account-service serves registration, login, OTP password reset,
profile management and area lookup over HTTP.`,
		SilenceUsage: true,
		RunE:         runServe,
	}

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewKeygenCmd())

	return cmd
}
