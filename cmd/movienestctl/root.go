package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand(ctx *commandContext) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "movienestctl",
		Short:         "movienest administration CLI",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&ctx.databaseURL, "database-url", "", "PostgreSQL connection URL (defaults to DATABASE_URL / DB_* variables)")

	rootCmd.AddCommand(newAdminCommand(ctx))
	rootCmd.AddCommand(newUsersCommand(ctx))

	return rootCmd
}
