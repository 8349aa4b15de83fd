package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newUsersCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Inspect user accounts",
	}
	cmd.AddCommand(newUsersListCommand(ctx))
	return cmd
}

func newUsersListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all users",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := ctx.userRepository()
			if err != nil {
				return err
			}
			list, err := users.ListAll()
			if err != nil {
				return fmt.Errorf("list users: %w", err)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No users")
				return nil
			}

			fmt.Fprintln(cmd.OutOrStdout(), renderUsers(list))
			return nil
		},
	}
}
