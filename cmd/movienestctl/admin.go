package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

func newAdminCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Manage the admin account",
	}
	cmd.AddCommand(newAdminSetPasswordCommand(ctx))
	return cmd
}

// newAdminSetPasswordCommand 创建或重置管理员账号，账号总是启用且已审核
func newAdminSetPasswordCommand(ctx *commandContext) *cobra.Command {
	var username, password string

	cmd := &cobra.Command{
		Use:   "set-password",
		Short: "Create the admin user or reset its password",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(username) < 3 {
				return errors.New("username must be at least 3 characters")
			}
			if len(password) < 6 {
				return errors.New("password must be at least 6 characters")
			}

			users, err := ctx.userRepository()
			if err != nil {
				return err
			}
			created, err := users.UpsertAdmin(username, password)
			if err != nil {
				return fmt.Errorf("set admin password: %w", err)
			}

			if created {
				fmt.Fprintf(cmd.OutOrStdout(), "Created admin user %q\n", username)
			} else {
				fmt.Fprintf(cmd.OutOrStdout(), "Updated admin user %q\n", username)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&username, "username", "admin", "Admin username")
	cmd.Flags().StringVar(&password, "password", "", "New password (min 6 characters)")
	_ = cmd.MarkFlagRequired("password")

	return cmd
}
