/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/whiskeyshelf/apiserver/internal/server"
	"github.com/whiskeyshelf/apiserver/internal/services"
)

var superuserInput services.RegisterInput

// createsuperuserCmd creates a staff account with superuser rights.
var createsuperuserCmd = &cobra.Command{
	Use:   "createsuperuser",
	Short: "Create an account with staff and superuser flags",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		deps, err := server.OpenUsers(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		user, err := deps.Users.CreateSuperuser(cmd.Context(), superuserInput)
		if err != nil {
			return fmt.Errorf("create superuser: %w", err)
		}
		slog.Info("superuser created", "id", user.ID, "username", user.Username)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(createsuperuserCmd)
	createsuperuserCmd.Flags().StringVar(&superuserInput.Username, "username", "", "login name")
	createsuperuserCmd.Flags().StringVar(&superuserInput.Password, "password", "", "password (at least 5 characters)")
	createsuperuserCmd.Flags().StringVar(&superuserInput.Name, "name", "", "display name")
	_ = createsuperuserCmd.MarkFlagRequired("username")
	_ = createsuperuserCmd.MarkFlagRequired("password")
}
