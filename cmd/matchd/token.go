package main

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/jonathan/cofounder-matcher/internal/server"
	"github.com/spf13/cobra"
)

func newTokenCmd(configPath *string) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token for a user (development only)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			cfg, err := loadConfig(cmd, *configPath)
			if err != nil {
				return err
			}
			if err := cfg.JWT.Check(); err != nil {
				return fmt.Errorf("config error: %w", err)
			}

			token, err := server.NewJWTService(&cfg.JWT).GenerateToken(userID)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID to issue the token for")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
