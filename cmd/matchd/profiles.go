package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/jonathan/cofounder-matcher/internal/observability"
	"github.com/jonathan/cofounder-matcher/internal/onboarding"
	"github.com/jonathan/cofounder-matcher/internal/types"
	"github.com/spf13/cobra"
)

func newProfilesCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "profiles",
		Short: "Load and inspect onboarding profiles",
	}
	cmd.AddCommand(newProfilesImportCmd(configPath), newProfilesShowCmd(configPath))
	return cmd
}

func newProfilesImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.json>",
		Short: "Upsert profiles from a JSON array",
		Long: `Upsert profiles from a JSON array of objects with "user_id",
"onboarding_completed" and "onboarding_data" fields. Changing a profile's
onboarding data clears its cached embedding.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}
			var records []types.ProfileRecord
			if err := json.Unmarshal(data, &records); err != nil {
				return fmt.Errorf("failed to parse %s: %w", args[0], err)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cmd, *configPath)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			for i := range records {
				if records[i].UserID == uuid.Nil {
					return fmt.Errorf("profile %d: user_id is required", i)
				}
				if _, err := onboarding.Normalize(records[i].OnboardingData); err != nil {
					return fmt.Errorf("profile %s: %w", records[i].UserID, err)
				}
				if err := a.store.UpsertProfile(ctx, &records[i]); err != nil {
					return err
				}
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Imported %d profiles\n", len(records))
			return nil
		},
	}
}

func newProfilesShowCmd(configPath *string) *cobra.Command {
	var user string

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print a user's normalized onboarding answers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}

			ctx := cmd.Context()
			a, err := newApp(ctx, cmd, *configPath)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			record, err := a.store.GetProfile(ctx, userID)
			if err != nil {
				return err
			}
			if record == nil {
				return fmt.Errorf("no profile for user %s", userID)
			}
			profile, err := onboarding.Normalize(record.OnboardingData)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Onboarding completed: %t, cached embedding: %t\n",
				record.OnboardingCompleted, record.Embedding != nil)
			observability.NewPrinter(cmd.OutOrStdout()).PrintProfile(profile)
			return nil
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
