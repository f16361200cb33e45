package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jonathan/cofounder-matcher/internal/observability"
	"github.com/jonathan/cofounder-matcher/internal/onboarding"
	"github.com/jonathan/cofounder-matcher/internal/types"
	"github.com/spf13/cobra"
)

// pollInterval is how often match --wait re-reads the job
const pollInterval = 250 * time.Millisecond

func newMatchCmd(configPath *string) *cobra.Command {
	var (
		user string
		wait bool
	)

	cmd := &cobra.Command{
		Use:   "match",
		Short: "Start a match run for a user and print the ranked matches",
		Long: `Start (or rejoin) the user's match run and, with --wait, poll it to completion
and print the top matches.

In pool dispatch mode the run executes inside this process, so the command
always waits. In amqp mode the job is published and a worker runs it.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			userID, err := uuid.Parse(user)
			if err != nil {
				return fmt.Errorf("invalid --user: %w", err)
			}
			return runMatch(cmd, *configPath, userID, wait)
		},
	}
	cmd.Flags().StringVar(&user, "user", "", "User ID to match")
	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for the run and print results")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}

func runMatch(cmd *cobra.Command, configPath string, userID uuid.UUID, wait bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	printer := observability.NewPrinter(cmd.OutOrStdout())

	orch, err := a.orchestrator()
	if err != nil {
		return err
	}
	if err := orch.CheckEligible(ctx, userID); err != nil {
		return err
	}

	profile, err := a.store.GetProfile(ctx, userID)
	if err != nil {
		return err
	}
	if parsed, err := onboarding.Normalize(profile.OnboardingData); err == nil {
		printer.PrintProfile(parsed)
	}

	stopDispatch, err := attachDispatcher(ctx, a, orch)
	if err != nil {
		return err
	}
	defer stopDispatch()

	jobID, err := orch.Start(ctx, userID)
	if err != nil {
		return err
	}

	if !wait && a.cfg.Dispatch.Mode == "amqp" {
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Queued matching job %s\n", jobID)
		return nil
	}

	job, err := waitForJob(ctx, a, jobID)
	if err != nil {
		return err
	}
	printer.PrintJob(job)
	if job.Status != types.JobStatusCompleted {
		return fmt.Errorf("matching job %s %s", job.ID, job.Status)
	}

	results, err := a.store.ListResults(ctx, userID)
	if err != nil {
		return err
	}
	printer.PrintResults(results)
	return nil
}

// waitForJob polls until the job is terminal or ctx ends
func waitForJob(ctx context.Context, a *app, jobID uuid.UUID) (*types.MatchingJob, error) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	lastProgress := -1
	for {
		job, err := a.store.GetJob(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if job == nil {
			return nil, fmt.Errorf("matching job %s disappeared", jobID)
		}
		if job.Status.Terminal() {
			return job, nil
		}
		if job.Progress != lastProgress {
			a.log.Info("matching", "job_id", job.ID, "progress", job.Progress, "step", job.CurrentStep)
			lastProgress = job.Progress
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
