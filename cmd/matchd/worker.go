package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newWorkerCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run match jobs from the RabbitMQ queue",
		Long: `Consume job ids published by "matchd serve --dispatch=amqp" and run them.
Concurrency is matching.workers; a job is acknowledged once it reaches a terminal state.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cmd, *configPath)
			if err != nil {
				return err
			}
			defer a.close(ctx)

			if a.cfg.Dispatch.Mode != "amqp" {
				return fmt.Errorf("worker requires dispatch.mode=amqp (got %q)", a.cfg.Dispatch.Mode)
			}

			orch, err := a.orchestrator()
			if err != nil {
				return err
			}

			mq, err := a.dialQueue()
			if err != nil {
				return err
			}
			defer mq.Close()

			return mq.Consume(ctx, orch, a.cfg.Matching.Workers)
		},
	}
}
