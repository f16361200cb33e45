package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonathan/cofounder-matcher/internal/matching"
	"github.com/jonathan/cofounder-matcher/internal/server"
	"github.com/jonathan/cofounder-matcher/internal/server/ratelimit"
	"github.com/spf13/cobra"
)

func newServeCmd(configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the REST API server",
		Long: `Start an HTTP server exposing POST /matches/jobs, GET /matches/jobs/{id} and GET /matches.

With --dispatch=pool match runs execute on an in-process worker pool; with
--dispatch=amqp they are published to RabbitMQ for "matchd worker" to run.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, *configPath)
		},
	}
	cmd.Flags().Int("port", 8080, "Port to listen on")
	return cmd
}

func runServe(cmd *cobra.Command, configPath string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cmd, configPath)
	if err != nil {
		return err
	}
	defer a.close(ctx)

	if err := a.cfg.JWT.Check(); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	orch, err := a.orchestrator()
	if err != nil {
		return err
	}

	stopDispatch, err := attachDispatcher(ctx, a, orch)
	if err != nil {
		return err
	}
	defer stopDispatch()

	srv := server.New(server.Config{
		Port:      a.cfg.Server.Port,
		RateLimit: ratelimit.FromConfig(a.cfg.RateLimit),
	}, server.Deps{
		Matcher: orch,
		Status:  matching.NewStatusReader(a.store, a.store),
		Health:  a.store,
		Tokens:  server.NewJWTService(&a.cfg.JWT).AsTokenValidator(),
		Log:     a.log,
	})
	return srv.Start(ctx)
}

// attachDispatcher wires orch to the configured dispatch mode and returns its
// shutdown func. Pool mode starts in-process workers bound to ctx.
func attachDispatcher(ctx context.Context, a *app, orch *matching.Orchestrator) (func(), error) {
	switch a.cfg.Dispatch.Mode {
	case "amqp":
		mq, err := a.dialQueue()
		if err != nil {
			return nil, err
		}
		orch.SetDispatcher(mq)
		return mq.Close, nil
	default:
		workers := a.cfg.Matching.Workers
		pool := matching.NewPool(orch, workers, workers*16, a.log)
		pool.Start(ctx)
		orch.SetDispatcher(pool)
		return pool.Stop, nil
	}
}
