package main

import (
	"context"
	"fmt"

	"github.com/jonathan/cofounder-matcher/internal/config"
	"github.com/jonathan/cofounder-matcher/internal/db"
	"github.com/jonathan/cofounder-matcher/internal/db/sqlite"
	"github.com/jonathan/cofounder-matcher/internal/embedding"
	"github.com/jonathan/cofounder-matcher/internal/logging"
	"github.com/jonathan/cofounder-matcher/internal/matching"
	"github.com/jonathan/cofounder-matcher/internal/observability"
	"github.com/jonathan/cofounder-matcher/internal/queue"
	"github.com/jonathan/cofounder-matcher/internal/types"
	"github.com/spf13/cobra"
)

// backend is a store implementation plus its lifecycle
type backend interface {
	matching.Store
	UpsertProfile(ctx context.Context, p *types.ProfileRecord) error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close()
}

// app holds the process-wide dependencies shared by the subcommands
type app struct {
	cfg   *config.Config
	log   *logging.Logger
	store backend

	shutdownTracing func(context.Context) error
}

// loadConfig resolves configuration for cmd from file, environment and flags
func loadConfig(cmd *cobra.Command, configPath string) (*config.Config, error) {
	cfg, err := config.Load(configPath, cmd.Flags())
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// newApp builds the logger, tracing and store for cmd
func newApp(ctx context.Context, cmd *cobra.Command, configPath string) (*app, error) {
	cfg, err := loadConfig(cmd, configPath)
	if err != nil {
		return nil, err
	}

	log, err := logging.New(logging.Options{
		Mode:     cfg.Log.Mode,
		Debug:    cfg.Log.Debug,
		HashSalt: cfg.Log.HashSalt,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	shutdown, err := observability.InitTracing(ctx, log, cfg.Tracing)
	if err != nil {
		log.Warn("tracing disabled", "error", err)
	}

	store, err := openStore(ctx, cfg.Store)
	if err != nil {
		log.Sync()
		return nil, err
	}
	log.Debug("store opened", "driver", cfg.Store.Driver)

	return &app{cfg: cfg, log: log, store: store, shutdownTracing: shutdown}, nil
}

func openStore(ctx context.Context, cfg config.StoreConfig) (backend, error) {
	switch cfg.Driver {
	case "sqlite":
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return store, nil
	default:
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return database, nil
	}
}

// close releases the store and flushes telemetry
func (a *app) close(ctx context.Context) {
	a.store.Close()
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(context.WithoutCancel(ctx)); err != nil {
			a.log.Warn("tracing shutdown failed", "error", err)
		}
	}
	a.log.Sync()
}

// orchestrator builds the matching engine over the app's store
func (a *app) orchestrator() (*matching.Orchestrator, error) {
	embedder, err := embedding.NewHashingEmbedder(a.cfg.Matching.EmbeddingDimension)
	if err != nil {
		return nil, fmt.Errorf("failed to create embedder: %w", err)
	}

	opts := matching.DefaultOptions()
	opts.Dimension = a.cfg.Matching.EmbeddingDimension
	opts.ScoringConcurrency = a.cfg.Matching.ScoringConcurrency
	opts.RunTimeout = a.cfg.Matching.RunTimeout
	opts.ResultWriteAttempts = a.cfg.Matching.ResultWriteAttempts

	return matching.NewOrchestrator(a.store, embedder, a.log, opts), nil
}

// dialQueue connects to the broker configured for amqp dispatch
func (a *app) dialQueue() (*queue.RabbitMQ, error) {
	mq, err := queue.Dial(a.cfg.Dispatch.AMQPURL, a.cfg.Dispatch.Queue, a.log)
	if err != nil {
		return nil, err
	}
	return mq, nil
}
