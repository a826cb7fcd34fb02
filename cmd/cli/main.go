package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"

	"aigovern/adapters/api"
	"aigovern/adapters/excel"
	"aigovern/adapters/model"
	"aigovern/adapters/notify"
	"aigovern/adapters/postgres"
	"aigovern/adapters/postgres/migrations"
	"aigovern/adapters/queue"
	"aigovern/app"
	"aigovern/domain/core"
	"aigovern/internal"
	"aigovern/internal/compliance"
	"aigovern/internal/config"
	"aigovern/ports"
)

func main() {
	// Missing .env is fine; real deployments set the environment directly
	godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "aigovern",
		Short: "AI governance test execution engine",
	}

	rootCmd.AddCommand(
		newMigrateCmd(),
		newExecuteCmd(),
		newWorkerCmd(),
		newServeCmd(),
		newComplianceCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// container bundles the wired services shared by every command
type container struct {
	cfg        *config.Config
	db         *sqlx.DB
	logger     *internal.Logger
	runs       ports.RunRepository
	results    ports.ResultRepository
	dispatcher *app.Dispatcher
	queue      *queue.Queue
	service    *app.RunService
	registry   *app.Registry
	mapper     *compliance.Mapper
}

func buildContainer() (*container, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logger := internal.NewDefaultLogger()

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}

	runs := postgres.NewRunRepository(db)
	results := postgres.NewResultRepository(db)
	plans := postgres.NewPlanRepository(db)
	assets := postgres.NewAssetRepository(db)

	registry := app.NewRegistry()
	executor := app.NewExecutor(registry, logger)

	var notifier ports.CompletionNotifier
	if cfg.Notify.Enabled {
		notifier = notify.NewWebhookNotifier(cfg.Notify.WebhookURL, logger.Named("notify"))
	}

	dispatcher := app.NewDispatcher(
		executor, runs, results, assets,
		model.NewMetadataResolver(), excel.NewDatasetReader(),
		notifier, logger.Named("dispatcher"),
		app.DispatcherConfig{
			WorkerID:       cfg.Worker.ID,
			MaxAttempts:    cfg.Worker.MaxAttempts,
			InitialBackoff: cfg.Worker.InitialBackoff,
			MaxBackoff:     cfg.Worker.MaxBackoff,
		})

	jobQueue := queue.New(dispatcher, cfg.Worker.Count, cfg.Worker.QueueBuffer, logger.Named("queue"))
	service := app.NewRunService(runs, assets, plans, jobQueue, logger)
	mapper := compliance.NewMapper(runs, results, nil)

	return &container{
		cfg:        cfg,
		db:         db,
		logger:     logger,
		runs:       runs,
		results:    results,
		dispatcher: dispatcher,
		queue:      jobQueue,
		service:    service,
		registry:   registry,
		mapper:     mapper,
	}, nil
}

func (c *container) Close() {
	c.db.Close()
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the evidence store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Close()
			if err := migrations.Run(cmd.Context(), c.db); err != nil {
				return err
			}
			c.logger.Info("schema is up to date")
			return nil
		},
	}
}

func newExecuteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "execute [run-id]",
		Short: "Execute one test run synchronously",
		Long: `Execute a pending test run in the current process, bypassing the queue.

Exits 0 iff the run completed with at least one passed test.

Example: aigovern execute 01920b5a-7e3f-7cc0-b1c2-4a5e6f708192`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Close()

			ok, err := c.dispatcher.ExecuteTestRun(cmd.Context(), runID)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("run %s finished without a passing test", runID)
			}
			return nil
		},
	}
}

func newWorkerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run the background test execution worker pool",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c.logger.Info("worker pool started: %d workers", c.cfg.Worker.Count)
			if err := c.queue.Run(ctx); err != nil && err != context.Canceled {
				return err
			}
			return nil
		},
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API with embedded workers",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			go func() {
				if err := c.queue.Run(ctx); err != nil && err != context.Canceled {
					c.logger.Error("worker pool stopped: %v", err)
				}
			}()

			server := api.NewServer(c.service, c.results, c.mapper, c.registry, c.logger)
			httpServer := &http.Server{
				Addr:    ":" + c.cfg.Server.Port,
				Handler: server.Router(),
			}
			go func() {
				<-ctx.Done()
				httpServer.Shutdown(context.Background())
			}()

			c.logger.Info("api listening on :%s", c.cfg.Server.Port)
			if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				return err
			}
			return nil
		},
	}
}

func newComplianceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "compliance [run-id]",
		Short: "Print the compliance report for a completed run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runID, err := core.ParseRunID(args[0])
			if err != nil {
				return err
			}
			c, err := buildContainer()
			if err != nil {
				return err
			}
			defer c.Close()

			report, err := c.mapper.Evaluate(cmd.Context(), runID)
			if err != nil {
				return err
			}
			out, err := json.MarshalIndent(report, "", "  ")
			if err != nil {
				return err
			}
			fmt.Println(string(out))
			return nil
		},
	}
}
