package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"workzen/internal/app/server"
	"workzen/internal/platform/config"
	"workzen/internal/platform/db"
)

func main() {
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	if err := newRootCommand().Execute(); err != nil {
		slog.Error("command failed", "err", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	serve := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE:  runServe,
	}
	root := &cobra.Command{
		Use:           "workzen",
		Short:         "WorkZen HR management server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runServe,
	}
	root.AddCommand(
		serve,
		&cobra.Command{
			Use:   "migrate",
			Short: "Apply pending database migrations",
			RunE:  runMigrate,
		},
		&cobra.Command{
			Use:   "seed",
			Short: "Create the bootstrap admin account",
			RunE:  runSeed,
		},
	)
	return root
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app, err := server.New(ctx, config.Load())
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Run(ctx)
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return withPool(cmd.Context(), cfg, func(ctx context.Context, pool *db.Pool) error {
		if err := db.Migrate(ctx, pool, cfg.MigrationsDir); err != nil {
			return fmt.Errorf("migrations: %w", err)
		}
		slog.Info("migrations applied", "dir", cfg.MigrationsDir)
		return nil
	})
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return withPool(cmd.Context(), cfg, func(ctx context.Context, pool *db.Pool) error {
		if err := db.Seed(ctx, pool, cfg); err != nil {
			return fmt.Errorf("seed: %w", err)
		}
		slog.Info("seed complete")
		return nil
	})
}

func loadConfig() (config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func withPool(ctx context.Context, cfg config.Config, fn func(context.Context, *db.Pool) error) error {
	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("db connect: %w", err)
	}
	defer pool.Close()
	return fn(ctx, pool)
}
