package main

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/blacklist-api/internal/config"
	"github.com/ignite/blacklist-api/internal/migrate"
	"github.com/ignite/blacklist-api/internal/pkg/distlock"
	"github.com/ignite/blacklist-api/internal/pkg/logger"
	"github.com/ignite/blacklist-api/internal/repository/postgres"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

const lockTTL = 10 * time.Minute

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply blacklist database migrations",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "path to the YAML config file")

	root.AddCommand(&cobra.Command{
		Use:   "up [dir]",
		Short: "Apply pending migrations from dir (default: migrations)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "migrations"
			if len(args) == 1 {
				dir = args[0]
			}
			return runUp(cmd, configPath, dir)
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List applied migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, configPath)
		},
	})

	return root
}

func openDB(ctx context.Context, configPath string) (*config.Config, *sql.DB, error) {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	if cfg.Store.DatabaseURL == "" {
		return nil, nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := postgres.Open(ctx, cfg.Store.DatabaseURL, postgres.PoolConfig{MaxOpenConns: 2})
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

func runUp(cmd *cobra.Command, configPath, dir string) error {
	ctx := cmd.Context()
	cfg, db, err := openDB(ctx, configPath)
	if err != nil {
		return err
	}
	defer db.Close()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		if opts, err := redis.ParseURL(cfg.Redis.URL); err != nil {
			logger.Warn("invalid REDIS_URL, using PG advisory lock", "error", err)
		} else {
			rdb = redis.NewClient(opts)
			defer rdb.Close()
			if err := rdb.Ping(ctx).Err(); err != nil {
				logger.Warn("redis unreachable, using PG advisory lock", "error", err)
				rdb = nil
			}
		}
	}

	lock := distlock.NewLock(rdb, db, migrate.LockKey, lockTTL)
	res, err := migrate.NewRunner(db, lock, migrate.WithLockTTL(lockTTL)).Up(ctx, os.DirFS(dir))
	if res != nil {
		for _, f := range res.Applied {
			fmt.Fprintf(cmd.OutOrStdout(), "  %s ... OK\n", f)
		}
		logger.Info("migrations complete", "dir", dir, "applied", len(res.Applied), "skipped", len(res.Skipped))
	}
	return err
}

func runList(cmd *cobra.Command, configPath string) error {
	ctx := cmd.Context()
	_, db, err := openDB(ctx, configPath)
	if err != nil {
		return err
	}
	defer db.Close()

	applied, err := migrate.NewRunner(db, nil).List(ctx)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, a := range applied {
		fmt.Fprintf(out, "  %s  %s\n", a.AppliedAt.UTC().Format(time.RFC3339), a.Filename)
	}
	fmt.Fprintf(out, "Total: %d applied\n", len(applied))
	return nil
}
