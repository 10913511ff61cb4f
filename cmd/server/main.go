package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ignite/blacklist-api/internal/api"
	"github.com/ignite/blacklist-api/internal/auth"
	"github.com/ignite/blacklist-api/internal/cache"
	"github.com/ignite/blacklist-api/internal/config"
	"github.com/ignite/blacklist-api/internal/pkg/logger"
	"github.com/ignite/blacklist-api/internal/repository/dynamo"
	"github.com/ignite/blacklist-api/internal/repository/postgres"
	"github.com/ignite/blacklist-api/internal/service/blacklist"
	"github.com/redis/go-redis/v9"
)

const (
	configPath    = "config/config.yaml"
	drainTimeout  = 15 * time.Second
	probeTimeout  = 3 * time.Second
	probeSlowOver = time.Second
)

func main() {
	cfg, err := config.LoadFromEnv(configPath)
	if err != nil {
		logger.Fatal("failed to load config", "error", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Log.Level))
	logger.SetRedactPII(!cfg.Log.DisableRedaction)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	health := api.NewHealthChecker()

	repo, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		logger.Fatal("failed to initialize store", "driver", cfg.Store.Driver, "error", err)
	}
	defer closeStore()
	health.AddCheck("store", repo.Ping, probeTimeout, probeSlowOver)

	if cfg.Redis.Enabled {
		client, err := openRedis(ctx, cfg.Redis.URL)
		if err != nil {
			// The cache is optional; lookups go straight to the store.
			logger.Warn("redis unavailable, lookup cache disabled", "error", err)
		} else {
			defer client.Close()
			repo = cache.NewBlacklistCache(repo, client, cfg.Redis.TTL())
			health.AddCheck("redis", func(ctx context.Context) error {
				return client.Ping(ctx).Err()
			}, probeTimeout, probeSlowOver)
			logger.Info("redis lookup cache enabled", "ttl", cfg.Redis.TTL().String())
		}
	}

	if cfg.Auth.APIToken == "" {
		logger.Warn("API_TOKEN is not set, every blacklist request will be rejected")
	}

	svc := blacklist.NewService(repo)
	server := api.NewServer(
		cfg.Server,
		api.NewBlacklistHandler(svc),
		health,
		auth.NewBearerGuard(cfg.Auth.APIToken),
	)

	// Setup graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("starting server",
			"addr", cfg.Server.Addr(),
			"store", cfg.Store.Driver,
			"blacklist_prefix", cfg.Server.BlacklistPrefix,
			"health_prefix", cfg.Server.HealthPrefix,
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server error", "error", err)
		}
	}()

	<-done
	logger.Info("shutting down server")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), drainTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	logger.Info("server stopped")
}

// openStore builds the configured backend and returns a close func for it.
func openStore(ctx context.Context, cfg config.StoreConfig) (blacklist.Repository, func(), error) {
	switch cfg.Driver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL, postgres.PoolConfig{
			MaxOpenConns:    cfg.MaxOpenConns,
			MaxIdleConns:    cfg.MaxIdleConns,
			ConnMaxLifetime: cfg.ConnMaxLifetime(),
		})
		if err != nil {
			return nil, nil, err
		}
		logger.Info("postgres store connected",
			"max_open_conns", cfg.MaxOpenConns,
			"max_idle_conns", cfg.MaxIdleConns,
		)
		return postgres.NewBlacklistRepo(db), func() { db.Close() }, nil

	case config.DriverDynamoDB:
		client, err := dynamo.NewClient(ctx, cfg.DynamoDB.Region, cfg.DynamoDB.Endpoint)
		if err != nil {
			return nil, nil, err
		}
		logger.Info("dynamodb store configured",
			"table", cfg.DynamoDB.Table,
			"region", cfg.DynamoDB.Region,
		)
		return dynamo.NewBlacklistRepo(client, cfg.DynamoDB.Table), func() {}, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}

func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}
