package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/paritytech/polkadot-rest-api-sub000/internal/api"
	"github.com/paritytech/polkadot-rest-api-sub000/internal/config"
	"github.com/paritytech/polkadot-rest-api-sub000/internal/db"
	"github.com/paritytech/polkadot-rest-api-sub000/internal/gateway"
	"github.com/paritytech/polkadot-rest-api-sub000/internal/listener"
	"github.com/paritytech/polkadot-rest-api-sub000/internal/publisher"
	"github.com/paritytech/polkadot-rest-api-sub000/internal/worker"
	adminstore "github.com/paritytech/polkadot-rest-api-sub000/pkg/db/postgres/admin"
	"github.com/paritytech/polkadot-rest-api-sub000/pkg/rpc"
	"github.com/paritytech/polkadot-rest-api-sub000/pkg/transform"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "err", err)
		os.Exit(1)
	}

	// Setup logging
	setupLogging(cfg.LogLevel)
	zlog, err := buildZap(cfg.LogLevel)
	if err != nil {
		slog.Error("failed to build logger", "err", err)
		os.Exit(1)
	}
	defer zlog.Sync() //nolint:errcheck

	slog.Info("starting gateway",
		"rpc_endpoints", len(cfg.NodeRPCURLs),
		"ws_enabled", cfg.WSEnabled,
	)

	// Connect to PostgreSQL
	pool, err := db.Connect(ctx, cfg.PostgresURL)
	if err != nil {
		slog.Error("failed to connect to postgres", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	adminDB, err := adminstore.New(ctx, zlog, pool)
	if err != nil {
		slog.Error("failed to initialize admin store", "err", err)
		os.Exit(1)
	}

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		slog.Error("failed to parse redis url", "err", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Node RPC client
	rpcClient := rpc.NewHTTPWithOpts(rpc.Opts{
		Endpoints: cfg.NodeRPCURLs,
		RPS:       cfg.RPCRPS,
		Burst:     cfg.RPCBurst,
	})

	prefix, err := resolvePrefix(ctx, cfg, rpcClient)
	if err != nil {
		slog.Error("failed to resolve ss58 prefix", "err", err)
		os.Exit(1)
	}
	slog.Info("address format resolved", "ss58_prefix", prefix)

	// Gateway decoding service
	svc := gateway.New(rpcClient, zlog, prefix, transform.DefaultAccountFieldTable())

	// Create publisher
	pub, err := publisher.New(redisClient, cfg.HeadsTopic)
	if err != nil {
		slog.Error("failed to create publisher", "err", err)
		os.Exit(1)
	}
	defer pub.Close()

	// Create worker
	wrk, err := worker.New(worker.Config{
		RedisClient:   redisClient,
		Gateway:       svc,
		AdminDB:       adminDB,
		ChainID:       cfg.ChainID,
		Topic:         cfg.HeadsTopic,
		ConsumerGroup: cfg.ConsumerGroup,
		Concurrency:   cfg.WorkerConcurrency,
	})
	if err != nil {
		slog.Error("failed to create worker", "err", err)
		os.Exit(1)
	}
	defer wrk.Close()

	// HTTP API server
	srv, err := api.NewServer(svc, adminDB, zlog, cfg.HTTPAddr, cfg.AdminToken)
	if err != nil {
		slog.Error("failed to create api server", "err", err)
		os.Exit(1)
	}

	// Run all components
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return srv.Run(ctx)
	})

	g.Go(func() error {
		slog.Info("starting worker")
		return wrk.Run(ctx)
	})

	if cfg.WSEnabled {
		g.Go(func() error {
			return startWSListener(ctx, cfg, pub)
		})
	}

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("gateway error", "err", err)
		os.Exit(1)
	}

	slog.Info("shutdown complete")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func buildZap(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch level {
	case "debug":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zapcore.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}
	return cfg.Build()
}

// resolvePrefix returns the configured address prefix, asking the node's
// system_properties when none is configured. Nodes that report no format
// get the generic substrate prefix 42.
func resolvePrefix(ctx context.Context, cfg *config.Config, client *rpc.HTTPClient) (uint16, error) {
	if cfg.SS58Prefix >= 0 {
		return uint16(cfg.SS58Prefix), nil
	}
	props, err := client.Properties(ctx)
	if err != nil {
		return 0, err
	}
	if props.SS58Format == nil {
		return 42, nil
	}
	return *props.SS58Format, nil
}

// startWSListener subscribes to new heads and republishes each height to the
// decode queue.
func startWSListener(ctx context.Context, cfg *config.Config, pub *publisher.Publisher) error {
	lst := listener.New(listener.Config{
		URL:            cfg.NodeWSURL,
		MaxRetries:     cfg.WSMaxRetries,
		ReconnectDelay: cfg.WSReconnectDelay,
	}, func(height uint64) {
		if err := pub.PublishHead(ctx, height); err != nil {
			slog.Error("failed to publish head", "height", height, "err", err)
		}
	})

	slog.Info("starting websocket listener", "url", cfg.NodeWSURL)
	return lst.Run(ctx)
}
