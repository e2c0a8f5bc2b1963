package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/paritytech/polkadot-rest-api-sub000/internal/backfill"
	"github.com/paritytech/polkadot-rest-api-sub000/internal/config"
	"github.com/paritytech/polkadot-rest-api-sub000/internal/db"
	"github.com/paritytech/polkadot-rest-api-sub000/internal/gateway"
	adminstore "github.com/paritytech/polkadot-rest-api-sub000/pkg/db/postgres/admin"
	"github.com/paritytech/polkadot-rest-api-sub000/pkg/rpc"
	"github.com/paritytech/polkadot-rest-api-sub000/pkg/transform"
)

func main() {
	// Parse flags
	dryRun := flag.Bool("dry-run", false, "Only report gaps, don't decode")
	startHeight := flag.Uint64("start", 0, "Start height (default: 1)")
	endHeight := flag.Uint64("end", 0, "End height (default: latest finalized height)")
	batchSize := flag.Int("batch", 0, "Batch size (default: 1000)")
	concurrency := flag.Int("concurrency", 0, "Number of concurrent workers (default: 10)")
	statsOnly := flag.Bool("stats", false, "Only show gap statistics")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Load base configuration
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

	slog.Info("backfill starting", "chain_id", cfg.ChainID)

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

	svc := gateway.New(rpcClient, zlog, prefix, transform.DefaultAccountFieldTable())

	// Build backfill config, flags override environment
	backfillCfg := backfill.LoadConfig()
	if *dryRun {
		backfillCfg.DryRun = true
	}
	if *startHeight > 0 {
		backfillCfg.StartHeight = *startHeight
	}
	if *endHeight > 0 {
		backfillCfg.EndHeight = *endHeight
	}
	if *batchSize > 0 {
		backfillCfg.BatchSize = *batchSize
	}
	if *concurrency > 0 {
		backfillCfg.Concurrency = *concurrency
	}

	bf := backfill.New(rpcClient, pool, adminDB, svc, cfg.ChainID, backfillCfg)

	// Stats only mode
	if *statsOnly {
		stats, err := bf.CheckHealth(ctx)
		if err != nil {
			slog.Error("failed to check health", "chain_id", cfg.ChainID, "err", err)
			os.Exit(1)
		}

		fmt.Printf("Gap Statistics for chain %d:\n", cfg.ChainID)
		fmt.Printf("  Total Expected: %d\n", stats.TotalExpected)
		fmt.Printf("  Total Decoded:  %d\n", stats.TotalDecoded)
		fmt.Printf("  Total Missing:  %d\n", stats.TotalMissing)
		if stats.TotalMissing > 0 {
			fmt.Printf("  First Missing:  %d\n", stats.FirstMissing)
			fmt.Printf("  Last Missing:   %d\n", stats.LastMissing)
			completionPct := float64(stats.TotalDecoded) / float64(stats.TotalExpected) * 100
			fmt.Printf("  Completion:     %.2f%%\n", completionPct)
		} else {
			fmt.Printf("  Completion:     100%%\n")
		}
		os.Exit(0)
	}

	result, err := bf.Run(ctx)
	if err != nil && ctx.Err() == nil {
		slog.Error("backfill failed", "chain_id", cfg.ChainID, "err", err)
		os.Exit(1)
	}
	if result == nil {
		os.Exit(1)
	}

	// Print summary
	fmt.Printf("\nBackfill Summary:\n")
	fmt.Printf("  Total Missing:   %d\n", result.TotalMissing)
	fmt.Printf("  Total Processed: %d\n", result.TotalProcessed)
	fmt.Printf("  Total Succeeded: %d\n", result.TotalSucceeded)
	fmt.Printf("  Total Failed:    %d\n", result.TotalFailed)
	fmt.Printf("  Duration:        %s\n", result.Duration)

	if result.TotalFailed > 0 {
		fmt.Printf("\n  Failed blocks (%d):\n", len(result.Errors))
		for i, err := range result.Errors {
			if i >= 5 {
				fmt.Printf("    ... and %d more\n", len(result.Errors)-5)
				break
			}
			fmt.Printf("    - %v\n", err)
		}
		os.Exit(1)
	}

	slog.Info("backfill complete")
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
// system_properties when none is configured.
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
