package backfill

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/paritytech/polkadot-rest-api-sub000/internal/gateway"
	adminmodels "github.com/paritytech/polkadot-rest-api-sub000/pkg/db/models/admin"
	adminstore "github.com/paritytech/polkadot-rest-api-sub000/pkg/db/postgres/admin"
	"github.com/paritytech/polkadot-rest-api-sub000/pkg/rpc"
)

// Result contains the results of a backfill operation.
type Result struct {
	TotalMissing   uint64
	TotalProcessed uint64
	TotalSucceeded uint64
	TotalFailed    uint64
	Duration       time.Duration
	Errors         []error
}

// Backfiller decodes the blocks missing from the decode progress table,
// warming the metadata and response caches along the way.
type Backfiller struct {
	rpc     *rpc.HTTPClient
	pool    *pgxpool.Pool
	admin   *adminstore.DB
	gateway *gateway.Service
	chainID uint64
	config  *Config
}

// New creates a new Backfiller.
func New(rpcClient *rpc.HTTPClient, pool *pgxpool.Pool, admin *adminstore.DB, svc *gateway.Service, chainID uint64, cfg *Config) *Backfiller {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Backfiller{
		rpc:     rpcClient,
		pool:    pool,
		admin:   admin,
		gateway: svc,
		chainID: chainID,
		config:  cfg,
	}
}

// finalizedHeight resolves the height of the latest finalized block.
func (b *Backfiller) finalizedHeight(ctx context.Context) (uint64, error) {
	hash, err := b.rpc.FinalizedHead(ctx)
	if err != nil {
		return 0, fmt.Errorf("finalized head: %w", err)
	}
	header, err := b.rpc.Header(ctx, hash)
	if err != nil {
		return 0, fmt.Errorf("finalized header: %w", err)
	}
	return header.HeightOf()
}

// Run executes the backfill operation.
func (b *Backfiller) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	result := &Result{}

	startHeight := b.config.StartHeight
	if startHeight == 0 {
		startHeight = 1
	}

	endHeight := b.config.EndHeight
	if endHeight == 0 {
		height, err := b.finalizedHeight(ctx)
		if err != nil {
			return nil, err
		}
		endHeight = height
		slog.Info("fetched finalized height from node", "height", endHeight)
	}

	slog.Info("starting backfill",
		"chain_id", b.chainID,
		"start_height", startHeight,
		"end_height", endHeight,
		"batch_size", b.config.BatchSize,
		"concurrency", b.config.Concurrency,
		"dry_run", b.config.DryRun,
	)

	stats, err := GetGapStats(ctx, b.pool, b.chainID, startHeight, endHeight)
	if err != nil {
		return nil, fmt.Errorf("get gap stats: %w", err)
	}

	slog.Info("gap analysis complete",
		"total_expected", stats.TotalExpected,
		"total_decoded", stats.TotalDecoded,
		"total_missing", stats.TotalMissing,
		"first_missing", stats.FirstMissing,
		"last_missing", stats.LastMissing,
	)

	result.TotalMissing = stats.TotalMissing

	if stats.TotalMissing == 0 {
		slog.Info("no missing blocks found")
		result.Duration = time.Since(start)
		return result, nil
	}

	if b.config.DryRun {
		slog.Info("dry run complete, no blocks decoded")
		result.Duration = time.Since(start)
		return result, nil
	}

	var errorsMu sync.Mutex
	var processed, succeeded, failed atomic.Uint64

	progressCtx, cancelProgress := context.WithCancel(ctx)
	defer cancelProgress()
	go b.reportProgress(progressCtx, stats.TotalMissing, &processed, &succeeded, &failed)

	currentStart := startHeight
	for currentStart <= endHeight {
		select {
		case <-ctx.Done():
			result.TotalProcessed = processed.Load()
			result.TotalSucceeded = succeeded.Load()
			result.TotalFailed = failed.Load()
			result.Duration = time.Since(start)
			return result, ctx.Err()
		default:
		}

		heights, err := FindMissingHeights(ctx, b.pool, b.chainID, currentStart, endHeight, b.config.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("find missing heights: %w", err)
		}

		if len(heights) == 0 {
			break
		}

		slog.Debug("processing batch",
			"batch_start", heights[0],
			"batch_end", heights[len(heights)-1],
			"batch_size", len(heights),
		)

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(b.config.Concurrency)

		for _, height := range heights {
			height := height
			g.Go(func() error {
				processed.Add(1)

				if err := b.decodeBlock(gCtx, height); err != nil {
					failed.Add(1)
					errorsMu.Lock()
					result.Errors = append(result.Errors, fmt.Errorf("height %d: %w", height, err))
					errorsMu.Unlock()
					slog.Error("failed to decode block",
						"chain_id", b.chainID,
						"height", height,
						"err", err,
					)
					// Continue with other blocks, don't fail entire backfill
					return nil
				}

				succeeded.Add(1)
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			// Context cancelled
			break
		}

		currentStart = heights[len(heights)-1] + 1
	}

	result.TotalProcessed = processed.Load()
	result.TotalSucceeded = succeeded.Load()
	result.TotalFailed = failed.Load()
	result.Duration = time.Since(start)

	slog.Info("backfill complete",
		"total_missing", result.TotalMissing,
		"total_processed", result.TotalProcessed,
		"total_succeeded", result.TotalSucceeded,
		"total_failed", result.TotalFailed,
		"duration", result.Duration,
	)

	b.closeServedRequests(ctx, startHeight, endHeight)

	return result, nil
}

// closeServedRequests marks pending redecode requests done once their range
// carries no gaps anymore.
func (b *Backfiller) closeServedRequests(ctx context.Context, start, end uint64) {
	reqs, err := b.admin.ListRedecodeRequests(ctx, b.chainID)
	if err != nil {
		slog.Warn("cannot list redecode requests", "err", err)
		return
	}
	for _, req := range reqs {
		if req.Status != adminmodels.RedecodeStatusPending {
			continue
		}
		if req.FromHeight < start || req.ToHeight > end {
			continue
		}
		missing, err := CountMissingBlocks(ctx, b.pool, b.chainID, req.FromHeight, req.ToHeight)
		if err != nil {
			slog.Warn("cannot count missing blocks for redecode request", "err", err)
			continue
		}
		if missing > 0 {
			continue
		}
		if err := b.admin.MarkRedecodeRequest(ctx, req.ChainID, req.FromHeight, req.ToHeight,
			adminmodels.RedecodeStatusDone, ""); err != nil {
			slog.Warn("cannot mark redecode request done", "err", err)
			continue
		}
		slog.Info("redecode request served",
			"from_height", req.FromHeight,
			"to_height", req.ToHeight,
		)
	}
}

// decodeBlock runs one block through the full decode path and records the
// result in the progress table.
func (b *Backfiller) decodeBlock(ctx context.Context, height uint64) error {
	started := time.Now()
	if _, err := b.gateway.BlockByHeight(ctx, height); err != nil {
		return err
	}
	elapsed := float64(time.Since(started).Microseconds()) / 1000.0
	if err := b.admin.RecordDecoded(ctx, b.chainID, height, elapsed); err != nil {
		return fmt.Errorf("record progress: %w", err)
	}
	return nil
}

// reportProgress logs progress at regular intervals.
func (b *Backfiller) reportProgress(ctx context.Context, total uint64, processed, succeeded, failed *atomic.Uint64) {
	ticker := time.NewTicker(b.config.ProgressInterval)
	defer ticker.Stop()

	startTime := time.Now()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p := processed.Load()
			s := succeeded.Load()
			f := failed.Load()

			elapsed := time.Since(startTime)
			rate := float64(p) / elapsed.Seconds()

			var eta time.Duration
			if rate > 0 && p < total {
				remaining := total - p
				eta = time.Duration(float64(remaining)/rate) * time.Second
			}

			progress := float64(p) / float64(total) * 100

			slog.Info("backfill progress",
				"processed", p,
				"total", total,
				"progress_pct", fmt.Sprintf("%.1f%%", progress),
				"succeeded", s,
				"failed", f,
				"rate_per_sec", fmt.Sprintf("%.1f", rate),
				"eta", eta.Round(time.Second),
			)
		}
	}
}

// CheckHealth performs a quick gap check and returns stats.
func (b *Backfiller) CheckHealth(ctx context.Context) (*GapStats, error) {
	endHeight, err := b.finalizedHeight(ctx)
	if err != nil {
		return nil, err
	}

	startHeight := b.config.StartHeight
	if startHeight == 0 {
		startHeight = 1
	}

	return GetGapStats(ctx, b.pool, b.chainID, startHeight, endHeight)
}
