package admin

import (
	"context"
	"fmt"
)

// initHeadProgress creates the head_progress table. One row per decoded
// height per chain, so gaps left by worker restarts stay visible.
func (db *DB) initHeadProgress(ctx context.Context) error {
	table := db.SchemaTable("head_progress")
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chain_id BIGINT NOT NULL,
			height BIGINT NOT NULL,
			decoded_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
			decode_time_ms DOUBLE PRECISION NOT NULL DEFAULT 0,
			PRIMARY KEY (chain_id, height)
		);

		CREATE INDEX IF NOT EXISTS idx_head_progress_decoded_at ON %s(decoded_at);
	`, table, table)

	return db.Exec(ctx, query)
}

// RecordDecoded records that a height was decoded and served.
func (db *DB) RecordDecoded(ctx context.Context, chainID uint64, height uint64, decodeTimeMs float64) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (chain_id, height, decoded_at, decode_time_ms)
		VALUES ($1, $2, NOW(), $3)
		ON CONFLICT (chain_id, height) DO UPDATE SET
			decoded_at = NOW(),
			decode_time_ms = EXCLUDED.decode_time_ms
	`, db.SchemaTable("head_progress"))

	return db.Exec(ctx, query, chainID, height, decodeTimeMs)
}

// LastDecoded returns the highest decoded height for a chain.
func (db *DB) LastDecoded(ctx context.Context, chainID uint64) (uint64, error) {
	query := fmt.Sprintf(`
		SELECT COALESCE(MAX(height), 0)
		FROM %s
		WHERE chain_id = $1
	`, db.SchemaTable("head_progress"))

	var height uint64
	err := db.QueryRow(ctx, query, chainID).Scan(&height)
	if err != nil {
		return 0, fmt.Errorf("failed to query last decoded height: %w", err)
	}

	return height, nil
}

// DeleteProgressRange erases the decode records for a height range so the
// backfiller treats those heights as gaps again.
func (db *DB) DeleteProgressRange(ctx context.Context, chainID, fromHeight, toHeight uint64) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE chain_id = $1 AND height BETWEEN $2 AND $3
	`, db.SchemaTable("head_progress"))

	return db.Exec(ctx, query, chainID, fromHeight, toHeight)
}
