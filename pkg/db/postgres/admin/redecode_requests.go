package admin

import (
	"context"
	"fmt"
	"time"

	adminmodels "github.com/paritytech/polkadot-rest-api-sub000/pkg/db/models/admin"
)

// initRedecodeRequests creates the redecode_requests table
func (db *DB) initRedecodeRequests(ctx context.Context) error {
	table := db.SchemaTable(adminmodels.RedecodeRequestsTableName)
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chain_id BIGINT NOT NULL,
			from_height BIGINT NOT NULL,
			to_height BIGINT NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW(),
			completed_at TIMESTAMP,
			error TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (chain_id, from_height, to_height)
		)
	`, table)

	return db.Exec(ctx, query)
}

// InsertRedecodeRequest records a pending redecode request, resetting an
// existing request for the same range back to pending.
func (db *DB) InsertRedecodeRequest(ctx context.Context, chainID, fromHeight, toHeight uint64) error {
	table := db.SchemaTable(adminmodels.RedecodeRequestsTableName)
	query := fmt.Sprintf(`
		INSERT INTO %s (chain_id, from_height, to_height, status)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (chain_id, from_height, to_height) DO UPDATE SET
			status = EXCLUDED.status,
			updated_at = NOW(),
			completed_at = NULL,
			error = ''
	`, table)
	return db.Exec(ctx, query, chainID, fromHeight, toHeight, adminmodels.RedecodeStatusPending)
}

// ListRedecodeRequests returns a chain's redecode requests, newest first.
func (db *DB) ListRedecodeRequests(ctx context.Context, chainID uint64) ([]adminmodels.RedecodeRequest, error) {
	table := db.SchemaTable(adminmodels.RedecodeRequestsTableName)
	query := fmt.Sprintf(`
		SELECT chain_id, from_height, to_height, status, error, created_at, updated_at, completed_at
		FROM %s
		WHERE chain_id = $1
		ORDER BY created_at DESC
	`, table)

	rows, err := db.Query(ctx, query, chainID)
	if err != nil {
		return nil, fmt.Errorf("list redecode requests: %w", err)
	}
	defer rows.Close()

	var out []adminmodels.RedecodeRequest
	for rows.Next() {
		var r adminmodels.RedecodeRequest
		if err := rows.Scan(&r.ChainID, &r.FromHeight, &r.ToHeight, &r.Status, &r.Error,
			&r.CreatedAt, &r.UpdatedAt, &r.CompletedAt); err != nil {
			return nil, fmt.Errorf("scan redecode request: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkRedecodeRequest records the outcome of serving a request.
func (db *DB) MarkRedecodeRequest(ctx context.Context, chainID, fromHeight, toHeight uint64, status, errMsg string) error {
	table := db.SchemaTable(adminmodels.RedecodeRequestsTableName)
	query := fmt.Sprintf(`
		UPDATE %s SET status = $4, error = $5, updated_at = NOW(), completed_at = $6
		WHERE chain_id = $1 AND from_height = $2 AND to_height = $3
	`, table)

	var completed *time.Time
	if status == adminmodels.RedecodeStatusDone || status == adminmodels.RedecodeStatusFailed {
		now := time.Now()
		completed = &now
	}
	return db.Exec(ctx, query, chainID, fromHeight, toHeight, status, errMsg, completed)
}

// DeleteRedecodeRequestsForChain deletes all redecode requests for a chain
func (db *DB) DeleteRedecodeRequestsForChain(ctx context.Context, chainID uint64) error {
	table := db.SchemaTable(adminmodels.RedecodeRequestsTableName)
	query := fmt.Sprintf(`DELETE FROM %s WHERE chain_id = $1`, table)
	return db.Exec(ctx, query, chainID)
}
