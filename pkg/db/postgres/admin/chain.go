package admin

import (
	"context"
	"fmt"
	"time"

	adminmodels "github.com/paritytech/polkadot-rest-api-sub000/pkg/db/models/admin"
)

func (db *DB) initChains(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			chain_id BIGINT PRIMARY KEY,
			chain_name TEXT NOT NULL,
			rpc_endpoints TEXT[] NOT NULL DEFAULT '{}',
			ws_endpoint TEXT NOT NULL DEFAULT '',
			ss58_prefix SMALLINT NOT NULL DEFAULT -1,
			paused SMALLINT NOT NULL DEFAULT 0,
			deleted SMALLINT NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMP NOT NULL DEFAULT NOW()
		)
	`, db.SchemaTable(adminmodels.ChainsTableName))

	return db.Exec(ctx, query)
}

// GetChain returns the chain for the given chain_id.
func (db *DB) GetChain(ctx context.Context, id uint64) (*adminmodels.Chain, error) {
	query := fmt.Sprintf(`
		SELECT chain_id, chain_name, rpc_endpoints, ws_endpoint, ss58_prefix, paused, deleted, notes, created_at, updated_at
		FROM %s
		WHERE chain_id = $1
	`, db.SchemaTable(adminmodels.ChainsTableName))

	var chain adminmodels.Chain
	err := db.QueryRow(ctx, query, id).Scan(
		&chain.ChainID,
		&chain.ChainName,
		&chain.RPCEndpoints,
		&chain.WSEndpoint,
		&chain.SS58Prefix,
		&chain.Paused,
		&chain.Deleted,
		&chain.Notes,
		&chain.CreatedAt,
		&chain.UpdatedAt,
	)

	if err != nil {
		if IsNoRows(err) {
			return nil, fmt.Errorf("chain %d not found", id)
		}
		return nil, fmt.Errorf("failed to query chain %d: %w", id, err)
	}

	return &chain, nil
}

// ListChain returns all chains, optionally including deleted ones.
func (db *DB) ListChain(ctx context.Context, includeDeleted bool) ([]adminmodels.Chain, error) {
	query := fmt.Sprintf(`
		SELECT chain_id, chain_name, rpc_endpoints, ws_endpoint, ss58_prefix, paused, deleted, notes, created_at, updated_at
		FROM %s
	`, db.SchemaTable(adminmodels.ChainsTableName))

	if !includeDeleted {
		query += ` WHERE deleted = 0`
	}

	query += ` ORDER BY chain_id`

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var chains []adminmodels.Chain
	for rows.Next() {
		var chain adminmodels.Chain
		err := rows.Scan(
			&chain.ChainID,
			&chain.ChainName,
			&chain.RPCEndpoints,
			&chain.WSEndpoint,
			&chain.SS58Prefix,
			&chain.Paused,
			&chain.Deleted,
			&chain.Notes,
			&chain.CreatedAt,
			&chain.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		chains = append(chains, chain)
	}

	return chains, rows.Err()
}

// HardDeleteChain permanently removes a chain record.
func (db *DB) HardDeleteChain(ctx context.Context, chainID uint64) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE chain_id = $1`, db.SchemaTable(adminmodels.ChainsTableName))
	return db.Exec(ctx, query, chainID)
}

// InsertChain inserts or updates a chain record.
func (db *DB) InsertChain(ctx context.Context, c *adminmodels.Chain) error {
	now := time.Now()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now

	query := fmt.Sprintf(`
		INSERT INTO %s (
			chain_id, chain_name, rpc_endpoints, ws_endpoint, ss58_prefix, paused, deleted, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (chain_id) DO UPDATE SET
			chain_name = EXCLUDED.chain_name,
			rpc_endpoints = EXCLUDED.rpc_endpoints,
			ws_endpoint = EXCLUDED.ws_endpoint,
			ss58_prefix = EXCLUDED.ss58_prefix,
			paused = EXCLUDED.paused,
			deleted = EXCLUDED.deleted,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
	`, db.SchemaTable(adminmodels.ChainsTableName))

	return db.Exec(ctx, query,
		c.ChainID,
		c.ChainName,
		c.RPCEndpoints,
		c.WSEndpoint,
		c.SS58Prefix,
		c.Paused,
		c.Deleted,
		c.Notes,
		c.CreatedAt,
		c.UpdatedAt,
	)
}
