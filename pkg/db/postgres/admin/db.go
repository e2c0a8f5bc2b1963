package admin

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// DB is the PostgreSQL store for gateway administration: the chain registry
// and per-chain head progress.
type DB struct {
	Pool   *pgxpool.Pool
	Logger *zap.Logger
	Schema string
}

// New connects to PostgreSQL and ensures the admin schema and tables exist.
func New(ctx context.Context, logger *zap.Logger, pool *pgxpool.Pool) (*DB, error) {
	db := &DB{
		Pool:   pool,
		Logger: logger.With(zap.String("schema", "admin")),
		Schema: "admin",
	}

	if err := db.InitializeDB(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Close releases the underlying connection pool.
func (db *DB) Close() error {
	db.Pool.Close()
	return nil
}

// SchemaTable returns a schema-qualified table name.
func (db *DB) SchemaTable(tableName string) string {
	return fmt.Sprintf("%s.%s", db.Schema, tableName)
}

// InitializeDB ensures the required schema and tables exist.
func (db *DB) InitializeDB(ctx context.Context) error {
	db.Logger.Info("initializing admin schema")

	if err := db.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", pgx.Identifier{db.Schema}.Sanitize())); err != nil {
		return fmt.Errorf("create schema %s: %w", db.Schema, err)
	}

	if err := db.initChains(ctx); err != nil {
		return err
	}
	if err := db.initHeadProgress(ctx); err != nil {
		return err
	}
	if err := db.initRedecodeRequests(ctx); err != nil {
		return err
	}
	return nil
}

// Exec runs a statement with no result rows.
func (db *DB) Exec(ctx context.Context, query string, args ...any) error {
	_, err := db.Pool.Exec(ctx, query, args...)
	return err
}

// Query runs a statement returning rows.
func (db *DB) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return db.Pool.Query(ctx, query, args...)
}

// QueryRow runs a statement returning at most one row.
func (db *DB) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return db.Pool.QueryRow(ctx, query, args...)
}

// IsNoRows reports whether err means the query matched nothing.
func IsNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
