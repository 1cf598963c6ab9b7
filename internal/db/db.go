package db

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq" // Register postgres driver for migrations
)

// Querier matches the query methods shared by *pgxpool.Pool and pgx.Tx,
// so repositories can run the same statements inside or outside a
// transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Tx is the subset of pgx.Tx the repositories use.
type Tx interface {
	Querier
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// Pool matches the methods from *pgxpool.Pool that we use.
// This allows us to mock the database in tests.
type Pool interface {
	Querier
	Begin(ctx context.Context) (Tx, error)
}

type pgxPool struct {
	*pgxpool.Pool
}

func (p pgxPool) Begin(ctx context.Context) (Tx, error) {
	return p.Pool.Begin(ctx)
}

// NewPool opens a pgx connection pool for the given DSN.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// WrapPool adapts a concrete pgx pool to the Pool interface.
func WrapPool(pool *pgxpool.Pool) Pool {
	return pgxPool{Pool: pool}
}

// openDB opens a database/sql connection without pinging. Used by the
// migration runner, which wants a *sql.DB.
func openDB(dsn string) (*sql.DB, error) {
	return sql.Open("postgres", dsn)
}
