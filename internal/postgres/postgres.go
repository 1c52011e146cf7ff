// Package postgres implements the domain repositories on PostgreSQL via pgx.
package postgres

import (
	"context"
	"fmt"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oakmart/orderd/db"
	"github.com/oakmart/orderd/internal/domain/cart"
	"github.com/oakmart/orderd/internal/domain/coupon"
	"github.com/oakmart/orderd/internal/domain/order"
	"github.com/oakmart/orderd/internal/domain/product"
)

// NewPool creates a pgxpool.Pool configured with shopspring/decimal support
// for NUMERIC columns.
func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parsing database config: %w", err)
	}

	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("creating connection pool: %w", err)
	}

	return pool, nil
}

// RunMigrations executes the embedded DDL schema against the pool.
func RunMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, db.Schema)
	if err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}
	return nil
}

// Querier is the subset of pgx shared by *pgxpool.Pool and pgx.Tx, so every
// repository works both standalone and inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

var _ order.Transactor = (*Store)(nil)

// Store bundles the connection pool and hands out transaction-bound
// repository sets.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore returns a Store backed by the given pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// WithinTx runs fn inside a single database transaction. The transaction is
// committed when fn returns nil and rolled back otherwise.
func (s *Store) WithinTx(ctx context.Context, fn func(tx order.Tx) error) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return fn(txSet{q: tx})
	})
}

// txSet exposes repositories bound to one open transaction.
type txSet struct {
	q Querier
}

func (t txSet) Orders() order.Repository     { return &OrderRepository{q: t.q} }
func (t txSet) Products() product.Repository { return &ProductRepository{q: t.q} }
func (t txSet) Coupons() coupon.Repository   { return &CouponRepository{q: t.q} }
func (t txSet) Carts() cart.Repository       { return &CartRepository{q: t.q} }
