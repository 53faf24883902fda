package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/cart"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/order"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/product"
)

var _ order.Transactor = (*Transactor)(nil)

// Transactor runs order operations in a single database transaction.
type Transactor struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

// NewTransactor returns a Transactor. A positive timeout bounds every
// transaction in addition to the caller's context.
func NewTransactor(pool *pgxpool.Pool, timeout time.Duration) *Transactor {
	return &Transactor{pool: pool, timeout: timeout}
}

// WithinTx begins a transaction, runs fn and commits if it returns nil.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context, tx order.Tx) error) error {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	return pgx.BeginFunc(ctx, t.pool, func(tx pgx.Tx) error {
		return fn(ctx, txRepos{tx: tx})
	})
}

type txRepos struct {
	tx pgx.Tx
}

func (r txRepos) Stock() product.Stock     { return &ProductRepository{q: r.tx} }
func (r txRepos) Orders() order.Repository { return &OrderRepository{q: r.tx} }
func (r txRepos) Carts() cart.Repository   { return &CartRepository{q: r.tx} }
