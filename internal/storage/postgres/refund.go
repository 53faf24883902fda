package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/refund"
)

const (
	// refundsActiveIndex enforces one pending or approved refund per order
	// and product.
	refundsActiveIndex = "refunds_active_uniq"

	refundColumns = `id::text, order_id::text, user_id, product_id, refund_type, status,
		refund_amount, reason, admin_notes, request_date, processed_date`

	createRefundSQL = `INSERT INTO refunds (
		id, order_id, user_id, product_id, refund_type, status, refund_amount, reason, request_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	getRefundSQL = `SELECT ` + refundColumns + ` FROM refunds WHERE id = $1`

	findActiveRefundSQL = `SELECT ` + refundColumns + `
		FROM refunds
		WHERE order_id = $1 AND COALESCE(product_id, '') = $2 AND status IN ('pending', 'approved')
		LIMIT 1`

	listRefundsSQL = `SELECT ` + refundColumns + `
		FROM refunds
		WHERE ($1 = '' OR user_id = $1)
			AND ($2 = '' OR order_id::text = $2)
			AND ($3 = '' OR status = $3)
		ORDER BY request_date DESC, id
		LIMIT $4 OFFSET $5`

	setRefundStatusSQL = `UPDATE refunds SET status = $2, admin_notes = $3, processed_date = $4
		WHERE id = $1`
)

var _ refund.Repository = (*RefundRepository)(nil)

// RefundRepository implements refund.Repository backed by PostgreSQL.
type RefundRepository struct {
	q querier
}

// NewRefundRepository returns a RefundRepository that uses the given pool.
func NewRefundRepository(pool *pgxpool.Pool) *RefundRepository {
	return &RefundRepository{q: pool}
}

// Create inserts a refund. Concurrent requests for the same order and
// product are resolved by the partial unique index.
func (r *RefundRepository) Create(ctx context.Context, rf *refund.Refund) error {
	id := uuid.New().String()
	_, err := r.q.Exec(ctx, createRefundSQL,
		id, rf.OrderID, rf.UserID, rf.ProductID, string(rf.Type), string(rf.Status),
		rf.RefundAmount, rf.Reason, rf.RequestDate,
	)
	if err != nil {
		if isUniqueViolation(err, refundsActiveIndex) {
			return refund.ErrDuplicate
		}
		return fmt.Errorf("creating refund for order %q: %w", rf.OrderID, err)
	}
	rf.ID = id
	return nil
}

// Get returns a refund by ID.
func (r *RefundRepository) Get(ctx context.Context, id string) (*refund.Refund, error) {
	if !validID(id) {
		return nil, refund.ErrNotFound
	}
	return r.one(ctx, getRefundSQL, id)
}

// FindActive returns the pending or approved refund for the pair.
func (r *RefundRepository) FindActive(ctx context.Context, orderID, productID string) (*refund.Refund, error) {
	if !validID(orderID) {
		return nil, refund.ErrNotFound
	}
	return r.one(ctx, findActiveRefundSQL, orderID, productID)
}

func (r *RefundRepository) one(ctx context.Context, query string, args ...any) (*refund.Refund, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("getting refund: %w", err)
	}
	rf, err := pgx.CollectExactlyOneRow(rows, scanRefund)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, refund.ErrNotFound
		}
		return nil, fmt.Errorf("getting refund: %w", err)
	}
	return &rf, nil
}

// List returns refunds matching f, newest first.
func (r *RefundRepository) List(ctx context.Context, f refund.Filter) ([]refund.Refund, error) {
	rows, err := r.q.Query(ctx, listRefundsSQL,
		f.UserID, f.OrderID, string(f.Status), pageLimit(f.Limit), max(f.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("listing refunds: %w", err)
	}
	return pgx.CollectRows(rows, scanRefund)
}

// SetStatus records a review decision.
func (r *RefundRepository) SetStatus(
	ctx context.Context,
	id string,
	status refund.Status,
	adminNotes string,
	processedAt time.Time,
) error {
	if !validID(id) {
		return refund.ErrNotFound
	}
	tag, err := r.q.Exec(ctx, setRefundStatusSQL, id, string(status), adminNotes, processedAt)
	if err != nil {
		if isUniqueViolation(err, refundsActiveIndex) {
			return refund.ErrDuplicate
		}
		return fmt.Errorf("setting status of refund %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return refund.ErrNotFound
	}
	return nil
}

func scanRefund(row pgx.CollectableRow) (refund.Refund, error) {
	var (
		rf     refund.Refund
		typ    string
		status string
	)
	err := row.Scan(
		&rf.ID, &rf.OrderID, &rf.UserID, &rf.ProductID, &typ, &status,
		&rf.RefundAmount, &rf.Reason, &rf.AdminNotes, &rf.RequestDate, &rf.ProcessedDate,
	)
	rf.Type = refund.Type(typ)
	rf.Status = refund.Status(status)
	return rf, err
}
