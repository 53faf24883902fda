package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/order"
)

const (
	orderColumns = `id::text, order_number, user_id, status, payment_status,
		subtotal, discount_amount, promo_code, shipping_cost, tax_amount, total_amount,
		shipping_address, billing_address, payment_method, delivery_method,
		tracking_number, notes, cancel_reason, estimated_delivery, delivered_at,
		created_at, updated_at`

	createOrderSQL = `INSERT INTO orders (
		id, order_number, user_id, status, payment_status,
		subtotal, discount_amount, promo_code, shipping_cost, tax_amount, total_amount,
		shipping_address, billing_address, payment_method, delivery_method,
		notes, estimated_delivery, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

	createOrderItemSQL = `INSERT INTO order_items (
		id, order_id, line_no, product_id, product_name, quantity, size, color, unit_price, line_total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	getOrderSQL = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`

	getOrderForUpdateSQL = getOrderSQL + ` FOR UPDATE`

	listOrdersSQL = `SELECT ` + orderColumns + `
		FROM orders
		WHERE ($1 = '' OR user_id = $1) AND ($2 = '' OR status = $2)
		ORDER BY created_at DESC, id
		LIMIT $3 OFFSET $4`

	getOrderItemsSQL = `SELECT order_id::text, id::text, product_id, product_name, quantity, size, color,
			unit_price, line_total
		FROM order_items
		WHERE order_id::text = ANY($1)
		ORDER BY order_id, line_no`

	updateOrderStatusSQL = `UPDATE orders SET
			status = $2,
			tracking_number = COALESCE(NULLIF($3, ''), tracking_number),
			notes = COALESCE(NULLIF($4, ''), notes),
			delivered_at = COALESCE($5, delivered_at),
			updated_at = $6
		WHERE id = $1`

	cancelOrderSQL = `UPDATE orders SET status = 'cancelled', cancel_reason = $2, updated_at = $3
		WHERE id = $1`

	orderStatsSQL = `SELECT status, count(*),
			COALESCE(sum(total_amount) FILTER (WHERE status <> 'cancelled'), 0)
		FROM orders
		GROUP BY status`
)

var _ order.Repository = (*OrderRepository)(nil)

// OrderRepository implements order.Repository backed by PostgreSQL.
type OrderRepository struct {
	q querier
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{q: pool}
}

// Create persists a new order and its items, assigning IDs. Addresses and
// payment and delivery details are stored as JSONB documents.
func (r *OrderRepository) Create(ctx context.Context, o *order.Order) error {
	o.ID = uuid.New().String()

	_, err := r.q.Exec(ctx, createOrderSQL,
		o.ID, o.OrderNumber, o.UserID, string(o.Status), string(o.PaymentStatus),
		o.Subtotal, o.DiscountAmount, o.PromoCode, o.ShippingCost, o.TaxAmount, o.TotalAmount,
		o.ShippingAddress, o.BillingAddress, o.PaymentMethod, o.DeliveryMethod,
		o.Notes, o.EstimatedDelivery, o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating order %q: %w", o.OrderNumber, err)
	}

	batch := &pgx.Batch{}
	for i := range o.Items {
		it := &o.Items[i]
		it.ID = uuid.New().String()
		batch.Queue(createOrderItemSQL,
			it.ID, o.ID, i, it.ProductID, it.ProductName, it.Quantity, it.Size, it.Color,
			it.UnitPrice, it.LineTotal,
		)
	}
	if err := r.q.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("creating items of order %q: %w", o.OrderNumber, err)
	}
	return nil
}

// Get returns an order with its items.
func (r *OrderRepository) Get(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, getOrderSQL, id)
}

// GetForUpdate returns an order with its items and locks the order row
// until the surrounding transaction ends.
func (r *OrderRepository) GetForUpdate(ctx context.Context, id string) (*order.Order, error) {
	return r.get(ctx, getOrderForUpdateSQL, id)
}

func (r *OrderRepository) get(ctx context.Context, query, id string) (*order.Order, error) {
	if !validID(id) {
		return nil, order.ErrOrderNotFound
	}
	rows, err := r.q.Query(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}
	o, err := pgx.CollectExactlyOneRow(rows, scanOrder)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, order.ErrOrderNotFound
		}
		return nil, fmt.Errorf("getting order %q: %w", id, err)
	}

	orders := []order.Order{o}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return &orders[0], nil
}

// List returns orders matching f, newest first.
func (r *OrderRepository) List(ctx context.Context, f order.Filter) ([]order.Order, error) {
	rows, err := r.q.Query(ctx, listOrdersSQL,
		f.UserID, string(f.Status), pageLimit(f.Limit), max(f.Offset, 0),
	)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	orders, err := pgx.CollectRows(rows, scanOrder)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}
	if err := r.attachItems(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (r *OrderRepository) attachItems(ctx context.Context, orders []order.Order) error {
	if len(orders) == 0 {
		return nil
	}
	ids := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		ids[i] = o.ID
		index[o.ID] = i
	}

	rows, err := r.q.Query(ctx, getOrderItemsSQL, ids)
	if err != nil {
		return fmt.Errorf("getting order items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			orderID string
			it      order.Item
		)
		if err := rows.Scan(
			&orderID, &it.ID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Size, &it.Color,
			&it.UnitPrice, &it.LineTotal,
		); err != nil {
			return fmt.Errorf("scanning order item: %w", err)
		}
		i := index[orderID]
		orders[i].Items = append(orders[i].Items, it)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("getting order items: %w", err)
	}
	return nil
}

// UpdateStatus applies a status change. Empty tracking number and notes
// keep the stored values.
func (r *OrderRepository) UpdateStatus(ctx context.Context, id string, ch order.StatusChange) error {
	if !validID(id) {
		return order.ErrOrderNotFound
	}
	tag, err := r.q.Exec(ctx, updateOrderStatusSQL,
		id, string(ch.Status), ch.TrackingNumber, ch.Notes, ch.DeliveredAt, ch.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("updating status of order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

// MarkCancelled sets the cancelled status and reason.
func (r *OrderRepository) MarkCancelled(ctx context.Context, id, reason string, at time.Time) error {
	if !validID(id) {
		return order.ErrOrderNotFound
	}
	tag, err := r.q.Exec(ctx, cancelOrderSQL, id, reason, at)
	if err != nil {
		return fmt.Errorf("cancelling order %q: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

// Stats counts orders by status and sums revenue of orders that are not
// cancelled.
func (r *OrderRepository) Stats(ctx context.Context) (*order.Stats, error) {
	rows, err := r.q.Query(ctx, orderStatsSQL)
	if err != nil {
		return nil, fmt.Errorf("getting order stats: %w", err)
	}
	defer rows.Close()

	st := &order.Stats{ByStatus: make(map[order.Status]int), Revenue: decimal.Zero}
	for rows.Next() {
		var (
			status  string
			count   int
			revenue decimal.Decimal
		)
		if err := rows.Scan(&status, &count, &revenue); err != nil {
			return nil, fmt.Errorf("scanning order stats: %w", err)
		}
		st.ByStatus[order.Status(status)] = count
		st.TotalOrders += count
		st.Revenue = st.Revenue.Add(revenue)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("getting order stats: %w", err)
	}
	return st, nil
}

func scanOrder(row pgx.CollectableRow) (order.Order, error) {
	var (
		o             order.Order
		status        string
		paymentStatus string
	)
	err := row.Scan(
		&o.ID, &o.OrderNumber, &o.UserID, &status, &paymentStatus,
		&o.Subtotal, &o.DiscountAmount, &o.PromoCode, &o.ShippingCost, &o.TaxAmount, &o.TotalAmount,
		&o.ShippingAddress, &o.BillingAddress, &o.PaymentMethod, &o.DeliveryMethod,
		&o.TrackingNumber, &o.Notes, &o.CancelReason, &o.EstimatedDelivery, &o.DeliveredAt,
		&o.CreatedAt, &o.UpdatedAt,
	)
	o.Status = order.Status(status)
	o.PaymentStatus = order.PaymentStatus(paymentStatus)
	return o, err
}
