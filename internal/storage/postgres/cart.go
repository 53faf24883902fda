package postgres

import (
	"context"
	"fmt"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/cart"
)

const (
	cartItemsProductKey = "cart_items_user_id_product_id_key"

	getCartSQL = `SELECT promo_code, updated_at FROM carts WHERE user_id = $1`

	getCartLinesSQL = `SELECT ci.id::text, ci.product_id, p.name, ci.quantity, ci.size, ci.color,
			ci.unit_price, p.is_active
		FROM cart_items ci
		JOIN products p ON p.id = ci.product_id
		WHERE ci.user_id = $1
		ORDER BY ci.created_at, ci.id`

	createCartSQL = `INSERT INTO carts (user_id) VALUES ($1) ON CONFLICT (user_id) DO NOTHING`

	saveCartLineSQL = `INSERT INTO cart_items (id, user_id, product_id, quantity, size, color, unit_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			quantity = EXCLUDED.quantity,
			size = EXCLUDED.size,
			color = EXCLUDED.color,
			unit_price = EXCLUDED.unit_price
		WHERE cart_items.user_id = EXCLUDED.user_id`

	deleteCartLineSQL = `DELETE FROM cart_items WHERE id = $1 AND user_id = $2`

	deleteCartLinesSQL = `DELETE FROM cart_items WHERE user_id = $1`

	touchCartSQL = `UPDATE carts SET updated_at = now() WHERE user_id = $1`

	setPromoSQL = `UPDATE carts SET promo_code = $2, updated_at = now() WHERE user_id = $1`
)

var _ cart.Repository = (*CartRepository)(nil)

// CartRepository implements cart.Repository backed by PostgreSQL.
type CartRepository struct {
	q querier
}

// NewCartRepository returns a CartRepository that uses the given pool.
func NewCartRepository(pool *pgxpool.Pool) *CartRepository {
	return &CartRepository{q: pool}
}

// Get returns the cart with its lines joined to the live catalog.
func (r *CartRepository) Get(ctx context.Context, userID string) (*cart.Cart, error) {
	c := &cart.Cart{UserID: userID}
	if err := r.q.QueryRow(ctx, getCartSQL, userID).Scan(&c.PromoCode, &c.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, cart.ErrCartNotFound
		}
		return nil, fmt.Errorf("getting cart of %q: %w", userID, err)
	}

	rows, err := r.q.Query(ctx, getCartLinesSQL, userID)
	if err != nil {
		return nil, fmt.Errorf("getting cart lines of %q: %w", userID, err)
	}
	c.Lines, err = pgx.CollectRows(rows, scanCartLine)
	if err != nil {
		return nil, fmt.Errorf("getting cart lines of %q: %w", userID, err)
	}
	return c, nil
}

// Create makes an empty cart unless one exists.
func (r *CartRepository) Create(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, createCartSQL, userID); err != nil {
		return fmt.Errorf("creating cart of %q: %w", userID, err)
	}
	return nil
}

// SaveLine inserts a line or updates it in place by ID.
func (r *CartRepository) SaveLine(ctx context.Context, userID string, line cart.Line) error {
	if !validID(line.ID) {
		return cart.ErrLineNotFound
	}
	tag, err := r.q.Exec(ctx, saveCartLineSQL,
		line.ID, userID, line.ProductID, line.Quantity, line.Size, line.Color, line.UnitPrice,
	)
	if err != nil {
		if isUniqueViolation(err, cartItemsProductKey) {
			return cart.ErrLineConflict
		}
		return fmt.Errorf("saving cart line %q: %w", line.ID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return r.touch(ctx, userID)
}

// DeleteLine removes one line of userID's cart.
func (r *CartRepository) DeleteLine(ctx context.Context, userID, lineID string) error {
	if !validID(lineID) {
		return cart.ErrLineNotFound
	}
	tag, err := r.q.Exec(ctx, deleteCartLineSQL, lineID, userID)
	if err != nil {
		return fmt.Errorf("deleting cart line %q: %w", lineID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrLineNotFound
	}
	return r.touch(ctx, userID)
}

// DeleteLines removes every line of userID's cart.
func (r *CartRepository) DeleteLines(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, deleteCartLinesSQL, userID); err != nil {
		return fmt.Errorf("clearing cart of %q: %w", userID, err)
	}
	return r.touch(ctx, userID)
}

// SetPromo stores code on the cart; an empty code clears it.
func (r *CartRepository) SetPromo(ctx context.Context, userID, code string) error {
	tag, err := r.q.Exec(ctx, setPromoSQL, userID, code)
	if err != nil {
		return fmt.Errorf("setting promo code of %q: %w", userID, err)
	}
	if tag.RowsAffected() == 0 {
		return cart.ErrCartNotFound
	}
	return nil
}

func (r *CartRepository) touch(ctx context.Context, userID string) error {
	if _, err := r.q.Exec(ctx, touchCartSQL, userID); err != nil {
		return fmt.Errorf("touching cart of %q: %w", userID, err)
	}
	return nil
}

func scanCartLine(row pgx.CollectableRow) (cart.Line, error) {
	var l cart.Line
	err := row.Scan(
		&l.ID, &l.ProductID, &l.ProductName, &l.Quantity, &l.Size, &l.Color,
		&l.UnitPrice, &l.ProductActive,
	)
	return l, err
}
