package cart

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/apperr"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/pricing"
)

// MaxLineQuantity is the largest quantity a single cart line may hold.
const MaxLineQuantity = 10

var (
	// ErrCartNotFound is returned when the user has no cart yet.
	ErrCartNotFound = apperr.New(apperr.KindNotFound, "cart_not_found", "cart not found")
	// ErrLineNotFound is returned when a line is absent from the caller's cart.
	ErrLineNotFound = apperr.New(apperr.KindNotFound, "cart_item_not_found", "cart item not found")
	// ErrLineConflict is returned when a concurrent request added the same
	// product first. Retrying merges into the line it created.
	ErrLineConflict = apperr.New(apperr.KindConflict, "cart_item_conflict", "cart item was added concurrently, retry")
	// ErrInvalidQuantity is returned for quantities outside 1..MaxLineQuantity.
	ErrInvalidQuantity = apperr.Newf(apperr.KindValidation, "invalid_quantity",
		"quantity must be between 1 and %d", MaxLineQuantity)
)

// ProductUnavailableError indicates a product that cannot be added to a
// cart because it does not exist or is no longer sold.
type ProductUnavailableError struct {
	ProductID string
	Missing   bool
}

func (e *ProductUnavailableError) Error() string {
	if e.Missing {
		return fmt.Sprintf("product %s not found", e.ProductID)
	}
	return fmt.Sprintf("product %s is not available", e.ProductID)
}

func (e *ProductUnavailableError) ErrorKind() apperr.Kind {
	if e.Missing {
		return apperr.KindNotFound
	}
	return apperr.KindValidation
}

func (e *ProductUnavailableError) ErrorCode() string { return "product_unavailable" }

// Line is one product entry in a cart.
type Line struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	Size        string
	Color       string
	// UnitPrice is the catalog price captured on the last add or update.
	UnitPrice decimal.Decimal
	// ProductActive mirrors the catalog flag at read time.
	ProductActive bool
}

// LineTotal returns UnitPrice * Quantity.
func (l Line) LineTotal() decimal.Decimal {
	return pricing.LineTotal(l.UnitPrice, l.Quantity)
}

// Totals are derived from the lines and promo code on every read.
type Totals struct {
	Subtotal       decimal.Decimal
	TotalItems     int
	DiscountAmount decimal.Decimal
	DiscountType   pricing.DiscountType
	Total          decimal.Decimal
}

// Cart is the per-user shopping cart.
type Cart struct {
	UserID    string
	Lines     []Line
	PromoCode string
	Totals    Totals
	UpdatedAt time.Time
}

// Recalculate recomputes Totals from the lines and promo code. Lines whose
// product is inactive are kept but do not count.
func (c *Cart) Recalculate() {
	lines := make([]pricing.Line, len(c.Lines))
	for i, l := range c.Lines {
		lines[i] = pricing.Line{UnitPrice: l.UnitPrice, Quantity: l.Quantity, Active: l.ProductActive}
	}
	subtotal, items := pricing.Subtotal(lines)

	t := Totals{
		Subtotal:       subtotal,
		TotalItems:     items,
		DiscountAmount: decimal.Zero,
	}
	if c.PromoCode != "" {
		// A code dropped from the promo table simply stops discounting.
		if promo, err := pricing.Lookup(c.PromoCode); err == nil {
			t.DiscountAmount = pricing.ApplyPromo(subtotal, promo)
			t.DiscountType = promo.Type()
		}
	}
	t.Total = pricing.Round(subtotal.Sub(t.DiscountAmount))
	c.Totals = t
}

// LineByID returns the line with the given ID.
func (c *Cart) LineByID(id string) (Line, bool) {
	for _, l := range c.Lines {
		if l.ID == id {
			return l, true
		}
	}
	return Line{}, false
}

// LineByProduct returns the line holding productID.
func (c *Cart) LineByProduct(productID string) (Line, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return Line{}, false
}

// ActiveLines returns the lines that count towards totals.
func (c *Cart) ActiveLines() []Line {
	out := make([]Line, 0, len(c.Lines))
	for _, l := range c.Lines {
		if l.ProductActive {
			out = append(out, l)
		}
	}
	return out
}

// Repository persists carts and their lines. Implementations scope every
// line operation to userID's cart.
type Repository interface {
	// Get returns the cart with lines joined to the catalog active flag, or
	// ErrCartNotFound.
	Get(ctx context.Context, userID string) (*Cart, error)
	// Create makes an empty cart; it is a no-op if one exists.
	Create(ctx context.Context, userID string) error
	// SaveLine inserts or updates a line by ID.
	SaveLine(ctx context.Context, userID string, line Line) error
	// DeleteLine returns ErrLineNotFound if the line is not in the cart.
	DeleteLine(ctx context.Context, userID, lineID string) error
	// DeleteLines removes every line of the cart.
	DeleteLines(ctx context.Context, userID string) error
	// SetPromo stores a normalized promo code; an empty code clears it.
	SetPromo(ctx context.Context, userID, code string) error
}
