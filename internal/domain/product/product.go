package product

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/apperr"
)

// ErrNotFound is returned when a requested product does not exist.
var ErrNotFound = apperr.New(apperr.KindNotFound, "product_not_found", "product not found")

// InsufficientStockError reports a stock check or decrement that would
// drive a product's stock below zero.
type InsufficientStockError struct {
	ProductID string
	Available int
	Requested int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: available %d, requested %d",
		e.ProductID, e.Available, e.Requested)
}

func (e *InsufficientStockError) ErrorKind() apperr.Kind { return apperr.KindConflict }
func (e *InsufficientStockError) ErrorCode() string      { return "insufficient_stock" }

// Product represents a catalog item available for purchase.
type Product struct {
	ID            string
	Name          string
	Description   string
	Category      string
	Price         decimal.Decimal
	StockQuantity int
	IsActive      bool
	ImageURL      string
}

// CheckStock returns an *InsufficientStockError when fewer than qty units
// are in stock.
func (p *Product) CheckStock(qty int) error {
	if p.StockQuantity < qty {
		return &InsufficientStockError{ProductID: p.ID, Available: p.StockQuantity, Requested: qty}
	}
	return nil
}

// Filter narrows a catalog listing.
type Filter struct {
	Category string
	Limit    int
	Offset   int
}

// Repository defines read operations for the product catalog.
type Repository interface {
	List(ctx context.Context, f Filter) ([]Product, error)
	GetByID(ctx context.Context, id string) (*Product, error)
	GetByIDs(ctx context.Context, ids []string) ([]Product, error)
}

// Stock is the only write path into product stock counts.
//
// DecrementStock must be atomic per product: it either removes amount units
// or fails with *InsufficientStockError, and never leaves stock negative.
// IncrementStock has no upper bound. Both return ErrNotFound for unknown
// products.
type Stock interface {
	DecrementStock(ctx context.Context, productID string, amount int) error
	IncrementStock(ctx context.Context, productID string, amount int) error
}
