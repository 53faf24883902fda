package refund

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/apperr"
)

// Type distinguishes whole-order refunds from single-product refunds.
type Type string

const (
	TypeFull    Type = "full"
	TypeProduct Type = "product"
)

// Status is the review state of a refund request.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

var (
	ErrNotFound          = apperr.New(apperr.KindNotFound, "refund_not_found", "refund not found")
	ErrOrderNotFound     = apperr.New(apperr.KindNotFound, "order_not_found", "order not found")
	ErrOwnershipMismatch = apperr.New(apperr.KindForbidden, "order_ownership_mismatch", "order belongs to another user")
	ErrDuplicate         = apperr.New(apperr.KindConflict, "duplicate_refund",
		"a pending or approved refund already exists for this order and product")
	ErrMissingFields = apperr.New(apperr.KindValidation, "missing_fields", "order, user, type and reason are required")
	ErrInvalidType   = apperr.New(apperr.KindValidation, "invalid_refund_type", "refund type must be full or product")
	ErrInvalidStatus = apperr.New(apperr.KindValidation, "invalid_status", "invalid refund status")
	ErrInvalidAmount = apperr.New(apperr.KindValidation, "invalid_amount",
		"refund amount must be positive and within the refundable amount")
	ErrProductNotInOrder = apperr.New(apperr.KindValidation, "product_not_in_order", "product is not part of the order")
	ErrOrderCancelled    = apperr.New(apperr.KindConflict, "order_cancelled", "cancelled orders cannot be refunded")
)

// Refund is a customer's request to be paid back for an order or one of
// its products. Refunds never change orders or stock.
type Refund struct {
	ID      string
	OrderID string
	UserID  string
	// ProductID is nil for full refunds.
	ProductID     *string
	Type          Type
	Status        Status
	RefundAmount  decimal.Decimal
	Reason        string
	AdminNotes    string
	RequestDate   time.Time
	ProcessedDate *time.Time
}

// Filter narrows a refund listing. Zero values match everything.
type Filter struct {
	UserID  string
	OrderID string
	Status  Status
	Limit   int
	Offset  int
}

// Repository persists refunds.
type Repository interface {
	// Create inserts r and fills in its ID. It returns ErrDuplicate when
	// another pending or approved refund exists for the same order and
	// product.
	Create(ctx context.Context, r *Refund) error
	// Get returns the refund or ErrNotFound.
	Get(ctx context.Context, id string) (*Refund, error)
	// FindActive returns the pending or approved refund for the order and
	// product, or ErrNotFound. An empty productID means a full refund.
	FindActive(ctx context.Context, orderID, productID string) (*Refund, error)
	List(ctx context.Context, f Filter) ([]Refund, error)
	// SetStatus returns ErrNotFound for unknown ids.
	SetStatus(ctx context.Context, id string, status Status, adminNotes string, processedAt time.Time) error
}
