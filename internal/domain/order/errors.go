package order

import (
	"fmt"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/apperr"
)

var (
	ErrMissingFields = apperr.New(apperr.KindValidation, "missing_fields",
		"user, items, shipping address and payment method are required")
	ErrInvalidQuantity  = apperr.New(apperr.KindValidation, "invalid_quantity", "quantity must be greater than 0")
	ErrInvalidStatus    = apperr.New(apperr.KindValidation, "invalid_status", "invalid order status")
	ErrOrderNotFound    = apperr.New(apperr.KindNotFound, "order_not_found", "order not found")
	ErrCommitInProgress = apperr.New(apperr.KindConflict, "commit_in_progress",
		"an order with this idempotency key is still being placed")
)

// ProductNotFoundError indicates a requested product does not exist.
type ProductNotFoundError struct {
	ProductID string
}

func (e *ProductNotFoundError) Error() string {
	return fmt.Sprintf("product %s not found", e.ProductID)
}

func (e *ProductNotFoundError) ErrorKind() apperr.Kind { return apperr.KindNotFound }
func (e *ProductNotFoundError) ErrorCode() string      { return "product_not_found" }

// ProductUnavailableError indicates a product that is no longer sold.
type ProductUnavailableError struct {
	ProductID string
}

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("product %s is not available", e.ProductID)
}

func (e *ProductUnavailableError) ErrorKind() apperr.Kind { return apperr.KindValidation }
func (e *ProductUnavailableError) ErrorCode() string      { return "product_unavailable" }

// InvalidTransitionError reports a status change the order cannot make.
type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot move order from %s to %s", e.From, e.To)
}

func (e *InvalidTransitionError) ErrorKind() apperr.Kind { return apperr.KindConflict }
func (e *InvalidTransitionError) ErrorCode() string      { return "invalid_transition" }
