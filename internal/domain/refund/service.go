package refund

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/order"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/pricing"
)

// Orders is the read access the ledger needs to committed orders.
type Orders interface {
	Get(ctx context.Context, id string) (*order.Order, error)
}

// Request holds the input for a refund request.
type Request struct {
	OrderID   string
	UserID    string
	Type      Type
	ProductID string
	// Amount defaults to the full refundable amount when zero.
	Amount decimal.Decimal
	Reason string
}

// Service records refund requests and their review.
type Service struct {
	refunds Repository
	orders  Orders
	now     func() time.Time
}

// NewService creates a refund Service.
func NewService(refunds Repository, orders Orders) *Service {
	return &Service{refunds: refunds, orders: orders, now: time.Now}
}

// Request validates req against the order and records a pending refund.
func (s *Service) Request(ctx context.Context, req Request) (*Refund, error) {
	if req.OrderID == "" || req.UserID == "" || req.Type == "" || strings.TrimSpace(req.Reason) == "" {
		return nil, ErrMissingFields
	}
	switch req.Type {
	case TypeFull:
		req.ProductID = ""
	case TypeProduct:
		if req.ProductID == "" {
			return nil, ErrMissingFields
		}
	default:
		return nil, ErrInvalidType
	}

	o, err := s.orders.Get(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, order.ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	if o.UserID != req.UserID {
		return nil, ErrOwnershipMismatch
	}
	if o.Status == order.StatusCancelled {
		return nil, ErrOrderCancelled
	}

	bound, err := refundable(o, req)
	if err != nil {
		return nil, err
	}
	amount := req.Amount
	if amount.IsZero() {
		amount = bound
	}
	if !amount.IsPositive() || amount.GreaterThan(bound) {
		return nil, ErrInvalidAmount
	}

	switch _, err := s.refunds.FindActive(ctx, req.OrderID, req.ProductID); {
	case err == nil:
		return nil, ErrDuplicate
	case !errors.Is(err, ErrNotFound):
		return nil, errors.Wrap(err, "find active refund")
	}

	r := &Refund{
		OrderID:      req.OrderID,
		UserID:       req.UserID,
		Type:         req.Type,
		Status:       StatusPending,
		RefundAmount: pricing.Round(amount),
		Reason:       req.Reason,
		RequestDate:  s.now(),
	}
	if req.ProductID != "" {
		pid := req.ProductID
		r.ProductID = &pid
	}
	if err := s.refunds.Create(ctx, r); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, errors.Wrap(err, "create refund")
	}
	return r, nil
}

// refundable returns the most that may be refunded for req on o.
func refundable(o *order.Order, req Request) (decimal.Decimal, error) {
	if req.Type == TypeFull {
		return o.TotalAmount, nil
	}
	total := decimal.Zero
	found := false
	for _, it := range o.Items {
		if it.ProductID == req.ProductID {
			total = total.Add(it.LineTotal)
			found = true
		}
	}
	if !found {
		return decimal.Zero, ErrProductNotInOrder
	}
	return total, nil
}

// SetStatus records an admin decision. It has no side effects on orders,
// stock or payments.
func (s *Service) SetStatus(ctx context.Context, id string, status Status, adminNotes string) (*Refund, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if err := s.refunds.SetStatus(ctx, id, status, adminNotes, s.now()); err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) {
			return nil, err
		}
		return nil, errors.Wrap(err, "set refund status")
	}
	return s.Get(ctx, id)
}

// Get returns a refund.
func (s *Service) Get(ctx context.Context, id string) (*Refund, error) {
	r, err := s.refunds.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, errors.Wrap(err, "get refund")
	}
	return r, nil
}

// List returns refunds matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Refund, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	refunds, err := s.refunds.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list refunds")
	}
	return refunds, nil
}
