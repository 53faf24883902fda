package order

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/apperr"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/cart"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/pricing"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/product"
)

const (
	instrumentationName = "github.com/sushantdkl/SneakHead-sub001/internal/domain/order"

	idempotencySettleTimeout = 5 * time.Second
)

// CommitLine is one requested product in a commit.
type CommitLine struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

// CommitRequest holds the input for placing an order. Unit prices always
// come from the catalog at commit time.
type CommitRequest struct {
	UserID          string
	Lines           []CommitLine
	ShippingAddress *Address
	BillingAddress  *Address
	PaymentMethod   *PaymentMethod
	DeliveryMethod  DeliveryMethod
	PromoCode       string
	Notes           string
	// IdempotencyKey is optional and scoped to UserID.
	IdempotencyKey string
}

// CheckoutRequest holds the order details for committing a cart.
type CheckoutRequest struct {
	ShippingAddress *Address
	BillingAddress  *Address
	PaymentMethod   *PaymentMethod
	DeliveryMethod  DeliveryMethod
	Notes           string
	IdempotencyKey  string
}

// UpdateStatusRequest holds an administrative status change.
type UpdateStatusRequest struct {
	Status         Status
	TrackingNumber string
	Notes          string
}

// Options configures optional Service collaborators. Zero values fall back
// to no-op implementations.
type Options struct {
	Idempotency    IdempotencyStore
	TracerProvider trace.TracerProvider
	MeterProvider  metric.MeterProvider
}

// Service implements order commitment and the order lifecycle.
type Service struct {
	products product.Repository
	carts    cart.Repository
	orders   Repository
	tx       Transactor
	idem     IdempotencyStore

	now            func() time.Time
	newOrderNumber func(time.Time) string

	tracer    trace.Tracer
	committed metric.Int64Counter
	cancelled metric.Int64Counter
	rejected  metric.Int64Counter
}

// NewService creates an order Service.
func NewService(
	products product.Repository,
	carts cart.Repository,
	orders Repository,
	tx Transactor,
	opts Options,
) (*Service, error) {
	if opts.Idempotency == nil {
		opts.Idempotency = NopIdempotency{}
	}
	if opts.TracerProvider == nil {
		opts.TracerProvider = tracenoop.NewTracerProvider()
	}
	if opts.MeterProvider == nil {
		opts.MeterProvider = metricnoop.NewMeterProvider()
	}

	s := &Service{
		products:       products,
		carts:          carts,
		orders:         orders,
		tx:             tx,
		idem:           opts.Idempotency,
		now:            time.Now,
		newOrderNumber: newOrderNumber,
		tracer:         opts.TracerProvider.Tracer(instrumentationName),
	}

	meter := opts.MeterProvider.Meter(instrumentationName)
	var err error
	if s.committed, err = meter.Int64Counter("shop.orders.committed",
		metric.WithDescription("Orders committed"),
	); err != nil {
		return nil, errors.Wrap(err, "committed counter")
	}
	if s.cancelled, err = meter.Int64Counter("shop.orders.cancelled",
		metric.WithDescription("Orders cancelled with stock restored"),
	); err != nil {
		return nil, errors.Wrap(err, "cancelled counter")
	}
	if s.rejected, err = meter.Int64Counter("shop.orders.rejected",
		metric.WithDescription("Commit attempts rejected before or during the transaction"),
	); err != nil {
		return nil, errors.Wrap(err, "rejected counter")
	}
	return s, nil
}

// newOrderNumber returns ORD-<UTC timestamp>-<6 hex chars>.
func newOrderNumber(now time.Time) string {
	suffix := strings.ReplaceAll(uuid.New().String(), "-", "")[:6]
	return fmt.Sprintf("ORD-%s-%s", now.UTC().Format("20060102150405"), strings.ToUpper(suffix))
}

// Commit validates the request against the live catalog, then inserts the
// order and decrements stock for every line in one transaction.
func (s *Service) Commit(ctx context.Context, req CommitRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.Commit",
		trace.WithAttributes(attribute.Int("order.lines", len(req.Lines))),
	)
	defer func() { s.endCommit(ctx, span, rerr) }()

	return s.idempotent(ctx, req.UserID, req.IdempotencyKey, func(ctx context.Context) (*Order, error) {
		o, err := s.prepare(ctx, req)
		if err != nil {
			return nil, err
		}
		if err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
			return persist(ctx, tx, o)
		}); err != nil {
			return nil, err
		}
		return o, nil
	})
}

// CommitCart commits the active lines of the user's cart with the cart's
// promo code and removes the committed lines in the same transaction.
func (s *Service) CommitCart(ctx context.Context, userID string, req CheckoutRequest) (_ *Order, rerr error) {
	ctx, span := s.tracer.Start(ctx, "order.CommitCart")
	defer func() { s.endCommit(ctx, span, rerr) }()

	return s.idempotent(ctx, userID, req.IdempotencyKey, func(ctx context.Context) (*Order, error) {
		c, err := s.carts.Get(ctx, userID)
		if err != nil {
			if errors.Is(err, cart.ErrCartNotFound) {
				return nil, ErrMissingFields
			}
			return nil, errors.Wrap(err, "get cart")
		}
		active := c.ActiveLines()
		lines := make([]CommitLine, len(active))
		for i, l := range active {
			lines[i] = CommitLine{ProductID: l.ProductID, Quantity: l.Quantity, Size: l.Size, Color: l.Color}
		}

		o, err := s.prepare(ctx, CommitRequest{
			UserID:          userID,
			Lines:           lines,
			ShippingAddress: req.ShippingAddress,
			BillingAddress:  req.BillingAddress,
			PaymentMethod:   req.PaymentMethod,
			DeliveryMethod:  req.DeliveryMethod,
			PromoCode:       c.PromoCode,
			Notes:           req.Notes,
		})
		if err != nil {
			return nil, err
		}

		if err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
			if err := persist(ctx, tx, o); err != nil {
				return err
			}
			for _, l := range active {
				if err := tx.Carts().DeleteLine(ctx, userID, l.ID); err != nil {
					return errors.Wrap(err, "remove checked out line")
				}
			}
			if c.PromoCode != "" {
				if err := tx.Carts().SetPromo(ctx, userID, ""); err != nil {
					return errors.Wrap(err, "clear promo code")
				}
			}
			return nil
		}); err != nil {
			return nil, err
		}
		return o, nil
	})
}

// prepare validates req and prices it against the catalog. Stock checks
// here only produce early errors; the conditional decrement in persist is
// authoritative.
func (s *Service) prepare(ctx context.Context, req CommitRequest) (*Order, error) {
	if req.UserID == "" || len(req.Lines) == 0 || req.ShippingAddress.IsZero() ||
		req.PaymentMethod == nil || req.PaymentMethod.Type == "" {
		return nil, ErrMissingFields
	}

	ids := make([]string, 0, len(req.Lines))
	requested := make(map[string]int, len(req.Lines))
	for _, l := range req.Lines {
		if l.ProductID == "" {
			return nil, ErrMissingFields
		}
		if l.Quantity <= 0 {
			return nil, ErrInvalidQuantity
		}
		if _, seen := requested[l.ProductID]; !seen {
			ids = append(ids, l.ProductID)
		}
		requested[l.ProductID] += l.Quantity
	}

	delivery := req.DeliveryMethod
	if delivery.Type == "" {
		delivery.Type = pricing.DefaultDeliveryMethod
	}
	shipping, err := pricing.ShippingCost(delivery.Type)
	if err != nil {
		return nil, err
	}
	days, err := pricing.DeliveryDays(delivery.Type)
	if err != nil {
		return nil, err
	}

	var (
		promo     pricing.Promo
		promoCode string
	)
	if strings.TrimSpace(req.PromoCode) != "" {
		if promo, err = pricing.Lookup(req.PromoCode); err != nil {
			return nil, err
		}
		promoCode = pricing.NormalizeCode(req.PromoCode)
	}

	fetched, err := s.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "get products")
	}
	byID := make(map[string]product.Product, len(fetched))
	for _, p := range fetched {
		byID[p.ID] = p
	}

	items := make([]Item, len(req.Lines))
	priced := make([]pricing.Line, len(req.Lines))
	for i, l := range req.Lines {
		p, ok := byID[l.ProductID]
		if !ok {
			return nil, &ProductNotFoundError{ProductID: l.ProductID}
		}
		if !p.IsActive {
			return nil, &ProductUnavailableError{ProductID: l.ProductID}
		}
		if err := p.CheckStock(requested[l.ProductID]); err != nil {
			return nil, err
		}
		items[i] = Item{
			ProductID:   p.ID,
			ProductName: p.Name,
			Quantity:    l.Quantity,
			Size:        l.Size,
			Color:       l.Color,
			UnitPrice:   p.Price,
			LineTotal:   pricing.LineTotal(p.Price, l.Quantity),
		}
		priced[i] = pricing.Line{UnitPrice: p.Price, Quantity: l.Quantity, Active: true}
	}

	subtotal, _ := pricing.Subtotal(priced)
	totals := pricing.OrderTotals(subtotal, pricing.ApplyPromo(subtotal, promo), shipping)

	now := s.now()
	eta := now.AddDate(0, 0, days)
	return &Order{
		OrderNumber:       s.newOrderNumber(now),
		UserID:            req.UserID,
		Status:            StatusProcessing,
		PaymentStatus:     PaymentPaid,
		Subtotal:          totals.Subtotal,
		DiscountAmount:    totals.Discount,
		PromoCode:         promoCode,
		ShippingCost:      totals.Shipping,
		TaxAmount:         totals.Tax,
		TotalAmount:       totals.Total,
		ShippingAddress:   *req.ShippingAddress,
		BillingAddress:    req.BillingAddress,
		PaymentMethod:     *req.PaymentMethod,
		DeliveryMethod:    delivery,
		Notes:             req.Notes,
		EstimatedDelivery: &eta,
		CreatedAt:         now,
		UpdatedAt:         now,
		Items:             items,
	}, nil
}

// persist inserts o and decrements stock for each item. The caller's
// transaction rolls everything back if any step fails.
func persist(ctx context.Context, tx Tx, o *Order) error {
	if err := tx.Orders().Create(ctx, o); err != nil {
		return errors.Wrap(err, "create order")
	}
	for _, it := range o.Items {
		if err := tx.Stock().DecrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			if errors.Is(err, product.ErrNotFound) {
				return &ProductNotFoundError{ProductID: it.ProductID}
			}
			return errors.Wrapf(err, "decrement stock for %s", it.ProductID)
		}
	}
	return nil
}

func (s *Service) idempotent(
	ctx context.Context,
	userID, key string,
	commit func(ctx context.Context) (*Order, error),
) (*Order, error) {
	if key == "" || userID == "" {
		return commit(ctx)
	}
	scoped := userID + ":" + key

	orderID, claimed, err := s.idem.Reserve(ctx, scoped)
	if err != nil {
		return nil, errors.Wrap(err, "reserve idempotency key")
	}
	if !claimed {
		if orderID == "" {
			return nil, ErrCommitInProgress
		}
		return s.Get(ctx, orderID)
	}

	lg := zctx.From(ctx)
	o, err := commit(ctx)

	// The key must be settled even if the client went away mid-commit,
	// otherwise it stays in flight until the TTL expires.
	settleCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), idempotencySettleTimeout)
	defer cancel()
	if err != nil {
		if rerr := s.idem.Release(settleCtx, scoped); rerr != nil {
			lg.Warn("Release idempotency key", zap.String("key", key), zap.Error(rerr))
		}
		return nil, err
	}
	if err := s.idem.Complete(settleCtx, scoped, o.ID); err != nil {
		lg.Warn("Complete idempotency key", zap.String("key", key), zap.Error(err))
	}
	return o, nil
}

func (s *Service) endCommit(ctx context.Context, span trace.Span, err error) {
	defer span.End()
	if err == nil {
		s.committed.Add(ctx, 1)
		return
	}
	code := "internal"
	if c, ok := apperr.As(err); ok {
		code = c.ErrorCode()
	}
	s.rejected.Add(ctx, 1, metric.WithAttributes(attribute.String("reason", code)))
	span.RecordError(err)
	span.SetStatus(codes.Error, code)
}

// Cancel restores stock for every item and marks the order cancelled.
// Shipped, delivered and already cancelled orders are rejected.
func (s *Service) Cancel(ctx context.Context, orderID, reason string) (*Order, error) {
	ctx, span := s.tracer.Start(ctx, "order.Cancel", trace.WithAttributes(attribute.String("order.id", orderID)))
	defer span.End()

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !o.Status.Cancellable() {
			return &InvalidTransitionError{From: o.Status, To: StatusCancelled}
		}
		for _, it := range o.Items {
			if err := tx.Stock().IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
				return errors.Wrapf(err, "restore stock for %s", it.ProductID)
			}
		}
		if err := tx.Orders().MarkCancelled(ctx, orderID, reason, s.now()); err != nil {
			return errors.Wrap(err, "mark cancelled")
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "cancel failed")
		return nil, err
	}
	s.cancelled.Add(ctx, 1)
	return s.Get(ctx, orderID)
}

// UpdateStatus applies an administrative status change. Any status may be
// set, including backward moves, with two exceptions: cancellation goes
// through Cancel so stock is restored, and a cancelled order stays
// cancelled. The second is the only transition rule enforced here; reviving
// an order would leave its items without reserved stock.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, req UpdateStatusRequest) (*Order, error) {
	if !req.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	if req.Status == StatusCancelled {
		return s.Cancel(ctx, orderID, req.Notes)
	}

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx Tx) error {
		o, err := tx.Orders().GetForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled {
			return &InvalidTransitionError{From: o.Status, To: req.Status}
		}
		now := s.now()
		ch := StatusChange{
			Status:         req.Status,
			TrackingNumber: req.TrackingNumber,
			Notes:          req.Notes,
			UpdatedAt:      now,
		}
		if req.Status == StatusDelivered {
			ch.DeliveredAt = &now
		}
		return tx.Orders().UpdateStatus(ctx, orderID, ch)
	})
	if err != nil {
		return nil, err
	}
	return s.Get(ctx, orderID)
}

// Get returns an order with its items.
func (s *Service) Get(ctx context.Context, orderID string) (*Order, error) {
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, errors.Wrap(err, "get order")
	}
	return o, nil
}

// List returns orders matching f, newest first.
func (s *Service) List(ctx context.Context, f Filter) ([]Order, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, ErrInvalidStatus
	}
	orders, err := s.orders.List(ctx, f)
	if err != nil {
		return nil, errors.Wrap(err, "list orders")
	}
	return orders, nil
}

// Stats returns order counts by status and revenue.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	st, err := s.orders.Stats(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "order stats")
	}
	return st, nil
}
