package order

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/cart"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/product"
)

// Status is the fulfilment state of an order.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every valid Status.
var Statuses = []Status{
	StatusPending, StatusConfirmed, StatusProcessing,
	StatusShipped, StatusDelivered, StatusCancelled,
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Cancellable reports whether an order in status s may still be cancelled.
func (s Status) Cancellable() bool {
	switch s {
	case StatusShipped, StatusDelivered, StatusCancelled:
		return false
	default:
		return true
	}
}

// PaymentStatus is the payment state recorded on an order.
type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "pending"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentFailed   PaymentStatus = "failed"
)

// Address is a postal address stored as a JSON document.
type Address struct {
	FullName   string `json:"full_name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
	Phone      string `json:"phone,omitempty"`
}

// IsZero reports whether no address was supplied.
func (a *Address) IsZero() bool {
	return a == nil || (a.Line1 == "" && a.City == "" && a.PostalCode == "")
}

// PaymentMethod describes an already captured payment. The shop never
// charges it.
type PaymentMethod struct {
	Type          string `json:"type"`
	Brand         string `json:"brand,omitempty"`
	Last4         string `json:"last4,omitempty"`
	TransactionID string `json:"transaction_id,omitempty"`
}

// DeliveryMethod selects the shipping rate and delivery estimate.
type DeliveryMethod struct {
	Type         string `json:"type"`
	Instructions string `json:"instructions,omitempty"`
}

// Item is an immutable snapshot of one ordered line.
type Item struct {
	ID          string
	ProductID   string
	ProductName string
	Quantity    int
	Size        string
	Color       string
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// Order is a committed purchase. Amounts are fixed at commit time.
type Order struct {
	ID                string
	OrderNumber       string
	UserID            string
	Status            Status
	PaymentStatus     PaymentStatus
	Subtotal          decimal.Decimal
	DiscountAmount    decimal.Decimal
	PromoCode         string
	ShippingCost      decimal.Decimal
	TaxAmount         decimal.Decimal
	TotalAmount       decimal.Decimal
	ShippingAddress   Address
	BillingAddress    *Address
	PaymentMethod     PaymentMethod
	DeliveryMethod    DeliveryMethod
	TrackingNumber    string
	Notes             string
	CancelReason      string
	EstimatedDelivery *time.Time
	DeliveredAt       *time.Time
	CreatedAt         time.Time
	UpdatedAt         time.Time
	Items             []Item
}

// Filter narrows an order listing. Zero values match everything.
type Filter struct {
	UserID string
	Status Status
	Limit  int
	Offset int
}

// StatusChange is a status update applied by Repository.UpdateStatus.
// Empty TrackingNumber and Notes leave the stored values untouched.
type StatusChange struct {
	Status         Status
	TrackingNumber string
	Notes          string
	DeliveredAt    *time.Time
	UpdatedAt      time.Time
}

// Stats summarises all orders.
type Stats struct {
	TotalOrders int
	ByStatus    map[Status]int
	// Revenue is the sum of TotalAmount over orders that are not cancelled.
	Revenue decimal.Decimal
}

// Repository persists orders and their items.
type Repository interface {
	// Create inserts the order and its items, filling in generated IDs.
	Create(ctx context.Context, o *Order) error
	// Get returns the order with items or ErrOrderNotFound.
	Get(ctx context.Context, id string) (*Order, error)
	// GetForUpdate is Get with the order row locked for the rest of the
	// transaction.
	GetForUpdate(ctx context.Context, id string) (*Order, error)
	List(ctx context.Context, f Filter) ([]Order, error)
	UpdateStatus(ctx context.Context, id string, ch StatusChange) error
	MarkCancelled(ctx context.Context, id, reason string, at time.Time) error
	Stats(ctx context.Context) (*Stats, error)
}

// Tx exposes the repositories bound to one storage transaction.
type Tx interface {
	Stock() product.Stock
	Orders() Repository
	Carts() cart.Repository
}

// Transactor runs fn inside a storage transaction. The transaction commits
// when fn returns nil and rolls back otherwise.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
