package refund

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/apperr"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/order"
)

// --- Mock implementations ---

type mockOrders struct {
	byID map[string]*order.Order
	err  error
}

func (m *mockOrders) Get(_ context.Context, id string) (*order.Order, error) {
	if m.err != nil {
		return nil, m.err
	}
	o, ok := m.byID[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	return o, nil
}

// mockRefundRepo enforces the active-refund uniqueness the database index
// provides.
type mockRefundRepo struct {
	refunds []*Refund
	seq     int
}

func key(orderID string, productID *string) string {
	if productID == nil {
		return orderID + "/"
	}
	return orderID + "/" + *productID
}

func active(r *Refund) bool {
	return r.Status == StatusPending || r.Status == StatusApproved
}

func (m *mockRefundRepo) Create(_ context.Context, r *Refund) error {
	for _, existing := range m.refunds {
		if active(existing) && key(existing.OrderID, existing.ProductID) == key(r.OrderID, r.ProductID) {
			return ErrDuplicate
		}
	}
	m.seq++
	r.ID = fmt.Sprintf("refund-%d", m.seq)
	cp := *r
	m.refunds = append(m.refunds, &cp)
	return nil
}

func (m *mockRefundRepo) Get(_ context.Context, id string) (*Refund, error) {
	for _, r := range m.refunds {
		if r.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRefundRepo) FindActive(_ context.Context, orderID, productID string) (*Refund, error) {
	var pid *string
	if productID != "" {
		pid = &productID
	}
	for _, r := range m.refunds {
		if active(r) && key(r.OrderID, r.ProductID) == key(orderID, pid) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRefundRepo) List(_ context.Context, f Filter) ([]Refund, error) {
	var out []Refund
	for _, r := range m.refunds {
		if f.UserID != "" && r.UserID != f.UserID {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		out = append(out, *r)
	}
	return out, nil
}

func (m *mockRefundRepo) SetStatus(_ context.Context, id string, status Status, notes string, at time.Time) error {
	for _, r := range m.refunds {
		if r.ID == id {
			r.Status = status
			r.AdminNotes = notes
			r.ProcessedDate = &at
			return nil
		}
	}
	return ErrNotFound
}

// --- Helpers ---

var testNow = time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestService() (*Service, *mockRefundRepo, *mockOrders) {
	orders := &mockOrders{byID: map[string]*order.Order{
		"o1": {
			ID:          "o1",
			UserID:      "u1",
			Status:      order.StatusDelivered,
			TotalAmount: d("70.79"),
			Items: []order.Item{
				{ProductID: "p1", Quantity: 2, UnitPrice: d("20"), LineTotal: d("40")},
				{ProductID: "p2", Quantity: 1, UnitPrice: d("20"), LineTotal: d("20")},
			},
		},
		"o2": {ID: "o2", UserID: "u1", Status: order.StatusCancelled, TotalAmount: d("10")},
	}}
	repo := &mockRefundRepo{}
	svc := NewService(repo, orders)
	svc.now = func() time.Time { return testNow }
	return svc, repo, orders
}

func productRequest(productID string) Request {
	return Request{OrderID: "o1", UserID: "u1", Type: TypeProduct, ProductID: productID, Reason: "wrong size"}
}

// --- Tests ---

func TestRequest_Full(t *testing.T) {
	svc, _, _ := newTestService()

	r, err := svc.Request(context.Background(), Request{
		OrderID: "o1", UserID: "u1", Type: TypeFull, ProductID: "ignored", Reason: "damaged",
	})
	require.NoError(t, err)
	assert.Equal(t, "refund-1", r.ID)
	assert.Equal(t, StatusPending, r.Status)
	assert.Nil(t, r.ProductID)
	assert.True(t, r.RefundAmount.Equal(d("70.79")), "expected 70.79, got %s", r.RefundAmount)
	assert.Equal(t, testNow, r.RequestDate)
	assert.Nil(t, r.ProcessedDate)
}

func TestRequest_ProductAmounts(t *testing.T) {
	tests := []struct {
		name    string
		amount  string
		want    string
		wantErr error
	}{
		{name: "defaults to line total", amount: "0", want: "40"},
		{name: "partial", amount: "15.50", want: "15.50"},
		{name: "exact bound", amount: "40", want: "40"},
		{name: "above bound", amount: "40.01", wantErr: ErrInvalidAmount},
		{name: "negative", amount: "-1", wantErr: ErrInvalidAmount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _, _ := newTestService()
			req := productRequest("p1")
			req.Amount = d(tt.amount)

			r, err := svc.Request(context.Background(), req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, r.ProductID)
			assert.Equal(t, "p1", *r.ProductID)
			assert.True(t, r.RefundAmount.Equal(d(tt.want)), "expected %s, got %s", tt.want, r.RefundAmount)
		})
	}
}

func TestRequest_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{name: "no order", req: Request{UserID: "u1", Type: TypeFull, Reason: "x"}, wantErr: ErrMissingFields},
		{name: "no reason", req: Request{OrderID: "o1", UserID: "u1", Type: TypeFull}, wantErr: ErrMissingFields},
		{name: "product without id", req: Request{OrderID: "o1", UserID: "u1", Type: TypeProduct, Reason: "x"}, wantErr: ErrMissingFields},
		{name: "bad type", req: Request{OrderID: "o1", UserID: "u1", Type: "partial", Reason: "x"}, wantErr: ErrInvalidType},
		{name: "product not in order", req: productRequest("p9"), wantErr: ErrProductNotInOrder},
		{name: "unknown order", req: Request{OrderID: "o9", UserID: "u1", Type: TypeFull, Reason: "x"}, wantErr: ErrOrderNotFound},
		{name: "other user", req: Request{OrderID: "o1", UserID: "u2", Type: TypeFull, Reason: "x"}, wantErr: ErrOwnershipMismatch},
		{name: "cancelled order", req: Request{OrderID: "o2", UserID: "u1", Type: TypeFull, Reason: "x"}, wantErr: ErrOrderCancelled},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _ := newTestService()
			_, err := svc.Request(context.Background(), tt.req)
			require.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.refunds)
		})
	}
}

func TestRequest_OwnershipIsForbidden(t *testing.T) {
	svc, _, _ := newTestService()
	_, err := svc.Request(context.Background(), Request{OrderID: "o1", UserID: "u2", Type: TypeFull, Reason: "x"})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestRequest_DuplicateWhilePending(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Request(ctx, productRequest("p1"))
	require.NoError(t, err)

	_, err = svc.Request(ctx, productRequest("p1"))
	require.ErrorIs(t, err, ErrDuplicate)

	// A different product of the same order is independent.
	_, err = svc.Request(ctx, productRequest("p2"))
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, first.ID, StatusRejected, "not eligible")
	require.NoError(t, err)

	again, err := svc.Request(ctx, productRequest("p1"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID)
}

func TestRequest_DuplicateWhileApproved(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	first, err := svc.Request(ctx, productRequest("p1"))
	require.NoError(t, err)
	_, err = svc.SetStatus(ctx, first.ID, StatusApproved, "")
	require.NoError(t, err)

	_, err = svc.Request(ctx, productRequest("p1"))
	require.ErrorIs(t, err, ErrDuplicate)
}

func TestRequest_OrderLookupFailure(t *testing.T) {
	svc, _, orders := newTestService()
	orders.err = errors.New("connection refused")

	_, err := svc.Request(context.Background(), productRequest("p1"))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))
}

func TestSetStatus(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	r, err := svc.Request(ctx, productRequest("p1"))
	require.NoError(t, err)

	_, err = svc.SetStatus(ctx, r.ID, "refunded", "")
	require.ErrorIs(t, err, ErrInvalidStatus)

	_, err = svc.SetStatus(ctx, "missing", StatusApproved, "")
	require.ErrorIs(t, err, ErrNotFound)

	approved, err := svc.SetStatus(ctx, r.ID, StatusApproved, "ok")
	require.NoError(t, err)
	assert.Equal(t, StatusApproved, approved.Status)
	assert.Equal(t, "ok", approved.AdminNotes)
	require.NotNil(t, approved.ProcessedDate)
	assert.Equal(t, testNow, *approved.ProcessedDate)
}

func TestList(t *testing.T) {
	svc, _, _ := newTestService()
	ctx := context.Background()

	_, err := svc.Request(ctx, productRequest("p1"))
	require.NoError(t, err)

	got, err := svc.List(ctx, Filter{UserID: "u1", Status: StatusPending})
	require.NoError(t, err)
	assert.Len(t, got, 1)

	_, err = svc.List(ctx, Filter{Status: "bogus"})
	require.ErrorIs(t, err, ErrInvalidStatus)
}
