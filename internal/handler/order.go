package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/order"
)

// IdempotencyHeader lets clients retry order creation safely.
const IdempotencyHeader = "Idempotency-Key"

type orderLineBody struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type checkoutBody struct {
	ShippingAddress *order.Address       `json:"shipping_address"`
	BillingAddress  *order.Address       `json:"billing_address"`
	PaymentMethod   *order.PaymentMethod `json:"payment_method"`
	DeliveryMethod  order.DeliveryMethod `json:"delivery_method"`
	Notes           string               `json:"notes"`
}

type createOrderBody struct {
	UserID    string          `json:"user_id"`
	Items     []orderLineBody `json:"items"`
	PromoCode string          `json:"promo_code"`
	checkoutBody
}

type cancelBody struct {
	Reason string `json:"reason"`
}

type statusBody struct {
	Status         order.Status `json:"status"`
	TrackingNumber string       `json:"tracking_number"`
	Notes          string       `json:"notes"`
}

func writeOrder(w http.ResponseWriter, status int, message string, o *order.Order) {
	writeData(w, status, message, func(e *jx.Encoder) { encodeOrder(e, o) })
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var body createOrderBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	id := identity(r)
	if body.UserID == "" {
		body.UserID = id.UserID
	}
	if err := id.RequireSelfOrAdmin(body.UserID); err != nil {
		writeError(w, r, err)
		return
	}

	lines := make([]order.CommitLine, len(body.Items))
	for i, it := range body.Items {
		lines[i] = order.CommitLine{ProductID: it.ProductID, Quantity: it.Quantity, Size: it.Size, Color: it.Color}
	}
	o, err := h.orders.Commit(r.Context(), order.CommitRequest{
		UserID:          body.UserID,
		Lines:           lines,
		ShippingAddress: body.ShippingAddress,
		BillingAddress:  body.BillingAddress,
		PaymentMethod:   body.PaymentMethod,
		DeliveryMethod:  body.DeliveryMethod,
		PromoCode:       body.PromoCode,
		Notes:           body.Notes,
		IdempotencyKey:  r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusCreated, "order placed", o)
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	var body checkoutBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.CommitCart(r.Context(), chi.URLParam(r, "userID"), order.CheckoutRequest{
		ShippingAddress: body.ShippingAddress,
		BillingAddress:  body.BillingAddress,
		PaymentMethod:   body.PaymentMethod,
		DeliveryMethod:  body.DeliveryMethod,
		Notes:           body.Notes,
		IdempotencyKey:  r.Header.Get(IdempotencyHeader),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusCreated, "order placed", o)
}

// ownedOrder loads the order and checks the caller may see it.
func (h *Handler) ownedOrder(r *http.Request) (*order.Order, error) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "orderID"))
	if err != nil {
		return nil, err
	}
	if err := identity(r).RequireSelfOrAdmin(o.UserID); err != nil {
		return nil, err
	}
	return o, nil
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.ownedOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, "order retrieved", o)
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	owner, err := listOwner(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f := order.Filter{
		UserID: owner,
		Status: order.Status(r.URL.Query().Get("status")),
		Limit:  limit,
		Offset: offset,
	}
	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "orders retrieved", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range orders {
				encodeOrder(e, &orders[i])
			}
		})
	})
}

func (h *Handler) orderStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.orders.Stats(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "order stats retrieved", func(e *jx.Encoder) { encodeStats(e, stats) })
}

func (h *Handler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	var body cancelBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.ownedOrder(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	o, err = h.orders.Cancel(r.Context(), o.ID, body.Reason)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, "order cancelled", o)
}

func (h *Handler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var body statusBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := h.orders.UpdateStatus(r.Context(), chi.URLParam(r, "orderID"), order.UpdateStatusRequest{
		Status:         body.Status,
		TrackingNumber: body.TrackingNumber,
		Notes:          body.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeOrder(w, http.StatusOK, "order status updated", o)
}
