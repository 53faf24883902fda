// Package handler exposes the shop over a JSON REST API under /api.
package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/apperr"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/cart"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/order"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/product"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/refund"
)

// CartService is implemented by *cart.Service.
type CartService interface {
	Get(ctx context.Context, userID string) (*cart.Cart, error)
	AddItem(ctx context.Context, userID string, req cart.AddItemRequest) (*cart.Cart, error)
	UpdateItem(ctx context.Context, userID, lineID string, quantity int) (*cart.Cart, error)
	RemoveItem(ctx context.Context, userID, lineID string) (*cart.Cart, error)
	Clear(ctx context.Context, userID string) (*cart.Cart, error)
	ApplyPromo(ctx context.Context, userID, code string) (*cart.Cart, error)
	RemovePromo(ctx context.Context, userID string) (*cart.Cart, error)
}

// OrderService is implemented by *order.Service.
type OrderService interface {
	Commit(ctx context.Context, req order.CommitRequest) (*order.Order, error)
	CommitCart(ctx context.Context, userID string, req order.CheckoutRequest) (*order.Order, error)
	Cancel(ctx context.Context, orderID, reason string) (*order.Order, error)
	UpdateStatus(ctx context.Context, orderID string, req order.UpdateStatusRequest) (*order.Order, error)
	Get(ctx context.Context, orderID string) (*order.Order, error)
	List(ctx context.Context, f order.Filter) ([]order.Order, error)
	Stats(ctx context.Context) (*order.Stats, error)
}

// RefundService is implemented by *refund.Service.
type RefundService interface {
	Request(ctx context.Context, req refund.Request) (*refund.Refund, error)
	SetStatus(ctx context.Context, id string, status refund.Status, adminNotes string) (*refund.Refund, error)
	Get(ctx context.Context, id string) (*refund.Refund, error)
	List(ctx context.Context, f refund.Filter) ([]refund.Refund, error)
}

// Config holds non-dependency handler settings.
type Config struct {
	// ImageBaseURL is prepended to stored product image paths.
	ImageBaseURL string
}

// Handler serves the REST API.
type Handler struct {
	products     product.Repository
	carts        CartService
	orders       OrderService
	refunds      RefundService
	imageBaseURL string
}

// NewHandler creates a Handler.
func NewHandler(
	cfg Config,
	products product.Repository,
	carts CartService,
	orders OrderService,
	refunds RefundService,
) *Handler {
	return &Handler{
		products:     products,
		carts:        carts,
		orders:       orders,
		refunds:      refunds,
		imageBaseURL: cfg.ImageBaseURL,
	}
}

// Routes returns the API router. Catalog reads are public; every other route
// goes through sec.Authenticate. mw runs inside the router so it can see the
// matched route pattern.
func (h *Handler) Routes(sec *Security, mw ...func(http.Handler) http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(mw...)
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, errMethodNotAllowed)
	})

	r.Get("/products", h.listProducts)
	r.Get("/products/{productID}", h.getProduct)

	r.Group(func(r chi.Router) {
		r.Use(sec.Authenticate)

		r.Route("/cart/{userID}", func(r chi.Router) {
			r.Use(selfOnly)
			r.Get("/", h.getCart)
			r.Delete("/", h.clearCart)
			r.Post("/items", h.addCartItem)
			r.Put("/items/{itemID}", h.updateCartItem)
			r.Delete("/items/{itemID}", h.removeCartItem)
			r.Post("/promo", h.applyPromo)
			r.Delete("/promo", h.removePromo)
			r.Post("/checkout", h.checkout)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Post("/", h.createOrder)
			r.Get("/", h.listOrders)
			r.With(adminOnly).Get("/stats", h.orderStats)
			r.Get("/{orderID}", h.getOrder)
			r.Patch("/{orderID}/cancel", h.cancelOrder)
			r.With(adminOnly).Patch("/{orderID}/status", h.updateOrderStatus)
		})

		r.Route("/refunds", func(r chi.Router) {
			r.Post("/", h.requestRefund)
			r.Get("/", h.listRefunds)
			r.Get("/{refundID}", h.getRefund)
			r.With(adminOnly).Put("/{refundID}/status", h.setRefundStatus)
		})
	})
	return r
}

var (
	errRouteNotFound    = apperr.New(apperr.KindNotFound, "route_not_found", "route not found")
	errMethodNotAllowed = apperr.New(apperr.KindValidation, "method_not_allowed", "method not allowed")
	errInvalidPaging    = apperr.New(apperr.KindValidation, "invalid_paging", "limit and offset must be non-negative integers")
)

func selfOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := identity(r).RequireSelfOrAdmin(chi.URLParam(r, "userID")); err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func adminOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := identity(r).RequireAdmin(); err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// listOwner returns the user whose records a list request may see. Non-admins
// default to themselves and may not name another user.
func listOwner(r *http.Request) (string, error) {
	requested := r.URL.Query().Get("user_id")
	id := identity(r)
	if id.IsAdmin() {
		return requested, nil
	}
	if requested == "" {
		return id.UserID, nil
	}
	if err := id.RequireSelfOrAdmin(requested); err != nil {
		return "", err
	}
	return requested, nil
}

// paging parses ?limit= and ?offset=. Absent values are zero.
func paging(r *http.Request) (limit, offset int, err error) {
	q := r.URL.Query()
	if v := q.Get("limit"); v != "" {
		if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
			return 0, 0, errInvalidPaging
		}
	}
	if v := q.Get("offset"); v != "" {
		if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
			return 0, 0, errInvalidPaging
		}
	}
	return limit, offset, nil
}
