package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/cart"
)

type addItemBody struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size"`
	Color     string `json:"color"`
}

type updateItemBody struct {
	Quantity int `json:"quantity"`
}

type promoBody struct {
	Code string `json:"code"`
}

func writeCart(w http.ResponseWriter, message string, c *cart.Cart) {
	writeData(w, http.StatusOK, message, func(e *jx.Encoder) { encodeCart(e, c) })
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Get(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, "cart retrieved", c)
}

func (h *Handler) addCartItem(w http.ResponseWriter, r *http.Request) {
	var body addItemBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.AddItem(r.Context(), chi.URLParam(r, "userID"), cart.AddItemRequest{
		ProductID: body.ProductID,
		Quantity:  body.Quantity,
		Size:      body.Size,
		Color:     body.Color,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, "item added to cart", c)
}

func (h *Handler) updateCartItem(w http.ResponseWriter, r *http.Request) {
	var body updateItemBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.UpdateItem(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "itemID"), body.Quantity)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, "cart item updated", c)
}

func (h *Handler) removeCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemoveItem(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "itemID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, "item removed from cart", c)
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.Clear(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, "cart cleared", c)
}

func (h *Handler) applyPromo(w http.ResponseWriter, r *http.Request) {
	var body promoBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.carts.ApplyPromo(r.Context(), chi.URLParam(r, "userID"), body.Code)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, "promo code applied", c)
}

func (h *Handler) removePromo(w http.ResponseWriter, r *http.Request) {
	c, err := h.carts.RemovePromo(r.Context(), chi.URLParam(r, "userID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeCart(w, "promo code removed", c)
}
