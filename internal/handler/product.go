package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/product"
)

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := paging(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	products, err := h.products.List(r.Context(), product.Filter{
		Category: r.URL.Query().Get("category"),
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list products"))
		return
	}
	writeData(w, http.StatusOK, "products retrieved", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for _, p := range products {
				h.encodeProduct(e, p)
			}
		})
	})
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), chi.URLParam(r, "productID"))
	if err != nil {
		writeError(w, r, errors.Wrap(err, "get product"))
		return
	}
	writeData(w, http.StatusOK, "product retrieved", func(e *jx.Encoder) {
		h.encodeProduct(e, *p)
	})
}
