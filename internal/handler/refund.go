package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/refund"
)

type refundBody struct {
	OrderID   string          `json:"order_id"`
	Type      refund.Type     `json:"type"`
	ProductID string          `json:"product_id"`
	Amount    decimal.Decimal `json:"amount"`
	Reason    string          `json:"reason"`
}

type refundStatusBody struct {
	Status     refund.Status `json:"status"`
	AdminNotes string        `json:"admin_notes"`
}

func writeRefund(w http.ResponseWriter, status int, message string, rf *refund.Refund) {
	writeData(w, status, message, func(e *jx.Encoder) { encodeRefund(e, rf) })
}

func (h *Handler) requestRefund(w http.ResponseWriter, r *http.Request) {
	var body refundBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	rf, err := h.refunds.Request(r.Context(), refund.Request{
		OrderID:   body.OrderID,
		UserID:    identity(r).UserID,
		Type:      body.Type,
		ProductID: body.ProductID,
		Amount:    body.Amount,
		Reason:    body.Reason,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRefund(w, http.StatusCreated, "refund requested", rf)
}

func (h *Handler) getRefund(w http.ResponseWriter, r *http.Request) {
	rf, err := h.refunds.Get(r.Context(), chi.URLParam(r, "refundID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := identity(r).RequireSelfOrAdmin(rf.UserID); err != nil {
		writeError(w, r, err)
		return
	}
	writeRefund(w, http.StatusOK, "refund retrieved", rf)
}

func (h *Handler) listRefunds(w http.ResponseWriter, r *http.Request) {
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
	q := r.URL.Query()
	f := refund.Filter{
		UserID:  owner,
		OrderID: q.Get("order_id"),
		Status:  refund.Status(q.Get("status")),
		Limit:   limit,
		Offset:  offset,
	}
	refunds, err := h.refunds.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, http.StatusOK, "refunds retrieved", func(e *jx.Encoder) {
		e.Arr(func(e *jx.Encoder) {
			for i := range refunds {
				encodeRefund(e, &refunds[i])
			}
		})
	})
}

func (h *Handler) setRefundStatus(w http.ResponseWriter, r *http.Request) {
	var body refundStatusBody
	if err := decode(r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	rf, err := h.refunds.SetStatus(r.Context(), chi.URLParam(r, "refundID"), body.Status, body.AdminNotes)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeRefund(w, http.StatusOK, "refund status updated", rf)
}
