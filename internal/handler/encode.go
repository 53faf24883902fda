package handler

import (
	"sort"
	"time"

	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/cart"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/order"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/product"
	"github.com/sushantdkl/SneakHead-sub001/internal/domain/refund"
)

func money(e *jx.Encoder, name string, d decimal.Decimal) {
	e.Field(name, func(e *jx.Encoder) { e.Str(d.StringFixed(2)) })
}

func str(e *jx.Encoder, name, v string) {
	e.Field(name, func(e *jx.Encoder) { e.Str(v) })
}

func optStr(e *jx.Encoder, name, v string) {
	if v != "" {
		str(e, name, v)
	}
}

func integer(e *jx.Encoder, name string, v int) {
	e.Field(name, func(e *jx.Encoder) { e.Int(v) })
}

func timestamp(e *jx.Encoder, name string, t *time.Time) {
	e.Field(name, func(e *jx.Encoder) {
		if t == nil || t.IsZero() {
			e.Null()
			return
		}
		e.Str(t.UTC().Format(time.RFC3339))
	})
}

func (h *Handler) encodeProduct(e *jx.Encoder, p product.Product) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", p.ID)
		str(e, "name", p.Name)
		str(e, "description", p.Description)
		str(e, "category", p.Category)
		money(e, "price", p.Price)
		integer(e, "stock_quantity", p.StockQuantity)
		e.Field("is_active", func(e *jx.Encoder) { e.Bool(p.IsActive) })
		if p.ImageURL != "" {
			str(e, "image_url", h.imageBaseURL+p.ImageURL)
		}
	})
}

func encodeCart(e *jx.Encoder, c *cart.Cart) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "user_id", c.UserID)
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, l := range c.Lines {
					e.Obj(func(e *jx.Encoder) {
						str(e, "id", l.ID)
						str(e, "product_id", l.ProductID)
						str(e, "product_name", l.ProductName)
						integer(e, "quantity", l.Quantity)
						optStr(e, "size", l.Size)
						optStr(e, "color", l.Color)
						money(e, "unit_price", l.UnitPrice)
						money(e, "line_total", l.LineTotal())
						e.Field("available", func(e *jx.Encoder) { e.Bool(l.ProductActive) })
					})
				}
			})
		})
		optStr(e, "promo_code", c.PromoCode)
		money(e, "subtotal", c.Totals.Subtotal)
		integer(e, "total_items", c.Totals.TotalItems)
		money(e, "discount_amount", c.Totals.DiscountAmount)
		optStr(e, "discount_type", string(c.Totals.DiscountType))
		money(e, "total", c.Totals.Total)
		timestamp(e, "updated_at", &c.UpdatedAt)
	})
}

func encodeAddress(e *jx.Encoder, name string, a *order.Address) {
	e.Field(name, func(e *jx.Encoder) {
		if a.IsZero() {
			e.Null()
			return
		}
		e.Obj(func(e *jx.Encoder) {
			str(e, "full_name", a.FullName)
			str(e, "line1", a.Line1)
			optStr(e, "line2", a.Line2)
			str(e, "city", a.City)
			optStr(e, "state", a.State)
			str(e, "postal_code", a.PostalCode)
			str(e, "country", a.Country)
			optStr(e, "phone", a.Phone)
		})
	})
}

func encodeOrder(e *jx.Encoder, o *order.Order) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", o.ID)
		str(e, "order_number", o.OrderNumber)
		str(e, "user_id", o.UserID)
		str(e, "status", string(o.Status))
		str(e, "payment_status", string(o.PaymentStatus))
		e.Field("items", func(e *jx.Encoder) {
			e.Arr(func(e *jx.Encoder) {
				for _, it := range o.Items {
					e.Obj(func(e *jx.Encoder) {
						str(e, "id", it.ID)
						str(e, "product_id", it.ProductID)
						str(e, "product_name", it.ProductName)
						integer(e, "quantity", it.Quantity)
						optStr(e, "size", it.Size)
						optStr(e, "color", it.Color)
						money(e, "unit_price", it.UnitPrice)
						money(e, "line_total", it.LineTotal)
					})
				}
			})
		})
		money(e, "subtotal", o.Subtotal)
		money(e, "discount_amount", o.DiscountAmount)
		optStr(e, "promo_code", o.PromoCode)
		money(e, "shipping_cost", o.ShippingCost)
		money(e, "tax_amount", o.TaxAmount)
		money(e, "total_amount", o.TotalAmount)
		encodeAddress(e, "shipping_address", &o.ShippingAddress)
		encodeAddress(e, "billing_address", o.BillingAddress)
		e.Field("payment_method", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				str(e, "type", o.PaymentMethod.Type)
				optStr(e, "brand", o.PaymentMethod.Brand)
				optStr(e, "last4", o.PaymentMethod.Last4)
			})
		})
		e.Field("delivery_method", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				str(e, "type", o.DeliveryMethod.Type)
				optStr(e, "instructions", o.DeliveryMethod.Instructions)
			})
		})
		optStr(e, "tracking_number", o.TrackingNumber)
		optStr(e, "notes", o.Notes)
		optStr(e, "cancel_reason", o.CancelReason)
		timestamp(e, "estimated_delivery", o.EstimatedDelivery)
		timestamp(e, "delivered_at", o.DeliveredAt)
		timestamp(e, "created_at", &o.CreatedAt)
		timestamp(e, "updated_at", &o.UpdatedAt)
	})
}

func encodeStats(e *jx.Encoder, s *order.Stats) {
	statuses := make([]string, 0, len(s.ByStatus))
	for st := range s.ByStatus {
		statuses = append(statuses, string(st))
	}
	sort.Strings(statuses)

	e.Obj(func(e *jx.Encoder) {
		integer(e, "total_orders", s.TotalOrders)
		e.Field("by_status", func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				for _, st := range statuses {
					integer(e, st, s.ByStatus[order.Status(st)])
				}
			})
		})
		money(e, "revenue", s.Revenue)
	})
}

func encodeRefund(e *jx.Encoder, r *refund.Refund) {
	e.Obj(func(e *jx.Encoder) {
		str(e, "id", r.ID)
		str(e, "order_id", r.OrderID)
		str(e, "user_id", r.UserID)
		e.Field("product_id", func(e *jx.Encoder) {
			if r.ProductID == nil {
				e.Null()
				return
			}
			e.Str(*r.ProductID)
		})
		str(e, "type", string(r.Type))
		str(e, "status", string(r.Status))
		money(e, "refund_amount", r.RefundAmount)
		str(e, "reason", r.Reason)
		optStr(e, "admin_notes", r.AdminNotes)
		timestamp(e, "request_date", &r.RequestDate)
		timestamp(e, "processed_date", r.ProcessedDate)
	})
}
