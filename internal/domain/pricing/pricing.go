// Package pricing holds the pure money arithmetic of the storefront: line
// totals, cart subtotals, promo discounts, shipping, tax and order totals.
//
// All amounts are shopspring decimals. Reported amounts are rounded to two
// places with decimal.Round (half away from zero).
package pricing

import "github.com/shopspring/decimal"

var (
	hundred = decimal.NewFromInt(100)
	zero    = decimal.Zero

	// TaxRate is the flat sales tax applied to the discounted subtotal.
	TaxRate = decimal.RequireFromString("0.08")
)

// Line is the pricing view of a cart or order line.
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
	// Active reports whether the line's product is still sold. Inactive
	// lines are kept in the cart but excluded from totals.
	Active bool
}

// Totals is the full monetary breakdown of an order.
type Totals struct {
	Subtotal decimal.Decimal
	Discount decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Round rounds a money amount to cents.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// LineTotal returns unitPrice * quantity.
func LineTotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
}

// Subtotal sums line totals and quantities over active lines.
func Subtotal(lines []Line) (subtotal decimal.Decimal, totalItems int) {
	subtotal = zero
	for _, l := range lines {
		if !l.Active {
			continue
		}
		subtotal = subtotal.Add(LineTotal(l.UnitPrice, l.Quantity))
		totalItems += l.Quantity
	}
	return Round(subtotal), totalItems
}

// OrderTotals computes tax and total for an order. The discount is netted
// out of the subtotal before tax; the returned Subtotal stays pre-discount.
func OrderTotals(subtotal, discount, shipping decimal.Decimal) Totals {
	discount = floorAtZero(decimal.Min(discount, subtotal))
	taxable := subtotal.Sub(discount)
	tax := Round(taxable.Mul(TaxRate))

	return Totals{
		Subtotal: Round(subtotal),
		Discount: Round(discount),
		Shipping: Round(shipping),
		Tax:      tax,
		Total:    Round(taxable.Add(shipping).Add(tax)),
	}
}

func floorAtZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return zero
	}
	return d
}
