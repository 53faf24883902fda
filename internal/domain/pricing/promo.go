package pricing

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/apperr"
)

// ErrInvalidPromoCode is returned for codes missing from the promo table.
var ErrInvalidPromoCode = apperr.New(apperr.KindValidation, "invalid_promo_code", "invalid promo code")

// DiscountType names the promo variant for clients and storage.
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Promo is a discount rule. The only implementations are Percentage and
// Fixed.
type Promo interface {
	Type() DiscountType
	discount(subtotal decimal.Decimal) decimal.Decimal
}

// Percentage takes Percent percent off the subtotal.
type Percentage struct {
	Percent decimal.Decimal
}

func (Percentage) Type() DiscountType { return DiscountPercentage }

func (p Percentage) discount(subtotal decimal.Decimal) decimal.Decimal {
	return subtotal.Mul(p.Percent).Div(hundred)
}

// Fixed takes Amount off the subtotal, capped at the subtotal.
type Fixed struct {
	Amount decimal.Decimal
}

func (Fixed) Type() DiscountType { return DiscountFixed }

func (f Fixed) discount(subtotal decimal.Decimal) decimal.Decimal {
	return decimal.Min(f.Amount, subtotal)
}

// promoTable is the static promo code lookup table.
var promoTable = map[string]Promo{
	"SAVE10":    Percentage{Percent: decimal.NewFromInt(10)},
	"WELCOME15": Percentage{Percent: decimal.NewFromInt(15)},
	"SAVE20":    Fixed{Amount: decimal.NewFromInt(20)},
	"FIVEOFF":   Fixed{Amount: decimal.NewFromInt(5)},
}

// NormalizeCode returns the canonical form of a promo code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Lookup resolves a promo code, case-insensitively.
func Lookup(code string) (Promo, error) {
	p, ok := promoTable[NormalizeCode(code)]
	if !ok {
		return nil, ErrInvalidPromoCode
	}
	return p, nil
}

// ApplyPromo returns the discount promo grants on subtotal. The result is
// never negative and never exceeds the subtotal.
func ApplyPromo(subtotal decimal.Decimal, promo Promo) decimal.Decimal {
	if promo == nil || !subtotal.IsPositive() {
		return zero
	}
	d := floorAtZero(promo.discount(subtotal))
	return Round(decimal.Min(d, subtotal))
}
