package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertMoney(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "expected %s, got %s", want, got)
}

func TestSubtotal(t *testing.T) {
	tests := []struct {
		name      string
		lines     []Line
		wantTotal string
		wantItems int
	}{
		{
			name:      "empty",
			wantTotal: "0",
		},
		{
			name: "sums active lines",
			lines: []Line{
				{UnitPrice: d("19.99"), Quantity: 2, Active: true},
				{UnitPrice: d("5.00"), Quantity: 1, Active: true},
			},
			wantTotal: "44.98",
			wantItems: 3,
		},
		{
			name: "inactive line excluded",
			lines: []Line{
				{UnitPrice: d("10"), Quantity: 3, Active: true},
				{UnitPrice: d("99"), Quantity: 1, Active: false},
			},
			wantTotal: "30",
			wantItems: 3,
		},
		{
			name: "no float drift on tenths",
			lines: []Line{
				{UnitPrice: d("0.10"), Quantity: 3, Active: true},
				{UnitPrice: d("0.20"), Quantity: 1, Active: true},
			},
			wantTotal: "0.50",
			wantItems: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, items := Subtotal(tt.lines)
			assertMoney(t, tt.wantTotal, got)
			assert.Equal(t, tt.wantItems, items)
		})
	}
}

func TestApplyPromo(t *testing.T) {
	tests := []struct {
		name     string
		subtotal string
		promo    Promo
		want     string
	}{
		{name: "percentage", subtotal: "100", promo: Percentage{Percent: d("10")}, want: "10"},
		{name: "percentage rounds half up", subtotal: "33.33", promo: Percentage{Percent: d("15")}, want: "5.00"},
		{name: "fixed under subtotal", subtotal: "50", promo: Fixed{Amount: d("20")}, want: "20"},
		{name: "fixed capped at subtotal", subtotal: "15", promo: Fixed{Amount: d("20")}, want: "15"},
		{name: "zero subtotal", subtotal: "0", promo: Fixed{Amount: d("20")}, want: "0"},
		{name: "nil promo", subtotal: "40", promo: nil, want: "0"},
		{name: "negative fixed floored", subtotal: "40", promo: Fixed{Amount: d("-5")}, want: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assertMoney(t, tt.want, ApplyPromo(d(tt.subtotal), tt.promo))
		})
	}
}

func TestLookup(t *testing.T) {
	p, err := Lookup(" save20 ")
	require.NoError(t, err)
	assert.Equal(t, DiscountFixed, p.Type())

	p, err = Lookup("SAVE10")
	require.NoError(t, err)
	assert.Equal(t, DiscountPercentage, p.Type())

	_, err = Lookup("BOGUS")
	require.ErrorIs(t, err, ErrInvalidPromoCode)
}

func TestSave20CappedOnSmallCart(t *testing.T) {
	p, err := Lookup("SAVE20")
	require.NoError(t, err)
	assertMoney(t, "15", ApplyPromo(d("15"), p))
}

func TestOrderTotals(t *testing.T) {
	t.Run("no discount", func(t *testing.T) {
		got := OrderTotals(d("40"), decimal.Zero, d("5.99"))
		assertMoney(t, "40", got.Subtotal)
		assertMoney(t, "3.20", got.Tax)
		assertMoney(t, "49.19", got.Total)
	})

	t.Run("discount netted before tax", func(t *testing.T) {
		got := OrderTotals(d("40"), d("4"), d("5.99"))
		assertMoney(t, "40", got.Subtotal)
		assertMoney(t, "4", got.Discount)
		assertMoney(t, "2.88", got.Tax)
		assertMoney(t, "44.87", got.Total)
	})

	t.Run("discount larger than subtotal", func(t *testing.T) {
		got := OrderTotals(d("10"), d("25"), d("0"))
		assertMoney(t, "10", got.Discount)
		assertMoney(t, "0", got.Tax)
		assertMoney(t, "0", got.Total)
	})
}

func TestShipping(t *testing.T) {
	cost, err := ShippingCost("express")
	require.NoError(t, err)
	assertMoney(t, "15.99", cost)

	days, err := DeliveryDays("overnight")
	require.NoError(t, err)
	assert.Equal(t, 1, days)

	_, err = ShippingCost("teleport")
	require.ErrorIs(t, err, ErrUnknownDeliveryMethod)
}
