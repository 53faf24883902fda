package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/sushantdkl/SneakHead-sub001/internal/domain/apperr"
)

// ErrUnknownDeliveryMethod is returned for delivery types without a rate.
var ErrUnknownDeliveryMethod = apperr.New(apperr.KindValidation, "unknown_delivery_method", "unknown delivery method")

type deliveryRate struct {
	cost decimal.Decimal
	days int
}

var deliveryRates = map[string]deliveryRate{
	"standard":  {cost: decimal.RequireFromString("5.99"), days: 5},
	"express":   {cost: decimal.RequireFromString("15.99"), days: 2},
	"overnight": {cost: decimal.RequireFromString("29.99"), days: 1},
	"pickup":    {cost: decimal.Zero, days: 0},
}

// DefaultDeliveryMethod is used when an order does not name one.
const DefaultDeliveryMethod = "standard"

// ShippingCost returns the flat shipping charge for a delivery method.
func ShippingCost(method string) (decimal.Decimal, error) {
	r, ok := deliveryRates[method]
	if !ok {
		return decimal.Zero, ErrUnknownDeliveryMethod
	}
	return r.cost, nil
}

// DeliveryDays returns the estimated transit time in days for a method.
func DeliveryDays(method string) (int, error) {
	r, ok := deliveryRates[method]
	if !ok {
		return 0, ErrUnknownDeliveryMethod
	}
	return r.days, nil
}
