// Package pricing computes the price breakdown of an order: product total,
// coupon discount, delivery fee, and final price. It is a pure computation
// with no I/O; invalid inputs are clamped rather than rejected.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/oakmart/orderd/internal/domain/coupon"
)

var (
	freeShippingThreshold = decimal.NewFromInt(30000)
	deliveryFee           = decimal.NewFromInt(3000)
	hundred               = decimal.NewFromInt(100)
	zero                  = decimal.Zero
)

// Item is a single order line for pricing purposes: the unit price captured
// at order time and the requested quantity.
type Item struct {
	ProductID int64
	UnitPrice decimal.Decimal
	Quantity  int
}

// Breakdown is the four-field pricing result. The invariant
// FinalPrice = TotalProductPrice - DiscountAmount + DeliveryFee holds for
// every value returned by Calculate, with all fields rounded to 2 fraction
// digits.
type Breakdown struct {
	TotalProductPrice decimal.Decimal
	DiscountAmount    decimal.Decimal
	DeliveryFee       decimal.Decimal
	FinalPrice        decimal.Decimal
}

// Calculate prices the given lines under an optional coupon rule.
//
// Each line total is rounded to 2 fraction digits before summation. Discounts
// below the rule's minimum order price fall back to zero (the lifecycle
// engine rejects that case before pricing; this is a clamp, not the
// enforcement point), and a discount never exceeds the product total. Orders
// at or above the free-shipping threshold, and empty orders, carry no
// delivery fee.
func Calculate(items []Item, rule *coupon.Rule) Breakdown {
	total := zero
	for _, it := range items {
		line := it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		total = total.Add(line)
	}

	discount := calcDiscount(total, rule)
	delivery := calcDeliveryFee(total)

	return Breakdown{
		TotalProductPrice: total.Round(2),
		DiscountAmount:    discount,
		DeliveryFee:       delivery,
		FinalPrice:        total.Sub(discount).Add(delivery).Round(2),
	}
}

func calcDiscount(total decimal.Decimal, rule *coupon.Rule) decimal.Decimal {
	if rule == nil {
		return zero
	}
	if total.LessThan(rule.MinOrderPrice) {
		return zero
	}

	var discount decimal.Decimal
	switch rule.Type {
	case coupon.TypePercentage:
		discount = total.Mul(rule.Value).Div(hundred)
	case coupon.TypeFixed:
		discount = rule.Value
	default:
		return zero
	}

	discount = discount.Round(2)
	if discount.IsNegative() {
		return zero
	}
	// A discount never exceeds the product total.
	return decimal.Min(discount, total)
}

func calcDeliveryFee(total decimal.Decimal) decimal.Decimal {
	if total.IsZero() || total.GreaterThanOrEqual(freeShippingThreshold) {
		return zero
	}
	return deliveryFee
}
