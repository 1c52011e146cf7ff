package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oakmart/orderd/internal/domain/coupon"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCalculate(t *testing.T) {
	tests := []struct {
		name         string
		items        []Item
		rule         *coupon.Rule
		wantTotal    string
		wantDiscount string
		wantDelivery string
		wantFinal    string
	}{
		{
			name: "two lines no coupon below free shipping",
			items: []Item{
				{ProductID: 1, UnitPrice: dec("10000.00"), Quantity: 2},
			},
			wantTotal:    "20000.00",
			wantDiscount: "0",
			wantDelivery: "3000",
			wantFinal:    "23000.00",
		},
		{
			name: "fixed coupon above its minimum",
			items: []Item{
				{ProductID: 1, UnitPrice: dec("10000.00"), Quantity: 2},
			},
			rule: &coupon.Rule{
				Type:          coupon.TypeFixed,
				Value:         dec("2000.00"),
				MinOrderPrice: dec("8000.00"),
			},
			wantTotal:    "20000.00",
			wantDiscount: "2000.00",
			wantDelivery: "3000",
			wantFinal:    "21000.00",
		},
		{
			name: "percentage coupon at free shipping threshold",
			items: []Item{
				{ProductID: 1, UnitPrice: dec("15000.00"), Quantity: 2},
			},
			rule: &coupon.Rule{
				Type:          coupon.TypePercentage,
				Value:         dec("10"),
				MinOrderPrice: dec("10000.00"),
			},
			wantTotal:    "30000.00",
			wantDiscount: "3000.00",
			wantDelivery: "0",
			wantFinal:    "27000.00",
		},
		{
			name: "total below coupon minimum falls back to zero discount",
			items: []Item{
				{ProductID: 1, UnitPrice: dec("15000.00"), Quantity: 1},
			},
			rule: &coupon.Rule{
				Type:          coupon.TypeFixed,
				Value:         dec("2000.00"),
				MinOrderPrice: dec("20000.00"),
			},
			wantTotal:    "15000.00",
			wantDiscount: "0",
			wantDelivery: "3000",
			wantFinal:    "18000.00",
		},
		{
			name: "fixed discount clamped at total",
			items: []Item{
				{ProductID: 1, UnitPrice: dec("1000.00"), Quantity: 1},
			},
			rule: &coupon.Rule{
				Type:  coupon.TypeFixed,
				Value: dec("5000.00"),
			},
			wantTotal:    "1000.00",
			wantDiscount: "1000.00",
			wantDelivery: "3000",
			wantFinal:    "3000.00",
		},
		{
			name: "percentage over one hundred clamped at total",
			items: []Item{
				{ProductID: 1, UnitPrice: dec("2500.00"), Quantity: 2},
			},
			rule: &coupon.Rule{
				Type:  coupon.TypePercentage,
				Value: dec("150"),
			},
			wantTotal:    "5000.00",
			wantDiscount: "5000.00",
			wantDelivery: "3000",
			wantFinal:    "3000.00",
		},
		{
			name:         "empty order is all zeroes",
			items:        nil,
			wantTotal:    "0",
			wantDiscount: "0",
			wantDelivery: "0",
			wantFinal:    "0",
		},
		{
			name: "fractional percentage rounds half up",
			items: []Item{
				{ProductID: 1, UnitPrice: dec("333.33"), Quantity: 3},
			},
			rule: &coupon.Rule{
				Type:  coupon.TypePercentage,
				Value: dec("10"),
			},
			// 999.99 * 10% = 99.999 -> 100.00
			wantTotal:    "999.99",
			wantDiscount: "100.00",
			wantDelivery: "3000",
			wantFinal:    "3899.99",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Calculate(tt.items, tt.rule)

			assert.True(t, dec(tt.wantTotal).Equal(got.TotalProductPrice),
				"total: want %s, got %s", tt.wantTotal, got.TotalProductPrice)
			assert.True(t, dec(tt.wantDiscount).Equal(got.DiscountAmount),
				"discount: want %s, got %s", tt.wantDiscount, got.DiscountAmount)
			assert.True(t, dec(tt.wantDelivery).Equal(got.DeliveryFee),
				"delivery: want %s, got %s", tt.wantDelivery, got.DeliveryFee)
			assert.True(t, dec(tt.wantFinal).Equal(got.FinalPrice),
				"final: want %s, got %s", tt.wantFinal, got.FinalPrice)

			// final = total - discount + delivery, always.
			recomputed := got.TotalProductPrice.Sub(got.DiscountAmount).Add(got.DeliveryFee)
			assert.True(t, recomputed.Equal(got.FinalPrice))
			// discount never exceeds the product total.
			assert.True(t, got.DiscountAmount.LessThanOrEqual(got.TotalProductPrice))
			assert.False(t, got.FinalPrice.IsNegative())
		})
	}
}

func TestCalculateDeterministic(t *testing.T) {
	items := []Item{
		{ProductID: 1, UnitPrice: dec("1234.56"), Quantity: 3},
		{ProductID: 2, UnitPrice: dec("78.90"), Quantity: 7},
	}
	rule := &coupon.Rule{Type: coupon.TypePercentage, Value: dec("17.5")}

	first := Calculate(items, rule)
	for range 100 {
		again := Calculate(items, rule)
		require.Equal(t, first.TotalProductPrice.String(), again.TotalProductPrice.String())
		require.Equal(t, first.DiscountAmount.String(), again.DiscountAmount.String())
		require.Equal(t, first.DeliveryFee.String(), again.DeliveryFee.String())
		require.Equal(t, first.FinalPrice.String(), again.FinalPrice.String())
	}
}
