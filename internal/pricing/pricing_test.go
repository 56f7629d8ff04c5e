package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomas/mayhem-terminal-go/internal/cart"
	"github.com/thomas/mayhem-terminal-go/internal/catalog"
)

func TestComputeEmptyCart(t *testing.T) {
	s := Compute(nil, nil, DefaultRates())

	assert.Zero(t, s.Subtotal)
	assert.Zero(t, s.Discount)
	assert.Equal(t, 15.0, s.Shipping)
	assert.Zero(t, s.Tax)
	assert.Equal(t, 15.0, s.Total)
}

func TestComputeShippingBoundary(t *testing.T) {
	tests := []struct {
		name     string
		items    []cart.LineItem
		shipping float64
		tax      float64
		total    float64
	}{
		{
			name:     "at threshold pays shipping",
			items:    []cart.LineItem{{ID: "1", Price: 100, Quantity: 2}},
			shipping: 15,
			tax:      16,
			total:    231,
		},
		{
			name:     "above threshold ships free",
			items:    []cart.LineItem{{ID: "1", Price: 100, Quantity: 2}, {ID: "2", Price: 1, Quantity: 1}},
			shipping: 0,
			tax:      16.08,
			total:    217.08,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Compute(tt.items, nil, DefaultRates())
			assert.Equal(t, tt.shipping, s.Shipping)
			assert.InDelta(t, tt.tax, s.Tax, 1e-9)
			assert.InDelta(t, tt.total, s.Total, 1e-9)
			assert.Equal(t, tt.shipping == 0, s.FreeShipping())
		})
	}
}

func TestComputeWithPromo(t *testing.T) {
	promo := NewPromo(DefaultPromoCodes())
	require.NoError(t, promo.Apply("mayhem10"))

	items := []cart.LineItem{{ID: "1", Price: 50, Quantity: 2}}
	s := Compute(items, promo, DefaultRates())

	assert.Equal(t, "MAYHEM10", s.PromoCode)
	assert.InDelta(t, 10, s.Discount, 1e-9)
	assert.Equal(t, 15.0, s.Shipping)
	assert.InDelta(t, 7.2, s.Tax, 1e-9)
	assert.InDelta(t, 112.2, s.Total, 1e-9)
}

func TestComputeUsesConfiguredRates(t *testing.T) {
	rates := Rates{FreeShippingThreshold: 50, FlatShippingFee: 25, TaxRate: 0}
	items := []cart.LineItem{{ID: "1", Price: 50, Quantity: 1}}

	s := Compute(items, nil, rates)
	assert.Equal(t, 25.0, s.Shipping)
	assert.Equal(t, 75.0, s.Total)
}

func TestPromoGuard(t *testing.T) {
	promo := NewPromo(DefaultPromoCodes())

	require.NoError(t, promo.Apply("  mayhem10 "))
	assert.ErrorIs(t, promo.Apply("SACRED20"), ErrPromoAlreadyApplied)

	code, ok := promo.Applied()
	require.True(t, ok)
	assert.Equal(t, "MAYHEM10", code.Code)
	assert.Equal(t, 0.10, code.Rate)

	promo.Remove()
	assert.False(t, promo.Active())
	require.NoError(t, promo.Apply("SACRED20"))
	code, _ = promo.Applied()
	assert.Equal(t, 0.20, code.Rate)
}

func TestPromoRejections(t *testing.T) {
	promo := NewPromo(DefaultPromoCodes())

	assert.ErrorIs(t, promo.Apply("   "), ErrEmptyPromoCode)
	assert.ErrorIs(t, promo.Apply("FREESTUFF"), ErrUnknownPromoCode)
	assert.False(t, promo.Active())

	require.NoError(t, promo.Apply("SACRED20"))
	assert.ErrorIs(t, promo.Apply("FREESTUFF"), ErrPromoAlreadyApplied)
	code, _ := promo.Applied()
	assert.Equal(t, "SACRED20", code.Code)
}

func TestNilPromo(t *testing.T) {
	var p *Promo
	assert.False(t, p.Active())
}

func TestWithCoupons(t *testing.T) {
	table := DefaultPromoCodes().WithCoupons([]catalog.Coupon{
		{Code: " drop25 ", Discount: 25, Description: "Drop launch", Active: true},
		{Code: "MAYHEM10", Discount: 15, Active: true},
		{Code: "OLD", Discount: 50, Active: false},
	})

	assert.Equal(t, []string{"DROP25", "MAYHEM10", "SACRED20"}, table.Codes())
	assert.Equal(t, 0.25, table["DROP25"].Rate)
	assert.Equal(t, 0.15, table["MAYHEM10"].Rate)

	assert.Equal(t, 0.10, DefaultPromoCodes()["MAYHEM10"].Rate, "defaults are not mutated")
}

func TestFormatMoney(t *testing.T) {
	tests := map[float64]string{
		231:                "$231.00",
		217.07999999999998: "$217.08",
		16.080000000000002: "$16.08",
		0:                  "$0.00",
		-23.1:              "-$23.10",
		0.005:              "$0.01",
	}
	for v, want := range tests {
		assert.Equal(t, want, FormatMoney("$", v), "FormatMoney(%v)", v)
	}
}

func TestRatesValidate(t *testing.T) {
	assert.NoError(t, DefaultRates().Validate())
	assert.Error(t, Rates{TaxRate: 1.5}.Validate())
	assert.Error(t, Rates{FlatShippingFee: -1}.Validate())
}
