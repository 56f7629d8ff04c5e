// Package pricing turns cart lines and an optional promo code into an order
// summary.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/thomas/mayhem-terminal-go/internal/cart"
)

// Default rates, overridable through configuration.
const (
	DefaultFreeShippingThreshold = 200.0
	DefaultFlatShippingFee       = 15.0
	DefaultTaxRate               = 0.08
)

// Rates holds the shipping and tax constants. Every summary in the process
// is computed from one Rates value.
type Rates struct {
	// Orders strictly above this subtotal ship free.
	FreeShippingThreshold float64
	FlatShippingFee       float64
	TaxRate               float64
}

// DefaultRates returns the cart defaults.
func DefaultRates() Rates {
	return Rates{
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		FlatShippingFee:       DefaultFlatShippingFee,
		TaxRate:               DefaultTaxRate,
	}
}

// Validate rejects negative values and tax rates above 100%.
func (r Rates) Validate() error {
	switch {
	case r.FreeShippingThreshold < 0:
		return errors.New("free shipping threshold must not be negative")
	case r.FlatShippingFee < 0:
		return errors.New("flat shipping fee must not be negative")
	case r.TaxRate < 0 || r.TaxRate > 1:
		return fmt.Errorf("tax rate %v out of range [0, 1]", r.TaxRate)
	}
	return nil
}

// Summary is the derived price breakdown of a cart. Values carry full float
// precision; round only when formatting.
type Summary struct {
	Subtotal float64 `json:"subtotal"`
	Discount float64 `json:"discount"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`

	// PromoCode is the applied code, empty when none.
	PromoCode string  `json:"promoCode,omitempty"`
	PromoRate float64 `json:"promoRate,omitempty"`
}

// FreeShipping reports whether the summary ships free.
func (s Summary) FreeShipping() bool {
	return s.Shipping == 0
}

// Compute derives the order summary. promo may be nil.
func Compute(items []cart.LineItem, promo *Promo, rates Rates) Summary {
	var s Summary
	for _, it := range items {
		s.Subtotal += it.LineTotal()
	}

	if code, ok := promo.Applied(); ok {
		s.PromoCode = code.Code
		s.PromoRate = code.Rate
		s.Discount = s.Subtotal * code.Rate
	}

	if s.Subtotal <= rates.FreeShippingThreshold {
		s.Shipping = rates.FlatShippingFee
	}

	s.Tax = (s.Subtotal - s.Discount) * rates.TaxRate
	s.Total = s.Subtotal - s.Discount + s.Shipping + s.Tax
	return s
}

// FormatMoney renders v with two decimal places, e.g. "$217.08".
func FormatMoney(symbol string, v float64) string {
	d := decimal.NewFromFloat(v).Round(2)
	if d.IsNegative() {
		return "-" + symbol + d.Neg().StringFixed(2)
	}
	return symbol + d.StringFixed(2)
}
