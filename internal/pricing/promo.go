package pricing

import (
	"errors"
	"sort"
	"strings"

	"github.com/thomas/mayhem-terminal-go/internal/catalog"
)

var (
	ErrEmptyPromoCode      = errors.New("enter a promo code")
	ErrPromoAlreadyApplied = errors.New("a promo code is already applied")
	ErrUnknownPromoCode    = errors.New("invalid promo code")
)

// PromoCode maps a code to a fractional discount rate.
type PromoCode struct {
	Code        string
	Rate        float64
	Description string
}

// PromoTable is the set of accepted codes keyed by upper-case code.
type PromoTable map[string]PromoCode

// DefaultPromoCodes returns the built-in codes.
func DefaultPromoCodes() PromoTable {
	return PromoTable{
		"MAYHEM10": {Code: "MAYHEM10", Rate: 0.10, Description: "10% off your order"},
		"SACRED20": {Code: "SACRED20", Rate: 0.20, Description: "20% off your order"},
	}
}

// WithCoupons returns a copy of t with active coupons merged over it.
// Coupon discounts are percentages and become rates.
func (t PromoTable) WithCoupons(coupons []catalog.Coupon) PromoTable {
	out := make(PromoTable, len(t)+len(coupons))
	for k, v := range t {
		out[k] = v
	}
	for _, c := range coupons {
		if !c.Active {
			continue
		}
		code := normalize(c.Code)
		if code == "" {
			continue
		}
		out[code] = PromoCode{Code: code, Rate: c.Discount / 100, Description: c.Description}
	}
	return out
}

// Codes returns the table's codes in alphabetical order.
func (t PromoTable) Codes() []string {
	codes := make([]string, 0, len(t))
	for k := range t {
		codes = append(codes, k)
	}
	sort.Strings(codes)
	return codes
}

func normalize(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Promo tracks the single promo code applied to a cart.
type Promo struct {
	table   PromoTable
	applied *PromoCode
}

// NewPromo returns a Promo with nothing applied.
func NewPromo(table PromoTable) *Promo {
	return &Promo{table: table}
}

// Apply activates code. A second code is rejected until Remove is called,
// and an unknown code leaves the current state untouched.
func (p *Promo) Apply(code string) error {
	code = normalize(code)
	if code == "" {
		return ErrEmptyPromoCode
	}
	if p.applied != nil {
		return ErrPromoAlreadyApplied
	}
	pc, ok := p.table[code]
	if !ok {
		return ErrUnknownPromoCode
	}
	p.applied = &pc
	return nil
}

// Remove clears the applied code.
func (p *Promo) Remove() {
	p.applied = nil
}

// Applied returns the active code. A nil Promo has none.
func (p *Promo) Applied() (PromoCode, bool) {
	if p == nil || p.applied == nil {
		return PromoCode{}, false
	}
	return *p.applied, true
}

// Active reports whether a code is applied.
func (p *Promo) Active() bool {
	_, ok := p.Applied()
	return ok
}
