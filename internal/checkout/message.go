package checkout

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/thomas/mayhem-terminal-go/internal/pricing"
)

// FormatMessage renders the order as the plain-text WhatsApp message.
//
// Layout: header, customer, shipping address, payment method, one line per
// item, then subtotal, discount (when a promo is applied), shipping, tax and
// total.
func FormatMessage(storeName, symbol string, order LastOrder) string {
	money := func(v float64) string { return pricing.FormatMoney(symbol, v) }
	f := order.FormData
	s := order.Summary

	var b strings.Builder
	if storeName != "" {
		fmt.Fprintf(&b, "New order for %s\n", storeName)
	}
	fmt.Fprintf(&b, "Order: %s\n\n", order.OrderNumber)

	fmt.Fprintf(&b, "Customer: %s\n", f.FullName())
	fmt.Fprintf(&b, "Email: %s\n", strings.TrimSpace(f.Email))
	fmt.Fprintf(&b, "Phone: %s\n\n", strings.TrimSpace(f.Phone))

	b.WriteString("Shipping address:\n")
	fmt.Fprintf(&b, "%s\n", strings.TrimSpace(f.Street))
	fmt.Fprintf(&b, "%s, %s %s\n", strings.TrimSpace(f.City), strings.TrimSpace(f.State), strings.TrimSpace(f.Zip))
	fmt.Fprintf(&b, "%s\n\n", strings.TrimSpace(f.Country))

	fmt.Fprintf(&b, "Payment: %s\n\n", f.PaymentMethod)

	b.WriteString("Items:\n")
	for _, it := range order.Items {
		name := it.Name
		if v := it.Variant(); v != "" {
			name += " (" + v + ")"
		}
		fmt.Fprintf(&b, "- %s x%d = %s\n", name, it.Quantity, money(it.LineTotal()))
	}
	b.WriteString("\n")

	fmt.Fprintf(&b, "Subtotal: %s\n", money(s.Subtotal))
	if s.PromoCode != "" {
		fmt.Fprintf(&b, "Discount (%s): -%s\n", s.PromoCode, money(s.Discount))
	}
	if s.FreeShipping() {
		b.WriteString("Shipping: FREE\n")
	} else {
		fmt.Fprintf(&b, "Shipping: %s\n", money(s.Shipping))
	}
	fmt.Fprintf(&b, "Tax: %s\n", money(s.Tax))
	fmt.Fprintf(&b, "Total: %s", money(s.Total))
	return b.String()
}

// DeepLink builds https://wa.me/<number>?text=<message>. Non-digits are
// stripped from number.
func DeepLink(number, message string) string {
	digits := strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, number)

	text := strings.ReplaceAll(url.QueryEscape(message), "+", "%20")
	return "https://wa.me/" + digits + "?text=" + text
}
