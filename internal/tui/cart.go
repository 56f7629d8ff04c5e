package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/thomas/mayhem-terminal-go/internal/cart"
	"github.com/thomas/mayhem-terminal-go/internal/checkout"
	"github.com/thomas/mayhem-terminal-go/internal/pricing"
)

func (m Model) selectedCartItem() (cart.LineItem, bool) {
	items := m.sess.Cart.Items()
	if m.cartIdx < 0 || m.cartIdx >= len(items) {
		return cart.LineItem{}, false
	}
	return items[m.cartIdx], true
}

func (m Model) handleCartKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if m.showPromo {
		switch key {
		case "enter":
			code := m.promoInput.Value()
			m.showPromo = false
			m.promoInput.Blur()
			m.promoInput.SetValue("")
			return m.applyPromo(code)
		case "esc":
			m.showPromo = false
			m.promoInput.Blur()
			m.promoInput.SetValue("")
			return m, nil
		}
		var cmd tea.Cmd
		m.promoInput, cmd = m.promoInput.Update(msg)
		return m, cmd
	}

	switch key {
	case "esc", "backspace", "s":
		m.viewState = ViewProductList
		m.updateProductList()
		return m, nil

	case "up", "k":
		if m.cartIdx > 0 {
			m.cartIdx--
		}
		return m, nil

	case "down", "j":
		if m.cartIdx < m.sess.Cart.Len()-1 {
			m.cartIdx++
		}
		return m, nil

	case "+", "=":
		if item, ok := m.selectedCartItem(); ok {
			return m, m.resolveCartLine(item)
		}
		return m, nil

	case "-":
		if item, ok := m.selectedCartItem(); ok && item.Quantity > 1 {
			ctx, cancel := newContext()
			defer cancel()
			if err := m.sess.Cart.UpdateQuantity(ctx, item.Key(), item.Quantity-1); err != nil {
				cmd := m.notify("Could not save your cart, please try again", true)
				return m, cmd
			}
		}
		return m, nil

	case "d", "delete":
		if item, ok := m.selectedCartItem(); ok {
			ctx, cancel := newContext()
			defer cancel()
			if err := m.sess.Cart.RemoveItem(ctx, item.Key()); err != nil {
				cmd := m.notify("Could not save your cart, please try again", true)
				return m, cmd
			}
			m.cartIdx = min(m.cartIdx, max(m.sess.Cart.Len()-1, 0))
			cmd := m.notify(item.Name+" removed from your cart", false)
			return m, cmd
		}
		return m, nil

	case "p":
		if applied, ok := m.sess.Promo.Applied(); ok {
			cmd := m.notify(fmt.Sprintf("%s is already applied, press x to remove it", applied.Code), true)
			return m, cmd
		}
		if m.sess.Cart.IsEmpty() {
			return m, nil
		}
		m.showPromo = true
		m.promoInput.Focus()
		return m, textinput.Blink

	case "x":
		if applied, ok := m.sess.Promo.Applied(); ok {
			m.sess.Promo.Remove()
			cmd := m.notify(applied.Code+" removed", false)
			return m, cmd
		}
		return m, nil

	case "o":
		return m.startCheckout()

	case "W":
		return m.openWishlist()
	}

	return m, nil
}

func (m Model) applyPromo(code string) (tea.Model, tea.Cmd) {
	err := m.sess.Promo.Apply(code)
	switch {
	case err == nil:
		applied, _ := m.sess.Promo.Applied()
		cmd := m.notify(fmt.Sprintf("%s applied: %s", applied.Code, applied.Description), false)
		return m, cmd
	case errors.Is(err, pricing.ErrUnknownPromoCode):
		cmd := m.notify(fmt.Sprintf("%q is not a valid promo code", strings.ToUpper(strings.TrimSpace(code))), true)
		return m, cmd
	default:
		cmd := m.notify(capitalize(err.Error()), true)
		return m, cmd
	}
}

func (m Model) viewCart() string {
	var sb strings.Builder

	sb.WriteString(m.styles.HeaderTitle.Render("Your Cart"))
	sb.WriteString("\n\n")

	if m.sess.Cart.IsEmpty() {
		sb.WriteString(m.styles.Subtle.Render("Your cart is empty"))
		sb.WriteString("\n")
		sb.WriteString(m.styles.HelpBar.Render("esc back to shop • W wishlist"))
		return m.styles.Box.Render(sb.String())
	}

	for i, item := range m.sess.Cart.Items() {
		prefix := "  "
		name := item.Name
		if v := item.Variant(); v != "" {
			name += " (" + v + ")"
		}
		line := fmt.Sprintf("%s  %s  x%d  = %s", name, m.money(item.Price), item.Quantity, m.money(item.LineTotal()))
		if i == m.cartIdx {
			prefix = m.styles.Highlight.Render("▸ ")
			line = m.styles.Highlight.Render(line)
		}
		sb.WriteString(prefix + line + "\n")
	}

	sb.WriteString(m.renderSummary(m.sess.Summary(), true))
	sb.WriteString("\n")

	switch applied, ok := m.sess.Promo.Applied(); {
	case m.showPromo:
		sb.WriteString("Promo code: ")
		sb.WriteString(m.promoInput.View())
	case ok:
		sb.WriteString(m.styles.Success.Render(fmt.Sprintf("✓ %s applied (%s)", applied.Code, applied.Description)))
	default:
		sb.WriteString(m.styles.Subtle.Render("Have a promo code? Press p"))
	}
	sb.WriteString("\n")

	help := "↑/↓ select • +/- quantity • d remove • p promo • x remove promo • o checkout • s continue shopping"
	if m.showPromo {
		help = "enter apply • esc cancel"
	}
	sb.WriteString(m.styles.HelpBar.Render(help))

	return m.styles.Box.Render(sb.String())
}

// renderSummary renders the price breakdown. With hint set it also names
// the free shipping threshold while shipping is charged.
func (m Model) renderSummary(s pricing.Summary, hint bool) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Subtotal: %s\n", m.money(s.Subtotal))
	if s.PromoCode != "" {
		fmt.Fprintf(&sb, "Discount (%s): -%s\n", s.PromoCode, m.money(s.Discount))
	}
	if s.FreeShipping() {
		sb.WriteString("Shipping: " + m.styles.Success.Render("FREE") + "\n")
	} else {
		fmt.Fprintf(&sb, "Shipping: %s\n", m.money(s.Shipping))
	}
	fmt.Fprintf(&sb, "Tax: %s\n", m.money(s.Tax))
	sb.WriteString(m.styles.Total.Render("Total: " + m.money(s.Total)))

	if hint && !s.FreeShipping() {
		sb.WriteString("\n")
		sb.WriteString(m.styles.Subtle.Render(fmt.Sprintf("Free shipping on orders over %s",
			m.money(m.sess.Rates().FreeShippingThreshold))))
	}
	return m.styles.Summary.Render(sb.String())
}

// startCheckout resumes an unfinished checkout or starts a new one.
func (m Model) startCheckout() (tea.Model, tea.Cmd) {
	if m.sess.Cart.IsEmpty() {
		m.pipeline = nil
	}
	if m.pipeline == nil || m.pipeline.Step() == checkout.StepSubmitted {
		p, err := m.sess.StartCheckout()
		if errors.Is(err, checkout.ErrEmptyCart) {
			m.viewState = ViewCart
			cmd := m.notify("Your cart is empty", true)
			return m, cmd
		}
		if err != nil {
			cmd := m.notify(errorText(err), true)
			return m, cmd
		}
		m.pipeline = p
	}

	m.viewState = ViewCheckout
	cmd := m.initCheckoutForm()
	return m, cmd
}
