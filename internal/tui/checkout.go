package tui

import (
	"errors"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/thomas/mayhem-terminal-go/internal/checkout"
)

// required returns a huh validator rejecting blank input.
func required(label string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", strings.ToLower(label))
		}
		return nil
	}
}

func input(title string, value *string, validate func(string) error) *huh.Input {
	return huh.NewInput().Title(title).Value(value).Validate(validate)
}

// newCheckoutForm builds the form of one checkout step, bound to f.
func newCheckoutForm(step checkout.Step, f *checkout.Form, confirm *bool) *huh.Form {
	var group *huh.Group

	switch step {
	case checkout.StepContact:
		group = huh.NewGroup(
			input("First name", &f.FirstName, required("First name")),
			input("Last name", &f.LastName, required("Last name")),
			input("Email", &f.Email, checkout.ValidateEmail),
			input("Phone", &f.Phone, required("Phone")),
		)
	case checkout.StepAddress:
		group = huh.NewGroup(
			input("Street address", &f.Street, required("Street address")),
			input("City", &f.City, required("City")),
			input("State", &f.State, required("State")),
			input("ZIP code", &f.Zip, required("ZIP code")),
			input("Country", &f.Country, required("Country")),
		)
	default:
		group = huh.NewGroup(
			huh.NewSelect[string]().
				Title("Payment method").
				Description("Paid on delivery or by transfer once we confirm on WhatsApp").
				Options(huh.NewOptions(checkout.PaymentMethods...)...).
				Value(&f.PaymentMethod),
			huh.NewConfirm().
				Title("Place order?").
				Affirmative("Place order").
				Negative("Not yet").
				Value(confirm).
				Validate(func(v bool) error {
					if !v {
						return errors.New("choose Place order, or esc to go back")
					}
					return nil
				}),
		)
	}

	return huh.NewForm(group).
		WithShowHelp(true).
		WithShowErrors(true)
}

func (m *Model) initCheckoutForm() tea.Cmd {
	m.checkoutStep = m.pipeline.Step()
	m.placeOrder = new(bool)
	m.checkoutForm = newCheckoutForm(m.checkoutStep, m.pipeline.Form(), m.placeOrder)
	return m.checkoutForm.Init()
}

// continueCheckout runs the current step off the update loop; it may save
// the contact and, on the last step, submit the order. The model leaves the
// cart alone until checkoutStepMsg arrives.
func (m Model) continueCheckout() tea.Cmd {
	p := m.pipeline
	return func() tea.Msg {
		ctx, cancel := newContext()
		defer cancel()

		handoff, err := p.Continue(ctx)
		return checkoutStepMsg{handoff: handoff, err: err}
	}
}

func (m Model) handleCheckoutKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.checkoutBusy || m.pipeline == nil {
		return m, nil
	}

	if msg.String() == "esc" {
		if err := m.pipeline.Back(); err != nil {
			m.viewState = ViewCart
			m.checkoutForm = nil
			return m, nil
		}
		cmd := m.initCheckoutForm()
		return m, cmd
	}

	return m.updateCheckoutForm(msg)
}

func (m Model) updateCheckoutForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.checkoutForm == nil || m.checkoutBusy {
		return m, nil
	}

	var cmd tea.Cmd
	m.checkoutForm, cmd = updateForm(m.checkoutForm, msg)
	if m.checkoutForm.State != huh.StateCompleted {
		return m, cmd
	}

	m.checkoutBusy = true
	return m, tea.Batch(cmd, m.continueCheckout())
}

func (m Model) handleCheckoutStep(msg checkoutStepMsg) (tea.Model, tea.Cmd) {
	m.checkoutBusy = false
	if m.pipeline == nil {
		return m, nil
	}

	if msg.err != nil {
		text := errorText(msg.err)
		var verr *checkout.ValidationError
		if errors.As(msg.err, &verr) {
			text = capitalize(verr.Error())
		}
		form := m.initCheckoutForm()
		notice := m.notify(text, true)
		return m, tea.Batch(form, notice)
	}

	if msg.handoff != nil {
		m.lastOrder = &msg.handoff.Order
		m.handoffURL = msg.handoff.URL
		m.pipeline = nil
		m.checkoutForm = nil
		m.cartIdx = 0
		m.viewState = ViewOrderConfirmation
		return m, nil
	}

	form := m.initCheckoutForm()
	if text := m.pipeline.Notice(); text != "" {
		notice := m.notify(text, true)
		return m, tea.Batch(form, notice)
	}
	return m, form
}

func (m Model) handleOrderConfirmationKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter", "esc", "q":
		m.viewState = ViewProductList
		m.lastOrder = nil
		m.handoffURL = ""
		m.loadingProducts = true
		return m, m.loadProducts()
	}
	return m, nil
}

func (m Model) viewCheckout() string {
	var sb strings.Builder

	sb.WriteString(m.styles.HeaderTitle.Render("Checkout"))
	sb.WriteString("  ")
	sb.WriteString(m.styles.Step.Render(fmt.Sprintf("Step %d of 3: %s", int(m.checkoutStep), m.checkoutStep)))
	sb.WriteString("\n\n")

	if m.checkoutBusy {
		sb.WriteString(m.spinner.View())
		if m.checkoutStep == checkout.StepPayment {
			sb.WriteString(" Placing your order...")
		} else {
			sb.WriteString(" Saving your details...")
		}
		return m.styles.Box.Render(sb.String())
	}

	if m.checkoutForm != nil {
		sb.WriteString(m.checkoutForm.View())
		sb.WriteString("\n")
	}

	if m.pipeline != nil {
		sb.WriteString(m.renderSummary(m.pipeline.Summary(), false))
		sb.WriteString("\n")
	}

	sb.WriteString(m.styles.HelpBar.Render("esc back • tab next field • enter continue"))
	return m.styles.Box.Render(sb.String())
}

func (m Model) viewOrderConfirmation() string {
	if m.lastOrder == nil {
		return "No order to show"
	}

	var sb strings.Builder
	o := m.lastOrder
	f := o.FormData

	sb.WriteString(m.styles.Success.Render("✓ Order " + o.OrderNumber + " is ready"))
	sb.WriteString("  ")
	sb.WriteString(m.styles.Subtle.Render(o.Date.Local().Format("Jan 2, 2006 15:04")))
	sb.WriteString("\n\n")

	sb.WriteString(m.styles.Subtle.Render("Items:"))
	sb.WriteString("\n")
	for _, it := range o.Items {
		name := it.Name
		if v := it.Variant(); v != "" {
			name += " (" + v + ")"
		}
		fmt.Fprintf(&sb, "  • %s x%d = %s\n", name, it.Quantity, m.money(it.LineTotal()))
	}
	sb.WriteString(m.renderSummary(o.Summary, false))
	sb.WriteString("\n\n")

	sb.WriteString(m.styles.Subtle.Render("Ship to:"))
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "  %s\n  %s\n  %s, %s %s\n  %s\n", f.FullName(), f.Street, f.City, f.State, f.Zip, f.Country)
	fmt.Fprintf(&sb, "  Payment: %s\n\n", f.PaymentMethod)

	sb.WriteString(m.styles.Highlight.Render("Send the order on WhatsApp to confirm it:"))
	sb.WriteString("\n")
	sb.WriteString(hyperlink(m.handoffURL, m.handoffURL))
	sb.WriteString("\n")

	sb.WriteString(m.styles.HelpBar.Render("enter continue shopping"))
	return m.styles.Box.Render(sb.String())
}
