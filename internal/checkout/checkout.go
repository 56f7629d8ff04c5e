// Package checkout implements the three-step checkout that ends in a
// WhatsApp hand-off instead of a payment.
package checkout

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/thomas/mayhem-terminal-go/internal/cart"
	"github.com/thomas/mayhem-terminal-go/internal/catalog"
	"github.com/thomas/mayhem-terminal-go/internal/pricing"
	"github.com/thomas/mayhem-terminal-go/internal/storage"
)

var (
	// ErrEmptyCart blocks checkout before the first step.
	ErrEmptyCart = errors.New("your cart is empty")

	ErrNoPreviousStep   = errors.New("no previous step")
	ErrAlreadySubmitted = errors.New("order already submitted")
	ErrNotAtPayment     = errors.New("order can only be submitted from the payment step")
)

// Step is a checkout stage.
type Step int

const (
	StepContact Step = iota + 1
	StepAddress
	StepPayment
	StepSubmitted
)

func (s Step) String() string {
	switch s {
	case StepContact:
		return "contact information"
	case StepAddress:
		return "shipping address"
	case StepPayment:
		return "payment"
	case StepSubmitted:
		return "submitted"
	default:
		return fmt.Sprintf("step %d", int(s))
	}
}

// CustomerSaver persists checkout contacts keyed by email.
type CustomerSaver interface {
	UpsertCustomer(ctx context.Context, c catalog.Customer) (*catalog.Customer, error)
}

// Deps are the collaborators of a checkout.
type Deps struct {
	Cart      *cart.Cart
	Promo     *pricing.Promo
	Customers CustomerSaver
	Bucket    *storage.Bucket
	Logger    *log.Logger

	Rates          pricing.Rates
	CurrencySymbol string
	StoreName      string
	WhatsAppNumber string

	// Optional; default to a random order number and time.Now.
	OrderNumber func() string
	Now         func() time.Time
}

// Handoff is the result of a submitted checkout.
type Handoff struct {
	OrderNumber string
	Message     string
	URL         string
	Order       LastOrder
}

// Pipeline drives one checkout attempt.
type Pipeline struct {
	deps    Deps
	step    Step
	form    Form
	notice  string
	handoff *Handoff
}

// New starts a checkout at the contact step. It fails with ErrEmptyCart
// when there is nothing to buy.
func New(deps Deps) (*Pipeline, error) {
	if deps.Cart == nil || deps.Cart.IsEmpty() {
		return nil, ErrEmptyCart
	}
	if deps.OrderNumber == nil {
		deps.OrderNumber = RandomOrderNumber
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Pipeline{deps: deps, step: StepContact}, nil
}

// RandomOrderNumber returns "MH-" followed by six random digits.
func RandomOrderNumber() string {
	return fmt.Sprintf("MH-%06d", 100000+rand.IntN(900000))
}

// Step returns the current step.
func (p *Pipeline) Step() Step {
	return p.step
}

// Form returns the form for editing in place.
func (p *Pipeline) Form() *Form {
	return &p.form
}

// Notice returns the last non-blocking problem, such as a failed contact
// save. It is cleared when the next save succeeds.
func (p *Pipeline) Notice() string {
	return p.notice
}

// Summary prices the cart as it is now.
func (p *Pipeline) Summary() pricing.Summary {
	return pricing.Compute(p.deps.Cart.Items(), p.deps.Promo, p.deps.Rates)
}

// Handoff returns the submitted result, or nil before submission.
func (p *Pipeline) Handoff() *Handoff {
	return p.handoff
}

// Continue validates the current step and moves forward. Leaving the contact
// step saves the contact. On the payment step it submits.
func (p *Pipeline) Continue(ctx context.Context) (*Handoff, error) {
	switch p.step {
	case StepSubmitted:
		return nil, ErrAlreadySubmitted
	case StepPayment:
		return p.Submit(ctx)
	}

	if err := p.form.Validate(p.step); err != nil {
		return nil, err
	}
	if p.step == StepContact {
		p.saveCustomer(ctx)
	}
	p.step++
	return nil, nil
}

// Back returns to the previous step without validating.
func (p *Pipeline) Back() error {
	switch p.step {
	case StepAddress, StepPayment:
		p.step--
		return nil
	case StepSubmitted:
		return ErrAlreadySubmitted
	default:
		return ErrNoPreviousStep
	}
}

// Submit places the order: it saves the contact, snapshots the cart as the
// last order, empties the cart and promo, and builds the WhatsApp link.
func (p *Pipeline) Submit(ctx context.Context) (*Handoff, error) {
	switch p.step {
	case StepSubmitted:
		return nil, ErrAlreadySubmitted
	case StepPayment:
	default:
		return nil, ErrNotAtPayment
	}

	for _, s := range []Step{StepContact, StepAddress, StepPayment} {
		if err := p.form.Validate(s); err != nil {
			return nil, err
		}
	}

	p.saveCustomer(ctx)

	items := p.deps.Cart.Items()
	summary := p.Summary()
	number := p.deps.OrderNumber()

	order := LastOrder{
		ID:          uuid.NewString(),
		OrderNumber: number,
		Items:       items,
		Total:       summary.Total,
		Summary:     summary,
		FormData:    p.form,
		Date:        p.deps.Now().UTC(),
	}
	msg := FormatMessage(p.deps.StoreName, p.deps.CurrencySymbol, order)

	if err := SaveLastOrder(ctx, p.deps.Bucket, order); err != nil {
		return nil, err
	}

	logger := p.deps.Logger.With("order", number)
	if err := p.deps.Cart.Clear(ctx); err != nil {
		logger.Error("clearing cart after order", "err", err)
	}
	if p.deps.Promo != nil {
		p.deps.Promo.Remove()
	}

	p.handoff = &Handoff{
		OrderNumber: number,
		Message:     msg,
		URL:         DeepLink(p.deps.WhatsAppNumber, msg),
		Order:       order,
	}
	p.step = StepSubmitted
	logger.Info("order handed off", "items", len(items), "total", summary.Total)
	return p.handoff, nil
}

// saveCustomer upserts the contact. Failures never block checkout.
func (p *Pipeline) saveCustomer(ctx context.Context) {
	if p.deps.Customers == nil {
		return
	}
	if _, err := p.deps.Customers.UpsertCustomer(ctx, p.form.Customer()); err != nil {
		p.deps.Logger.Warn("saving checkout contact", "email", p.form.Email, "err", err)
		p.notice = "We couldn't save your details, but you can still place your order."
		return
	}
	p.notice = ""
}
