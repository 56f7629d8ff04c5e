package checkout

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomas/mayhem-terminal-go/internal/cart"
	"github.com/thomas/mayhem-terminal-go/internal/catalog"
	"github.com/thomas/mayhem-terminal-go/internal/logging"
	"github.com/thomas/mayhem-terminal-go/internal/pricing"
	"github.com/thomas/mayhem-terminal-go/internal/storage"
)

// fakeCustomers merges upserts by email the way the Catalog Store does.
type fakeCustomers struct {
	mu    sync.Mutex
	rows  map[string]catalog.Customer
	calls int
	err   error
}

func newFakeCustomers() *fakeCustomers {
	return &fakeCustomers{rows: make(map[string]catalog.Customer)}
}

func (f *fakeCustomers) UpsertCustomer(_ context.Context, c catalog.Customer) (*catalog.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	key := strings.ToLower(c.Email)
	existing := f.rows[key]
	merge := func(dst *string, v string) {
		if v != "" {
			*dst = v
		}
	}
	merge(&existing.FirstName, c.FirstName)
	merge(&existing.LastName, c.LastName)
	merge(&existing.Phone, c.Phone)
	merge(&existing.Address, c.Address)
	merge(&existing.City, c.City)
	merge(&existing.State, c.State)
	merge(&existing.Zip, c.Zip)
	merge(&existing.Country, c.Country)
	existing.Email = key
	f.rows[key] = existing
	return &existing, nil
}

var (
	shirt  = catalog.Product{ID: "1", Name: "Sacred Tee", Price: 100, Category: "Tops", StockQuantity: 10}
	beanie = catalog.Product{ID: "2", Name: "Chaos Beanie", Price: 1, Category: "Accessories", StockQuantity: 10}
)

type fixture struct {
	bucket    *storage.Bucket
	cart      *cart.Cart
	promo     *pricing.Promo
	customers *fakeCustomers
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	bucket := storage.NewBucket(storage.NewMemory(), "SHA256:shopper")
	return &fixture{
		bucket:    bucket,
		cart:      cart.Open(context.Background(), bucket, logging.Discard()),
		promo:     pricing.NewPromo(pricing.DefaultPromoCodes()),
		customers: newFakeCustomers(),
	}
}

func (fx *fixture) deps() Deps {
	return Deps{
		Cart:           fx.cart,
		Promo:          fx.promo,
		Customers:      fx.customers,
		Bucket:         fx.bucket,
		Logger:         logging.Discard(),
		Rates:          pricing.DefaultRates(),
		CurrencySymbol: "$",
		StoreName:      "Mayhem",
		WhatsAppNumber: "+1 (555) 010-0200",
		OrderNumber:    func() string { return "MH-123456" },
		Now:            func() time.Time { return time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC) },
	}
}

func fillContact(f *Form, email string) {
	f.FirstName = "Jane"
	f.LastName = "Doe"
	f.Email = email
	f.Phone = "555-0101"
}

func fillAddress(f *Form, street string) {
	f.Street = street
	f.City = "Springfield"
	f.State = "IL"
	f.Zip = "62704"
	f.Country = "USA"
}

func runCheckout(t *testing.T, fx *fixture, email, street string) *Handoff {
	t.Helper()
	ctx := context.Background()

	p, err := New(fx.deps())
	require.NoError(t, err)

	fillContact(p.Form(), email)
	_, err = p.Continue(ctx)
	require.NoError(t, err)

	fillAddress(p.Form(), street)
	_, err = p.Continue(ctx)
	require.NoError(t, err)

	p.Form().PaymentMethod = PaymentMethods[0]
	h, err := p.Continue(ctx)
	require.NoError(t, err)
	require.NotNil(t, h)
	return h
}

func TestEmptyCartGuard(t *testing.T) {
	fx := newFixture(t)

	p, err := New(fx.deps())
	assert.Nil(t, p)
	assert.ErrorIs(t, err, ErrEmptyCart)
	assert.Zero(t, fx.customers.calls)
}

func TestStepValidation(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	require.NoError(t, fx.cart.AddItem(ctx, shirt, 1, "M", ""))

	p, err := New(fx.deps())
	require.NoError(t, err)
	assert.Equal(t, StepContact, p.Step())

	p.Form().FirstName = "Jane"
	p.Form().Email = "not-an-email"
	_, err = p.Continue(ctx)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr), "expected ValidationError, got %v", err)
	assert.Equal(t, StepContact, verr.Step)
	assert.True(t, verr.Has("lastName"))
	assert.True(t, verr.Has("phone"))
	assert.True(t, verr.Has("email"))
	assert.False(t, verr.Has("firstName"))
	assert.Equal(t, StepContact, p.Step(), "failed validation keeps the step")
	assert.Zero(t, fx.customers.calls)
}

func TestBackKeepsFormData(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	require.NoError(t, fx.cart.AddItem(ctx, shirt, 1, "M", ""))

	p, err := New(fx.deps())
	require.NoError(t, err)
	assert.ErrorIs(t, p.Back(), ErrNoPreviousStep)

	fillContact(p.Form(), "jane@example.com")
	_, err = p.Continue(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepAddress, p.Step())

	require.NoError(t, p.Back())
	assert.Equal(t, StepContact, p.Step())
	assert.Equal(t, "Jane", p.Form().FirstName)

	_, err = p.Submit(ctx)
	assert.ErrorIs(t, err, ErrNotAtPayment)
}

func TestLeavingContactStepSavesCustomer(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	require.NoError(t, fx.cart.AddItem(ctx, shirt, 1, "", ""))

	p, err := New(fx.deps())
	require.NoError(t, err)
	fillContact(p.Form(), "Jane@Example.com")
	_, err = p.Continue(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, fx.customers.calls)
	saved := fx.customers.rows["jane@example.com"]
	assert.Equal(t, "Jane", saved.FirstName)
	assert.Empty(t, saved.Address)
}

func TestUpsertFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	fx.customers.err = errors.New("backend down")
	require.NoError(t, fx.cart.AddItem(ctx, shirt, 1, "", ""))

	p, err := New(fx.deps())
	require.NoError(t, err)
	fillContact(p.Form(), "jane@example.com")
	_, err = p.Continue(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepAddress, p.Step())
	assert.NotEmpty(t, p.Notice())
}

func TestCheckoutUpsertKey(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	require.NoError(t, fx.cart.AddItem(ctx, shirt, 1, "", ""))
	runCheckout(t, fx, "jane@example.com", "1 First St")

	require.NoError(t, fx.cart.AddItem(ctx, shirt, 1, "", ""))
	runCheckout(t, fx, "JANE@example.com", "2 Second Ave")

	require.Len(t, fx.customers.rows, 1)
	assert.Equal(t, "2 Second Ave", fx.customers.rows["jane@example.com"].Address)
	assert.Equal(t, 4, fx.customers.calls, "leaving contact and submitting both save")
}

func TestSubmitHandoff(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)

	require.NoError(t, fx.cart.AddItem(ctx, shirt, 2, "M", "Black"))
	require.NoError(t, fx.cart.AddItem(ctx, beanie, 1, "", ""))
	require.NoError(t, fx.promo.Apply("MAYHEM10"))

	h := runCheckout(t, fx, "jane@example.com", "1 Main St")

	assert.Equal(t, "MH-123456", h.OrderNumber)
	assert.True(t, fx.cart.IsEmpty())
	assert.False(t, fx.promo.Active())

	assert.True(t, strings.HasPrefix(h.URL, "https://wa.me/15550100200?text="), h.URL)
	u, err := url.Parse(h.URL)
	require.NoError(t, err)
	assert.Equal(t, h.Message, u.Query().Get("text"))
	assert.NotContains(t, h.URL, "+")

	order, err := LoadLastOrder(ctx, fx.bucket)
	require.NoError(t, err)
	assert.Equal(t, "MH-123456", order.OrderNumber)
	assert.Len(t, order.Items, 2)
	assert.InDelta(t, h.Order.Total, order.Total, 1e-9)
	assert.Equal(t, "Jane", order.FormData.FirstName)
	assert.NotEmpty(t, order.ID)

	// subtotal 201, discount 20.10, free shipping, tax 14.472
	assert.InDelta(t, 195.372, order.Total, 1e-9)
}

func TestSubmitTwiceFails(t *testing.T) {
	ctx := context.Background()
	fx := newFixture(t)
	require.NoError(t, fx.cart.AddItem(ctx, shirt, 1, "", ""))

	p, err := New(fx.deps())
	require.NoError(t, err)
	fillContact(p.Form(), "jane@example.com")
	fillAddress(p.Form(), "1 Main St")
	p.Form().PaymentMethod = "Bank transfer"

	_, err = p.Continue(ctx)
	require.NoError(t, err)
	_, err = p.Continue(ctx)
	require.NoError(t, err)
	_, err = p.Continue(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepSubmitted, p.Step())
	assert.NotNil(t, p.Handoff())

	_, err = p.Continue(ctx)
	assert.ErrorIs(t, err, ErrAlreadySubmitted)
	assert.ErrorIs(t, p.Back(), ErrAlreadySubmitted)
}

func TestPaymentMethodValidation(t *testing.T) {
	f := Form{PaymentMethod: "Crypto"}
	err := f.Validate(StepPayment)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.True(t, verr.Has("paymentMethod"))
	assert.NoError(t, (&Form{PaymentMethod: "Cash on delivery"}).Validate(StepPayment))
}

func TestRandomOrderNumber(t *testing.T) {
	for i := 0; i < 50; i++ {
		n := RandomOrderNumber()
		require.Len(t, n, 9)
		assert.True(t, strings.HasPrefix(n, "MH-"))
	}
}
