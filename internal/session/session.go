// Package session holds the per-connection state of one shopper: their
// cart, wishlist, promo code and admin login, all bound to the storage
// namespace of their SSH key.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/thomas/mayhem-terminal-go/internal/auth"
	"github.com/thomas/mayhem-terminal-go/internal/cart"
	"github.com/thomas/mayhem-terminal-go/internal/checkout"
	"github.com/thomas/mayhem-terminal-go/internal/pricing"
	"github.com/thomas/mayhem-terminal-go/internal/storage"
	"github.com/thomas/mayhem-terminal-go/internal/wishlist"
)

// ErrNoNamespace is returned when a session is opened without a shopper key.
var ErrNoNamespace = errors.New("session: namespace required")

// Options are the process-wide collaborators shared by every session.
type Options struct {
	Store     storage.Store
	Promos    pricing.PromoTable
	Admin     auth.Provider
	Customers checkout.CustomerSaver
	Logger    *log.Logger

	Rates          pricing.Rates
	CurrencySymbol string
	StoreName      string
	WhatsAppNumber string
}

// Session is one connected shopper.
type Session struct {
	ID        string
	Namespace string
	StartedAt time.Time

	Bucket   *storage.Bucket
	Cart     *cart.Cart
	Wishlist *wishlist.Wishlist
	Promo    *pricing.Promo
	Admin    *auth.Guard
	Logger   *log.Logger

	opts Options
}

// Open loads the shopper's saved state from namespace. The cart is loaded
// before anything can mutate it.
func Open(ctx context.Context, namespace string, opts Options) (*Session, error) {
	if namespace == "" {
		return nil, ErrNoNamespace
	}
	if opts.Promos == nil {
		opts.Promos = pricing.DefaultPromoCodes()
	}

	id := uuid.NewString()
	logger := opts.Logger.With("session", id[:8])
	bucket := storage.NewBucket(opts.Store, namespace)

	s := &Session{
		ID:        id,
		Namespace: namespace,
		StartedAt: time.Now(),
		Bucket:    bucket,
		Cart:      cart.Open(ctx, bucket, logger.WithPrefix("cart")),
		Wishlist:  wishlist.Open(ctx, bucket, logger.WithPrefix("wishlist")),
		Promo:     pricing.NewPromo(opts.Promos),
		Admin:     auth.NewGuard(opts.Admin, bucket, logger.WithPrefix("admin")),
		Logger:    logger,
		opts:      opts,
	}
	logger.Debug("session opened", "namespace", namespace, "cart_lines", s.Cart.Len())
	return s, nil
}

// Rates returns the pricing rates in effect.
func (s *Session) Rates() pricing.Rates {
	return s.opts.Rates
}

// CurrencySymbol returns the display currency symbol.
func (s *Session) CurrencySymbol() string {
	return s.opts.CurrencySymbol
}

// Summary prices the cart with the active promo.
func (s *Session) Summary() pricing.Summary {
	return pricing.Compute(s.Cart.Items(), s.Promo, s.opts.Rates)
}

// FormatMoney formats v in the session currency.
func (s *Session) FormatMoney(v float64) string {
	return pricing.FormatMoney(s.opts.CurrencySymbol, v)
}

// StartCheckout begins a checkout over the session cart. It returns
// checkout.ErrEmptyCart when the cart is empty.
func (s *Session) StartCheckout() (*checkout.Pipeline, error) {
	return checkout.New(checkout.Deps{
		Cart:           s.Cart,
		Promo:          s.Promo,
		Customers:      s.opts.Customers,
		Bucket:         s.Bucket,
		Logger:         s.Logger.WithPrefix("checkout"),
		Rates:          s.opts.Rates,
		CurrencySymbol: s.opts.CurrencySymbol,
		StoreName:      s.opts.StoreName,
		WhatsAppNumber: s.opts.WhatsAppNumber,
	})
}

// StoreName returns the configured store name.
func (s *Session) StoreName() string {
	return s.opts.StoreName
}

// HandoffLink rebuilds the WhatsApp link of a stored order.
func (s *Session) HandoffLink(order checkout.LastOrder) string {
	msg := checkout.FormatMessage(s.opts.StoreName, s.opts.CurrencySymbol, order)
	return checkout.DeepLink(s.opts.WhatsAppNumber, msg)
}

// LastOrder returns the most recent order snapshot.
func (s *Session) LastOrder(ctx context.Context) (*checkout.LastOrder, error) {
	return checkout.LoadLastOrder(ctx, s.Bucket)
}

// Close ends the session. Stored state is kept for the next connection;
// only the in-memory promo is dropped.
func (s *Session) Close() {
	s.Promo.Remove()
	s.Logger.Debug("session closed", "duration", time.Since(s.StartedAt).Round(time.Second))
}
