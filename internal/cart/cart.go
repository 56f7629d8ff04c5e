// Package cart keeps a shopper's line items in memory and mirrors every
// change into their storage bucket.
package cart

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/thomas/mayhem-terminal-go/internal/catalog"
	"github.com/thomas/mayhem-terminal-go/internal/storage"
)

var (
	// ErrStockLimit is returned when an add would take a line past the
	// product's stock. The cart is left unchanged.
	ErrStockLimit = errors.New("stock limit reached")

	// ErrSoldOut is returned when adding a product that cannot be bought.
	ErrSoldOut = errors.New("product is sold out")

	// ErrItemNotFound is returned when no line matches the given key.
	ErrItemNotFound = errors.New("item not in cart")
)

// LineItem is one cart row. The JSON field names are the persisted format.
type LineItem struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Image         string  `json:"image"`
	Quantity      int     `json:"quantity"`
	SelectedSize  string  `json:"selectedSize,omitempty"`
	SelectedColor string  `json:"selectedColor,omitempty"`
	Category      string  `json:"category"`
}

// Key identifies a line: the same product in another size or color is a
// separate line.
type Key struct {
	ID    string
	Size  string
	Color string
}

// Key returns the line's identity.
func (li LineItem) Key() Key {
	return Key{ID: li.ID, Size: li.SelectedSize, Color: li.SelectedColor}
}

// LineTotal returns price × quantity.
func (li LineItem) LineTotal() float64 {
	return li.Price * float64(li.Quantity)
}

// Variant describes the selected size and color, e.g. "Size: M, Color: Black".
func (li LineItem) Variant() string {
	var parts []string
	if li.SelectedSize != "" {
		parts = append(parts, "Size: "+li.SelectedSize)
	}
	if li.SelectedColor != "" {
		parts = append(parts, "Color: "+li.SelectedColor)
	}
	return strings.Join(parts, ", ")
}

// Cart is the authoritative list of line items for one shopper.
// It is not safe for concurrent use; each SSH session owns its cart.
type Cart struct {
	bucket  *storage.Bucket
	logger  *log.Logger
	items   []LineItem
	version int64
}

// Open loads the shopper's saved cart. A missing or unreadable snapshot
// yields an empty cart.
func Open(ctx context.Context, bucket *storage.Bucket, logger *log.Logger) *Cart {
	c := &Cart{
		bucket: bucket,
		logger: logger,
		items:  []LineItem{},
	}

	var items []LineItem
	switch err := bucket.GetJSON(ctx, storage.KeyCart, &items); {
	case err == nil:
		c.items = sanitize(items)
	case errors.Is(err, storage.ErrNotFound):
	default:
		logger.Warn("cart snapshot unreadable, starting empty", "namespace", bucket.Namespace(), "err", err)
	}

	c.version = c.storedVersion(ctx)
	return c
}

// sanitize drops rows that could not have been written by this package.
func sanitize(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		if it.ID == "" || it.Quantity < 1 {
			continue
		}
		out = append(out, it)
	}
	return out
}

// ============================================
// Mutations
// ============================================

// AddItem adds quantity of product in the given variant. An existing line
// with the same key is incremented, otherwise a new line is appended.
func (c *Cart) AddItem(ctx context.Context, p catalog.Product, quantity int, size, color string) error {
	if p.SoldOut {
		return fmt.Errorf("%s: %w", p.Name, ErrSoldOut)
	}
	if quantity < 1 {
		quantity = 1
	}

	key := Key{ID: string(p.ID), Size: size, Color: color}
	idx := c.index(key)

	current := 0
	if idx >= 0 {
		current = c.items[idx].Quantity
	}
	if current+quantity > p.StockQuantity {
		if current == 0 && p.StockQuantity <= 0 {
			return fmt.Errorf("%s: %w", p.Name, ErrSoldOut)
		}
		return fmt.Errorf("%s (%d in stock): %w", p.Name, p.StockQuantity, ErrStockLimit)
	}

	next := slices.Clone(c.items)
	if idx >= 0 {
		next[idx].Quantity += quantity
	} else {
		next = append(next, LineItem{
			ID:            string(p.ID),
			Name:          p.Name,
			Price:         p.Price,
			Image:         p.PrimaryImage(),
			Quantity:      quantity,
			SelectedSize:  size,
			SelectedColor: color,
			Category:      p.Category,
		})
	}
	return c.persist(ctx, next)
}

// UpdateQuantity sets the quantity of the line with key in place. Zero
// removes the line; negative values clamp to 1.
func (c *Cart) UpdateQuantity(ctx context.Context, key Key, quantity int) error {
	if quantity == 0 {
		return c.RemoveItem(ctx, key)
	}
	if quantity < 0 {
		quantity = 1
	}

	idx := c.index(key)
	if idx < 0 {
		return ErrItemNotFound
	}
	next := slices.Clone(c.items)
	next[idx].Quantity = quantity
	return c.persist(ctx, next)
}

// RemoveItem deletes the line with key. Other lines keep their order.
func (c *Cart) RemoveItem(ctx context.Context, key Key) error {
	idx := c.index(key)
	if idx < 0 {
		return ErrItemNotFound
	}
	return c.persist(ctx, slices.Delete(slices.Clone(c.items), idx, idx+1))
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	return c.persist(ctx, []LineItem{})
}

// persist writes next as the full list and only then makes it the cart's
// lines, so a failed write leaves the cart as it was. The version stamp is
// bumped afterwards. A stamp newer than the one this cart last saw means
// another session wrote in between; that write is overwritten.
func (c *Cart) persist(ctx context.Context, next []LineItem) error {
	stored := c.storedVersion(ctx)
	if stored > c.version {
		c.logger.Warn("concurrent cart write, overwriting",
			"namespace", c.bucket.Namespace(), "seen", c.version, "stored", stored)
	}

	if err := c.bucket.PutJSON(ctx, storage.KeyCart, next); err != nil {
		return fmt.Errorf("saving cart: %w", err)
	}
	c.items = next

	version := max(stored, c.version) + 1
	if err := c.bucket.PutJSON(ctx, storage.KeyCartVersion, version); err != nil {
		// The lines are saved; only concurrent write detection suffers.
		c.logger.Warn("cart version not saved", "namespace", c.bucket.Namespace(), "err", err)
		return nil
	}
	c.version = version
	return nil
}

func (c *Cart) storedVersion(ctx context.Context) int64 {
	var v int64
	err := c.bucket.GetJSON(ctx, storage.KeyCartVersion, &v)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		c.logger.Debug("cart version unreadable", "err", err)
	}
	return v
}

// ============================================
// Queries
// ============================================

// Items returns a copy of the lines in insertion order.
func (c *Cart) Items() []LineItem {
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Find returns the line with key.
func (c *Cart) Find(key Key) (LineItem, bool) {
	if idx := c.index(key); idx >= 0 {
		return c.items[idx], true
	}
	return LineItem{}, false
}

// Len returns the number of distinct lines.
func (c *Cart) Len() int {
	return len(c.items)
}

// ItemCount returns the total quantity across all lines.
func (c *Cart) ItemCount() int {
	n := 0
	for _, it := range c.items {
		n += it.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// Version returns the stamp of the last write this cart made or loaded.
func (c *Cart) Version() int64 {
	return c.version
}

func (c *Cart) index(key Key) int {
	for i := range c.items {
		if c.items[i].Key() == key {
			return i
		}
	}
	return -1
}
