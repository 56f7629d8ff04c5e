// Package catalog provides a client for the hosted Catalog Store (Supabase
// PostgREST) and the entity types it serves.
package catalog

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Table names.
const (
	TableProducts           = "products"
	TableNewArrivals        = "new_arrivals"
	TableFeaturedCollection = "featured_collection"
	TableCollections        = "collections"
	TableCustomers          = "customers"
	TableOrders             = "orders"
	TableBrands             = "brands"
	TableCategories         = "categories"
	TableCoupons            = "coupons"
	TableCurrencies         = "currencies"
)

// ErrMalformedRow wraps validation failures of rows read from the store.
var ErrMalformedRow = errors.New("catalog: malformed row")

// ID is a row identifier. Supabase tables use either integer or uuid keys,
// so both JSON numbers and strings decode into it.
type ID string

func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*id = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return fmt.Errorf("id: %w", err)
		}
		*id = ID(n.String())
		return nil
	}
}

func (id ID) String() string { return string(id) }

func malformed(table string, id ID, reason string) error {
	return fmt.Errorf("%w: %s row %q: %s", ErrMalformedRow, table, id, reason)
}

// ============================================
// Storefront entities
// ============================================

// Product is a purchasable item. The products, new_arrivals and
// featured_collection tables share this schema.
type Product struct {
	ID            ID        `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	Image         string    `json:"image"`
	Images        []string  `json:"images,omitempty"`
	Category      string    `json:"category"`
	Brand         string    `json:"brand,omitempty"`
	Sizes         []string  `json:"sizes,omitempty"`
	Colors        []string  `json:"colors,omitempty"`
	Active        bool      `json:"active"`
	SoldOut       bool      `json:"sold_out"`
	StockQuantity int       `json:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks the fields the storefront depends on.
func (p *Product) Validate(table string) error {
	switch {
	case p.ID == "":
		return malformed(table, p.ID, "missing id")
	case p.Name == "":
		return malformed(table, p.ID, "missing name")
	case p.Price < 0:
		return malformed(table, p.ID, "negative price")
	case p.StockQuantity < 0:
		return malformed(table, p.ID, "negative stock")
	}
	return nil
}

// IsAvailable reports whether the product can be added to a cart.
func (p *Product) IsAvailable() bool {
	return !p.SoldOut && p.StockQuantity > 0
}

// PrimaryImage returns the first image reference.
func (p *Product) PrimaryImage() string {
	if p.Image != "" {
		return p.Image
	}
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return ""
}

// Collection is a curated, purchasable drop shown on the collections page.
type Collection struct {
	ID            ID        `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Price         float64   `json:"price"`
	Images        []string  `json:"images"`
	Sizes         []string  `json:"sizes,omitempty"`
	Active        bool      `json:"active"`
	SoldOut       bool      `json:"sold_out"`
	StockQuantity int       `json:"stock_quantity"`
	CreatedAt     time.Time `json:"created_at"`
}

// Validate checks the fields the storefront depends on.
func (c *Collection) Validate() error {
	switch {
	case c.ID == "":
		return malformed(TableCollections, c.ID, "missing id")
	case c.Name == "":
		return malformed(TableCollections, c.ID, "missing name")
	case c.Price < 0:
		return malformed(TableCollections, c.ID, "negative price")
	}
	return nil
}

// AsProduct converts a collection into the product shape used by the cart.
func (c *Collection) AsProduct() Product {
	p := Product{
		ID:            c.ID,
		Name:          c.Name,
		Description:   c.Description,
		Price:         c.Price,
		Images:        c.Images,
		Category:      "Collection",
		Sizes:         c.Sizes,
		Active:        c.Active,
		SoldOut:       c.SoldOut,
		StockQuantity: c.StockQuantity,
		CreatedAt:     c.CreatedAt,
	}
	if len(c.Images) > 0 {
		p.Image = c.Images[0]
	}
	return p
}

// Customer is a checkout contact, unique by email. Empty fields are omitted
// so an upsert made before the address step leaves a stored address intact.
type Customer struct {
	ID        ID         `json:"id,omitempty"`
	FirstName string     `json:"first_name,omitempty"`
	LastName  string     `json:"last_name,omitempty"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone,omitempty"`
	Address   string     `json:"address,omitempty"`
	City      string     `json:"city,omitempty"`
	State     string     `json:"state,omitempty"`
	Zip       string     `json:"zip,omitempty"`
	Country   string     `json:"country,omitempty"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// Validate checks the natural key.
func (c *Customer) Validate() error {
	if c.Email == "" {
		return malformed(TableCustomers, c.ID, "missing email")
	}
	return nil
}

// ============================================
// Back-office entities
// ============================================

// Order is an order record managed from the admin panel.
type Order struct {
	ID            ID              `json:"id"`
	OrderNumber   string          `json:"order_number"`
	CustomerName  string          `json:"customer_name"`
	CustomerEmail string          `json:"customer_email"`
	Items         json.RawMessage `json:"items,omitempty"`
	Total         float64         `json:"total"`
	Status        string          `json:"status"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate checks the fields shown in the orders table.
func (o *Order) Validate() error {
	switch {
	case o.ID == "":
		return malformed(TableOrders, o.ID, "missing id")
	case o.Total < 0:
		return malformed(TableOrders, o.ID, "negative total")
	}
	return nil
}

// Brand is a product brand.
type Brand struct {
	ID     ID     `json:"id"`
	Name   string `json:"name"`
	Logo   string `json:"logo"`
	Active bool   `json:"active"`
}

// Validate checks the name.
func (b *Brand) Validate() error {
	if b.Name == "" {
		return malformed(TableBrands, b.ID, "missing name")
	}
	return nil
}

// Category is a product category.
type Category struct {
	ID   ID     `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

// Validate checks the name.
func (c *Category) Validate() error {
	if c.Name == "" {
		return malformed(TableCategories, c.ID, "missing name")
	}
	return nil
}

// Coupon is a promo code managed from the admin panel. Discount is a
// percentage between 0 and 100.
type Coupon struct {
	ID          ID      `json:"id"`
	Code        string  `json:"code"`
	Discount    float64 `json:"discount"`
	Description string  `json:"description"`
	Active      bool    `json:"active"`
}

// Validate checks the code and discount range.
func (c *Coupon) Validate() error {
	switch {
	case c.Code == "":
		return malformed(TableCoupons, c.ID, "missing code")
	case c.Discount < 0 || c.Discount > 100:
		return malformed(TableCoupons, c.ID, "discount out of range")
	}
	return nil
}

// Currency is a display currency.
type Currency struct {
	ID        ID      `json:"id"`
	Code      string  `json:"code"`
	Symbol    string  `json:"symbol"`
	Rate      float64 `json:"rate"`
	IsDefault bool    `json:"is_default"`
}

// Validate checks the code and rate.
func (c *Currency) Validate() error {
	switch {
	case c.Code == "":
		return malformed(TableCurrencies, c.ID, "missing code")
	case c.Rate <= 0:
		return malformed(TableCurrencies, c.ID, "rate must be positive")
	}
	return nil
}
