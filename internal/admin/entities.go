// Package admin implements the back-office CRUD panel over the Catalog
// Store tables.
package admin

import "github.com/thomas/mayhem-terminal-go/internal/catalog"

// FieldKind says how a form value is parsed.
type FieldKind int

const (
	KindText FieldKind = iota
	KindNumber
	KindInt
	KindBool
	// KindList is a comma-separated list of strings.
	KindList
)

func (k FieldKind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindInt:
		return "integer"
	case KindBool:
		return "yes/no"
	case KindList:
		return "comma-separated list"
	default:
		return "text"
	}
}

// Field is an editable column.
type Field struct {
	Name     string
	Label    string
	Kind     FieldKind
	Required bool
}

// EntitySpec describes one admin table.
type EntitySpec struct {
	Name         string
	Table        string
	Title        string
	SearchColumn string
	// Columns are shown in the list view, in order.
	Columns []string
	Fields  []Field
}

// Field returns the editable field named name.
func (e EntitySpec) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

var productFields = []Field{
	{Name: "name", Label: "Name", Kind: KindText, Required: true},
	{Name: "description", Label: "Description", Kind: KindText},
	{Name: "price", Label: "Price", Kind: KindNumber, Required: true},
	{Name: "image", Label: "Image URL", Kind: KindText},
	{Name: "category", Label: "Category", Kind: KindText},
	{Name: "brand", Label: "Brand", Kind: KindText},
	{Name: "sizes", Label: "Sizes", Kind: KindList},
	{Name: "colors", Label: "Colors", Kind: KindList},
	{Name: "stock_quantity", Label: "Stock", Kind: KindInt, Required: true},
	{Name: "active", Label: "Active", Kind: KindBool},
	{Name: "sold_out", Label: "Sold out", Kind: KindBool},
}

var productColumns = []string{"id", "name", "price", "category", "stock_quantity", "active", "sold_out"}

func productEntity(table, title string) EntitySpec {
	return EntitySpec{
		Name:         table,
		Table:        table,
		Title:        title,
		SearchColumn: "name",
		Columns:      productColumns,
		Fields:       productFields,
	}
}

// Entities is the registry of admin tables, in menu order.
var Entities = []EntitySpec{
	productEntity(catalog.TableProducts, "Products"),
	productEntity(catalog.TableNewArrivals, "New Arrivals"),
	productEntity(catalog.TableFeaturedCollection, "Featured"),
	{
		Name:         catalog.TableCollections,
		Table:        catalog.TableCollections,
		Title:        "Collections",
		SearchColumn: "name",
		Columns:      []string{"id", "name", "price", "stock_quantity", "active", "sold_out"},
		Fields: []Field{
			{Name: "name", Label: "Name", Kind: KindText, Required: true},
			{Name: "description", Label: "Description", Kind: KindText},
			{Name: "price", Label: "Price", Kind: KindNumber, Required: true},
			{Name: "images", Label: "Image URLs", Kind: KindList},
			{Name: "sizes", Label: "Sizes", Kind: KindList},
			{Name: "stock_quantity", Label: "Stock", Kind: KindInt, Required: true},
			{Name: "active", Label: "Active", Kind: KindBool},
			{Name: "sold_out", Label: "Sold out", Kind: KindBool},
		},
	},
	{
		Name:         catalog.TableOrders,
		Table:        catalog.TableOrders,
		Title:        "Orders",
		SearchColumn: "customer_email",
		Columns:      []string{"id", "order_number", "customer_name", "customer_email", "total", "status"},
		Fields: []Field{
			{Name: "order_number", Label: "Order number", Kind: KindText, Required: true},
			{Name: "customer_name", Label: "Customer", Kind: KindText},
			{Name: "customer_email", Label: "Email", Kind: KindText},
			{Name: "total", Label: "Total", Kind: KindNumber, Required: true},
			{Name: "status", Label: "Status", Kind: KindText},
		},
	},
	{
		Name:         catalog.TableCustomers,
		Table:        catalog.TableCustomers,
		Title:        "Customers",
		SearchColumn: "email",
		Columns:      []string{"id", "first_name", "last_name", "email", "phone", "city", "country"},
		Fields: []Field{
			{Name: "first_name", Label: "First name", Kind: KindText},
			{Name: "last_name", Label: "Last name", Kind: KindText},
			{Name: "email", Label: "Email", Kind: KindText, Required: true},
			{Name: "phone", Label: "Phone", Kind: KindText},
			{Name: "address", Label: "Street", Kind: KindText},
			{Name: "city", Label: "City", Kind: KindText},
			{Name: "state", Label: "State", Kind: KindText},
			{Name: "zip", Label: "Zip", Kind: KindText},
			{Name: "country", Label: "Country", Kind: KindText},
		},
	},
	{
		Name:         catalog.TableBrands,
		Table:        catalog.TableBrands,
		Title:        "Brands",
		SearchColumn: "name",
		Columns:      []string{"id", "name", "active"},
		Fields: []Field{
			{Name: "name", Label: "Name", Kind: KindText, Required: true},
			{Name: "logo", Label: "Logo URL", Kind: KindText},
			{Name: "active", Label: "Active", Kind: KindBool},
		},
	},
	{
		Name:         catalog.TableCategories,
		Table:        catalog.TableCategories,
		Title:        "Categories",
		SearchColumn: "name",
		Columns:      []string{"id", "name", "slug"},
		Fields: []Field{
			{Name: "name", Label: "Name", Kind: KindText, Required: true},
			{Name: "slug", Label: "Slug", Kind: KindText},
		},
	},
	{
		Name:         catalog.TableCoupons,
		Table:        catalog.TableCoupons,
		Title:        "Coupons",
		SearchColumn: "code",
		Columns:      []string{"id", "code", "discount", "description", "active"},
		Fields: []Field{
			{Name: "code", Label: "Code", Kind: KindText, Required: true},
			{Name: "discount", Label: "Discount %", Kind: KindNumber, Required: true},
			{Name: "description", Label: "Description", Kind: KindText},
			{Name: "active", Label: "Active", Kind: KindBool},
		},
	},
	{
		Name:         catalog.TableCurrencies,
		Table:        catalog.TableCurrencies,
		Title:        "Currencies",
		SearchColumn: "code",
		Columns:      []string{"id", "code", "symbol", "rate", "is_default"},
		Fields: []Field{
			{Name: "code", Label: "Code", Kind: KindText, Required: true},
			{Name: "symbol", Label: "Symbol", Kind: KindText, Required: true},
			{Name: "rate", Label: "Rate", Kind: KindNumber, Required: true},
			{Name: "is_default", Label: "Default", Kind: KindBool},
		},
	},
}

// Lookup returns the entity named name.
func Lookup(name string) (EntitySpec, bool) {
	for _, e := range Entities {
		if e.Name == name {
			return e, true
		}
	}
	return EntitySpec{}, false
}
