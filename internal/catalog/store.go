package catalog

import (
	"context"
	"fmt"
	"strings"
)

// ProductTables are the storefront tables sharing the Product schema.
var ProductTables = []string{TableProducts, TableNewArrivals, TableFeaturedCollection}

// GetProducts returns the rows of a product-shaped table, newest first.
// Storefront reads pass activeOnly; the admin panel reads everything.
func (c *Client) GetProducts(ctx context.Context, table string, activeOnly bool) ([]Product, error) {
	var products []Product
	q := Query{ActiveOnly: activeOnly, Order: "created_at.desc"}
	if _, err := c.Select(ctx, table, q, &products); err != nil {
		return nil, err
	}
	for i := range products {
		if err := products[i].Validate(table); err != nil {
			return nil, err
		}
	}
	return products, nil
}

// GetProduct returns one row of a product-shaped table.
func (c *Client) GetProduct(ctx context.Context, table, id string) (*Product, error) {
	var p Product
	if err := c.Get(ctx, table, id, &p); err != nil {
		return nil, err
	}
	if err := p.Validate(table); err != nil {
		return nil, err
	}
	return &p, nil
}

// GetCollections returns collections, newest first.
func (c *Client) GetCollections(ctx context.Context, activeOnly bool) ([]Collection, error) {
	var collections []Collection
	q := Query{ActiveOnly: activeOnly, Order: "created_at.desc"}
	if _, err := c.Select(ctx, TableCollections, q, &collections); err != nil {
		return nil, err
	}
	for i := range collections {
		if err := collections[i].Validate(); err != nil {
			return nil, err
		}
	}
	return collections, nil
}

// GetCollection returns one collection.
func (c *Client) GetCollection(ctx context.Context, id string) (*Collection, error) {
	var col Collection
	if err := c.Get(ctx, TableCollections, id, &col); err != nil {
		return nil, err
	}
	if err := col.Validate(); err != nil {
		return nil, err
	}
	return &col, nil
}

// UpsertCustomer saves a checkout contact keyed by email. A second call with
// the same email overwrites the stored contact and address.
func (c *Client) UpsertCustomer(ctx context.Context, customer Customer) (*Customer, error) {
	customer.Email = strings.ToLower(strings.TrimSpace(customer.Email))
	if err := customer.Validate(); err != nil {
		return nil, err
	}

	var saved Customer
	if err := c.Upsert(ctx, TableCustomers, "email", customer, &saved); err != nil {
		return nil, fmt.Errorf("saving customer %s: %w", customer.Email, err)
	}
	return &saved, nil
}

// GetCoupons returns active coupons.
func (c *Client) GetCoupons(ctx context.Context) ([]Coupon, error) {
	var coupons []Coupon
	if _, err := c.Select(ctx, TableCoupons, Query{ActiveOnly: true}, &coupons); err != nil {
		return nil, err
	}
	for i := range coupons {
		if err := coupons[i].Validate(); err != nil {
			return nil, err
		}
	}
	return coupons, nil
}

// GetCategories returns all categories ordered by name.
func (c *Client) GetCategories(ctx context.Context) ([]Category, error) {
	var categories []Category
	if _, err := c.Select(ctx, TableCategories, Query{Order: "name.asc"}, &categories); err != nil {
		return nil, err
	}
	for i := range categories {
		if err := categories[i].Validate(); err != nil {
			return nil, err
		}
	}
	return categories, nil
}
