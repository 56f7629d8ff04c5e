package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/thomas/mayhem-terminal-go/internal/cache"
)

// Storefront is the read side used by shopper sessions: active rows only,
// served from process-wide TTL caches.
type Storefront struct {
	client      *Client
	products    *cache.Cache[string, []Product]
	collections *cache.Cache[string, []Collection]
	categories  *cache.Cache[string, []string]
}

// NewStorefront wraps client with caches of the given TTL. A zero TTL
// disables caching.
func NewStorefront(client *Client, ttl time.Duration) *Storefront {
	return &Storefront{
		client:      client,
		products:    cache.New[string, []Product](ttl),
		collections: cache.New[string, []Collection](ttl),
		categories:  cache.New[string, []string](ttl),
	}
}

// Client returns the underlying client.
func (s *Storefront) Client() *Client {
	return s.client
}

// Products lists the active rows of a product-shaped table.
func (s *Storefront) Products(ctx context.Context, table string) ([]Product, error) {
	return s.products.GetOrLoad(ctx, table, func(ctx context.Context) ([]Product, error) {
		return s.client.GetProducts(ctx, table, true)
	})
}

// Collections lists active collections.
func (s *Storefront) Collections(ctx context.Context) ([]Collection, error) {
	return s.collections.GetOrLoad(ctx, TableCollections, func(ctx context.Context) ([]Collection, error) {
		return s.client.GetCollections(ctx, true)
	})
}

// CategoryNames lists the names of the categories table, alphabetically.
func (s *Storefront) CategoryNames(ctx context.Context) ([]string, error) {
	return s.categories.GetOrLoad(ctx, TableCategories, func(ctx context.Context) ([]string, error) {
		categories, err := s.client.GetCategories(ctx)
		if err != nil {
			return nil, err
		}
		names := make([]string, len(categories))
		for i, c := range categories {
			names[i] = c.Name
		}
		return names, nil
	})
}

// Listing returns the products shown for a listing source. Collections are
// converted to products so they can be carted.
func (s *Storefront) Listing(ctx context.Context, table string) ([]Product, error) {
	if table != TableCollections {
		return s.Products(ctx, table)
	}
	cols, err := s.Collections(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Product, len(cols))
	for i := range cols {
		out[i] = cols[i].AsProduct()
	}
	return out, nil
}

// Product finds one active item of a listing source, checking the cached
// listing before asking the store.
func (s *Storefront) Product(ctx context.Context, table, id string) (*Product, error) {
	if listing, err := s.Listing(ctx, table); err == nil {
		for i := range listing {
			if string(listing[i].ID) == id {
				p := listing[i]
				return &p, nil
			}
		}
	}

	var p *Product
	if table == TableCollections {
		col, err := s.client.GetCollection(ctx, id)
		if err != nil {
			return nil, err
		}
		cp := col.AsProduct()
		p = &cp
	} else {
		var err error
		if p, err = s.client.GetProduct(ctx, table, id); err != nil {
			return nil, err
		}
	}
	if !p.Active {
		return nil, fmt.Errorf("%s %s: %w", table, id, ErrNotFound)
	}
	return p, nil
}

// ProductsByID resolves ids across every listing source, in the order given.
// IDs that no longer resolve are skipped.
func (s *Storefront) ProductsByID(ctx context.Context, ids []string) ([]Product, error) {
	index := make(map[string]Product)
	var firstErr error
	for _, table := range append(append([]string{}, ProductTables...), TableCollections) {
		listing, err := s.Listing(ctx, table)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		for _, p := range listing {
			if _, ok := index[string(p.ID)]; !ok {
				index[string(p.ID)] = p
			}
		}
	}

	out := make([]Product, 0, len(ids))
	for _, id := range ids {
		if p, ok := index[id]; ok {
			out = append(out, p)
		}
	}
	if len(out) == 0 && firstErr != nil {
		return nil, firstErr
	}
	return out, nil
}

// Invalidate drops every cached listing.
func (s *Storefront) Invalidate() {
	s.products.Clear()
	s.collections.Clear()
	s.categories.Clear()
}

// IsNotFound reports whether err means the item does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
