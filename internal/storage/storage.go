// Package storage provides durable per-shopper key/value buckets.
//
// Each shopper (identified by the fingerprint of their SSH key) owns a
// namespace. The cart, wishlist, last order and admin session are stored
// as JSON documents under fixed keys inside that namespace.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a key does not exist in a namespace.
var ErrNotFound = errors.New("storage: key not found")

// Well-known keys inside a shopper bucket.
const (
	KeyCart        = "cart"
	KeyCartVersion = "cart_version"
	KeyWishlist    = "wishlist"
	KeyLastOrder   = "last_order"
	KeyAdminAuth   = "admin_auth"
)

// Store is a namespaced key/value store.
type Store interface {
	Get(ctx context.Context, namespace, key string) ([]byte, error)
	Put(ctx context.Context, namespace, key string, value []byte) error
	Delete(ctx context.Context, namespace, key string) error
	Close() error
}

// Bucket is a Store bound to one namespace.
type Bucket struct {
	store     Store
	namespace string
}

// NewBucket binds store to namespace.
func NewBucket(store Store, namespace string) *Bucket {
	return &Bucket{store: store, namespace: namespace}
}

// Namespace returns the bucket's namespace.
func (b *Bucket) Namespace() string {
	return b.namespace
}

// Get returns the raw value stored under key.
func (b *Bucket) Get(ctx context.Context, key string) ([]byte, error) {
	return b.store.Get(ctx, b.namespace, key)
}

// Put stores a raw value under key.
func (b *Bucket) Put(ctx context.Context, key string, value []byte) error {
	return b.store.Put(ctx, b.namespace, key, value)
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Bucket) Delete(ctx context.Context, key string) error {
	return b.store.Delete(ctx, b.namespace, key)
}

// GetJSON decodes the value under key into v.
func (b *Bucket) GetJSON(ctx context.Context, key string, v any) error {
	data, err := b.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decoding %q: %w", key, err)
	}
	return nil
}

// PutJSON encodes v and stores it under key.
func (b *Bucket) PutJSON(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %q: %w", key, err)
	}
	return b.Put(ctx, key, data)
}
