// Package wishlist stores the product IDs a shopper has saved for later.
package wishlist

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/charmbracelet/log"

	"github.com/thomas/mayhem-terminal-go/internal/storage"
)

// Wishlist is an ordered, duplicate-free list of product IDs mirrored to
// the shopper bucket on every change.
type Wishlist struct {
	bucket *storage.Bucket
	ids    []string
}

// Open loads the saved wishlist. A missing or unreadable value yields an
// empty list.
func Open(ctx context.Context, bucket *storage.Bucket, logger *log.Logger) *Wishlist {
	w := &Wishlist{bucket: bucket, ids: []string{}}

	var ids []string
	err := bucket.GetJSON(ctx, storage.KeyWishlist, &ids)
	switch {
	case err == nil:
		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if id != "" && !seen[id] {
				seen[id] = true
				w.ids = append(w.ids, id)
			}
		}
	case !errors.Is(err, storage.ErrNotFound):
		logger.Warn("wishlist unreadable, starting empty", "namespace", bucket.Namespace(), "err", err)
	}
	return w
}

// Toggle adds id if absent, removes it otherwise, and reports whether it is
// now saved.
func (w *Wishlist) Toggle(ctx context.Context, id string) (bool, error) {
	if w.Contains(id) {
		if err := w.Remove(ctx, id); err != nil {
			return true, err
		}
		return false, nil
	}
	if err := w.save(ctx, append(slices.Clone(w.ids), id)); err != nil {
		return false, err
	}
	return true, nil
}

// Remove deletes id. Removing an unsaved id is a no-op.
func (w *Wishlist) Remove(ctx context.Context, id string) error {
	for i, v := range w.ids {
		if v == id {
			return w.save(ctx, slices.Delete(slices.Clone(w.ids), i, i+1))
		}
	}
	return nil
}

// Clear empties the wishlist.
func (w *Wishlist) Clear(ctx context.Context) error {
	return w.save(ctx, []string{})
}

// Contains reports whether id is saved.
func (w *Wishlist) Contains(id string) bool {
	for _, v := range w.ids {
		if v == id {
			return true
		}
	}
	return false
}

// IDs returns a copy of the saved IDs, oldest first.
func (w *Wishlist) IDs() []string {
	out := make([]string, len(w.ids))
	copy(out, w.ids)
	return out
}

// Len returns the number of saved IDs.
func (w *Wishlist) Len() int {
	return len(w.ids)
}

// save writes ids and only then makes them the wishlist's contents.
func (w *Wishlist) save(ctx context.Context, ids []string) error {
	if err := w.bucket.PutJSON(ctx, storage.KeyWishlist, ids); err != nil {
		return fmt.Errorf("saving wishlist: %w", err)
	}
	w.ids = ids
	return nil
}
