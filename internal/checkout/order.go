package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/thomas/mayhem-terminal-go/internal/cart"
	"github.com/thomas/mayhem-terminal-go/internal/pricing"
	"github.com/thomas/mayhem-terminal-go/internal/storage"
)

// LastOrder is the snapshot kept for the confirmation view.
type LastOrder struct {
	ID          string          `json:"id"`
	OrderNumber string          `json:"orderNumber"`
	Items       []cart.LineItem `json:"items"`
	Total       float64         `json:"total"`
	Summary     pricing.Summary `json:"summary"`
	FormData    Form            `json:"formData"`
	Date        time.Time       `json:"date"`
}

// SaveLastOrder stores order under the last_order key.
func SaveLastOrder(ctx context.Context, bucket *storage.Bucket, order LastOrder) error {
	if err := bucket.PutJSON(ctx, storage.KeyLastOrder, order); err != nil {
		return fmt.Errorf("saving order %s: %w", order.OrderNumber, err)
	}
	return nil
}

// LoadLastOrder reads the last order. It returns storage.ErrNotFound when
// the shopper has not ordered yet.
func LoadLastOrder(ctx context.Context, bucket *storage.Bucket) (*LastOrder, error) {
	var order LastOrder
	if err := bucket.GetJSON(ctx, storage.KeyLastOrder, &order); err != nil {
		return nil, err
	}
	return &order, nil
}
