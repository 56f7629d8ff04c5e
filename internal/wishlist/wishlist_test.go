package wishlist

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomas/mayhem-terminal-go/internal/logging"
	"github.com/thomas/mayhem-terminal-go/internal/storage"
)

func TestToggle(t *testing.T) {
	ctx := context.Background()
	w := Open(ctx, storage.NewBucket(storage.NewMemory(), "ns"), logging.Discard())

	saved, err := w.Toggle(ctx, "1")
	require.NoError(t, err)
	assert.True(t, saved)
	assert.True(t, w.Contains("1"))

	saved, err = w.Toggle(ctx, "1")
	require.NoError(t, err)
	assert.False(t, saved)
	assert.Zero(t, w.Len())
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	bucket := storage.NewBucket(storage.NewMemory(), "ns")

	w := Open(ctx, bucket, logging.Discard())
	for _, id := range []string{"3", "1", "2"} {
		_, err := w.Toggle(ctx, id)
		require.NoError(t, err)
	}
	require.NoError(t, w.Remove(ctx, "1"))
	require.NoError(t, w.Remove(ctx, "missing"))

	raw, err := bucket.Get(ctx, storage.KeyWishlist)
	require.NoError(t, err)
	assert.JSONEq(t, `["3","2"]`, string(raw))

	assert.Equal(t, []string{"3", "2"}, Open(ctx, bucket, logging.Discard()).IDs())

	require.NoError(t, w.Clear(ctx))
	assert.Empty(t, Open(ctx, bucket, logging.Discard()).IDs())
}

func TestOpenDeduplicatesAndToleratesGarbage(t *testing.T) {
	ctx := context.Background()
	bucket := storage.NewBucket(storage.NewMemory(), "ns")

	require.NoError(t, bucket.Put(ctx, storage.KeyWishlist, []byte(`["1","1","","2"]`)))
	assert.Equal(t, []string{"1", "2"}, Open(ctx, bucket, logging.Discard()).IDs())

	require.NoError(t, bucket.Put(ctx, storage.KeyWishlist, []byte(`"nope"`)))
	assert.Empty(t, Open(ctx, bucket, logging.Discard()).IDs())
}

var errDiskFull = errors.New("disk full")

// failingStore rejects writes while failPuts is set.
type failingStore struct {
	storage.Store
	failPuts bool
}

func (s *failingStore) Put(ctx context.Context, namespace, key string, value []byte) error {
	if s.failPuts {
		return errDiskFull
	}
	return s.Store.Put(ctx, namespace, key, value)
}

func TestFailedWriteLeavesWishlistUnchanged(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{Store: storage.NewMemory()}
	bucket := storage.NewBucket(store, "ns")
	w := Open(ctx, bucket, logging.Discard())

	_, err := w.Toggle(ctx, "1")
	require.NoError(t, err)

	store.failPuts = true
	saved, err := w.Toggle(ctx, "2")
	assert.ErrorIs(t, err, errDiskFull)
	assert.False(t, saved)

	saved, err = w.Toggle(ctx, "1")
	assert.ErrorIs(t, err, errDiskFull)
	assert.True(t, saved, "id stays saved when removal fails")

	assert.ErrorIs(t, w.Clear(ctx), errDiskFull)
	assert.Equal(t, []string{"1"}, w.IDs())
	assert.Equal(t, []string{"1"}, Open(ctx, bucket, logging.Discard()).IDs())
}
