package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"studiorent/internal/storage"
)

func newTestCartService(t *testing.T, size int, kv storage.KV) *CartService {
	t.Helper()
	db := newTestDB(t, cam1(), light1())
	cs, err := NewCartService(db, kv, size, time.Hour, zaptest.NewLogger(t))
	require.NoError(t, err)
	t.Cleanup(cs.Shutdown)
	return cs
}

func TestCartService_SessionsAreIsolated(t *testing.T) {
	ctx := context.Background()
	cs := newTestCartService(t, 8, storage.NewMemoryKV())

	out, err := cs.AddToCart(ctx, "alice", "cam1")
	require.NoError(t, err)
	assert.Equal(t, Accepted, out)
	_, err = cs.AddToCart(ctx, "bob", "light1")
	require.NoError(t, err)

	assert.Equal(t, 1, cs.GetCart(ctx, "alice").Quantity("cam1"))
	assert.Equal(t, 0, cs.GetCart(ctx, "alice").Quantity("light1"))
	assert.Equal(t, 1, cs.GetCartCount(ctx, "bob"))
	assert.Same(t, cs.GetCart(ctx, "alice"), cs.GetCart(ctx, "alice"))
}

func TestCartService_UnknownEquipment(t *testing.T) {
	cs := newTestCartService(t, 8, storage.NewMemoryKV())
	_, err := cs.AddToCart(context.Background(), "s", "nope")
	assert.ErrorIs(t, err, ErrEquipmentNotFound)
}

func TestCartService_Operations(t *testing.T) {
	ctx := context.Background()
	cs := newTestCartService(t, 8, storage.NewMemoryKV())

	for i := 0; i < 3; i++ {
		_, err := cs.AddToCart(ctx, "s", "cam1")
		require.NoError(t, err)
	}
	assert.Equal(t, 2, cs.GetCart(ctx, "s").Quantity("cam1"))

	_, err := cs.AddToCart(ctx, "s", "light1")
	require.NoError(t, err)
	assert.Equal(t, Accepted, cs.UpdateCartItem(ctx, "s", "light1", 3))

	q := cs.Quote(ctx, "s", 2)
	assertDecimal(t, 2*1000*2+3*500*2, q.Subtotal)

	assert.True(t, cs.RemoveFromCart(ctx, "s", "light1"))
	assert.False(t, cs.RemoveFromCart(ctx, "s", "light1"))

	cs.ClearCart(ctx, "s")
	assert.Equal(t, 0, cs.GetCartCount(ctx, "s"))
}

func TestCartService_EvictionPersistsAndReloads(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	cs := newTestCartService(t, 1, kv)

	_, err := cs.AddToCart(ctx, "first", "cam1")
	require.NoError(t, err)
	_, err = cs.AddToCart(ctx, "first", "cam1")
	require.NoError(t, err)

	// opening a second session evicts the first and closes its store
	cs.GetCart(ctx, "second")
	assert.Equal(t, 1, cs.Len())

	raw, err := kv.Get(ctx, CartKey("first"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"quantity":2`)

	assert.Equal(t, 2, cs.GetCart(ctx, "first").Quantity("cam1"))
}

func TestCartService_HandleSurvivesEviction(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	cs := newTestCartService(t, 1, kv)

	held := cs.GetCart(ctx, "s1")
	cs.GetCart(ctx, "s2")

	assert.Equal(t, Accepted, held.AddItem(cam1()))
	assert.Equal(t, 1, held.Quantity("cam1"))

	next := cs.GetCart(ctx, "s1")
	assert.Same(t, held, next, "a retired session reopens the same store")
	assert.Equal(t, 1, next.Quantity("cam1"))

	assert.Equal(t, Accepted, held.AddItem(cam1()))
	require.NoError(t, next.Flush(ctx))
	raw, err := kv.Get(ctx, CartKey("s1"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"quantity":2`)
}

func TestCartService_HandleOutlivesRetirement(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	cs := newTestCartService(t, 1, kv)

	held := cs.GetCart(ctx, "s1")
	cs.GetCart(ctx, "s2")
	cs.GetCart(ctx, "s3")
	cs.GetCart(ctx, "s4")

	assert.Equal(t, Accepted, held.AddItem(cam1()))

	next := cs.GetCart(ctx, "s1")
	assert.NotSame(t, held, next)
	assert.Equal(t, 1, next.Quantity("cam1"), "mutations on a long-retired handle reach storage")
}

func TestCartService_ShutdownFlushes(t *testing.T) {
	ctx := context.Background()
	kv := storage.NewMemoryKV()
	db := newTestDB(t, cam1())
	cs, err := NewCartService(db, kv, 4, 0, zaptest.NewLogger(t))
	require.NoError(t, err)

	_, err = cs.AddToCart(ctx, "s", "cam1")
	require.NoError(t, err)
	cs.Shutdown()

	_, err = kv.Get(ctx, CartKey("s"))
	assert.NoError(t, err)
	assert.Equal(t, 0, cs.Len())
}

func TestNewCartService_InvalidSize(t *testing.T) {
	_, err := NewCartService(nil, storage.NewMemoryKV(), 0, 0, nil)
	assert.Error(t, err)
}
