package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, *RedisKV) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	kv := NewRedisKV(client, "test:")
	t.Cleanup(func() { kv.Close() })
	return mr, kv
}

func backends(t *testing.T) map[string]KV {
	t.Helper()

	fileKV, err := NewFileKV(filepath.Join(t.TempDir(), "kv.json"))
	require.NoError(t, err)
	_, redisKV := setupTestRedis(t)

	return map[string]KV{
		"memory": NewMemoryKV(),
		"file":   fileKV,
		"redis":  redisKV,
	}
}

func TestKV_Contract(t *testing.T) {
	ctx := context.Background()

	for name, kv := range backends(t) {
		kv := kv
		t.Run(name, func(t *testing.T) {
			_, err := kv.Get(ctx, "missing")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set(ctx, "cart:a", []byte(`[{"id":"cam1"}]`), 0))
			got, err := kv.Get(ctx, "cart:a")
			require.NoError(t, err)
			assert.Equal(t, `[{"id":"cam1"}]`, string(got))

			require.NoError(t, kv.Set(ctx, "cart:a", []byte(`[]`), 0))
			got, err = kv.Get(ctx, "cart:a")
			require.NoError(t, err)
			assert.Equal(t, `[]`, string(got))

			require.NoError(t, kv.Delete(ctx, "cart:a"))
			require.NoError(t, kv.Delete(ctx, "cart:a"), "delete is idempotent")
			_, err = kv.Get(ctx, "cart:a")
			assert.ErrorIs(t, err, ErrNotFound)

			require.NoError(t, kv.Set(ctx, "x", []byte("1"), 0))
			require.NoError(t, kv.Set(ctx, "y", []byte("2"), 0))
			require.NoError(t, kv.Clear(ctx))
			_, err = kv.Get(ctx, "x")
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = kv.Get(ctx, "y")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestMemoryKV_Expiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	kv := NewMemoryKV()
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "k", []byte("v"), time.Hour))
	assert.Equal(t, 1, kv.Len())

	now = now.Add(2 * time.Hour)
	_, err := kv.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, kv.Len())
}

func TestMemoryKV_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	buf := []byte("abc")
	require.NoError(t, kv.Set(ctx, "k", buf, 0))
	buf[0] = 'z'

	got, err := kv.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(got))
	got[0] = 'q'

	again, _ := kv.Get(ctx, "k")
	assert.Equal(t, "abc", string(again))
}

func TestFileKV_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "kv.json")

	kv, err := NewFileKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "cart:s1", []byte(`[{"id":"light1","quantity":2}]`), 0))

	reopened, err := NewFileKV(path)
	require.NoError(t, err)
	got, err := reopened.Get(ctx, "cart:s1")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"id":"light1","quantity":2}]`, string(got))
}

func TestFileKV_ExpiryAndCompaction(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.json")
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	kv, err := NewFileKV(path)
	require.NoError(t, err)
	kv.now = func() time.Time { return now }

	require.NoError(t, kv.Set(ctx, "old", []byte("1"), time.Minute))
	now = now.Add(time.Hour)
	_, err = kv.Get(ctx, "old")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, kv.Set(ctx, "new", []byte("2"), 0))
	kv.mu.RLock()
	_, stillThere := kv.data["old"]
	kv.mu.RUnlock()
	assert.False(t, stillThere)
}

func TestFileKV_CorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kv.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFileKV(path)
	assert.Error(t, err)
}

func TestFileKV_NullDocument(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "kv.json")
	require.NoError(t, os.WriteFile(path, []byte("null"), 0o644))

	kv, err := NewFileKV(path)
	require.NoError(t, err)
	require.NoError(t, kv.Set(ctx, "cart:s1", []byte("[]"), 0))
	got, err := kv.Get(ctx, "cart:s1")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(got))
}

func TestRedisKV_TTLAndPrefix(t *testing.T) {
	ctx := context.Background()
	mr, kv := setupTestRedis(t)

	require.NoError(t, kv.Set(ctx, "cart:s1", []byte("[]"), time.Minute))
	assert.True(t, mr.Exists("test:cart:s1"))
	assert.Equal(t, time.Minute, mr.TTL("test:cart:s1"))

	mr.FastForward(2 * time.Minute)
	_, err := kv.Get(ctx, "cart:s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRedisKV_ClearLeavesForeignKeys(t *testing.T) {
	ctx := context.Background()
	mr, kv := setupTestRedis(t)

	require.NoError(t, mr.Set("other:key", "keep"))
	for i := 0; i < 250; i++ {
		require.NoError(t, kv.Set(ctx, fmt.Sprintf("cart:%03d", i), []byte("v"), 0))
	}

	require.NoError(t, kv.Clear(ctx))
	assert.True(t, mr.Exists("other:key"))
	assert.Len(t, mr.Keys(), 1)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	kv, err := Open(ctx, Options{Driver: DriverMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemoryKV{}, kv)

	kv, err = Open(ctx, Options{Driver: DriverFile, FilePath: filepath.Join(t.TempDir(), "c.json")})
	require.NoError(t, err)
	assert.IsType(t, &FileKV{}, kv)

	mr := miniredis.RunT(t)
	kv, err = Open(ctx, Options{Driver: DriverRedis, RedisAddr: mr.Addr()})
	require.NoError(t, err)
	assert.IsType(t, &RedisKV{}, kv)
	require.NoError(t, kv.Close())

	_, err = Open(ctx, Options{Driver: "etcd"})
	assert.Error(t, err)

	_, err = Open(ctx, Options{Driver: DriverFile})
	assert.Error(t, err)
}
