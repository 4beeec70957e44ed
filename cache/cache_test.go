package cache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLRUCache_SetGet(t *testing.T) {
	c := NewLRUCache(10, time.Minute)

	c.Set("summary:abc", []byte("a short summary"), 0)
	val, ok := c.Get("summary:abc")
	assert.True(t, ok)
	assert.Equal(t, []byte("a short summary"), val)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestLRUCache_TTLExpiryAtReadTime(t *testing.T) {
	c := NewLRUCache(10, time.Minute)
	c.Set("k", []byte("v"), 30*time.Millisecond)

	_, ok := c.Get("k")
	assert.True(t, ok)

	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("k")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Size())
}

func TestLRUCache_CapacityEvictionKeepsRecent(t *testing.T) {
	c := NewLRUCache(3, time.Minute)
	c.Set("k1", []byte("1"), 0)
	c.Set("k2", []byte("2"), 0)
	c.Set("k3", []byte("3"), 0)
	c.Set("k4", []byte("4"), 0)

	assert.Equal(t, 3, c.Size())
	_, ok := c.Get("k1")
	assert.False(t, ok)
	_, ok = c.Get("k4")
	assert.True(t, ok)
}

func TestLRUCache_CleanupExpired(t *testing.T) {
	c := NewLRUCache(10, time.Minute)
	c.Set("stale", []byte("v"), time.Nanosecond)
	c.Set("fresh", []byte("v"), time.Minute)

	time.Sleep(time.Millisecond)
	assert.Equal(t, 1, c.CleanupExpired())
	assert.Equal(t, 1, c.Size())
}

func TestService_InMemory(t *testing.T) {
	s := NewService(ServiceConfig{Capacity: 10, TTL: time.Minute}, nil)
	defer s.Close()

	ctx := context.Background()
	s.Set(ctx, "key", []byte("payload"))

	val, ok := s.Get(ctx, "key")
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), val)

	// Empty keys are never cached.
	s.Set(ctx, "", []byte("x"))
	_, ok = s.Get(ctx, "")
	assert.False(t, ok)

	s.Clear(ctx)
	assert.Equal(t, 0, s.Size())
}

func TestSQLiteStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "k1", []byte("v1"), time.Now().Add(time.Hour)))
	require.NoError(t, store.Put(ctx, "k2", []byte("v2"), time.Now().Add(-time.Hour)))

	// Upsert replaces the value.
	require.NoError(t, store.Put(ctx, "k1", []byte("v1b"), time.Now().Add(time.Hour)))

	entries, err := store.Load(ctx)
	require.NoError(t, err)
	// The expired row is pruned at load time.
	require.Len(t, entries, 1)
	assert.Equal(t, "k1", entries[0].Key)
	assert.Equal(t, []byte("v1b"), entries[0].Value)

	require.NoError(t, store.Close())
}

func TestService_WarmUpFromStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cache.db")
	store, err := OpenSQLiteStore(path)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "warm", []byte("payload"), time.Now().Add(time.Hour)))
	require.NoError(t, store.Close())

	reopened, err := OpenSQLiteStore(path)
	require.NoError(t, err)

	s := NewService(DefaultServiceConfig(), reopened)
	defer s.Close()

	val, ok := s.Get(ctx, "warm")
	assert.True(t, ok)
	assert.Equal(t, []byte("payload"), val)
}
