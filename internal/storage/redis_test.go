package storage

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestRedis creates a miniredis server and a RedisStorage pointing at it
func setupTestRedis(t *testing.T) (*RedisStorage, *miniredis.Miniredis, func()) {
	mr := miniredis.RunT(t)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})

	store := NewRedisStorage(client, 15*time.Minute)

	cleanup := func() {
		client.Close()
		mr.Close()
	}

	return store, mr, cleanup
}

func TestRedisLoad_Success(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	doc := `{"version":1,"items":[]}`
	require.NoError(t, mr.Set(storageKey("session-1"), doc))

	data, err := store.Load(context.Background(), "session-1")
	require.NoError(t, err)
	assert.JSONEq(t, doc, string(data))
}

func TestRedisLoad_NotFound(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	data, err := store.Load(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Nil(t, data)
}

func TestRedisSave_Success(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	err := store.Save(context.Background(), "session-2", []byte(`{"version":1}`))
	require.NoError(t, err)

	stored, err := mr.Get(storageKey("session-2"))
	require.NoError(t, err)
	assert.Equal(t, `{"version":1}`, stored)
}

func TestRedisSave_WithTTL(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, store.Save(context.Background(), "session-3", []byte(`{}`)))

	ttl := mr.TTL(storageKey("session-3"))
	assert.True(t, ttl >= 15*time.Minute, "TTL should be at least base TTL")
	assert.True(t, ttl <= 20*time.Minute, "TTL should be base + max jitter")
}

func TestRedisDelete_Success(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()

	require.NoError(t, mr.Set(storageKey("session-4"), `{}`))
	assert.True(t, mr.Exists(storageKey("session-4")))

	require.NoError(t, store.Delete(context.Background(), "session-4"))
	assert.False(t, mr.Exists(storageKey("session-4")))
}

func TestRedisDelete_NonExistentKey(t *testing.T) {
	store, _, cleanup := setupTestRedis(t)
	defer cleanup()

	assert.NoError(t, store.Delete(context.Background(), "nonexistent"))
}

func TestRedisLoad_ServerDown(t *testing.T) {
	store, mr, cleanup := setupTestRedis(t)
	defer cleanup()
	mr.Close()

	_, err := store.Load(context.Background(), "session-5")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.ErrorContains(t, err, "redis get failed")
}

func TestStorageKey_Format(t *testing.T) {
	assert.Equal(t, "cart:test123", storageKey("test123"))
}
