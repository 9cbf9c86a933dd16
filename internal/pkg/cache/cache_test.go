package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*redis.Client, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() {
		client.Close()
		mr.Close()
	})
	return client, mr
}

func TestCache_GetSet(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := New(client, "youtube_audio:", time.Hour)
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "7:https://youtu.be/abc")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "7:https://youtu.be/abc", "minio://audio-files/7/a.wav"))

	val, ok, err := c.Get(ctx, "7:https://youtu.be/abc")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "minio://audio-files/7/a.wav", val)

	// 原始键不直接出现在 Redis 中
	keys := mr.Keys()
	require.Len(t, keys, 1)
	assert.Contains(t, keys[0], "youtube_audio:")
	assert.NotContains(t, keys[0], "youtu.be")
	assert.Equal(t, time.Hour, mr.TTL(keys[0]))
}

func TestCache_Expires(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := New(client, "youtube_audio:", time.Minute)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", "v"))
	mr.FastForward(2 * time.Minute)

	_, ok, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCache_RedisDown(t *testing.T) {
	client, mr := setupTestRedis(t)
	c := New(client, "p:", time.Minute)
	mr.Close()

	_, ok, err := c.Get(context.Background(), "k")
	assert.Error(t, err)
	assert.False(t, ok)
	assert.Error(t, c.Set(context.Background(), "k", "v"))
}
