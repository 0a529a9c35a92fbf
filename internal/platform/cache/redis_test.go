package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPingsServer(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	client, err := New(context.Background(), Options{Addr: mr.Addr(), Password: "s3cret"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	require.NoError(t, client.Set(context.Background(), "k", "v", 0).Err())
	got, err := mr.Get("k")
	require.NoError(t, err)
	assert.Equal(t, "v", got)
}

func TestNewFailsFast(t *testing.T) {
	mr := miniredis.RunT(t)
	mr.RequireAuth("s3cret")

	client, err := New(context.Background(), Options{Addr: mr.Addr(), Password: "wrong", DialTimeout: time.Second})
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "platform/cache: ping")
}

func TestRedisOptionsDefaults(t *testing.T) {
	ro := Options{Addr: "redis:6379", DB: 2}.RedisOptions()
	assert.Equal(t, 5*time.Second, ro.DialTimeout)
	assert.Equal(t, 2, ro.DB)
}
