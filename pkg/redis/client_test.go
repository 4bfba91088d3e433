package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/positional-indexer/pkg/config"
)

func newTestClient(t *testing.T) (*Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	c, err := NewClient(context.Background(), config.RedisConfig{Addr: mr.Addr(), PoolSize: 2})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c, mr
}

func TestReplaceHash(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.ReplaceHash(ctx, "h", map[string]string{"a": "1", "b": "2"}, "h:meta", "v1"))
	require.NoError(t, c.ReplaceHash(ctx, "h", map[string]string{"c": "3"}, "h:meta", "v2"))

	got, err := c.HGetAll(ctx, "h")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"c": "3"}, got)

	meta, err := c.Get(ctx, "h:meta")
	require.NoError(t, err)
	assert.Equal(t, "v2", meta)
	assert.True(t, mr.Exists("h"))
}

func TestReplaceHashEmpty(t *testing.T) {
	c, mr := newTestClient(t)
	ctx := context.Background()

	require.NoError(t, c.ReplaceHash(ctx, "h", map[string]string{"a": "1"}, "h:meta", "v1"))
	require.NoError(t, c.ReplaceHash(ctx, "h", nil, "h:meta", "v2"))
	assert.False(t, mr.Exists("h"))

	_, err := c.Get(ctx, "missing")
	assert.True(t, IsNilError(err))
}

func TestNewClientUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewClient(context.Background(), config.RedisConfig{Addr: addr})
	assert.ErrorContains(t, err, "redis ping failed")
}
