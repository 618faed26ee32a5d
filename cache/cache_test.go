package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyIsStable(t *testing.T) {
	a := Key("Amazon", "MTD", "2024-03-01", "2024-03-15")
	b := Key("Amazon", "MTD", "2024-03-01", "2024-03-15")
	c := Key("Shopify", "MTD", "2024-03-01", "2024-03-15")
	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, strings.HasPrefix(a, keyPrefix))
	// Part boundaries matter.
	assert.NotEqual(t, Key("ab", "c"), Key("a", "bc"))
}

func TestMemoryExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	m := NewMemory()
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "k", []byte("v1"), time.Minute))
	require.NoError(t, m.Set(ctx, "forever", []byte("v2"), 0))

	got, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []byte("v1"), got)

	now = now.Add(time.Minute)
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	_, ok, _ = m.Get(ctx, "forever")
	assert.True(t, ok)

	_, ok, _ = m.Get(ctx, "missing")
	assert.False(t, ok)
}

func TestConnectRejectsBadURL(t *testing.T) {
	_, err := Connect(context.Background(), "redis://:bad url")
	assert.Error(t, err)
}

func TestOpenWithoutRedisUsesMemory(t *testing.T) {
	c, closeFn, err := Open(context.Background(), "  ")
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)
	assert.NoError(t, closeFn())

	_, _, err = Open(context.Background(), "redis://:bad url")
	assert.Error(t, err)
}
