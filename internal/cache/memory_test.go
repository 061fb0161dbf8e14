package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemory_GetSetExpire(t *testing.T) {
	c := NewMemory(time.Minute)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	ctx := context.Background()

	_, ok, err := c.Get(ctx, "all")
	require.NoError(t, err)
	assert.False(t, ok)

	names := []string{"a", "b"}
	require.NoError(t, c.Set(ctx, "all", names))
	names[0] = "mutated"

	got, ok, err := c.Get(ctx, "all")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, got)

	now = now.Add(time.Minute)
	_, ok, _ = c.Get(ctx, "all")
	assert.False(t, ok)
}

func TestMemory_ZeroTTLDisablesCaching(t *testing.T) {
	c := NewMemory(0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "all", []string{"a"}))
	_, ok, _ := c.Get(ctx, "all")
	assert.False(t, ok)
}
