package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGet(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("key", "value")
	v, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	_, ok = c.Get("missing")
	assert.False(t, ok)
}

func TestExpiry(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.SetWithTTL("short", "value", 10*time.Millisecond)
	_, ok := c.Get("short")
	require.True(t, ok)

	time.Sleep(20 * time.Millisecond)
	_, ok = c.Get("short")
	assert.False(t, ok)
}

func TestDelete(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("key", "value")
	c.Delete("key")
	_, ok := c.Get("key")
	assert.False(t, ok)
	// Deleting a missing key is a no-op.
	c.Delete("key")
}

func TestSweepEvictsExpired(t *testing.T) {
	c := New(20 * time.Millisecond)
	defer c.Close()

	c.SetWithTTL("a", 1, 5*time.Millisecond)
	c.SetWithTTL("b", 2, time.Minute)
	require.Equal(t, 2, c.Len())

	assert.Eventually(t, func() bool {
		return c.Len() == 1
	}, time.Second, 10*time.Millisecond)
}

func TestOverwrite(t *testing.T) {
	c := New(time.Minute)
	defer c.Close()

	c.Set("key", 1)
	c.Set("key", 2)
	v, ok := c.Get("key")
	require.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 1, c.Len())
}
