package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTTL_SetGet_NoExpiry(t *testing.T) {
	c := NewTTL[string, int]()
	c.Set("a", 1, 0)

	v, ok := c.Get("a")
	require.True(t, ok)
	require.Equal(t, 1, v)
	require.Equal(t, 1, c.Len())
}

func TestTTL_Expiry(t *testing.T) {
	c := NewTTL[string, string]()

	base := time.Now()
	now = func() time.Time { return base }
	t.Cleanup(func() { now = time.Now })

	c.Set("k", "v", time.Second)
	_, ok := c.Get("k")
	require.True(t, ok)

	base = base.Add(2 * time.Second)
	_, ok = c.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, c.Len())

	c.PurgeExpired()
	require.Empty(t, c.items)
}

func TestTTL_SetDropsExpired(t *testing.T) {
	c := NewTTL[int, int]()

	base := time.Now()
	now = func() time.Time { return base }
	t.Cleanup(func() { now = time.Now })

	c.Set(1, 1, time.Second)
	base = base.Add(time.Minute)
	c.Set(2, 2, 0)
	require.Len(t, c.items, 1)
}

func TestTTL_Delete(t *testing.T) {
	c := NewTTL[int, int]()
	c.Set(1, 10, 0)
	c.Set(2, 20, 0)
	c.Delete(1)

	_, ok := c.Get(1)
	require.False(t, ok)
	require.Equal(t, 1, c.Len())
}

func TestTTL_Concurrent(t *testing.T) {
	c := NewTTL[int, int]()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c.Set(i, i, time.Minute)
			c.Get(i)
		}(i)
	}
	wg.Wait()
	require.Equal(t, 50, c.Len())
}
