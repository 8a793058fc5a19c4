package requestcache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/relaygate/relaygate/pkg/requestcache"
)

func TestCacheGetSet(t *testing.T) {
	t.Parallel()

	t.Run("stores and retrieves within TTL", func(t *testing.T) {
		t.Parallel()

		c := requestcache.New[string](10)
		c.Set("k", "v", time.Minute)

		got, ok := c.Get("k")
		assert.True(t, ok)
		assert.Equal(t, "v", got)
	})

	t.Run("expired entry is evicted on read", func(t *testing.T) {
		t.Parallel()

		c := requestcache.New[string](10)
		c.Set("k", "v", 10*time.Millisecond)
		time.Sleep(20 * time.Millisecond)

		_, ok := c.Get("k")
		assert.False(t, ok)
		assert.Equal(t, 0, c.Len())
	})

	t.Run("overwrite replaces value and TTL", func(t *testing.T) {
		t.Parallel()

		c := requestcache.New[string](10)
		c.Set("k", "old", time.Minute)
		c.Set("k", "new", time.Minute)

		got, ok := c.Get("k")
		assert.True(t, ok)
		assert.Equal(t, "new", got)
		assert.Equal(t, 1, c.Len())
	})
}

func TestCacheEviction(t *testing.T) {
	t.Parallel()

	t.Run("at capacity evicts the least-hit entry", func(t *testing.T) {
		t.Parallel()

		c := requestcache.New[string](2)
		c.Set("hot", "a", time.Minute)
		c.Set("cold", "b", time.Minute)

		// Three reads for hot, none for cold.
		for range 3 {
			_, _ = c.Get("hot")
		}

		c.Set("new", "c", time.Minute)

		assert.False(t, c.Has("cold"))
		assert.True(t, c.Has("hot"))
		assert.True(t, c.Has("new"))
	})

	t.Run("hit-count ties break by insertion order", func(t *testing.T) {
		t.Parallel()

		c := requestcache.New[string](2)
		c.Set("older", "a", time.Minute)
		c.Set("newer", "b", time.Minute)
		c.Set("third", "c", time.Minute)

		assert.False(t, c.Has("older"))
		assert.True(t, c.Has("newer"))
		assert.True(t, c.Has("third"))
	})

	t.Run("maxSize one always replaces", func(t *testing.T) {
		t.Parallel()

		c := requestcache.New[int](1)
		c.Set("a", 1, time.Minute)
		c.Set("b", 2, time.Minute)

		assert.False(t, c.Has("a"))
		got, ok := c.Get("b")
		assert.True(t, ok)
		assert.Equal(t, 2, got)
	})
}

func TestCacheBookkeeping(t *testing.T) {
	t.Parallel()

	t.Run("Delete reports presence", func(t *testing.T) {
		t.Parallel()

		c := requestcache.New[string](10)
		c.Set("k", "v", time.Minute)
		assert.True(t, c.Delete("k"))
		assert.False(t, c.Delete("k"))
	})

	t.Run("Cleanup removes only expired entries", func(t *testing.T) {
		t.Parallel()

		c := requestcache.New[string](10)
		c.Set("short", "a", 10*time.Millisecond)
		c.Set("long", "b", time.Minute)
		time.Sleep(20 * time.Millisecond)

		assert.Equal(t, 1, c.Cleanup())
		assert.Equal(t, 1, c.Len())
		assert.True(t, c.Has("long"))
	})

	t.Run("Clear empties the cache", func(t *testing.T) {
		t.Parallel()

		c := requestcache.New[string](10)
		c.Set("a", "1", time.Minute)
		c.Set("b", "2", time.Minute)
		c.Clear()
		assert.Equal(t, 0, c.Len())
	})

	t.Run("New panics on non-positive capacity", func(t *testing.T) {
		t.Parallel()

		assert.Panics(t, func() { requestcache.New[string](0) })
	})
}

func TestKey(t *testing.T) {
	t.Parallel()

	t.Run("sorts parameters", func(t *testing.T) {
		t.Parallel()

		a := requestcache.Key("GET", "https://api.example.com/gettoken", map[string]string{"b": "2", "a": "1"})
		b := requestcache.Key("GET", "https://api.example.com/gettoken", map[string]string{"a": "1", "b": "2"})
		assert.Equal(t, a, b)
		assert.Equal(t, "GET:https://api.example.com/gettoken?a=1&b=2", a)
	})

	t.Run("no parameters", func(t *testing.T) {
		t.Parallel()

		assert.Equal(t, "GET:https://api.example.com/x?", requestcache.Key("GET", "https://api.example.com/x", nil))
	})
}
