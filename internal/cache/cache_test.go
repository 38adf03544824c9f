package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey_StableAndDistinct(t *testing.T) {
	a := Key("search", "brave", "documentary grant", "5")
	b := Key("search", "brave", "documentary grant", "5")
	c := Key("search", "brave", "documentary grant", "10")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "search")
}

func TestMemoryCache_RoundTrip(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	require.NoError(t, c.Set("k", []byte("v"), 0))

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", string(got))
	assert.Equal(t, 1, c.Len())

	require.NoError(t, c.Delete("k"))
	_, ok = c.Get("k")
	assert.False(t, ok)
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	require.NoError(t, c.Set("fresh", []byte("a"), 0))
	require.NoError(t, c.Set("stale", []byte("b"), -time.Second))

	got, ok := c.Get("fresh")
	require.True(t, ok)
	assert.Equal(t, "a", string(got))

	_, ok = c.Get("stale")
	assert.False(t, ok)

	assert.NoError(t, c.Delete("missing"))
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	dir := t.TempDir()
	disk := NewDiskCache(dir, time.Hour)
	require.NoError(t, disk.Set("k", []byte("from-disk"), 0))

	c := NewLayeredCache(time.Hour, dir, time.Hour)
	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "from-disk", string(got))

	mem, ok := c.memory.Get("k")
	require.True(t, ok)
	assert.Equal(t, "from-disk", string(mem))
}

func TestJSONHelpers(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	type payload struct{ Titles []string }

	require.NoError(t, SetJSON(c, "j", payload{Titles: []string{"Lotus Grant"}}, 0))

	var out payload
	require.True(t, GetJSON(c, "j", &out))
	assert.Equal(t, []string{"Lotus Grant"}, out.Titles)

	require.NoError(t, c.Set("bad", []byte("{"), 0))
	assert.False(t, GetJSON(c, "bad", &out))
}
