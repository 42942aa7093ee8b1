package version

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/localforge/localforge/internal/store"
	"github.com/localforge/localforge/internal/store/sqlite"
)

func newTestCache(t *testing.T, ttl time.Duration) (*Cache, store.Store) {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.EnsureSchema(context.Background()))
	return NewCache(st, ttl), st
}

func TestCacheSetGetRoundtrip(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	in := []Version{
		{Version: "7.4.1", DownloadURL: "https://example.com/redis-7.4.1.tar.gz", Filename: "redis-7.4.1.tar.gz", Source: SourceAPI},
		{Version: "7.2.6", DownloadURL: "https://example.com/redis-7.2.6.tar.gz", Filename: "redis-7.2.6.tar.gz", Source: SourceAPI},
	}
	require.NoError(t, c.Set(ctx, "redis", in))

	got, ok, err := c.Get(ctx, "redis")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 2)
	assert.Equal(t, "7.4.1", got[0].Version)
	assert.Equal(t, in[0].DownloadURL, got[0].DownloadURL)
	// cache hits are always retagged, whatever source was stored
	for _, v := range got {
		assert.Equal(t, SourceCache, v.Source)
	}
}

func TestCacheMissForUnknownService(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	_, ok, err := c.Get(context.Background(), "mariadb")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCacheEntryExpiresAtTTL(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	base := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return base }
	require.NoError(t, c.Set(ctx, "redis", vs("7.4.1")))

	c.now = func() time.Time { return base.Add(59 * time.Minute) }
	_, ok, err := c.Get(ctx, "redis")
	require.NoError(t, err)
	assert.True(t, ok, "entry must be fresh inside the TTL window")

	// age == ttl is already stale
	c.now = func() time.Time { return base.Add(time.Hour) }
	_, ok, err = c.Get(ctx, "redis")
	require.NoError(t, err)
	assert.False(t, ok, "entry must be stale at exactly the TTL boundary")
}

func TestCacheEntriesAreIndependent(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "redis", vs("7.4.1")))
	require.NoError(t, c.Set(ctx, "mailpit", vs("1.21.5")))
	require.NoError(t, c.Set(ctx, "redis", vs("7.5.0")))

	got, ok, err := c.Get(ctx, "redis")
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, got, 1)
	assert.Equal(t, "7.5.0", got[0].Version)

	got, ok, err = c.Get(ctx, "mailpit")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "1.21.5", got[0].Version)
}

func TestCacheClearAllEmptiesEveryEntry(t *testing.T) {
	c, st := newTestCache(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "redis", vs("7.4.1")))
	require.NoError(t, c.Set(ctx, "minio", vs("RELEASE.2024-11-07T00-52-20Z")))
	require.NoError(t, c.ClearAll(ctx))

	for _, svc := range []string{"redis", "minio"} {
		_, ok, err := c.Get(ctx, svc)
		require.NoError(t, err)
		assert.False(t, ok, "%s must be gone after ClearAll", svc)
	}
	doc, err := st.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, doc.Services)
}

func TestNewCacheDefaultsTTL(t *testing.T) {
	st, err := sqlite.New(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	c := NewCache(st, 0)
	assert.Equal(t, DefaultTTL, c.ttl)
}
