package version

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeFetcher returns canned versions or a canned error and counts calls.
type fakeFetcher struct {
	service  string
	versions []Version
	err      error
	calls    int
}

func (f *fakeFetcher) Service() string { return f.service }

func (f *fakeFetcher) Fetch(context.Context) ([]Version, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.versions, nil
}

func newTestResolver(t *testing.T, fetchers ...*fakeFetcher) (*Resolver, *Cache) {
	t.Helper()
	reg := NewRegistry()
	for _, f := range fetchers {
		reg.Register(f)
	}
	cache, _ := newTestCache(t, time.Hour)
	return NewResolver(reg, cache, nil), cache
}

func apiVersions(strs ...string) []Version {
	out := vs(strs...)
	for i := range out {
		out[i].Source = SourceAPI
	}
	return out
}

func TestResolverFetchesAndWritesThrough(t *testing.T) {
	f := &fakeFetcher{service: "redis", versions: apiVersions("7.4.1", "7.2.6")}
	r, cache := newTestResolver(t, f)
	ctx := context.Background()

	got, err := r.GetAvailableVersions(ctx, "redis", false)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, SourceAPI, got[0].Source)
	assert.Equal(t, 1, f.calls)

	cached, ok, err := cache.Get(ctx, "redis")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "7.4.1", cached[0].Version)
}

func TestResolverPrefersFreshCache(t *testing.T) {
	f := &fakeFetcher{service: "redis", versions: apiVersions("7.4.1")}
	r, _ := newTestResolver(t, f)
	ctx := context.Background()

	_, err := r.GetAvailableVersions(ctx, "redis", false)
	require.NoError(t, err)
	got, err := r.GetAvailableVersions(ctx, "redis", false)
	require.NoError(t, err)
	assert.Equal(t, 1, f.calls, "second lookup must come from cache")
	assert.Equal(t, SourceCache, got[0].Source)
}

func TestResolverForceBypassesCache(t *testing.T) {
	f := &fakeFetcher{service: "redis", versions: apiVersions("7.4.1")}
	r, _ := newTestResolver(t, f)
	ctx := context.Background()

	_, err := r.GetAvailableVersions(ctx, "redis", false)
	require.NoError(t, err)
	got, err := r.GetAvailableVersions(ctx, "redis", true)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls)
	assert.Equal(t, SourceAPI, got[0].Source)
}

func TestResolverFetchFailureUsesFallback(t *testing.T) {
	f := &fakeFetcher{service: "redis", err: errors.New("network down")}
	r, _ := newTestResolver(t, f)

	got, err := r.GetAvailableVersions(context.Background(), "redis", false)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	for _, v := range got {
		assert.Equal(t, SourceFallback, v.Source)
	}
}

func TestResolverFetchFailureWithoutFallbackErrors(t *testing.T) {
	f := &fakeFetcher{service: "customsvc", err: errors.New("network down")}
	r, _ := newTestResolver(t, f)

	_, err := r.GetAvailableVersions(context.Background(), "customsvc", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "customsvc")
}

func TestResolverUnknownService(t *testing.T) {
	r, _ := newTestResolver(t)
	_, err := r.GetAvailableVersions(context.Background(), "nothing", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no version source")
}

func TestRefreshAllIsolatesFailures(t *testing.T) {
	a := &fakeFetcher{service: "alpha", versions: apiVersions("1.0.0")}
	b := &fakeFetcher{service: "bravo", err: errors.New("boom")}
	c := &fakeFetcher{service: "charlie", versions: apiVersions("3.0.0")}
	r, cache := newTestResolver(t, a, b, c)
	ctx := context.Background()

	results := r.RefreshAll(ctx)
	require.Len(t, results, 3)
	assert.NoError(t, results["alpha"])
	assert.Error(t, results["bravo"])
	assert.NoError(t, results["charlie"])

	// the failing service must not block the others from being cached
	for _, svc := range []string{"alpha", "charlie"} {
		_, ok, err := cache.Get(ctx, svc)
		require.NoError(t, err)
		assert.True(t, ok, "%s must be cached after RefreshAll", svc)
	}
	_, ok, err := cache.Get(ctx, "bravo")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestClearCacheInvalidatesLookups(t *testing.T) {
	f := &fakeFetcher{service: "redis", versions: apiVersions("7.4.1")}
	r, _ := newTestResolver(t, f)
	ctx := context.Background()

	_, err := r.GetAvailableVersions(ctx, "redis", false)
	require.NoError(t, err)
	require.NoError(t, r.ClearCache(ctx))

	_, err = r.GetAvailableVersions(ctx, "redis", false)
	require.NoError(t, err)
	assert.Equal(t, 2, f.calls, "cleared cache must force a refetch")
}
