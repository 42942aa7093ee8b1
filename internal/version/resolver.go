package version

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/localforge/localforge/internal/metrics"
)

// Resolver orchestrates cache-first lookup, live fetch with write-through,
// and the static fallback policy.
type Resolver struct {
	fetchers *Registry
	cache    *Cache
	log      *slog.Logger
}

func NewResolver(fetchers *Registry, cache *Cache, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{fetchers: fetchers, cache: cache, log: log}
}

// GetAvailableVersions returns the ranked version list for service.
// Without force, a fresh cache entry wins. A live fetch writes through to
// the cache. When the fetch fails and a built-in fallback exists, the
// fallback is returned instead of an error; a version lookup should not
// surface as a hard UI failure.
func (r *Resolver) GetAvailableVersions(ctx context.Context, service string, force bool) ([]Version, error) {
	if !force {
		if vs, ok, err := r.cache.Get(ctx, service); err == nil && ok {
			return vs, nil
		} else if err != nil {
			r.log.Warn("version cache read failed", "service", service, "error", err)
		}
	}

	f, ok := r.fetchers.Get(service)
	if !ok {
		return nil, fmt.Errorf("no version source for service %q", service)
	}

	start := time.Now()
	vs, err := f.Fetch(ctx)
	metrics.ObserveVersionFetchDuration(service, time.Since(start).Seconds())
	metrics.IncVersionFetch(service, err == nil)
	if err != nil {
		if fb := Fallback(service); len(fb) > 0 {
			r.log.Warn("version fetch failed, using fallback list", "service", service, "error", err)
			return fb, nil
		}
		return nil, fmt.Errorf("fetch versions for %s: %w", service, err)
	}

	if cerr := r.cache.Set(ctx, service, vs); cerr != nil {
		r.log.Warn("version cache write failed", "service", service, "error", cerr)
	}
	return vs, nil
}

// RefreshAll sweeps every registered service sequentially, fetching and
// caching each. Cache-document writes are serialized, so the sweep is
// intentionally not parallel. Per-service failures are collected in the
// result map (nil for success) and never abort the sweep.
func (r *Resolver) RefreshAll(ctx context.Context) map[string]error {
	results := make(map[string]error)
	for _, service := range r.fetchers.Services() {
		if err := ctx.Err(); err != nil {
			results[service] = err
			continue
		}
		f, _ := r.fetchers.Get(service)
		start := time.Now()
		vs, err := f.Fetch(ctx)
		metrics.ObserveVersionFetchDuration(service, time.Since(start).Seconds())
		metrics.IncVersionFetch(service, err == nil)
		if err != nil {
			results[service] = fmt.Errorf("fetch versions for %s: %w", service, err)
			continue
		}
		if err := r.cache.Set(ctx, service, vs); err != nil {
			results[service] = fmt.Errorf("cache versions for %s: %w", service, err)
			continue
		}
		results[service] = nil
	}
	return results
}

// ClearCache resets the persisted document.
func (r *Resolver) ClearCache(ctx context.Context) error {
	return r.cache.ClearAll(ctx)
}

// Services lists every service the resolver can fetch for.
func (r *Resolver) Services() []string { return r.fetchers.Services() }
