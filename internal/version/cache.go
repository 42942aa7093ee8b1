package version

import (
	"context"
	"sync"
	"time"

	"github.com/localforge/localforge/internal/store"
)

// DefaultTTL is the validity window of a cached version list.
const DefaultTTL = 24 * time.Hour

// Cache is a TTL-keyed view over the persisted version-cache document.
// Every mutation is a full read-modify-write of the document, serialized by
// the cache mutex; mutation frequency is low and the workload is read-mostly.
type Cache struct {
	mu  sync.Mutex
	st  store.Store
	ttl time.Duration
	now func() time.Time
}

func NewCache(st store.Store, ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{st: st, ttl: ttl, now: time.Now}
}

// Get returns the cached list for service with every entry retagged
// SourceCache. ok is false when there is no entry or the entry is stale.
func (c *Cache) Get(ctx context.Context, service string) ([]Version, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.st.Load(ctx)
	if err != nil {
		return nil, false, err
	}
	entry, ok := doc.Services[service]
	if !ok {
		return nil, false, nil
	}
	if c.now().Sub(entry.FetchedAt) >= c.ttl {
		return nil, false, nil
	}
	out := make([]Version, 0, len(entry.Versions))
	for _, e := range entry.Versions {
		out = append(out, Version{
			Version:     e.Version,
			DownloadURL: e.DownloadURL,
			Filename:    e.Filename,
			ReleaseDate: e.ReleaseDate,
			Source:      SourceCache,
		})
	}
	return out, true, nil
}

// Set overwrites the entry for service with FetchedAt = now and persists
// the whole document.
func (c *Cache) Set(ctx context.Context, service string, versions []Version) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	doc, err := c.st.Load(ctx)
	if err != nil {
		return err
	}
	entries := make([]store.VersionEntry, 0, len(versions))
	for _, v := range versions {
		entries = append(entries, store.VersionEntry{
			Version:     v.Version,
			DownloadURL: v.DownloadURL,
			Filename:    v.Filename,
			ReleaseDate: v.ReleaseDate,
			Source:      string(v.Source),
		})
	}
	doc.Services[service] = store.CachedVersions{
		Service:   service,
		Versions:  entries,
		FetchedAt: c.now().UTC(),
	}
	return c.st.Save(ctx, doc)
}

// ClearAll resets the document to its empty state and persists it.
func (c *Cache) ClearAll(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st.Save(ctx, store.EmptyDocument())
}
