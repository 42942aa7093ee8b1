package version

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// DefaultFetchTimeout bounds every live fetch. The resolver also passes a
// caller context, so cancellation works even below this ceiling.
const DefaultFetchTimeout = 15 * time.Second

// Fetcher produces the ranked list of available versions for one service.
// A failed fetch returns an error value; it never panics the caller.
type Fetcher interface {
	Service() string
	Fetch(ctx context.Context) ([]Version, error)
}

// Registry maps service names to their fetch strategy. Substituting fakes
// per name is the intended test seam.
type Registry struct {
	fetchers map[string]Fetcher
}

func NewRegistry() *Registry {
	return &Registry{fetchers: make(map[string]Fetcher)}
}

func (r *Registry) Register(f Fetcher) {
	r.fetchers[f.Service()] = f
}

func (r *Registry) Get(service string) (Fetcher, bool) {
	f, ok := r.fetchers[service]
	return f, ok
}

// Services returns registered service names in sorted order so bulk
// refresh sweeps are deterministic.
func (r *Registry) Services() []string {
	out := make([]string, 0, len(r.fetchers))
	for n := range r.fetchers {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// DefaultRegistry wires the production fetchers for every known service.
// client may be nil, in which case a client with DefaultFetchTimeout is used.
func DefaultRegistry(client *http.Client) *Registry {
	if client == nil {
		client = &http.Client{Timeout: DefaultFetchTimeout}
	}
	r := NewRegistry()
	r.Register(&releaseAPIFetcher{
		service:     "redis",
		client:      client,
		apiURL:      "https://api.github.com/repos/redis/redis/releases",
		urlPattern:  "https://download.redis.io/releases/redis-{version}.tar.gz",
		filePattern: "redis-{version}.tar.gz",
	})
	r.Register(&releaseAPIFetcher{
		service:     "mailpit",
		client:      client,
		apiURL:      "https://api.github.com/repos/axllent/mailpit/releases",
		urlPattern:  "https://github.com/axllent/mailpit/releases/download/v{version}/mailpit-linux-amd64.tar.gz",
		filePattern: "mailpit-v{version}-linux-amd64.tar.gz",
	})
	r.Register(&releaseAPIFetcher{
		service:     "meilisearch",
		client:      client,
		apiURL:      "https://api.github.com/repos/meilisearch/meilisearch/releases",
		urlPattern:  "https://github.com/meilisearch/meilisearch/releases/download/v{version}/meilisearch-linux-amd64",
		filePattern: "meilisearch-v{version}",
	})
	r.Register(&pageScrapeFetcher{
		service:     "mariadb",
		client:      client,
		pageURL:     "https://archive.mariadb.org/",
		hrefPattern: `mariadb-(\d+\.\d+\.\d+)/`,
		urlPattern:  "https://archive.mariadb.org/mariadb-{version}/source/mariadb-{version}.tar.gz",
		filePattern: "mariadb-{version}.tar.gz",
	})
	r.Register(&pageScrapeFetcher{
		service:     "minio",
		client:      client,
		pageURL:     "https://dl.min.io/server/minio/release/linux-amd64/archive/",
		hrefPattern: `minio\.(RELEASE\.[0-9TZ-]+)(?:"|<)`,
		urlPattern:  "https://dl.min.io/server/minio/release/linux-amd64/archive/minio.{version}",
		filePattern: "minio.{version}",
	})
	r.Register(&releaseAPIFetcher{
		service:     "ngrok",
		client:      client,
		apiURL:      "https://api.github.com/repos/ngrok/ngrok-api-go/releases",
		urlPattern:  "https://bin.equinox.io/c/bNyj1mQVY4c/ngrok-v3-stable-linux-amd64.tgz",
		filePattern: "ngrok-v3-stable-linux-amd64.tgz",
	})
	return r
}
