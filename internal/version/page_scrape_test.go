package version

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const archivePage = `<html><body>
<a href="mariadb-10.11.10/">mariadb-10.11.10/</a>
<a href="mariadb-11.4.4/">mariadb-11.4.4/</a>
<a href="mariadb-11.4.4/">mariadb-11.4.4/</a>
<a href="mariadb-10.6.20/">mariadb-10.6.20/</a>
<a href="other-1.0/">other</a>
</body></html>`

func newScrapeFetcher(srvURL string) *pageScrapeFetcher {
	return &pageScrapeFetcher{
		service:     "mariadb",
		client:      &http.Client{},
		pageURL:     srvURL,
		hrefPattern: `mariadb-(\d+\.\d+\.\d+)/`,
		urlPattern:  "https://archive.example.org/mariadb-{version}/mariadb-{version}.tar.gz",
		filePattern: "mariadb-{version}.tar.gz",
	}
}

func TestPageScrapeFetcherExtractsAndDedupes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(archivePage))
	}))
	defer srv.Close()

	got, err := newScrapeFetcher(srv.URL).Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"11.4.4", "10.11.10", "10.6.20"}, versionsOf(got))
	assert.Equal(t, "https://archive.example.org/mariadb-11.4.4/mariadb-11.4.4.tar.gz", got[0].DownloadURL)
	assert.Equal(t, SourceAPI, got[0].Source)
}

func TestPageScrapeFetcherNoTokens(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html><body>nothing here</body></html>`))
	}))
	defer srv.Close()

	_, err := newScrapeFetcher(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no version tokens")
}

func TestPageScrapeFetcherNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusGone)
	}))
	defer srv.Close()

	_, err := newScrapeFetcher(srv.URL).Fetch(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status")
}

func TestDefaultRegistryCoversKnownServices(t *testing.T) {
	r := DefaultRegistry(nil)
	for _, svc := range []string{"redis", "mariadb", "mailpit", "meilisearch", "minio", "ngrok"} {
		_, ok := r.Get(svc)
		assert.True(t, ok, "missing fetcher for %s", svc)
	}
	assert.Equal(t, []string{"mailpit", "mariadb", "meilisearch", "minio", "ngrok", "redis"}, r.Services())
}
