package store

import (
	"context"
	"time"
)

// DocumentID is the fixed key under which the single version-cache
// document is persisted.
const DocumentID = "versions"

// VersionEntry is the persisted form of one discovered release.
type VersionEntry struct {
	Version     string    `json:"version"`
	DownloadURL string    `json:"download_url"`
	Filename    string    `json:"filename"`
	ReleaseDate time.Time `json:"release_date,omitzero"`
	Source      string    `json:"source"`
}

// CachedVersions is the per-service slice of the document. Versions keep
// the order they were cached in (descending by version).
type CachedVersions struct {
	Service   string         `json:"service"`
	Versions  []VersionEntry `json:"versions"`
	FetchedAt time.Time      `json:"fetched_at"`
}

// Document is the sole persisted aggregate: service name -> cached versions.
// It is always read and written as a whole.
type Document struct {
	Services map[string]CachedVersions `json:"services"`
}

// EmptyDocument is the explicit initial state used when nothing has been
// persisted yet or the persisted bytes cannot be decoded.
func EmptyDocument() Document {
	return Document{Services: make(map[string]CachedVersions)}
}

// Store persists the version-cache document. Implementations must treat an
// absent or undecodable row as EmptyDocument rather than an error.
type Store interface {
	EnsureSchema(ctx context.Context) error
	Load(ctx context.Context) (Document, error)
	Save(ctx context.Context, doc Document) error
	Close() error
}
