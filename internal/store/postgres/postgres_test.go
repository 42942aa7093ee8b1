package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/localforge/localforge/internal/store"
)

// startPostgresContainer starts a PostgreSQL container for tests and returns
// a DSN suitable for pgx stdlib. It skips the test if Docker is unavailable.
func startPostgresContainer(t *testing.T) (dsn string, terminate func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)

	container, err := postgres.Run(ctx, "postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
	)
	if err != nil {
		cancel()
		t.Skipf("Failed to start PostgreSQL container: %v", err)
		return "", nil
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		t.Skipf("Failed to get host info: %v", err)
		return "", nil
	}

	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = container.Terminate(ctx)
		cancel()
		t.Skipf("Failed to get mapped port: %v", err)
		return "", nil
	}

	dsn = fmt.Sprintf("postgres://test:test@%s:%s/testdb?sslmode=disable", host, port.Port())

	terminate = func() {
		_ = container.Terminate(ctx)
		cancel()
	}

	return dsn, terminate
}

func waitForPostgres(t *testing.T, dsn string) {
	// ping until timeout; the container can report ready before the DB
	// accepts connections
	deadline := time.Now().Add(45 * time.Second)
	for {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		db, err := sql.Open("pgx", dsn)
		if err == nil {
			if err = db.PingContext(ctx); err == nil {
				_ = db.Close()
				cancel()
				return
			}
			_ = db.Close()
		}
		cancel()
		if time.Now().After(deadline) {
			t.Fatalf("postgres not ready in time: %v", err)
		}
		time.Sleep(500 * time.Millisecond)
	}
}

func TestPostgresDocumentRoundtrip(t *testing.T) {
	dsn, terminate := startPostgresContainer(t)
	waitForPostgres(t, dsn)
	defer func() {
		if terminate != nil {
			terminate()
		}
	}()

	db, err := New(dsn)
	if err != nil {
		t.Fatalf("pg open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	ctx := context.Background()
	if err := db.EnsureSchema(ctx); err != nil {
		t.Fatalf("ensure schema: %v", err)
	}

	// empty database loads the empty document
	doc, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("load empty: %v", err)
	}
	if doc.Services == nil || len(doc.Services) != 0 {
		t.Fatalf("expected empty document, got %+v", doc)
	}

	// save and reload
	doc.Services["redis"] = store.CachedVersions{
		Service: "redis",
		Versions: []store.VersionEntry{
			{Version: "7.4.1", DownloadURL: "https://example.com/redis-7.4.1.tar.gz", Filename: "redis-7.4.1.tar.gz", Source: "api"},
		},
		FetchedAt: time.Now().UTC().Truncate(time.Second),
	}
	if err := db.Save(ctx, doc); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	entry, ok := got.Services["redis"]
	if !ok || len(entry.Versions) != 1 || entry.Versions[0].Version != "7.4.1" {
		t.Fatalf("unexpected document after roundtrip: %+v", got)
	}

	// save again replaces the single document row
	doc.Services["mailpit"] = store.CachedVersions{Service: "mailpit", FetchedAt: time.Now().UTC()}
	if err := db.Save(ctx, doc); err != nil {
		t.Fatalf("save update: %v", err)
	}
	got2, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("load update: %v", err)
	}
	if len(got2.Services) != 2 {
		t.Fatalf("expected 2 services, got %d", len(got2.Services))
	}

	// corrupt payload degrades to the empty document
	if _, err := db.db.ExecContext(ctx,
		`UPDATE version_cache SET document = '{"services": {}}'::jsonb WHERE id = $1;`,
		store.DocumentID); err != nil {
		t.Fatalf("reset document: %v", err)
	}
	got3, err := db.Load(ctx)
	if err != nil {
		t.Fatalf("load reset: %v", err)
	}
	if len(got3.Services) != 0 {
		t.Fatalf("expected empty services after reset, got %+v", got3)
	}
}
