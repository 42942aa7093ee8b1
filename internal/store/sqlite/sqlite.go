package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/localforge/localforge/internal/store"
)

// DB implements store.Store for SQLite (modernc.org/sqlite driver, CGO-free).
// DSN is a filesystem path to the SQLite database file. Use ":memory:" for in-memory.

type DB struct {
	db *sql.DB
}

// New opens a SQLite database at path.
func New(path string) (*DB, error) {
	p := strings.TrimSpace(path)
	if p == "" {
		return nil, errors.New("empty sqlite path")
	}
	d, err := sql.Open("sqlite", p)
	if err != nil {
		return nil, err
	}
	// busy timeout helps with short concurrent locks
	_, _ = d.Exec("PRAGMA busy_timeout=3000;")
	return &DB{db: d}, nil
}

func (s *DB) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS version_cache(
		id TEXT PRIMARY KEY,
		document TEXT NOT NULL,
		updated_at TIMESTAMP NOT NULL
	);`)
	return err
}

func (s *DB) Close() error { return s.db.Close() }

func (s *DB) Load(ctx context.Context) (store.Document, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT document FROM version_cache WHERE id = ?;`, store.DocumentID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.EmptyDocument(), nil
	}
	if err != nil {
		return store.Document{}, err
	}
	var doc store.Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil || doc.Services == nil {
		// corrupt payload degrades to the empty document
		return store.EmptyDocument(), nil
	}
	return doc, nil
}

func (s *DB) Save(ctx context.Context, doc store.Document) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO version_cache(id, document, updated_at)
		VALUES(?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			document=excluded.document,
			updated_at=excluded.updated_at;`,
		store.DocumentID, string(b), time.Now().UTC())
	return err
}
