package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/localforge/localforge/internal/store"
)

type DB struct {
	db *sql.DB
}

func New(dsn string) (*DB, error) {
	d, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	return &DB{db: d}, nil
}

func (p *DB) EnsureSchema(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS version_cache(
		id TEXT PRIMARY KEY,
		document JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	);`)
	return err
}

func (p *DB) Close() error { return p.db.Close() }

func (p *DB) Load(ctx context.Context) (store.Document, error) {
	var raw []byte
	err := p.db.QueryRowContext(ctx,
		`SELECT document FROM version_cache WHERE id = $1;`, store.DocumentID).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return store.EmptyDocument(), nil
	}
	if err != nil {
		return store.Document{}, err
	}
	var doc store.Document
	if err := json.Unmarshal(raw, &doc); err != nil || doc.Services == nil {
		return store.EmptyDocument(), nil
	}
	return doc, nil
}

func (p *DB) Save(ctx context.Context, doc store.Document) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO version_cache(id, document, updated_at)
		VALUES($1, $2, $3)
		ON CONFLICT(id) DO UPDATE SET
			document=excluded.document,
			updated_at=excluded.updated_at;`,
		store.DocumentID, b, time.Now().UTC())
	return err
}
