/* Copyright (c) 2026 Geekbank
 * SPDX-License-Identifier: BSD-3-Clause */
package host

import (
    "context"
    "database/sql"
    "fmt"

    _ "modernc.org/sqlite"
)

const (
    scopeLayer    = "layer"
    scopeDocument = "document"
)

// PropertyStore persists host object tags in a local SQLite database. It
// stands in for tools that do not expose their own plugin metadata storage.
type PropertyStore struct {
    db *sql.DB
}

// OpenPropertyStore opens or creates the store at path.
func OpenPropertyStore(path string) (*PropertyStore, error) {
    db, err := sql.Open("sqlite", path)
    if err != nil {
        return nil, fmt.Errorf("opening property store: %w", err)
    }

    // SQLite is single-writer; one connection avoids lock contention.
    db.SetMaxOpenConns(1)

    pragmas := []string{
        "PRAGMA journal_mode=WAL",
        "PRAGMA busy_timeout=5000",
    }
    for _, p := range pragmas {
        if _, err := db.Exec(p); err != nil {
            db.Close()
            return nil, fmt.Errorf("setting pragma %q: %w", p, err)
        }
    }

    schema := `CREATE TABLE IF NOT EXISTS properties (
        scope     TEXT NOT NULL,
        object_id TEXT NOT NULL,
        key       TEXT NOT NULL,
        value     TEXT NOT NULL,
        PRIMARY KEY (scope, object_id, key)
    )`
    if _, err := db.Exec(schema); err != nil {
        db.Close()
        return nil, fmt.Errorf("creating properties table: %w", err)
    }
    return &PropertyStore{db: db}, nil
}

func (s *PropertyStore) Close() error { return s.db.Close() }

func (s *PropertyStore) set(ctx context.Context, scope, objectID, key, value string) error {
    _, err := s.db.ExecContext(ctx,
        `INSERT INTO properties (scope, object_id, key, value) VALUES (?, ?, ?, ?)
         ON CONFLICT (scope, object_id, key) DO UPDATE SET value = excluded.value`,
        scope, objectID, key, value,
    )
    if err != nil {
        return fmt.Errorf("setting %s property %q: %w", scope, key, err)
    }
    return nil
}

func (s *PropertyStore) get(ctx context.Context, scope, objectID, key string) (string, error) {
    var value string
    err := s.db.QueryRowContext(ctx,
        `SELECT value FROM properties WHERE scope = ? AND object_id = ? AND key = ?`,
        scope, objectID, key,
    ).Scan(&value)
    if err == sql.ErrNoRows {
        return "", nil
    }
    if err != nil {
        return "", fmt.Errorf("reading %s property %q: %w", scope, key, err)
    }
    return value, nil
}

func (s *PropertyStore) SetLayerValue(ctx context.Context, layerID, key, value string) error {
    return s.set(ctx, scopeLayer, layerID, key, value)
}

func (s *PropertyStore) LayerValue(ctx context.Context, layerID, key string) (string, error) {
    return s.get(ctx, scopeLayer, layerID, key)
}

func (s *PropertyStore) SetDocumentValue(ctx context.Context, documentID, key, value string) error {
    return s.set(ctx, scopeDocument, documentID, key, value)
}

func (s *PropertyStore) DocumentValue(ctx context.Context, documentID, key string) (string, error) {
    return s.get(ctx, scopeDocument, documentID, key)
}
