// Package cache persists decoded compilation-unit artifacts keyed by
// a sha256 content hash, and, in --debug mode, queryable dumps of the
// closure map / liveness map / warning set — generalizing
// internal/ext/cache.go's "hash the inputs, skip the work if
// unchanged" technique from a binary cache to a structured database.
package cache

import (
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Cache wraps a sqlite database storing two tables: artifacts (the
// content-hash -> decoded-unit-JSON cache) and dumps (session-scoped
// debug introspection blobs).
type Cache struct {
	db *sql.DB
}

// Open creates (if needed) and opens the cache database at dir/cache.db.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache dir %s: %w", dir, err)
	}
	db, err := sql.Open("sqlite", filepath.Join(dir, "cache.db"))
	if err != nil {
		return nil, fmt.Errorf("opening cache db: %w", err)
	}
	c := &Cache{db: db}
	if err := c.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	return c, nil
}

func (c *Cache) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS artifacts (
			hash TEXT PRIMARY KEY,
			path TEXT NOT NULL,
			unit_json BLOB NOT NULL,
			cached_at INTEGER NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS dumps (
			session TEXT NOT NULL,
			kind TEXT NOT NULL,
			body BLOB NOT NULL,
			created_at INTEGER NOT NULL,
			PRIMARY KEY (session, kind)
		)`,
	}
	for _, s := range stmts {
		if _, err := c.db.Exec(s); err != nil {
			return fmt.Errorf("migrating cache schema: %w", err)
		}
	}
	return nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// ContentHash returns the hex sha256 digest of data, this cache's key.
func ContentHash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Lookup returns the cached decoded-unit JSON for hash, if present.
func (c *Cache) Lookup(hash string) ([]byte, bool, error) {
	var body []byte
	err := c.db.QueryRow(`SELECT unit_json FROM artifacts WHERE hash = ?`, hash).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying artifact cache: %w", err)
	}
	return body, true, nil
}

// Store records the decoded-unit JSON for hash.
func (c *Cache) Store(hash, path string, unitJSON []byte) error {
	_, err := c.db.Exec(
		`INSERT INTO artifacts (hash, path, unit_json, cached_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(hash) DO UPDATE SET path = excluded.path, unit_json = excluded.unit_json, cached_at = excluded.cached_at`,
		hash, path, unitJSON, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("storing artifact cache entry: %w", err)
	}
	return nil
}

// StoreDump records a --debug introspection blob (kind is e.g.
// "closure", "liveness", "warnings") for session, readable back with
// LoadDump.
func (c *Cache) StoreDump(session, kind string, body []byte) error {
	_, err := c.db.Exec(
		`INSERT INTO dumps (session, kind, body, created_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(session, kind) DO UPDATE SET body = excluded.body, created_at = excluded.created_at`,
		session, kind, body, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("storing debug dump: %w", err)
	}
	return nil
}

// LoadDump returns a previously stored debug dump.
func (c *Cache) LoadDump(session, kind string) ([]byte, bool, error) {
	var body []byte
	err := c.db.QueryRow(`SELECT body FROM dumps WHERE session = ? AND kind = ?`, session, kind).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("querying debug dump: %w", err)
	}
	return body, true, nil
}
