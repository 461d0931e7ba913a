package metadata

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"fabula/internal/config"
)

const schema = `
CREATE TABLE IF NOT EXISTS pack_metadata (
    uuid        TEXT PRIMARY KEY,
    title       TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    thumbnail   BLOB,
    official    INTEGER NOT NULL DEFAULT 0,
    updated_at  TEXT NOT NULL
);
`

// PackMetadata is one enrichment record.
type PackMetadata struct {
	UUID        string
	Title       string
	Description string
	Thumbnail   []byte
	Official    bool
}

// Store manages enrichment metadata persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the metadata database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "metadata.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{db: db, path: dbPath}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the on-disk database location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Get returns the enrichment record for a pack UUID, or nil when the
// pack is unknown.
func (s *Store) Get(ctx context.Context, uuid string) (*PackMetadata, error) {
	uuid = strings.TrimSpace(uuid)
	if uuid == "" {
		return nil, errors.New("uuid required")
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT uuid, title, description, thumbnail, official FROM pack_metadata WHERE uuid = ?`, uuid)

	var meta PackMetadata
	var official int
	err := row.Scan(&meta.UUID, &meta.Title, &meta.Description, &meta.Thumbnail, &official)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("query metadata: %w", err)
	}
	meta.Official = official != 0
	return &meta, nil
}

// Put inserts or refreshes the enrichment record for a pack.
func (s *Store) Put(ctx context.Context, meta PackMetadata) error {
	meta.UUID = strings.TrimSpace(meta.UUID)
	if meta.UUID == "" {
		return errors.New("uuid required")
	}

	official := 0
	if meta.Official {
		official = 1
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO pack_metadata (uuid, title, description, thumbnail, official, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)
         ON CONFLICT(uuid) DO UPDATE SET
            title = excluded.title,
            description = excluded.description,
            thumbnail = excluded.thumbnail,
            official = excluded.official,
            updated_at = excluded.updated_at`,
		meta.UUID, meta.Title, meta.Description, meta.Thumbnail, official,
		time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert metadata: %w", err)
	}
	return nil
}
