// Package metadata persists display metadata for known packs (title,
// description, thumbnail, official flag) keyed by pack UUID.
//
// It is a lookup cache: library listings join against it, and archive
// packs refresh it whenever their embedded metadata is read. The store
// is SQLite-backed; schema is applied on open.
package metadata
