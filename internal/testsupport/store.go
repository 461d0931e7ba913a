package testsupport

import (
	"testing"

	"fabula/internal/config"
	"fabula/internal/metadata"
)

// MustOpenStore opens a metadata.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *metadata.Store {
	t.Helper()

	store, err := metadata.Open(cfg)
	if err != nil {
		t.Fatalf("metadata.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}
