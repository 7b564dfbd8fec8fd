package testsupport

import (
	"context"
	"testing"

	"tosho/internal/config"
	"tosho/internal/library"
)

// MustOpenStore opens a library.Store for tests and registers cleanup.
func MustOpenStore(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// AddTitle registers a tracked title for tests using the provided store.
func AddTitle(t testing.TB, store *library.Store, name string, urls ...string) *library.Title {
	t.Helper()

	if len(urls) == 0 {
		urls = []string{"https://primary.example/" + library.Slugify(name)}
	}
	title, err := store.AddTitle(context.Background(), name, urls)
	if err != nil {
		t.Fatalf("store.AddTitle: %v", err)
	}
	return title
}
