// Package testutil provides shared test helpers for setting up data
// directories and record stores.
package testutil

import (
	"io"
	"log/slog"
	"testing"

	"github.com/starford/faqs/internal/faqstore"
	"github.com/starford/faqs/internal/storage"
)

// TestStore creates a record store in a temporary data directory.
// It returns the store, its provider and the directory path.
func TestStore(t *testing.T) (*faqstore.Store, storage.Provider, string) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	return faqstore.New(fs, faqstore.DefaultFile), fs, dir
}

// Logger returns a logger that discards everything.
func Logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}
