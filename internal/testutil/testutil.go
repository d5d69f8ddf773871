// Package testutil provides shared test helpers for setting up workspaces and search indexes.
package testutil

import (
	"testing"

	"github.com/starford/ehwaz/internal/search"
	"github.com/starford/ehwaz/internal/storage"
)

// TestSearch opens an in-memory search index that is automatically closed.
func TestSearch(t *testing.T) *search.DB {
	t.Helper()
	db, err := search.Open("")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// TestWorkspace creates a temporary workspace directory with a storage.Provider.
func TestWorkspace(t *testing.T) (string, storage.Provider) {
	t.Helper()
	workspaceDir := t.TempDir()
	store, err := storage.NewFS(workspaceDir)
	if err != nil {
		t.Fatal(err)
	}
	return workspaceDir, store
}
