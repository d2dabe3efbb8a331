// Package testutil provides shared test helpers for setting up settings stores.
package testutil

import (
	"path/filepath"
	"testing"

	"github.com/nordvik/plume/internal/project"
	"github.com/nordvik/plume/internal/settings"
)

// TestStore creates a settings document in a temporary directory.
func TestStore(t *testing.T) *settings.Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "plume.json")
	store, err := settings.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	return store
}

// TestRegistry creates a project registry backed by a temporary settings document.
func TestRegistry(t *testing.T) *project.Registry {
	t.Helper()
	return project.NewRegistry(TestStore(t))
}
