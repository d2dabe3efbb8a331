package settings

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func tempStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "settings.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return s
}

func TestOpenInitialisesMissingFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	// The document must exist on disk immediately.
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not created: %v", err)
	}

	// And hold the default keys.
	for _, key := range []string{KeyTextAPI, KeyImageAPI, KeyProjects} {
		if _, ok := s.Get(key); !ok {
			t.Errorf("missing default key %q", key)
		}
	}

	// A second open reads the same well-formed document.
	s2, err := Open(path)
	if err != nil {
		t.Fatalf("second Open: %v", err)
	}
	if v, err := s2.GetString(KeyTextAPI); err != nil || v != "" {
		t.Errorf("GetString(%s) = %q, %v", KeyTextAPI, v, err)
	}
}

func TestSetStringRoundTrip(t *testing.T) {
	s := tempStore(t)
	s.SetString(KeyTextAPI, "sk-test-123")
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	fresh, err := Open(s.Path())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	got, err := fresh.GetString(KeyTextAPI)
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if got != "sk-test-123" {
		t.Errorf("value = %q", got)
	}
}

func TestGetStringAbsentKey(t *testing.T) {
	s := tempStore(t)
	got, err := s.GetString("nope")
	if err != nil {
		t.Fatalf("GetString: %v", err)
	}
	if got != "" {
		t.Errorf("absent key = %q, want empty", got)
	}
}

func TestGetStringNonString(t *testing.T) {
	s := tempStore(t)
	s.Set("count", json.RawMessage(`42`))
	if _, err := s.GetString("count"); err == nil {
		t.Error("expected error for non-string value")
	}
}

func TestGetDoesNotAutoRefresh(t *testing.T) {
	s := tempStore(t)

	// Another invocation changes the file behind our back.
	other, err := Open(s.Path())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	other.SetString(KeyTextAPI, "changed")
	if err := other.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Get operates on the stale snapshot until Reload.
	got, _ := s.GetString(KeyTextAPI)
	if got != "" {
		t.Errorf("snapshot = %q, want stale empty value", got)
	}
	if err := s.Reload(); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	got, _ = s.GetString(KeyTextAPI)
	if got != "changed" {
		t.Errorf("after reload = %q", got)
	}
}

func TestReloadRejectsMalformedDocument(t *testing.T) {
	s := tempStore(t)
	if err := os.WriteFile(s.Path(), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := s.Reload(); err == nil {
		t.Error("expected error for malformed document")
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	s := tempStore(t)
	s.SetString(KeyImageAPI, "ik-1")
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("dir has %d entries, want only the document", len(entries))
	}
}
