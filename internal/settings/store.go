// Package settings implements the on-disk JSON settings document.
//
// The document is shared by independent command invocations: no single
// process owns the file exclusively. Callers that mutate it must follow the
// reload → mutate → save discipline so the file is treated as the source of
// truth at call time. The store takes no lock; two writers racing between
// Reload and Save follow last-write-wins semantics.
package settings

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// Well-known scalar keys of the document.
const (
	KeyTextAPI  = "textApiKey"
	KeyImageAPI = "imageApiKey"
	KeyProjects = "projects"
)

// Store holds an in-memory snapshot of the settings document.
type Store struct {
	path string
	data map[string]json.RawMessage
}

// Open loads the document at path. A missing file is initialised with empty
// scalar keys and an empty projects map and saved immediately, so subsequent
// opens see a well-formed document.
func Open(path string) (*Store, error) {
	s := &Store{path: path, data: defaultDocument()}

	err := s.Reload()
	if errors.Is(err, os.ErrNotExist) {
		if err := s.Save(); err != nil {
			return nil, err
		}
		return s, nil
	}
	if err != nil {
		return nil, err
	}
	return s, nil
}

// Path returns the on-disk location of the document.
func (s *Store) Path() string {
	return s.path
}

// Get returns the raw value for key from the current in-memory snapshot.
// Callers needing freshness must Reload first; the store never auto-refreshes.
func (s *Store) Get(key string) (json.RawMessage, bool) {
	v, ok := s.data[key]
	return v, ok
}

// Set replaces the value for key in the in-memory snapshot. It does not
// persist; call Save.
func (s *Store) Set(key string, value json.RawMessage) {
	s.data[key] = value
}

// GetString returns the string value for key, or "" when the key is absent.
// A present non-string value is an error.
func (s *Store) GetString(key string) (string, error) {
	raw, ok := s.data[key]
	if !ok {
		return "", nil
	}
	var v string
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("settings: key %q is not a string: %w", key, err)
	}
	return v, nil
}

// SetString stores a string value for key in the in-memory snapshot.
func (s *Store) SetString(key, value string) {
	raw, _ := json.Marshal(value)
	s.data[key] = raw
}

// Reload replaces the in-memory snapshot with the document on disk.
func (s *Store) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("settings: read %s: %w", s.path, err)
	}
	doc := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("settings: parse %s: %w", s.path, err)
	}
	s.data = doc
	return nil
}

// Save atomically persists the in-memory snapshot: tmp file → fsync → rename.
// Either the whole document reaches disk or an error is reported.
func (s *Store) Save() error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("settings: mkdir: %w", err)
	}

	payload, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("settings: encode: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".plume-tmp-*")
	if err != nil {
		return fmt.Errorf("settings: create temp: %w", err)
	}
	tmpName := tmp.Name()

	// Clean up on any failure path.
	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(payload); err != nil {
		return fmt.Errorf("settings: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("settings: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("settings: close temp: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("settings: rename: %w", err)
	}
	success = true
	return nil
}

func defaultDocument() map[string]json.RawMessage {
	return map[string]json.RawMessage{
		KeyTextAPI:  json.RawMessage(`""`),
		KeyImageAPI: json.RawMessage(`""`),
		KeyProjects: json.RawMessage(`{}`),
	}
}
