package project

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/nordvik/plume/internal/apperr"
	"github.com/nordvik/plume/internal/settings"
)

// Registry provides CRUD over the projects key-space of the settings store.
//
// Every mutating operation wraps a Reload → mutate → Save cycle so the
// document on disk is the source of truth at call time. This is last-write-
// wins: two invocations racing between reload and save can clobber each
// other, and the registry does not try to serialise them.
type Registry struct {
	store *settings.Store
}

// NewRegistry creates a registry over the given store.
func NewRegistry(store *settings.Store) *Registry {
	return &Registry{store: store}
}

// projects decodes the projects map from the current snapshot. A malformed
// value is a fatal ErrCorruptStore for the calling operation, never silently
// replaced.
func (r *Registry) projects() (map[string]Project, error) {
	raw, ok := r.store.Get(settings.KeyProjects)
	if !ok {
		return map[string]Project{}, nil
	}
	var m map[string]Project
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", apperr.ErrCorruptStore, err)
	}
	if m == nil {
		m = map[string]Project{}
	}
	return m, nil
}

func (r *Registry) writeProjects(m map[string]Project) error {
	raw, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("project: encode: %w", err)
	}
	r.store.Set(settings.KeyProjects, raw)
	return r.store.Save()
}

// Create inserts a new project with default fields under name.
func (r *Registry) Create(name string) error {
	if strings.TrimSpace(name) == "" {
		return apperr.ErrInvalidName
	}
	if err := r.store.Reload(); err != nil {
		return err
	}
	m, err := r.projects()
	if err != nil {
		return err
	}
	if _, ok := m[name]; ok {
		return fmt.Errorf("project %q: %w", name, apperr.ErrAlreadyExists)
	}
	m[name] = Project{}
	return r.writeProjects(m)
}

// List returns all project names, lexicographically sorted.
func (r *Registry) List() ([]string, error) {
	if err := r.store.Reload(); err != nil {
		return nil, err
	}
	m, err := r.projects()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Get returns the project record, or nil when absent. Absence is not an
// error.
func (r *Registry) Get(name string) (*Project, error) {
	if err := r.store.Reload(); err != nil {
		return nil, err
	}
	m, err := r.projects()
	if err != nil {
		return nil, err
	}
	p, ok := m[name]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

// Replace overwrites the entire record for name. The record is replaced
// wholesale, not merged per field.
func (r *Registry) Replace(name string, p Project) error {
	if err := r.store.Reload(); err != nil {
		return err
	}
	m, err := r.projects()
	if err != nil {
		return err
	}
	if _, ok := m[name]; !ok {
		return fmt.Errorf("project %q: %w", name, apperr.ErrNotFound)
	}
	m[name] = p
	return r.writeProjects(m)
}

// Delete removes the record for name and persists.
func (r *Registry) Delete(name string) error {
	if err := r.store.Reload(); err != nil {
		return err
	}
	m, err := r.projects()
	if err != nil {
		return err
	}
	if _, ok := m[name]; !ok {
		return fmt.Errorf("project %q: %w", name, apperr.ErrNotFound)
	}
	delete(m, name)
	return r.writeProjects(m)
}

// Secret returns the scalar secret stored under key, freshly reloaded.
func (r *Registry) Secret(key string) (string, error) {
	if err := r.store.Reload(); err != nil {
		return "", err
	}
	return r.store.GetString(key)
}

// SetSecret stores a scalar secret under key and persists.
func (r *Registry) SetSecret(key, value string) error {
	if err := r.store.Reload(); err != nil {
		return err
	}
	r.store.SetString(key, value)
	return r.store.Save()
}

// TextAPIKey returns the text-generation provider key.
func (r *Registry) TextAPIKey() (string, error) {
	return r.Secret(settings.KeyTextAPI)
}

// ImageAPIKey returns the image-generation provider key.
func (r *Registry) ImageAPIKey() (string, error) {
	return r.Secret(settings.KeyImageAPI)
}

// MaskKey renders a secret for display: the first few characters followed by
// an ellipsis, or the full value when it is already that short.
func MaskKey(key string) string {
	if len(key) > 5 {
		return key[:5] + "..."
	}
	return key
}
