package project

import (
	"encoding/json"
	"errors"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/nordvik/plume/internal/apperr"
	"github.com/nordvik/plume/internal/settings"
)

func tempRegistry(t *testing.T) *Registry {
	t.Helper()
	s, err := settings.Open(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	return NewRegistry(s)
}

func TestCreateThenGetReturnsDefaults(t *testing.T) {
	r := tempRegistry(t)
	if err := r.Create("Acme"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := r.Get("Acme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got == nil {
		t.Fatal("Get returned nil for existing project")
	}
	if !reflect.DeepEqual(*got, Project{}) {
		t.Errorf("record = %+v, want zero value", *got)
	}
}

func TestCreateDuplicate(t *testing.T) {
	r := tempRegistry(t)
	if err := r.Create("Acme"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	err := r.Create("Acme")
	if !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestCreateInvalidName(t *testing.T) {
	r := tempRegistry(t)
	for _, name := range []string{"", "   ", "\t\n"} {
		if err := r.Create(name); !errors.Is(err, apperr.ErrInvalidName) {
			t.Errorf("Create(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}

func TestNamesAreCaseSensitive(t *testing.T) {
	r := tempRegistry(t)
	if err := r.Create("acme"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := r.Create("Acme"); err != nil {
		t.Errorf("Create with different case: %v", err)
	}
}

func TestListSorted(t *testing.T) {
	r := tempRegistry(t)
	for _, name := range []string{"zebra", "Alpha", "mango"} {
		if err := r.Create(name); err != nil {
			t.Fatalf("Create(%s): %v", name, err)
		}
	}
	names, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	want := []string{"Alpha", "mango", "zebra"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List = %v, want %v", names, want)
	}
}

func TestGetAbsentIsNotError(t *testing.T) {
	r := tempRegistry(t)
	got, err := r.Get("missing")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != nil {
		t.Errorf("Get = %+v, want nil", got)
	}
}

func TestGetIsIdempotent(t *testing.T) {
	r := tempRegistry(t)
	if err := r.Create("Acme"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	p := Project{WordPressURL: "https://blog.example", GenerationGoal: "write about tools"}
	if err := r.Replace("Acme", p); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	first, err := r.Get("Acme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	second, err := r.Get("Acme")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("two gets differ: %+v vs %+v", first, second)
	}
}

func TestReplaceOverwritesWholeRecord(t *testing.T) {
	r := tempRegistry(t)
	if err := r.Create("Acme"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	full := Project{
		WordPressURL:   "https://blog.example",
		WordPressUser:  "admin",
		WordPressPass:  "pw",
		GenerationGoal: "tools",
		Sections:       []Section{{Instructions: "intro"}, {Instructions: "outro"}},
		WordCount:      1200,
		Model:          "gpt-4o",
	}
	if err := r.Replace("Acme", full); err != nil {
		t.Fatalf("Replace: %v", err)
	}

	// A replace with a sparse record clears the other fields.
	if err := r.Replace("Acme", Project{GenerationGoal: "only this"}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, _ := r.Get("Acme")
	if got.WordPressURL != "" || got.WordCount != 0 || len(got.Sections) != 0 {
		t.Errorf("replace merged instead of overwriting: %+v", got)
	}
}

func TestReplaceMissing(t *testing.T) {
	r := tempRegistry(t)
	err := r.Replace("ghost", Project{})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestSectionOrderPreserved(t *testing.T) {
	r := tempRegistry(t)
	if err := r.Create("Acme"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	sections := []Section{
		{Heading: "One", Instructions: "first"},
		{Heading: "Two", Instructions: "second"},
		{Heading: "Three", Instructions: "third"},
	}
	if err := r.Replace("Acme", Project{Sections: sections}); err != nil {
		t.Fatalf("Replace: %v", err)
	}
	got, _ := r.Get("Acme")
	if !reflect.DeepEqual(got.Sections, sections) {
		t.Errorf("sections = %+v, want insertion order", got.Sections)
	}
}

func TestDeleteMissing(t *testing.T) {
	r := tempRegistry(t)
	if err := r.Delete("ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestDeleteRemovesFromList(t *testing.T) {
	r := tempRegistry(t)
	_ = r.Create("keep")
	_ = r.Create("drop")
	if err := r.Delete("drop"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	names, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"keep"}) {
		t.Errorf("List = %v", names)
	}
}

func TestCorruptProjectsValue(t *testing.T) {
	s, err := settings.Open(filepath.Join(t.TempDir(), "settings.json"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Set(settings.KeyProjects, json.RawMessage(`"not a map"`))
	if err := s.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}
	r := NewRegistry(s)

	if _, err := r.List(); !errors.Is(err, apperr.ErrCorruptStore) {
		t.Errorf("List err = %v, want ErrCorruptStore", err)
	}
	if err := r.Create("Acme"); !errors.Is(err, apperr.ErrCorruptStore) {
		t.Errorf("Create err = %v, want ErrCorruptStore", err)
	}
}

func TestMutatorsSeeExternalWrites(t *testing.T) {
	r := tempRegistry(t)
	if err := r.Create("Acme"); err != nil {
		t.Fatalf("Create: %v", err)
	}

	// A second registry over the same file, as an independent invocation.
	other := NewRegistry(mustOpen(t, r.store.Path()))
	if err := other.Create("Beta"); err != nil {
		t.Fatalf("other Create: %v", err)
	}

	// The first registry reloads before mutating and keeps both.
	if err := r.Create("Gamma"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	names, _ := r.List()
	want := []string{"Acme", "Beta", "Gamma"}
	if !reflect.DeepEqual(names, want) {
		t.Errorf("List = %v, want %v", names, want)
	}
}

func TestSecretRoundTrip(t *testing.T) {
	r := tempRegistry(t)
	if err := r.SetSecret(settings.KeyTextAPI, "sk-abc"); err != nil {
		t.Fatalf("SetSecret: %v", err)
	}
	got, err := r.TextAPIKey()
	if err != nil {
		t.Fatalf("TextAPIKey: %v", err)
	}
	if got != "sk-abc" {
		t.Errorf("key = %q", got)
	}
}

func TestMaskKey(t *testing.T) {
	cases := map[string]string{
		"sk-1234567": "sk-12...",
		"abc":        "abc",
		"":           "",
	}
	for in, want := range cases {
		if got := MaskKey(in); got != want {
			t.Errorf("MaskKey(%q) = %q, want %q", in, got, want)
		}
	}
}

func mustOpen(t *testing.T, path string) *settings.Store {
	t.Helper()
	s, err := settings.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	return s
}
