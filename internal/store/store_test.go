package store

import (
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestSettings_LoadDefaults(t *testing.T) {
	s := newTestStore(t)

	settings, err := s.Settings().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := DefaultSettings()
	if *settings != want {
		t.Errorf("Load() = %+v, want defaults %+v", *settings, want)
	}
}

func TestSettings_SaveAndLoad(t *testing.T) {
	s := newTestStore(t)

	settings := DefaultSettings()
	settings.Classifier.ExtensionRatio = 1.3
	settings.Classifier.OpenMin = 3
	settings.CameraID = 2

	if err := s.Settings().Save(&settings); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := s.Settings().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if *loaded != settings {
		t.Errorf("Load() = %+v, want %+v", *loaded, settings)
	}
}

func TestSettings_SaveOverwrites(t *testing.T) {
	s := newTestStore(t)

	first := DefaultSettings()
	first.Classifier.ExtensionRatio = 1.2
	if err := s.Settings().Save(&first); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	second := DefaultSettings()
	second.Classifier.ExtensionRatio = 1.4
	if err := s.Settings().Save(&second); err != nil {
		t.Fatalf("second Save() error = %v", err)
	}

	loaded, err := s.Settings().Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.Classifier.ExtensionRatio != 1.4 {
		t.Errorf("ExtensionRatio = %g, want 1.4", loaded.Classifier.ExtensionRatio)
	}
}

func TestSettings_GetMissingKey(t *testing.T) {
	s := newTestStore(t)

	if _, err := s.Settings().get("no-such-key"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("get() error = %v, want ErrNotFound", err)
	}
}
