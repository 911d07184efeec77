package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rrocketmann/Hanvas/internal/gesture"
	"github.com/rrocketmann/Hanvas/internal/store"
)

func newHandler(t *testing.T) (*SettingsHandler, *gesture.Classifier) {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	classifier := gesture.NewClassifier(gesture.DefaultConfig())
	return NewSettingsHandler(s, classifier), classifier
}

func TestSettingsHandler_Get(t *testing.T) {
	h, _ := newHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/settings", nil))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusOK)
	}

	var settings store.Settings
	if err := json.NewDecoder(w.Body).Decode(&settings); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if settings.Classifier.ExtensionRatio != gesture.DefaultConfig().ExtensionRatio {
		t.Errorf("ExtensionRatio = %g, want %g", settings.Classifier.ExtensionRatio, gesture.DefaultConfig().ExtensionRatio)
	}
}

func TestSettingsHandler_Update(t *testing.T) {
	h, classifier := newHandler(t)

	body := `{"classifier": {"extension_ratio": 1.25, "open_min": 4, "fist_max": 1}, "camera_id": 1, "max_hands": 2}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(body)))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d: %s", w.Code, http.StatusOK, w.Body.String())
	}

	// The running classifier picks the new thresholds up immediately.
	if got := classifier.Config().ExtensionRatio; got != 1.25 {
		t.Errorf("classifier ExtensionRatio = %g, want 1.25", got)
	}
}

func TestSettingsHandler_Update_Invalid(t *testing.T) {
	h, _ := newHandler(t)

	tests := []struct {
		name string
		body string
	}{
		{"zero ratio", `{"classifier": {"extension_ratio": 0, "open_min": 4, "fist_max": 1}, "camera_id": 0, "max_hands": 2}`},
		{"fist above open", `{"classifier": {"extension_ratio": 1.15, "open_min": 2, "fist_max": 3}, "camera_id": 0, "max_hands": 2}`},
		{"bad json", `{`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPut, "/api/settings", strings.NewReader(tt.body)))

			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want %d", w.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestSettingsHandler_MethodNotAllowed(t *testing.T) {
	h, _ := newHandler(t)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/settings", nil))

	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want %d", w.Code, http.StatusMethodNotAllowed)
	}
}
