// Package api provides HTTP API handlers for the Hanvas application.
package api

import (
	"encoding/json"
	"net/http"

	"github.com/rrocketmann/Hanvas/internal/gesture"
	"github.com/rrocketmann/Hanvas/internal/store"
)

// SettingsHandler handles HTTP requests for the persisted settings. Updates
// are applied to the running classifier immediately.
type SettingsHandler struct {
	store      *store.Store
	classifier *gesture.Classifier
}

// NewSettingsHandler creates a new SettingsHandler.
func NewSettingsHandler(s *store.Store, c *gesture.Classifier) *SettingsHandler {
	return &SettingsHandler{
		store:      s,
		classifier: c,
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		h.update(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *SettingsHandler) get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.store.Settings().Load()
	if err != nil {
		http.Error(w, "Failed to load settings", http.StatusInternalServerError)
		return
	}

	writeJSON(w, settings)
}

func (h *SettingsHandler) update(w http.ResponseWriter, r *http.Request) {
	var settings store.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	if err := validate(&settings); err != "" {
		http.Error(w, err, http.StatusBadRequest)
		return
	}

	if err := h.store.Settings().Save(&settings); err != nil {
		http.Error(w, "Failed to save settings", http.StatusInternalServerError)
		return
	}

	h.classifier.SetConfig(settings.Classifier)

	writeJSON(w, settings)
}

func validate(s *store.Settings) string {
	switch {
	case s.Classifier.ExtensionRatio <= 0:
		return "extension_ratio must be positive"
	case s.Classifier.OpenMin < 0 || s.Classifier.OpenMin > 5:
		return "open_min must be between 0 and 5"
	case s.Classifier.FistMax < 0 || s.Classifier.FistMax >= s.Classifier.OpenMin:
		return "fist_max must be non-negative and below open_min"
	case s.CameraID < 0:
		return "camera_id must be non-negative"
	case s.MaxHands < 1:
		return "max_hands must be at least 1"
	}
	return ""
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
