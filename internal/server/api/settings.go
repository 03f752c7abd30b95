package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/mudra/internal/tracker"
)

// Tuner reads and replaces the tracker settings.
type Tuner interface {
	TrackerConfig() tracker.Config
	UpdateTrackerConfig(cfg tracker.Config) error
}

// SettingsHandler handles /api/settings.
type SettingsHandler struct {
	tuner Tuner
}

// NewSettingsHandler creates a SettingsHandler.
func NewSettingsHandler(t Tuner) *SettingsHandler {
	return &SettingsHandler{tuner: t}
}

// ServeHTTP serves GET and PUT. PUT accepts a partial document laid over the
// current settings.
func (h *SettingsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.tuner.TrackerConfig())
	case http.MethodPut:
		cfg := h.tuner.TrackerConfig()
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid JSON")
			return
		}
		if err := h.tuner.UpdateTrackerConfig(cfg); err != nil {
			if errors.Is(err, tracker.ErrInvalidConfig) {
				writeError(w, http.StatusBadRequest, err.Error())
				return
			}
			writeError(w, http.StatusInternalServerError, "Failed to update settings")
			return
		}
		writeJSON(w, http.StatusOK, h.tuner.TrackerConfig())
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}
