// Package server provides the HTTP surface: health, live cursor state, the
// debug mask stream, skin models and tracker settings.
package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/server/api"
	"github.com/ayusman/mudra/internal/store"
)

// Pipeline is the running tracker as seen by the server. *app.App
// implements it.
type Pipeline interface {
	api.Trainer
	api.Tuner

	Snapshot() app.Snapshot
	Subscribe() (<-chan app.Snapshot, func())
	WatchDebug() func()
	DebugJPEG() []byte
	IsEnabled() bool
	SetEnabled(enabled bool)
	Running() bool
}

// Config holds the server configuration. Every field is optional.
type Config struct {
	StaticDir string
	Store     *store.Store
	Pipeline  Pipeline
}

// Server represents the HTTP server.
type Server struct {
	config Config
	mux    *http.ServeMux
	start  time.Time
}

// New creates a new Server with the given configuration.
func New(config Config) *Server {
	s := &Server{
		config: config,
		mux:    http.NewServeMux(),
		start:  time.Now(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes registers the routes whose collaborators are configured.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/health", s.handleHealth)

	if p := s.config.Pipeline; p != nil {
		s.mux.HandleFunc("/api/state", s.handleState)
		s.mux.Handle("/api/stream", NewStreamHandler(p))
		s.mux.Handle("/api/cursor", NewCursorHandler(p))
		s.mux.Handle("/api/settings", api.NewSettingsHandler(p))
	}

	if s.config.Store != nil {
		var trainer api.Trainer
		if s.config.Pipeline != nil {
			trainer = s.config.Pipeline
		}
		models := api.NewModelHandler(s.config.Store, trainer)
		s.mux.Handle("/api/models", models)
		s.mux.Handle("/api/models/", models)
		s.mux.Handle("/api/runs", models)
	}

	if s.config.StaticDir != "" {
		s.mux.Handle("/", http.FileServer(http.Dir(s.config.StaticDir)))
	}
}

// ServeHTTP implements the http.Handler interface.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

// ListenAndServe starts the HTTP server on the given address.
func (s *Server) ListenAndServe(addr string) error {
	return http.ListenAndServe(addr, s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// handleHealth handles GET /api/health.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := map[string]any{
		"status":         "ok",
		"uptime":         time.Since(s.start).String(),
		"fps":            0.0,
		"tracker_status": "stopped",
	}
	if p := s.config.Pipeline; p != nil && p.Running() {
		snap := p.Snapshot()
		response["fps"] = snap.FPS
		response["tracker_status"] = snap.Status.String()
		if !p.IsEnabled() {
			response["tracker_status"] = "paused"
		}
	}

	writeJSON(w, http.StatusOK, response)
}

// stateResponse is the wire form of a snapshot.
type stateResponse struct {
	Buttons    string  `json:"buttons"`
	ButtonMask uint16  `json:"button_mask"`
	X          int     `json:"x"`
	Y          int     `json:"y"`
	Found      bool    `json:"found"`
	FaceFound  bool    `json:"face_found"`
	Status     string  `json:"status"`
	Fingers    int     `json:"fingers"`
	Mode       string  `json:"mode"`
	FPS        float64 `json:"fps"`
	Enabled    bool    `json:"enabled"`
}

func toStateResponse(snap app.Snapshot, enabled bool) stateResponse {
	return stateResponse{
		Buttons:    snap.State.Buttons.String(),
		ButtonMask: uint16(snap.State.Buttons),
		X:          snap.State.Pos.X,
		Y:          snap.State.Pos.Y,
		Found:      snap.Found,
		FaceFound:  snap.FaceFound,
		Status:     snap.Status.String(),
		Fingers:    snap.Fingers,
		Mode:       snap.Mode.String(),
		FPS:        snap.FPS,
		Enabled:    enabled,
	}
}

type enableRequest struct {
	Enabled *bool `json:"enabled"`
}

// handleState serves GET /api/state and pauses or resumes tracking on PUT
// {"enabled": bool}.
func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	p := s.config.Pipeline

	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req enableRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Enabled == nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Expected {\"enabled\": bool}"})
			return
		}
		p.SetEnabled(*req.Enabled)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	writeJSON(w, http.StatusOK, toStateResponse(p.Snapshot(), p.IsEnabled()))
}
