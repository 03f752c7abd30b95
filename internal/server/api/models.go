package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/skin"
	"github.com/ayusman/mudra/internal/store"
)

// Trainer trains and activates skin models.
type Trainer interface {
	// Train captures the given number of frames and saves the resulting model as active.
	Train(ctx context.Context, frames int) (*store.Model, error)
	// ActivateModel makes a stored model current.
	ActivateModel(id string) error
}

// ModelHandler handles /api/models and /api/runs.
type ModelHandler struct {
	store   *store.Store
	trainer Trainer
}

// NewModelHandler creates a ModelHandler. trainer may be nil, in which case
// training and activation only touch the store.
func NewModelHandler(s *store.Store, trainer Trainer) *ModelHandler {
	return &ModelHandler{store: s, trainer: trainer}
}

// ServeHTTP routes /api/models, /api/models/{id}, /api/models/{id}/activate
// and /api/runs.
func (h *ModelHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api/runs" {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.listRuns(w, r)
		return
	}

	path := strings.TrimPrefix(r.URL.Path, "/api/models")
	path = strings.Trim(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.train(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	if id, ok := strings.CutSuffix(path, "/activate"); ok {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.activate(w, r, id)
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.get(w, r, path)
	case http.MethodDelete:
		h.delete(w, r, path)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type trainRequest struct {
	Frames int `json:"frames"`
}

type modelResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Positives int    `json:"positives"`
	Negatives int    `json:"negatives"`
	Stumps    int    `json:"stumps"`
	Active    bool   `json:"active"`
	CreatedAt string `json:"created_at"`
}

type listModelsResponse struct {
	Models []modelResponse `json:"models"`
}

type runResponse struct {
	ID         string `json:"id"`
	ModelID    string `json:"model_id,omitempty"`
	Frames     int    `json:"frames"`
	FacesFound int    `json:"faces_found"`
	Positives  int    `json:"positives"`
	Negatives  int    `json:"negatives"`
	DurationMS int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
	CreatedAt  string `json:"created_at"`
}

type listRunsResponse struct {
	Runs []runResponse `json:"runs"`
}

func toModelResponse(m *store.Model) modelResponse {
	resp := modelResponse{
		ID:        m.ID,
		Name:      m.Name,
		Positives: m.Positives,
		Negatives: m.Negatives,
		Active:    m.Active,
		CreatedAt: m.CreatedAt.Format(timeFormat),
	}
	var b skin.Boost
	if err := b.UnmarshalBinary(m.Data); err == nil {
		resp.Stumps = len(b.Stumps)
	}
	return resp
}

// list handles GET /api/models.
func (h *ModelHandler) list(w http.ResponseWriter, r *http.Request) {
	models, err := h.store.Models().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list models")
		return
	}

	resp := listModelsResponse{Models: make([]modelResponse, 0, len(models))}
	for _, m := range models {
		resp.Models = append(resp.Models, toModelResponse(m))
	}
	writeJSON(w, http.StatusOK, resp)
}

// get handles GET /api/models/{id}.
func (h *ModelHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	m, err := h.store.Models().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Model not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get model")
		return
	}
	writeJSON(w, http.StatusOK, toModelResponse(m))
}

// train handles POST /api/models. It blocks until training finishes.
func (h *ModelHandler) train(w http.ResponseWriter, r *http.Request) {
	if h.trainer == nil {
		writeError(w, http.StatusServiceUnavailable, "Training is not available")
		return
	}

	var req trainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Frames < 0 {
		writeError(w, http.StatusBadRequest, "Frames must not be negative")
		return
	}

	m, err := h.trainer.Train(r.Context(), req.Frames)
	if err != nil {
		if errors.Is(err, app.ErrTraining) {
			writeError(w, http.StatusConflict, "Training already in progress")
			return
		}
		writeError(w, http.StatusUnprocessableEntity, "Training failed: "+err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, toModelResponse(m))
}

// activate handles POST /api/models/{id}/activate.
func (h *ModelHandler) activate(w http.ResponseWriter, r *http.Request, id string) {
	var err error
	if h.trainer != nil {
		err = h.trainer.ActivateModel(id)
	} else {
		err = h.store.Models().Activate(id)
	}
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Model not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to activate model")
		return
	}
	h.get(w, r, id)
}

// delete handles DELETE /api/models/{id}.
func (h *ModelHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.store.Models().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Model not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete model")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// listRuns handles GET /api/runs?limit=n.
func (h *ModelHandler) listRuns(w http.ResponseWriter, r *http.Request) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	runs, err := h.store.Runs().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list runs")
		return
	}

	resp := listRunsResponse{Runs: make([]runResponse, 0, len(runs))}
	for _, run := range runs {
		resp.Runs = append(resp.Runs, runResponse{
			ID:         run.ID,
			ModelID:    run.ModelID,
			Frames:     run.Frames,
			FacesFound: run.FacesFound,
			Positives:  run.Positives,
			Negatives:  run.Negatives,
			DurationMS: run.Duration.Milliseconds(),
			Error:      run.Error,
			CreatedAt:  run.CreatedAt.Format(timeFormat),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}
