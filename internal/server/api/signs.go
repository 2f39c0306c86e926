package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/signassess/internal/gesture"
	"github.com/ayusman/signassess/internal/store"
)

// SignHandler serves the sign template resources.
type SignHandler struct {
	store   *store.Store
	trainer Trainer
}

// NewSignHandler creates a SignHandler.
func NewSignHandler(s *store.Store, t Trainer) *SignHandler {
	return &SignHandler{store: s, trainer: t}
}

// Routes mounts the handler under /api/signs.
func (h *SignHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Get("/{id}/samples", h.listSamples)
	r.Post("/{id}/samples", h.train)
	return r
}

type createSignRequest struct {
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
}

type createSamplesRequest struct {
	Samples []json.RawMessage `json:"samples"`
}

type signResponse struct {
	ID        string  `json:"id"`
	Name      string  `json:"name"`
	Tolerance float64 `json:"tolerance"`
	Samples   int     `json:"samples"`
	CreatedAt string  `json:"created_at"`
	UpdatedAt string  `json:"updated_at"`
}

type listSignsResponse struct {
	Signs []signResponse `json:"signs"`
}

type listSamplesResponse struct {
	Samples []json.RawMessage `json:"samples"`
}

type trainResponse struct {
	Samples int `json:"samples"`
}

func toSignResponse(sg *store.Sign) signResponse {
	return signResponse{
		ID:        sg.ID,
		Name:      sg.Name,
		Tolerance: sg.Tolerance,
		Samples:   sg.Samples,
		CreatedAt: sg.CreatedAt.Format(timeFormat),
		UpdatedAt: sg.UpdatedAt.Format(timeFormat),
	}
}

// list handles GET /api/signs.
func (h *SignHandler) list(w http.ResponseWriter, r *http.Request) {
	signs, err := h.store.Signs().List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list signs")
		return
	}

	response := listSignsResponse{Signs: make([]signResponse, 0, len(signs))}
	for _, sg := range signs {
		response.Signs = append(response.Signs, toSignResponse(sg))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/signs/{id}.
func (h *SignHandler) get(w http.ResponseWriter, r *http.Request) {
	sg, err := h.store.Signs().GetByID(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get sign")
		return
	}

	writeJSON(w, http.StatusOK, toSignResponse(sg))
}

// create handles POST /api/signs.
func (h *SignHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "Name is required")
		return
	}
	if req.Tolerance < 0 {
		writeError(w, http.StatusBadRequest, "Tolerance must not be negative")
		return
	}

	if _, err := h.store.Signs().GetByName(name); err == nil {
		writeError(w, http.StatusConflict, "Sign already exists")
		return
	}

	tolerance := req.Tolerance
	if tolerance == 0 {
		tolerance = gesture.DefaultTolerance
	}

	sg, err := h.trainer.CreateSign(name, tolerance)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create sign")
		return
	}

	writeJSON(w, http.StatusCreated, toSignResponse(sg))
}

// delete handles DELETE /api/signs/{id}.
func (h *SignHandler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.trainer.DeleteSign(chi.URLParam(r, "id")); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete sign")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// listSamples handles GET /api/signs/{id}/samples.
func (h *SignHandler) listSamples(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.store.Signs().GetByID(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to verify sign")
		return
	}

	samples, err := h.store.Signs().GetSamples(id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list samples")
		return
	}
	if samples == nil {
		samples = []json.RawMessage{}
	}

	writeJSON(w, http.StatusOK, listSamplesResponse{Samples: samples})
}

// train handles POST /api/signs/{id}/samples: the samples are stored and
// the sign's template is retrained from all of them.
func (h *SignHandler) train(w http.ResponseWriter, r *http.Request) {
	var req createSamplesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if len(req.Samples) == 0 {
		writeError(w, http.StatusBadRequest, "At least one sample is required")
		return
	}

	total, err := h.trainer.TrainSign(chi.URLParam(r, "id"), req.Samples)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Sign not found")
			return
		}
		if errors.Is(err, gesture.ErrInvalidSample) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to train sign")
		return
	}

	writeJSON(w, http.StatusCreated, trainResponse{Samples: total})
}
