package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/signassess/internal/auth"
	"github.com/ayusman/signassess/internal/session"
	"github.com/ayusman/signassess/internal/store"
)

// UserHandler registers learners and reports the caller's identity.
type UserHandler struct {
	store *store.Store
}

// NewUserHandler creates a UserHandler.
func NewUserHandler(s *store.Store) *UserHandler {
	return &UserHandler{store: s}
}

type registerRequest struct {
	Name string `json:"name"`
}

type registerResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Token string `json:"token"`
}

type meResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Guest bool   `json:"guest"`
}

// Register handles POST /api/users. The token is only returned here.
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	u, token, err := auth.Register(h.store, req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrEmptyName) {
			writeError(w, http.StatusBadRequest, "Name is required")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to register user")
		return
	}

	writeJSON(w, http.StatusCreated, registerResponse{ID: u.ID, Name: u.Name, Token: token})
}

// Me handles GET /api/me.
func (h *UserHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity.IsGuest() {
		writeJSON(w, http.StatusOK, meResponse{ID: session.GuestName, Name: session.GuestName, Guest: true})
		return
	}
	writeJSON(w, http.StatusOK, meResponse{ID: identity.UserID, Name: identity.Name})
}
