package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/ayusman/signassess/internal/app"
	"github.com/ayusman/signassess/internal/auth"
	"github.com/ayusman/signassess/internal/session"
	"github.com/ayusman/signassess/internal/store"
	"github.com/ayusman/signassess/internal/summary"
)

// SessionHandler starts and stops live sessions and serves stored summaries.
type SessionHandler struct {
	store    *store.Store
	sessions Sessions
}

// NewSessionHandler creates a SessionHandler.
func NewSessionHandler(s *store.Store, sessions Sessions) *SessionHandler {
	return &SessionHandler{store: s, sessions: sessions}
}

type startResponse struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Guest     bool   `json:"guest"`
	StartedAt string `json:"started_at"`
}

type stopResponse struct {
	Session *session.Record `json:"session"`
	Saved   bool            `json:"saved"`
	Error   string          `json:"error,omitempty"`
}

type sessionResponse struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Username     string              `json:"username"`
	TopSigns     []summary.SignCount `json:"top_signs"`
	SecondsSpent float64             `json:"seconds_spent"`
	Score        int                 `json:"score"`
	Questions    int                 `json:"questions"`
	CreatedAt    string              `json:"created_at"`
}

type listSessionsResponse struct {
	Sessions []sessionResponse `json:"sessions"`
}

func toSessionResponse(s *store.Session) sessionResponse {
	signs := make([]summary.SignCount, len(s.TopSigns))
	for i, sc := range s.TopSigns {
		signs[i] = summary.SignCount{Label: sc.Label, Count: sc.Count}
	}
	return sessionResponse{
		ID:           s.ID,
		UserID:       s.UserID,
		Username:     s.Username,
		TopSigns:     signs,
		SecondsSpent: s.SecondsSpent,
		Score:        s.Score,
		Questions:    s.Questions,
		CreatedAt:    s.CreatedAt.Format(timeFormat),
	}
}

func isConflict(err error) bool {
	return errors.Is(err, app.ErrSessionActive) || errors.Is(err, app.ErrNoSession)
}

// Start handles POST /api/session/start.
func (h *SessionHandler) Start(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	sc, err := h.sessions.StartSession(identity)
	if err != nil {
		if isConflict(err) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to start session")
		return
	}

	name := identity.Name
	if identity.IsGuest() {
		name = session.GuestName
	}

	writeJSON(w, http.StatusCreated, startResponse{
		ID:        sc.ID,
		Username:  name,
		Guest:     identity.IsGuest(),
		StartedAt: sc.StartedAt.Format(timeFormat),
	})
}

// Stop handles POST /api/session/stop. A session started by a user can
// only be stopped by that user.
func (h *SessionHandler) Stop(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	rec, saved, err := h.sessions.StopSessionFor(r.Context(), identity)
	if err != nil {
		if errors.Is(err, app.ErrNotOwner) {
			writeError(w, http.StatusForbidden, "Session belongs to another user")
			return
		}
		if isConflict(err) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		if rec != nil {
			// The summary exists but could not be persisted.
			writeJSON(w, http.StatusBadGateway, stopResponse{Session: rec, Error: "Failed to save session"})
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to stop session")
		return
	}

	writeJSON(w, http.StatusOK, stopResponse{Session: rec, Saved: saved})
}

// List handles GET /api/sessions for the authenticated user.
func (h *SessionHandler) List(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())

	sessions, err := h.store.Sessions().ListByUser(identity.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}

	response := listSessionsResponse{Sessions: make([]sessionResponse, 0, len(sessions))}
	for _, s := range sessions {
		response.Sessions = append(response.Sessions, toSessionResponse(s))
	}

	writeJSON(w, http.StatusOK, response)
}

// owned loads the session in the URL and checks it belongs to the caller.
// Sessions of other users are reported as missing.
func (h *SessionHandler) owned(w http.ResponseWriter, r *http.Request) (*store.Session, bool) {
	identity := auth.IdentityFromContext(r.Context())

	s, err := h.store.Sessions().GetByID(chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return nil, false
		}
		writeError(w, http.StatusInternalServerError, "Failed to get session")
		return nil, false
	}
	if s.UserID != identity.UserID {
		writeError(w, http.StatusNotFound, "Session not found")
		return nil, false
	}
	return s, true
}

// Get handles GET /api/sessions/{id}.
func (h *SessionHandler) Get(w http.ResponseWriter, r *http.Request) {
	s, ok := h.owned(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toSessionResponse(s))
}

// Delete handles DELETE /api/sessions/{id}.
func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s, ok := h.owned(w, r)
	if !ok {
		return
	}

	if err := h.store.Sessions().Delete(s.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Session not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete session")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
