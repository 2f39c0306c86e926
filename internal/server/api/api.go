// Package api provides the JSON HTTP handlers of the assessment server.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ayusman/signassess/internal/quiz"
	"github.com/ayusman/signassess/internal/session"
	"github.com/ayusman/signassess/internal/store"
)

// Sessions starts and stops live assessment sessions.
type Sessions interface {
	StartSession(identity session.Identity) (*session.Context, error)
	StopSessionFor(ctx context.Context, identity session.Identity) (*session.Record, bool, error)
}

// Quiz drives the "perform this sign" questions.
type Quiz interface {
	Quiz() quiz.State
	NextQuestion() (quiz.State, error)
	ResetQuiz() quiz.State
}

// Trainer manages sign templates.
type Trainer interface {
	CreateSign(name string, tolerance float64) (*store.Sign, error)
	TrainSign(signID string, samples []json.RawMessage) (int, error)
	DeleteSign(signID string) error
}

type errorResponse struct {
	Error string `json:"error"`
}

const timeFormat = time.RFC3339

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		json.NewEncoder(w).Encode(data)
	}
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
