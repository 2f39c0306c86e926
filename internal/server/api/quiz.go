package api

import (
	"errors"
	"net/http"

	"github.com/ayusman/signassess/internal/quiz"
)

// QuizHandler exposes the quiz shown next to the camera.
type QuizHandler struct {
	quiz Quiz
}

// NewQuizHandler creates a QuizHandler.
func NewQuizHandler(q Quiz) *QuizHandler {
	return &QuizHandler{quiz: q}
}

// Get handles GET /api/quiz.
func (h *QuizHandler) Get(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.quiz.Quiz())
}

// Next handles POST /api/quiz/next. Submitting a completed quiz is a conflict.
func (h *QuizHandler) Next(w http.ResponseWriter, r *http.Request) {
	st, err := h.quiz.NextQuestion()
	if err != nil {
		if errors.Is(err, quiz.ErrCompleted) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to advance quiz")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Reset handles POST /api/quiz/reset.
func (h *QuizHandler) Reset(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.quiz.ResetQuiz())
}
