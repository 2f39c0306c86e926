package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ayusman/signassess/internal/summary"
)

type summarizeRequest struct {
	Frames []summary.FrameDetection `json:"frames"`
	TopN   *int                     `json:"top_n"`
}

// SummarizeHandler ranks the signs of a detection stream sent by the client.
type SummarizeHandler struct {
	defaultTopN int
}

// NewSummarizeHandler creates a SummarizeHandler. Requests without top_n
// use defaultTopN.
func NewSummarizeHandler(defaultTopN int) *SummarizeHandler {
	if defaultTopN <= 0 {
		defaultTopN = summary.DefaultTopN
	}
	return &SummarizeHandler{defaultTopN: defaultTopN}
}

// ServeHTTP handles POST /api/summarize.
func (h *SummarizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req summarizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	topN := h.defaultTopN
	if req.TopN != nil {
		topN = *req.TopN
	}

	sum, err := summary.Summarize(req.Frames, topN)
	if err != nil {
		if errors.Is(err, summary.ErrInvalidArgument) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to summarize")
		return
	}

	writeJSON(w, http.StatusOK, sum)
}
