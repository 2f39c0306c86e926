// Package session tracks a single webcam assessment session from start to its persisted record.
package session

import (
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/signassess/internal/summary"
)

// GuestName is recorded as both user id and name for unauthenticated sessions.
const GuestName = "Guest"

// Identity describes who is performing the session.
// The zero value is a guest.
type Identity struct {
	UserID string
	Name   string
}

// IsGuest reports whether the identity belongs to an unauthenticated user.
func (i Identity) IsGuest() bool {
	return i.UserID == ""
}

// Context is created when a session starts and carries everything the
// summary record needs besides the detections themselves.
type Context struct {
	ID        string
	Identity  Identity
	StartedAt time.Time
}

// Start creates a new session context.
func Start(identity Identity, now time.Time) *Context {
	return &Context{
		ID:        uuid.New().String(),
		Identity:  identity,
		StartedAt: now,
	}
}

// Elapsed returns the duration between the session start and end.
func (c *Context) Elapsed(end time.Time) time.Duration {
	d := end.Sub(c.StartedAt)
	if d < 0 {
		return 0
	}
	return d
}

// Recorder buffers per-frame detections while a session runs.
// The frame loop appends; the session owner drains once at the end.
type Recorder struct {
	mu     sync.Mutex
	frames []summary.FrameDetection
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Append adds a detection to the buffer.
func (r *Recorder) Append(d summary.FrameDetection) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, d)
}

// Len returns the number of buffered detections.
func (r *Recorder) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.frames)
}

// Drain returns the buffered detections and resets the buffer.
func (r *Recorder) Drain() []summary.FrameDetection {
	r.mu.Lock()
	defer r.mu.Unlock()
	frames := r.frames
	r.frames = nil
	return frames
}

// Score is the quiz result attached to a record.
type Score struct {
	Marks     int `json:"score"`
	Questions int `json:"questions"`
}

// Record is the summary stored for a finished session.
type Record struct {
	ID           string              `json:"id"`
	UserID       string              `json:"user_id"`
	Username     string              `json:"username"`
	TopSigns     []summary.SignCount `json:"top_signs"`
	CreatedAt    time.Time           `json:"created_at"`
	SecondsSpent float64             `json:"seconds_spent"`
	Score        int                 `json:"score"`
	Questions    int                 `json:"questions"`
}

// Finish summarizes the session's detections into a Record.
func Finish(c *Context, frames []summary.FrameDetection, topN int, end time.Time, score Score) (*Record, error) {
	sum, err := summary.Summarize(frames, topN)
	if err != nil {
		return nil, err
	}

	userID, name := c.Identity.UserID, c.Identity.Name
	if c.Identity.IsGuest() {
		userID, name = GuestName, GuestName
	}

	return &Record{
		ID:           c.ID,
		UserID:       userID,
		Username:     name,
		TopSigns:     sum.TopSigns,
		CreatedAt:    end,
		SecondsSpent: roundSeconds(c.Elapsed(end)),
		Score:        score.Marks,
		Questions:    score.Questions,
	}, nil
}

// roundSeconds converts d to seconds with two decimal places.
func roundSeconds(d time.Duration) float64 {
	return math.Round(d.Seconds()*100) / 100
}
