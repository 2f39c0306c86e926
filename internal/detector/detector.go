// Package detector defines the boundary to the hand-gesture recognizer that
// labels each video frame, and the landmark types it reports.
package detector

import (
	"time"

	"gocv.io/x/gocv"
)

// Recognizer labels hand gestures in video frames.
type Recognizer interface {
	// Recognize runs the model on a frame captured at ts. Timestamps must be
	// increasing across calls (video running mode).
	Recognize(frame *gocv.Mat, ts time.Time) (*Result, error)

	// Close releases any resources held by the recognizer.
	Close() error
}

// Category is one gesture label with its confidence.
type Category struct {
	Name  string  `json:"category_name"`
	Score float64 `json:"score"`
}

// Result is what the recognizer saw in one frame.
type Result struct {
	Hands []HandLandmarks `json:"hands"`
	// Gestures holds the candidate categories per hand, best first.
	Gestures [][]Category `json:"gestures"`
}

// Top returns the best category of the first hand.
func (r *Result) Top() (Category, bool) {
	if r == nil || len(r.Gestures) == 0 || len(r.Gestures[0]) == 0 {
		return Category{}, false
	}
	return r.Gestures[0][0], true
}

// Config holds recognizer options.
type Config struct {
	// MaxHands is the maximum number of hands to detect (default: 2).
	MaxHands int

	// MinConfidence is the minimum detection confidence threshold (0.0-1.0).
	MinConfidence float64

	// ModelPath is the gesture recognizer model bundle (.task file).
	ModelPath string
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		MaxHands:      2,
		MinConfidence: 0.5,
	}
}
