package detector

import (
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// MockRecognizer is a Recognizer whose results are set by the caller.
// It is used in tests and as a fallback when no model is available.
type MockRecognizer struct {
	mu     sync.Mutex
	result *Result
	err    error
	calls  int
}

// NewMockRecognizer creates a MockRecognizer that sees nothing.
func NewMockRecognizer() *MockRecognizer {
	return &MockRecognizer{}
}

// SetResult sets the result returned by Recognize.
func (m *MockRecognizer) SetResult(r *Result) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.result = r
}

// SetGesture makes Recognize report a single hand showing the named sign.
func (m *MockRecognizer) SetGesture(name string, score float64, hand HandLandmarks) {
	m.SetResult(&Result{
		Hands:    []HandLandmarks{hand},
		Gestures: [][]Category{{{Name: name, Score: score}}},
	})
}

// SetError sets the error returned by Recognize.
func (m *MockRecognizer) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many frames were recognized.
func (m *MockRecognizer) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Recognize returns the configured result or error.
func (m *MockRecognizer) Recognize(frame *gocv.Mat, ts time.Time) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.result == nil {
		return &Result{}, nil
	}
	return m.result, nil
}

// Close is a no-op.
func (m *MockRecognizer) Close() error {
	return nil
}

// HelloLandmarks returns an open right palm facing the camera, the handshape of "Hello".
func HelloLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.95}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}

	h.Points[ThumbCMC] = Point3D{X: 0.55, Y: 0.75, Z: 0.02}
	h.Points[ThumbMCP] = Point3D{X: 0.62, Y: 0.70, Z: 0.03}
	h.Points[ThumbIP] = Point3D{X: 0.68, Y: 0.65, Z: 0.03}
	h.Points[ThumbTip] = Point3D{X: 0.73, Y: 0.60, Z: 0.03}

	fingers := [4]struct {
		mcp   int
		x     float64
		base  float64
		reach float64
	}{
		{IndexMCP, 0.56, 0.68, 0.33},
		{MiddleMCP, 0.50, 0.66, 0.38},
		{RingMCP, 0.44, 0.68, 0.33},
		{PinkyMCP, 0.39, 0.70, 0.28},
	}
	for _, f := range fingers {
		for j := 0; j < 4; j++ {
			h.Points[f.mcp+j] = Point3D{X: f.x, Y: f.base - f.reach*float64(j)/3}
		}
	}

	return h
}

// VLandmarks returns a right hand with index and middle fingers spread in a
// "V" and the other fingers folded under the thumb.
func VLandmarks() HandLandmarks {
	h := HandLandmarks{Handedness: "Right", Score: 0.93}

	h.Points[Wrist] = Point3D{X: 0.5, Y: 0.8}

	h.Points[ThumbCMC] = Point3D{X: 0.54, Y: 0.76, Z: -0.01}
	h.Points[ThumbMCP] = Point3D{X: 0.57, Y: 0.71, Z: -0.03}
	h.Points[ThumbIP] = Point3D{X: 0.55, Y: 0.67, Z: -0.05}
	h.Points[ThumbTip] = Point3D{X: 0.51, Y: 0.66, Z: -0.06}

	// Index leans right, middle leans left
	h.Points[IndexMCP] = Point3D{X: 0.55, Y: 0.68}
	h.Points[IndexPIP] = Point3D{X: 0.59, Y: 0.56}
	h.Points[IndexDIP] = Point3D{X: 0.62, Y: 0.47}
	h.Points[IndexTip] = Point3D{X: 0.65, Y: 0.39}

	h.Points[MiddleMCP] = Point3D{X: 0.50, Y: 0.66}
	h.Points[MiddlePIP] = Point3D{X: 0.47, Y: 0.53}
	h.Points[MiddleDIP] = Point3D{X: 0.45, Y: 0.44}
	h.Points[MiddleTip] = Point3D{X: 0.43, Y: 0.35}

	h.Points[RingMCP] = Point3D{X: 0.45, Y: 0.69, Z: -0.02}
	h.Points[RingPIP] = Point3D{X: 0.46, Y: 0.66, Z: -0.05}
	h.Points[RingDIP] = Point3D{X: 0.48, Y: 0.68, Z: -0.04}
	h.Points[RingTip] = Point3D{X: 0.49, Y: 0.70, Z: -0.02}

	h.Points[PinkyMCP] = Point3D{X: 0.41, Y: 0.71, Z: -0.02}
	h.Points[PinkyPIP] = Point3D{X: 0.42, Y: 0.69, Z: -0.05}
	h.Points[PinkyDIP] = Point3D{X: 0.44, Y: 0.70, Z: -0.04}
	h.Points[PinkyTip] = Point3D{X: 0.45, Y: 0.72, Z: -0.02}

	return h
}
