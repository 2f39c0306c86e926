package gesture

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ayusman/signassess/internal/detector"
)

// ErrInvalidSample is returned when a training sample cannot be used.
var ErrInvalidSample = errors.New("invalid sample")

// Train averages recorded hand samples into template landmarks.
// Each sample is a JSON-encoded detector.HandLandmarks; samples are
// normalized before averaging so hand position and size do not matter.
func Train(samples []json.RawMessage) ([]detector.Point3D, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("%w: no samples provided", ErrInvalidSample)
	}

	var sum [detector.NumLandmarks]detector.Point3D
	for i, raw := range samples {
		var hand detector.HandLandmarks
		if err := json.Unmarshal(raw, &hand); err != nil {
			return nil, fmt.Errorf("%w: parse sample %d: %v", ErrInvalidSample, i, err)
		}
		if hand.Points[detector.MiddleMCP] == hand.Points[detector.Wrist] {
			return nil, fmt.Errorf("%w: sample %d has no usable landmarks", ErrInvalidSample, i)
		}

		n := hand.Normalize()
		for j, p := range n.Points {
			sum[j] = detector.Point3D{X: sum[j].X + p.X, Y: sum[j].Y + p.Y, Z: sum[j].Z + p.Z}
		}
	}

	avg := make([]detector.Point3D, detector.NumLandmarks)
	for j := range sum {
		avg[j] = sum[j].Scale(1 / float64(len(samples)))
	}
	return avg, nil
}
