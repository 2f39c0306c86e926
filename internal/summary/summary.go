// Package summary turns a noisy per-frame gesture stream into a ranked top-N list of signs.
package summary

import (
	"errors"
	"fmt"
	"sort"
)

// DefaultTopN is the number of signs kept in a session summary.
const DefaultTopN = 5

// ErrInvalidArgument is returned when Summarize is called with a non-positive topN.
var ErrInvalidArgument = errors.New("invalid argument")

// FrameDetection is the classifier output for a single processed video frame.
// An empty Label means no gesture was recognized in that frame.
type FrameDetection struct {
	Label      string   `json:"label"`
	Confidence *float64 `json:"confidence,omitempty"`
}

// SignCount is the number of distinct runs of a sign within a session.
type SignCount struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

// Summary holds the ranked signs of a session, most frequent first.
type Summary struct {
	TopSigns []SignCount `json:"top_signs"`
}

// Summarize filters out empty detections, collapses consecutive frames of the
// same label into a single occurrence, counts occurrences per label and returns
// the topN labels by count. Labels with equal counts keep the order in which
// their first occurrence appeared.
func Summarize(frames []FrameDetection, topN int) (Summary, error) {
	if topN <= 0 {
		return Summary{}, fmt.Errorf("%w: topN must be positive, got %d", ErrInvalidArgument, topN)
	}

	counts := tally(compress(frames))

	sort.SliceStable(counts, func(i, j int) bool {
		return counts[i].Count > counts[j].Count
	})

	if len(counts) > topN {
		counts = counts[:topN]
	}

	return Summary{TopSigns: counts}, nil
}

// compress returns one label per maximal run of identical non-empty labels.
// Empty detections are dropped before runs are formed, so a gesture held on
// both sides of a dropped frame is still a single run.
func compress(frames []FrameDetection) []string {
	var runs []string
	for _, f := range frames {
		if f.Label == "" {
			continue
		}
		if n := len(runs); n > 0 && runs[n-1] == f.Label {
			continue
		}
		runs = append(runs, f.Label)
	}
	return runs
}

// tally counts runs per label, ordered by first appearance.
func tally(runs []string) []SignCount {
	counts := make([]SignCount, 0)
	index := make(map[string]int)

	for _, label := range runs {
		if i, ok := index[label]; ok {
			counts[i].Count++
			continue
		}
		index[label] = len(counts)
		counts = append(counts, SignCount{Label: label, Count: 1})
	}

	return counts
}
