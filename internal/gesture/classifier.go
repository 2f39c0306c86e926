// Package gesture labels hands by comparing their landmarks with trained sign templates.
// It backs recognizers that report landmarks without gesture categories.
package gesture

import (
	"sort"
	"sync"

	"github.com/ayusman/signassess/internal/detector"
)

// DefaultTolerance is the maximum summed landmark distance for a match.
const DefaultTolerance = 0.15

// Template is the averaged, normalized handshape of a sign.
type Template struct {
	ID        string
	Label     string
	Landmarks []detector.Point3D
	Tolerance float64
}

// Classifier matches hands against registered templates.
type Classifier struct {
	mu        sync.RWMutex
	templates []*Template
}

// NewClassifier creates an empty Classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Add registers a template. Templates without landmarks are ignored.
func (c *Classifier) Add(t *Template) {
	if t == nil || len(t.Landmarks) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = append(c.templates, t)
}

// Remove drops the template with the given ID.
func (c *Classifier) Remove(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.templates {
		if t.ID == id {
			c.templates = append(c.templates[:i], c.templates[i+1:]...)
			return
		}
	}
}

// Replace swaps the full template set.
func (c *Classifier) Replace(templates []*Template) {
	kept := make([]*Template, 0, len(templates))
	for _, t := range templates {
		if t != nil && len(t.Landmarks) > 0 {
			kept = append(kept, t)
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.templates = kept
}

// Len returns the number of templates.
func (c *Classifier) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.templates)
}

// Classify returns the templates within tolerance of hand, best first.
// Score is 1/(1+distance).
func (c *Classifier) Classify(hand *detector.HandLandmarks) []detector.Category {
	normalized := hand.Normalize()
	if normalized == nil {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	type match struct {
		label    string
		distance float64
	}
	var matches []match
	for _, t := range c.templates {
		d := distance(normalized.Points[:], t.Landmarks)
		if d <= t.Tolerance {
			matches = append(matches, match{label: t.Label, distance: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	categories := make([]detector.Category, len(matches))
	for i, m := range matches {
		categories[i] = detector.Category{Name: m.label, Score: 1.0 / (1.0 + m.distance)}
	}
	return categories
}

// Label fills in gesture categories for every hand in r that the
// recognizer left unlabeled. It reports whether anything was added.
func (c *Classifier) Label(r *detector.Result) bool {
	if r == nil || len(r.Hands) == 0 || c.Len() == 0 {
		return false
	}

	gestures := make([][]detector.Category, len(r.Hands))
	copy(gestures, r.Gestures)
	added := false
	for i := range r.Hands {
		if len(gestures[i]) > 0 {
			continue
		}
		if gestures[i] = c.Classify(&r.Hands[i]); len(gestures[i]) > 0 {
			added = true
		}
	}
	if added {
		r.Gestures = gestures
	}
	return added
}

// distance sums the point-wise distances over the shorter of a and b.
func distance(a, b []detector.Point3D) float64 {
	n := min(len(a), len(b))
	var total float64
	for i := 0; i < n; i++ {
		total += a[i].Distance(b[i])
	}
	return total
}
