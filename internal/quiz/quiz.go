// Package quiz implements the "perform this sign" assessment shown next to the camera.
package quiz

import (
	"errors"
	"sync"
)

// ErrCompleted is returned when advancing a quiz that has already been submitted.
var ErrCompleted = errors.New("quiz already completed")

// State is a point-in-time view of a quiz.
type State struct {
	Question  string `json:"question"`
	Index     int    `json:"index"`
	Total     int    `json:"total"`
	Answered  bool   `json:"answered"`
	Score     int    `json:"score"`
	Completed bool   `json:"completed"`
}

// Quiz walks through a Set, one expected sign at a time.
// A question counts as answered once the recognizer reports the expected sign.
type Quiz struct {
	set       Set
	mu        sync.Mutex
	index     int
	marks     int
	answered  bool
	completed bool
}

// New creates a Quiz over the given set.
func New(set Set) *Quiz {
	return &Quiz{set: set}
}

// Observe marks the current question answered if label is the expected sign.
// It reports whether the label matched.
func (q *Quiz) Observe(label string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.completed || len(q.set.Signs) == 0 {
		return false
	}
	if label != q.set.Signs[q.index] {
		return false
	}
	q.answered = true
	return true
}

// Next scores the current question and moves on. On the last question it
// completes the quiz.
func (q *Quiz) Next() (State, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.completed {
		return q.stateLocked(), ErrCompleted
	}

	if q.answered {
		q.marks++
		q.answered = false
	}

	if q.index < len(q.set.Signs)-1 {
		q.index++
	} else {
		q.completed = true
	}

	return q.stateLocked(), nil
}

// Reset starts the quiz over.
func (q *Quiz) Reset() State {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.index = 0
	q.marks = 0
	q.answered = false
	q.completed = false
	return q.stateLocked()
}

// Score returns the marks so far, counting the current question if it is answered.
func (q *Quiz) Score() (marks, total int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.scoreLocked(), len(q.set.Signs)
}

// State returns a snapshot of the quiz.
func (q *Quiz) State() State {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.stateLocked()
}

func (q *Quiz) scoreLocked() int {
	if q.answered {
		return q.marks + 1
	}
	return q.marks
}

func (q *Quiz) stateLocked() State {
	s := State{
		Index:     q.index,
		Total:     len(q.set.Signs),
		Answered:  q.answered,
		Score:     q.scoreLocked(),
		Completed: q.completed,
	}
	if len(q.set.Signs) > 0 {
		s.Question = q.set.Signs[q.index]
	}
	return s
}
