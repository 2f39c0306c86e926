package tray

import (
	"errors"
	"testing"
	"time"

	"github.com/ayusman/signassess/internal/app"
	"github.com/ayusman/signassess/internal/quiz"
	"github.com/ayusman/signassess/internal/session"
)

func TestTitles(t *testing.T) {
	if got := toggleTitle(false); got != "▶ Start assessment" {
		t.Errorf("toggleTitle(false) = %q", got)
	}
	if got := toggleTitle(true); got != "■ Stop assessment" {
		t.Errorf("toggleTitle(true) = %q", got)
	}
	if got := lastSignTitle(""); got != "Last sign: none" {
		t.Errorf("lastSignTitle(\"\") = %q", got)
	}
	if got := lastSignTitle("Hello"); got != "Last sign: Hello" {
		t.Errorf("lastSignTitle(Hello) = %q", got)
	}

	tests := []struct {
		state quiz.State
		want  string
	}{
		{state: quiz.State{}, want: "Score: -"},
		{state: quiz.State{Score: 1, Total: 3}, want: "Score: 1/3"},
		{state: quiz.State{Score: 3, Total: 3, Completed: true}, want: "Score: 3/3 (done)"},
	}
	for _, tt := range tests {
		if got := scoreTitle(tt.state); got != tt.want {
			t.Errorf("scoreTitle(%+v) = %q, want %q", tt.state, got, tt.want)
		}
	}
}

func TestTray_HandleToggle(t *testing.T) {
	tr := New()

	var calls []bool
	tr.OnToggle(func(start bool) error {
		calls = append(calls, start)
		return nil
	})

	tr.handleToggle()
	if !tr.IsActive() {
		t.Error("first toggle should start a session")
	}
	tr.handleToggle()
	if tr.IsActive() {
		t.Error("second toggle should stop the session")
	}
	if len(calls) != 2 || !calls[0] || calls[1] {
		t.Errorf("callback calls = %v, want [true false]", calls)
	}
}

func TestTray_HandleToggle_Error(t *testing.T) {
	tr := New()
	tr.OnToggle(func(bool) error { return errors.New("camera busy") })

	tr.handleToggle()
	if tr.IsActive() {
		t.Error("a failed start should leave the tray inactive")
	}
}

type fakeSource struct {
	current *session.Context
	output  app.Output
	quiz    quiz.State
}

func (f fakeSource) Current() *session.Context { return f.current }
func (f fakeSource) Snapshot() app.Output      { return f.output }
func (f fakeSource) Quiz() quiz.State          { return f.quiz }

func TestTray_Follow(t *testing.T) {
	tr := New()
	src := fakeSource{
		current: session.Start(session.Identity{}, time.Now()),
		output:  app.Output{Active: true, Gesture: "V"},
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		tr.Follow(src, 5*time.Millisecond, stop)
		close(done)
	}()

	deadline := time.Now().Add(time.Second)
	for !tr.IsActive() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	close(stop)
	<-done

	if !tr.IsActive() {
		t.Error("Follow should mark the tray active while a session runs")
	}
}
