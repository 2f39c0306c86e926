// Package tray provides the system tray menu for SignAssess.
package tray

import (
	"fmt"
	"sync"
	"time"

	"github.com/getlantern/systray"

	"github.com/ayusman/signassess/internal/app"
	"github.com/ayusman/signassess/internal/quiz"
	"github.com/ayusman/signassess/internal/session"
)

// Source is the live state shown in the menu.
type Source interface {
	Current() *session.Context
	Snapshot() app.Output
	Quiz() quiz.State
}

// Tray represents the system tray application.
type Tray struct {
	onToggle func(start bool) error
	onOpen   func()
	onQuit   func()
	active   bool
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle   *systray.MenuItem
	menuLastSign *systray.MenuItem
	menuScore    *systray.MenuItem
}

// New creates a Tray with no session running.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback used to start (true) or stop (false) an
// assessment. The menu only changes state when it returns nil.
func (t *Tray) OnToggle(fn func(start bool) error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback for the "Open in browser" item.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback for the quit item.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

func (t *Tray) onReady() {
	systray.SetTitle("SignAssess")
	systray.SetTooltip("SignAssess sign language assessment")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.active), "Start or stop an assessment")
	systray.AddSeparator()

	t.menuLastSign = systray.AddMenuItem(lastSignTitle(""), "Last recognized sign")
	t.menuLastSign.Disable()
	t.menuScore = systray.AddMenuItem(scoreTitle(quiz.State{}), "Quiz score")
	t.menuScore.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open in browser...", "Open the assessment page")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit SignAssess")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuOpen.ClickedCh:
				t.handleOpen()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

// handleToggle asks the callback to flip the session state.
func (t *Tray) handleToggle() {
	t.mu.RLock()
	start := !t.active
	callback := t.onToggle
	t.mu.RUnlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		if err := callback(start); err != nil {
			return
		}
	}
	t.SetActive(start)
}

func (t *Tray) handleOpen() {
	t.mu.RLock()
	callback := t.onOpen
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetActive updates the toggle item to reflect whether a session is running.
func (t *Tray) SetActive(active bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.active = active
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(active))
	}
}

// SetLastSign updates the last sign display in the menu.
func (t *Tray) SetLastSign(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLastSign != nil {
		t.menuLastSign.SetTitle(lastSignTitle(name))
	}
}

// SetScore updates the quiz score display in the menu.
func (t *Tray) SetScore(st quiz.State) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuScore != nil {
		t.menuScore.SetTitle(scoreTitle(st))
	}
}

// IsActive reports whether the menu shows a running session.
func (t *Tray) IsActive() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.active
}

// Follow refreshes the menu from src every interval until stop is closed.
func (t *Tray) Follow(src Source, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			t.refresh(src)
		}
	}
}

func (t *Tray) refresh(src Source) {
	t.SetActive(src.Current() != nil)
	if out := src.Snapshot(); out.Gesture != "" {
		t.SetLastSign(out.Gesture)
	}
	t.SetScore(src.Quiz())
}

func toggleTitle(active bool) string {
	if active {
		return "■ Stop assessment"
	}
	return "▶ Start assessment"
}

func lastSignTitle(name string) string {
	if name == "" {
		return "Last sign: none"
	}
	return "Last sign: " + name
}

func scoreTitle(st quiz.State) string {
	if st.Total == 0 {
		return "Score: -"
	}
	if st.Completed {
		return fmt.Sprintf("Score: %d/%d (done)", st.Score, st.Total)
	}
	return fmt.Sprintf("Score: %d/%d", st.Score, st.Total)
}

// Quit stops the tray loop started by Run.
func (t *Tray) Quit() {
	systray.Quit()
}
