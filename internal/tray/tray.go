// Package tray provides a system tray menu for Object Hunter.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/objecthunter/internal/session"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle func(enabled bool)
	onOpen   func()
	onQuit   func()
	enabled  bool
	target   string
	score    string
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuTarget *systray.MenuItem
	menuScore  *systray.MenuItem
}

// New creates a new Tray instance with detection enabled.
func New() *Tray {
	return &Tray{
		enabled: true,
		target:  "Target: none",
		score:   "Score: 0",
	}
}

// OnToggle sets the callback called when detection is switched on or off.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnOpen sets the callback called when the open game menu item is clicked.
func (t *Tray) OnOpen(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onOpen = fn
}

// OnQuit sets the callback called when the quit menu item is clicked.
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

// Quit removes the tray icon and makes Run return.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("Object Hunter")
	systray.SetTooltip("Object Hunter")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Toggle object detection")
	systray.AddSeparator()

	t.menuTarget = systray.AddMenuItem(t.target, "Current target")
	t.menuTarget.Disable()
	t.menuScore = systray.AddMenuItem(t.score, "Current score")
	t.menuScore.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	menuOpen := systray.AddMenuItem("Open Game...", "Open the game in a browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Object Hunter")

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

func toggleTitle(enabled bool) string {
	if enabled {
		return "● Detection on"
	}
	return "○ Detection paused"
}

// handleToggle flips the detection state and notifies the toggle callback.
func (t *Tray) handleToggle() {
	t.mu.Lock()
	t.enabled = !t.enabled
	enabled := t.enabled

	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}

	callback := t.onToggle
	t.mu.Unlock()

	// Call the callback outside the lock to prevent deadlocks
	if callback != nil {
		callback(enabled)
	}
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

// StatusLines returns the target and score menu titles for snap.
func StatusLines(snap session.Snapshot) (target, score string) {
	switch {
	case snap.Playing() && snap.Target != "":
		target = "Target: " + snap.Target
	case snap.Phase == session.PhaseGameOver:
		target = "Round over"
	default:
		target = "Target: none"
	}
	score = fmt.Sprintf("Score: %d", snap.Score)
	return target, score
}

// SetStatus updates the target and score display from a snapshot. Menu items are only
// touched when the text changes.
func (t *Tray) SetStatus(snap session.Snapshot) {
	target, score := StatusLines(snap)

	t.mu.Lock()
	defer t.mu.Unlock()

	if target != t.target {
		t.target = target
		if t.menuTarget != nil {
			t.menuTarget.SetTitle(target)
		}
	}
	if score != t.score {
		t.score = score
		if t.menuScore != nil {
			t.menuScore.SetTitle(score)
		}
	}
}

// Status returns the current target and score titles.
func (t *Tray) Status() (target, score string) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.target, t.score
}

// IsEnabled returns the current detection state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}
