// Package tray provides the system tray interface for the Hanvas demo.
package tray

import (
	"sync"

	"github.com/getlantern/systray"

	"github.com/rrocketmann/Hanvas/internal/gesture"
)

// handStateLabels maps classified states to menu text.
var handStateLabels = map[gesture.State]string{
	gesture.StateOpen:    "Hand: open",
	gesture.StateFist:    "Hand: fist",
	gesture.StatePartial: "Hand: partial",
	gesture.StateNone:    "Hand: none",
}

// Tray is the system tray application. It implements status.Sink, so the
// session controller and detection loop publish straight into the menu.
type Tray struct {
	onToggle func()
	onQuit   func()
	mu       sync.RWMutex

	// Menu items stored for later updates
	menuToggle  *systray.MenuItem
	menuSession *systray.MenuItem
	menuHand    *systray.MenuItem
	menuStatus  *systray.MenuItem
}

// New creates a new Tray instance.
func New() *Tray {
	return &Tray{}
}

// OnToggle sets the callback invoked when the capture menu item is clicked.
func (t *Tray) OnToggle(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnQuit sets the callback invoked when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application. This function blocks until
// systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// onReady is called when the system tray is ready.
func (t *Tray) onReady() {
	systray.SetTitle("Hanvas")
	systray.SetTooltip("Hanvas Hand Tracking")

	t.menuToggle = systray.AddMenuItem("Start Capture", "Toggle the capture session")
	systray.AddSeparator()

	t.menuSession = systray.AddMenuItem("Session: idle", "Current session state")
	t.menuSession.Disable()
	t.menuHand = systray.AddMenuItem("Hand: none", "Last classified hand state")
	t.menuHand.Disable()
	t.menuStatus = systray.AddMenuItem("", "Last status message")
	t.menuStatus.Disable()
	t.menuStatus.Hide()
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Hanvas")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

// onExit is called when the system tray is about to exit.
func (t *Tray) onExit() {
}

func (t *Tray) handleToggle() {
	t.mu.RLock()
	callback := t.onToggle
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

// SetSessionState implements status.Sink.
func (t *Tray) SetSessionState(state string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuSession != nil {
		t.menuSession.SetTitle("Session: " + state)
	}
	if t.menuToggle != nil {
		if state == "active" || state == "requesting" {
			t.menuToggle.SetTitle("Stop Capture")
		} else {
			t.menuToggle.SetTitle("Start Capture")
		}
	}
}

// SetHandState implements status.Sink.
func (t *Tray) SetHandState(state gesture.State) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuHand == nil {
		return
	}

	label, ok := handStateLabels[state]
	if !ok {
		label = "Hand: " + string(state)
	}
	t.menuHand.SetTitle(label)
}

// Report implements status.Sink.
func (t *Tray) Report(message string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus == nil {
		return
	}
	t.menuStatus.SetTitle(message)
	t.menuStatus.Show()
}
