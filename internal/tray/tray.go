// Package tray provides the system tray menu for pausing tracking, training
// the skin model and showing what the tracker currently sees.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/tracker"
)

// Tray represents the system tray application.
type Tray struct {
	onToggle   func(enabled bool)
	onTrain    func()
	onSettings func()
	onQuit     func()
	enabled    bool
	mu         sync.RWMutex

	// Menu items stored for later updates
	menuToggle *systray.MenuItem
	menuState  *systray.MenuItem
	menuTrain  *systray.MenuItem
}

// New creates a new Tray instance with enabled state set to true by default.
func New() *Tray {
	return &Tray{
		enabled: true,
	}
}

// OnToggle sets the callback function to be called when tracking is paused or resumed.
func (t *Tray) OnToggle(fn func(enabled bool)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onToggle = fn
}

// OnTrain sets the callback function to be called when the train menu item is clicked.
func (t *Tray) OnTrain(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onTrain = fn
}

// OnSettings sets the callback function to be called when the settings menu item is clicked.
func (t *Tray) OnSettings(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onSettings = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
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

// onReady is called when the system tray is ready.
func (t *Tray) onReady() {
	systray.SetTitle("Mudra")
	systray.SetTooltip("Mudra hand cursor")

	t.mu.Lock()
	t.menuToggle = systray.AddMenuItem(toggleTitle(t.enabled), "Pause or resume cursor tracking")
	systray.AddSeparator()

	t.menuState = systray.AddMenuItem("State: stopped", "What the tracker currently sees")
	t.menuState.Disable()
	systray.AddSeparator()

	t.menuTrain = systray.AddMenuItem("Train Skin Model", "Capture frames and retrain the skin classifier")
	t.mu.Unlock()

	menuSettings := systray.AddMenuItem("Open Settings...", "Open settings in browser")
	systray.AddSeparator()

	menuQuit := systray.AddMenuItem("Quit", "Quit Mudra")

	go func() {
		for {
			select {
			case <-t.menuToggle.ClickedCh:
				t.handleToggle()
			case <-t.menuTrain.ClickedCh:
				t.handleTrain()
			case <-menuSettings.ClickedCh:
				t.handleSettings()
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
		return "● Enabled"
	}
	return "○ Paused"
}

// handleToggle flips the enabled state and notifies the callback.
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

// handleTrain runs the train callback with the menu item disabled so a
// second click cannot start an overlapping run.
func (t *Tray) handleTrain() {
	t.mu.RLock()
	callback := t.onTrain
	item := t.menuTrain
	t.mu.RUnlock()

	if callback == nil {
		return
	}
	if item != nil {
		item.SetTitle("Training...")
		item.Disable()
	}
	go func() {
		callback()
		if item != nil {
			item.SetTitle("Train Skin Model")
			item.Enable()
		}
	}()
}

func (t *Tray) handleSettings() {
	t.mu.RLock()
	callback := t.onSettings
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

// SetEnabled updates the toggle without invoking the callback.
func (t *Tray) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
	if t.menuToggle != nil {
		t.menuToggle.SetTitle(toggleTitle(enabled))
	}
}

// SetState shows the latest snapshot in the menu.
func (t *Tray) SetState(snap app.Snapshot) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuState != nil {
		t.menuState.SetTitle(StateLabel(snap))
	}
}

// StateLabel renders a snapshot as a short menu title.
func StateLabel(snap app.Snapshot) string {
	switch snap.Status {
	case tracker.StatusTracking:
		return fmt.Sprintf("State: %d fingers, %s at (%d, %d)",
			snap.Fingers, snap.State.Buttons, snap.State.Pos.X, snap.State.Pos.Y)
	case tracker.StatusFaceNoHand:
		return "State: no hand"
	default:
		return "State: no face"
	}
}

// IsEnabled returns the current enabled state.
func (t *Tray) IsEnabled() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.enabled
}

// Follow mirrors snapshots from updates into the menu until the channel is
// closed.
func (t *Tray) Follow(updates <-chan app.Snapshot) {
	for snap := range updates {
		t.SetState(snap)
	}
}

// Quit stops the tray event loop, unblocking Run.
func (t *Tray) Quit() {
	systray.Quit()
}
