package tray

import (
	"image"
	"testing"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/mouse"
	"github.com/ayusman/mudra/internal/tracker"
)

func TestStateLabel(t *testing.T) {
	tests := []struct {
		name string
		snap app.Snapshot
		want string
	}{
		{"no face", app.Snapshot{Status: tracker.StatusNoFace}, "State: no face"},
		{"no hand", app.Snapshot{Status: tracker.StatusFaceNoHand}, "State: no hand"},
		{
			"tracking",
			app.Snapshot{
				Status:  tracker.StatusTracking,
				Fingers: 2,
				State:   mouse.State{Buttons: mouse.MiddleDown, Pos: image.Pt(10, 20)},
			},
			"State: 2 fingers, middle at (10, 20)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := StateLabel(tt.snap); got != tt.want {
				t.Errorf("StateLabel() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTray_Toggle(t *testing.T) {
	tr := New()
	if !tr.IsEnabled() {
		t.Fatal("expected tray to start enabled")
	}

	var got []bool
	tr.OnToggle(func(enabled bool) { got = append(got, enabled) })

	tr.handleToggle()
	tr.handleToggle()

	if len(got) != 2 || got[0] || !got[1] {
		t.Errorf("unexpected toggle callbacks %v", got)
	}

	tr.SetEnabled(false)
	if tr.IsEnabled() {
		t.Error("SetEnabled(false) did not pause")
	}
	if len(got) != 2 {
		t.Error("SetEnabled must not invoke the toggle callback")
	}
}

func TestTray_Train(t *testing.T) {
	tr := New()
	tr.handleTrain() // no callback is a no-op

	done := make(chan struct{})
	tr.OnTrain(func() { close(done) })
	tr.handleTrain()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("train callback was not called")
	}
}

func TestTray_Follow(t *testing.T) {
	tr := New()
	updates := make(chan app.Snapshot, 2)
	updates <- app.Snapshot{Status: tracker.StatusNoFace}
	updates <- app.Snapshot{Status: tracker.StatusTracking}
	close(updates)

	// No menu yet, so Follow only has to drain the channel and return.
	tr.Follow(updates)
}
