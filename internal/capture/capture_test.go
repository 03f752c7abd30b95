package capture

import (
	"errors"
	"image"
	"image/color"
	"testing"
	"time"

	"gocv.io/x/gocv"
)

func TestGate(t *testing.T) {
	start := time.Unix(0, 0)
	g := NewGate(2 * time.Second)

	tests := []struct {
		name        string
		motion      bool
		at          time.Duration
		wantMode    Mode
		wantChanged bool
	}{
		{"still scene stays idle", false, 0, ModeIdle, false},
		{"motion activates", true, 100 * time.Millisecond, ModeActive, true},
		{"within hold stays active", false, 2 * time.Second, ModeActive, false},
		{"motion refreshes hold", true, 2500 * time.Millisecond, ModeActive, false},
		{"still at hold edge", false, 4500 * time.Millisecond, ModeActive, false},
		{"past hold goes idle", false, 4600 * time.Millisecond, ModeIdle, true},
	}

	for _, tt := range tests {
		mode, changed := g.Update(tt.motion, start.Add(tt.at))
		if mode != tt.wantMode || changed != tt.wantChanged {
			t.Errorf("%s: got (%v, %v), want (%v, %v)", tt.name, mode, changed, tt.wantMode, tt.wantChanged)
		}
	}
	if g.Mode() != ModeIdle {
		t.Errorf("Mode() = %v, want idle", g.Mode())
	}
}

func TestMode_String(t *testing.T) {
	if ModeIdle.String() != "idle" || ModeActive.String() != "active" {
		t.Errorf("unexpected mode names: %s, %s", ModeIdle, ModeActive)
	}
}

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	if opts.Source != "0" || opts.Size() != image.Pt(640, 480) || !opts.Mirror {
		t.Errorf("unexpected defaults: %+v", opts)
	}
}

func TestCamera_NotOpened(t *testing.T) {
	cam := NewCamera(DefaultOptions())

	if cam.IsOpen() {
		t.Error("camera should not be open before Open()")
	}
	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("expected ErrCameraNotOpen, got %v", err)
	}
	if err := cam.Close(); err != nil {
		t.Errorf("Close() on unopened camera should not fail: %v", err)
	}
}

func TestCamera_SetFPS(t *testing.T) {
	cam := NewCamera(DefaultOptions())

	cam.SetFPS(30)
	if cam.FPS() != 30 {
		t.Errorf("FPS() = %d, want 30", cam.FPS())
	}
	cam.SetFPS(0)
	cam.SetFPS(-5)
	if cam.FPS() != 30 {
		t.Errorf("non-positive FPS should be ignored, got %d", cam.FPS())
	}
}

// halfFrame returns a BGR frame whose left half is white.
func halfFrame(w, h int) gocv.Mat {
	m := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), h, w, gocv.MatTypeCV8UC3)
	gocv.Rectangle(&m, image.Rect(0, 0, w/2, h), color.RGBA{255, 255, 255, 0}, -1)
	return m
}

func TestNormalize(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	frame := halfFrame(320, 240)
	defer frame.Close()

	normalize(&frame, image.Pt(160, 120), true)

	if frame.Cols() != 160 || frame.Rows() != 120 {
		t.Fatalf("expected 160x120, got %dx%d", frame.Cols(), frame.Rows())
	}
	if got := frame.GetUCharAt(60, 10*3); got != 0 {
		t.Errorf("mirrored left edge should be black, got %d", got)
	}
	if got := frame.GetUCharAt(60, 150*3); got != 255 {
		t.Errorf("mirrored right edge should be white, got %d", got)
	}
}

func TestMockCamera_Playback(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	a := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC1)
	defer a.Close()
	b := gocv.NewMatWithSize(8, 8, gocv.MatTypeCV8UC1)
	defer b.Close()

	cam := NewMockCamera([]gocv.Mat{a, b}, false)
	defer cam.Release()

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrCameraNotOpen) {
		t.Errorf("expected ErrCameraNotOpen, got %v", err)
	}

	cam.Open()
	for _, want := range []int{4, 8} {
		frame, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("ReadFrame() failed: %v", err)
		}
		if frame.Rows() != want {
			t.Errorf("expected %d rows, got %d", want, frame.Rows())
		}
		frame.Close()
	}

	if _, err := cam.ReadFrame(); !errors.Is(err, ErrNoMoreFrames) {
		t.Errorf("expected ErrNoMoreFrames, got %v", err)
	}
	if cam.Reads() != 2 {
		t.Errorf("expected 2 reads, got %d", cam.Reads())
	}
}

func TestMockCamera_Loop(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	a := gocv.NewMatWithSize(4, 4, gocv.MatTypeCV8UC1)
	defer a.Close()

	cam := NewMockCamera([]gocv.Mat{a}, true)
	defer cam.Release()
	cam.Open()

	for i := 0; i < 3; i++ {
		frame, err := cam.ReadFrame()
		if err != nil {
			t.Fatalf("read %d failed: %v", i, err)
		}
		frame.Close()
	}
}

func TestMotionDetector(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	md := NewMotionDetector(1.0)
	defer md.Close()

	black := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), 240, 320, gocv.MatTypeCV8UC3)
	defer black.Close()
	half := halfFrame(320, 240)
	defer half.Close()

	if motion, _ := md.Detect(black); motion {
		t.Error("first frame should only prime the detector")
	}
	if motion, pct := md.Detect(black); motion || pct != 0 {
		t.Errorf("identical frames should show no motion, got %v (%.2f%%)", motion, pct)
	}

	motion, pct := md.Detect(half)
	if !motion {
		t.Errorf("half-frame change should be motion, got %.2f%%", pct)
	}
	if pct < 40 || pct > 60 {
		t.Errorf("expected about half the pixels to change, got %.2f%%", pct)
	}

	md.Reset()
	if motion, _ := md.Detect(black); motion {
		t.Error("frame after Reset should only prime the detector")
	}

	empty := gocv.NewMat()
	defer empty.Close()
	if motion, _ := md.Detect(empty); motion {
		t.Error("empty frame should not be motion")
	}
}
