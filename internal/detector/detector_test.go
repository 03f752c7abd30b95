package detector

import (
	"errors"
	"image"
	"path/filepath"
	"testing"

	"gocv.io/x/gocv"
)

func TestConfig_Scale(t *testing.T) {
	cfg := DefaultConfig()

	tests := []struct {
		width int
		want  float64
	}{
		{640, 300.0 / 640},
		{300, 1},
		{200, 1},
		{0, 1},
	}

	for _, tt := range tests {
		if got := cfg.Scale(tt.width); got != tt.want {
			t.Errorf("Scale(%d) = %v, want %v", tt.width, got, tt.want)
		}
	}
}

func TestUnscale(t *testing.T) {
	rects := []image.Rectangle{image.Rect(10, 20, 40, 60)}

	got := unscale(rects, 0.5)
	want := image.Rect(20, 40, 80, 120)
	if got[0] != want {
		t.Errorf("unscale() = %v, want %v", got[0], want)
	}

	// Components truncate independently.
	got = unscale([]image.Rectangle{image.Rect(1, 1, 4, 4)}, 0.4)
	want = image.Rect(2, 2, 9, 9)
	if got[0] != want {
		t.Errorf("unscale() = %v, want %v", got[0], want)
	}
}

func TestSortByArea(t *testing.T) {
	small := image.Rect(0, 0, 10, 10)
	big := image.Rect(0, 0, 50, 50)
	tieA := image.Rect(0, 0, 20, 20)
	tieB := image.Rect(100, 100, 120, 120)

	rects := []image.Rectangle{small, tieA, big, tieB}
	SortByArea(rects)

	want := []image.Rectangle{big, tieA, tieB, small}
	for i := range want {
		if rects[i] != want[i] {
			t.Errorf("rects[%d] = %v, want %v", i, rects[i], want[i])
		}
	}
}

func TestNeckRect(t *testing.T) {
	got := NeckRect(image.Rect(40, 40, 160, 180))
	want := image.Rect(70, 152, 130, 208)
	if got != want {
		t.Errorf("NeckRect() = %v, want %v", got, want)
	}
}

func TestMockDetector(t *testing.T) {
	t.Run("returns no faces by default", func(t *testing.T) {
		mock := NewMockDetector()

		rects, err := mock.Detect(gocv.Mat{})

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if rects != nil {
			t.Errorf("expected nil rects, got %v", rects)
		}
	})

	t.Run("returns configured faces largest first", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetRects([]image.Rectangle{
			image.Rect(0, 0, 10, 10),
			image.Rect(0, 0, 30, 30),
		})

		rects, err := mock.Detect(gocv.Mat{})

		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
		if len(rects) != 2 || rects[0].Dx() != 30 {
			t.Errorf("expected largest face first, got %v", rects)
		}
		if mock.Calls() != 1 {
			t.Errorf("expected 1 call, got %d", mock.Calls())
		}
	})

	t.Run("returns configured error", func(t *testing.T) {
		mock := NewMockDetector(image.Rect(0, 0, 10, 10))

		expectedErr := errors.New("detection failed")
		mock.SetError(expectedErr)

		rects, err := mock.Detect(gocv.Mat{})

		if err != expectedErr {
			t.Errorf("expected error %v, got %v", expectedErr, err)
		}
		if rects != nil {
			t.Errorf("expected nil rects when error is set, got %v", rects)
		}
	})

	t.Run("implements Detector interface", func(t *testing.T) {
		var _ Detector = (*MockDetector)(nil)
		var _ Detector = (*Cascade)(nil)
		var _ Detector = (*Pigo)(nil)
		var _ Scaler = (*MockDetector)(nil)
		var _ Scaler = (*Cascade)(nil)
		var _ Scaler = (*Pigo)(nil)
	})

	t.Run("records scale width", func(t *testing.T) {
		mock := NewMockDetector()
		mock.SetScaleWidth(240)
		if got := mock.ScaleWidth(); got != 240 {
			t.Errorf("ScaleWidth() = %v, want 240", got)
		}
	})
}

func TestNewPigo_MissingFile(t *testing.T) {
	_, err := NewPigo(filepath.Join(t.TempDir(), "facefinder"), DefaultConfig())
	if !errors.Is(err, ErrCascadeLoad) {
		t.Errorf("expected ErrCascadeLoad, got %v", err)
	}
}

func TestNewCascade_MissingFile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	_, err := NewCascade(filepath.Join(t.TempDir(), "missing.xml"), DefaultConfig())
	if !errors.Is(err, ErrCascadeLoad) {
		t.Errorf("expected ErrCascadeLoad, got %v", err)
	}
}

func TestFaceMask(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping OpenCV test in short mode")
	}

	face := image.Rect(40, 40, 160, 180)
	dst := gocv.NewMat()
	defer dst.Close()

	FaceMask(image.Pt(320, 240), []image.Rectangle{face}, &dst)

	if dst.Rows() != 240 || dst.Cols() != 320 {
		t.Fatalf("expected 320x240 mask, got %dx%d", dst.Cols(), dst.Rows())
	}

	tests := []struct {
		name string
		pt   image.Point
		want uint8
	}{
		{"face centre", image.Pt(100, 110), 255},
		{"neck", image.Pt(100, 200), 255},
		{"face corner outside ellipse", image.Pt(42, 42), 0},
		{"background", image.Pt(300, 20), 0},
		{"beside neck", image.Pt(60, 200), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := dst.GetUCharAt(tt.pt.Y, tt.pt.X); got != tt.want {
				t.Errorf("mask at %v = %d, want %d", tt.pt, got, tt.want)
			}
		})
	}
}
