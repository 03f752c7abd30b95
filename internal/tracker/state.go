package tracker

import (
	"fmt"
	"image"

	"github.com/ayusman/mudra/internal/geom"
	"github.com/ayusman/mudra/internal/mouse"
)

// Status is the per-frame classification of what the tracker saw.
type Status int

const (
	// StatusNoFace means no face was detected in the frame.
	StatusNoFace Status = iota
	// StatusFaceNoHand means a face was found but no hand contour survived filtering.
	StatusFaceNoHand
	// StatusTracking means a hand was found and the cursor state updated.
	StatusTracking
)

func (s Status) String() string {
	switch s {
	case StatusNoFace:
		return "no_face"
	case StatusFaceNoHand:
		return "face_no_hand"
	case StatusTracking:
		return "tracking"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// ButtonsFor maps a raised finger count to a button mask. A fist presses the
// left button and two fingers press the middle one. Three or more are
// treated as a misdetection.
func ButtonsFor(fingers int) mouse.Button {
	switch fingers {
	case 0:
		return mouse.LeftDown
	case 2:
		return mouse.MiddleDown
	default:
		return mouse.None
	}
}

// HandBounds returns the palm box of handSize hanging from top, centred
// horizontally on it and clipped to frame.
func HandBounds(top, handSize image.Point, frame image.Rectangle) image.Rectangle {
	minPt := image.Pt(top.X-handSize.X/2, top.Y)
	return image.Rectangle{Min: minPt, Max: minPt.Add(handSize)}.Intersect(frame)
}

// HandSize scales the face size by prop.
func HandSize(face image.Rectangle, prop float64) image.Point {
	return image.Pt(int(float64(face.Dx())*prop), int(float64(face.Dy())*prop))
}

// projectPoint maps a frame point in mouseRect onto screenRect. Points outside
// mouseRect are clamped to its edges first.
func projectPoint(p geom.Vec, mouseRect, screenRect image.Rectangle) (image.Point, error) {
	x, err := geom.Project(p.X,
		geom.Interval{Low: float64(mouseRect.Min.X), High: float64(mouseRect.Max.X)},
		geom.Interval{Low: float64(screenRect.Min.X), High: float64(screenRect.Max.X - 1)},
		geom.WithBound())
	if err != nil {
		return image.Point{}, fmt.Errorf("project x: %w", err)
	}
	y, err := geom.Project(p.Y,
		geom.Interval{Low: float64(mouseRect.Min.Y), High: float64(mouseRect.Max.Y)},
		geom.Interval{Low: float64(screenRect.Min.Y), High: float64(screenRect.Max.Y - 1)},
		geom.WithBound())
	if err != nil {
		return image.Point{}, fmt.Errorf("project y: %w", err)
	}
	return image.Pt(int(x), int(y)), nil
}

// clampToScreen bounds a smoothed position to [0, w-1] x [0, h-1] of screen.
func clampToScreen(p geom.Vec, screen image.Rectangle) image.Point {
	xs := geom.Interval{Low: 0, High: float64(screen.Dx() - 1)}
	ys := geom.Interval{Low: 0, High: float64(screen.Dy() - 1)}
	x, _ := xs.Closest(p.X)
	y, _ := ys.Closest(p.Y)
	return image.Pt(int(x), int(y))
}
