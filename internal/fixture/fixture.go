// Package fixture builds synthetic hands, faces and frames for tests.
//
// Contours follow the orientation produced by contour extraction on image
// masks: counter-clockwise on screen, starting at the topmost-leftmost point,
// one pixel per step.
package fixture

import (
	"image"
	"math"
	"sort"
)

// Colors used by Scene, in BGR order.
var (
	SkinBGR       = [3]uint8{120, 160, 220}
	BackgroundBGR = [3]uint8{90, 40, 20}
)

// Finger is a rectangular finger standing on top of a palm.
type Finger struct {
	X      int // leftmost column
	Width  int
	Height int
}

// Hand is a rectangular palm with fingers raised from its top edge.
type Hand struct {
	Palm    image.Rectangle
	Fingers []Finger
}

// TwoFingerHand returns a hand with two well separated fingers whose top-left
// corner is at origin. Its height including fingers is 130.
func TwoFingerHand(origin image.Point) Hand {
	return Hand{
		Palm: image.Rect(0, 50, 80, 130).Add(origin),
		Fingers: []Finger{
			{X: origin.X + 10, Width: 12, Height: 50},
			{X: origin.X + 50, Width: 12, Height: 50},
		},
	}
}

// Bounds returns the bounding box of the hand.
func (h Hand) Bounds() image.Rectangle {
	b := h.Palm
	for _, f := range h.Fingers {
		b = b.Union(image.Rect(f.X, h.Palm.Min.Y-f.Height, f.X+f.Width, h.Palm.Min.Y))
	}
	return b
}

// Contour returns the outline of the hand.
func (h Hand) Contour() []image.Point {
	x0, y0 := h.Palm.Min.X, h.Palm.Min.Y
	x1, y1 := h.Palm.Max.X-1, h.Palm.Max.Y-1

	verts := []image.Point{{x0, y0}, {x0, y1}, {x1, y1}, {x1, y0}}

	fingers := append([]Finger(nil), h.Fingers...)
	sort.Slice(fingers, func(i, j int) bool { return fingers[i].X > fingers[j].X })
	for _, f := range fingers {
		right := f.X + f.Width - 1
		top := y0 - f.Height
		verts = append(verts,
			image.Pt(right, y0), image.Pt(right, top),
			image.Pt(f.X, top), image.Pt(f.X, y0))
	}

	return rotateToTopLeft(Polygon(verts...))
}

// Paint sets every pixel covered by the hand in a single channel mask of the
// given width to v.
func (h Hand) Paint(mask []uint8, width int, v uint8) {
	fill(mask, width, h.Palm, v)
	for _, f := range h.Fingers {
		fill(mask, width, image.Rect(f.X, h.Palm.Min.Y-f.Height, f.X+f.Width, h.Palm.Min.Y), v)
	}
}

// Polygon walks the closed polygon through verts one pixel at a time.
// Each vertex is emitted once.
func Polygon(verts ...image.Point) []image.Point {
	var out []image.Point
	for i, a := range verts {
		b := verts[(i+1)%len(verts)]
		dx, dy := b.X-a.X, b.Y-a.Y
		steps := max(abs(dx), abs(dy))
		for s := 0; s < steps; s++ {
			out = append(out, image.Pt(a.X+roundDiv(dx*s, steps), a.Y+roundDiv(dy*s, steps)))
		}
	}
	return out
}

// Circle returns a closed ring of distinct integer points on a circle.
func Circle(center image.Point, radius int) []image.Point {
	const samples = 2000
	seen := make(map[image.Point]bool)
	var out []image.Point
	for i := 0; i < samples; i++ {
		a := 2 * math.Pi * float64(i) / samples
		p := image.Pt(
			center.X+int(math.Round(float64(radius)*math.Cos(a))),
			center.Y-int(math.Round(float64(radius)*math.Sin(a))),
		)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}

// Scene is a synthetic camera frame with a face and an optional hand.
type Scene struct {
	Size image.Point
	Face image.Rectangle
	Hand *Hand
}

// DefaultScene returns a 320x240 scene with a face on the left and a two
// finger hand on the right.
func DefaultScene() Scene {
	hand := TwoFingerHand(image.Pt(200, 80))
	return Scene{
		Size: image.Pt(320, 240),
		Face: image.Rect(40, 40, 120, 140),
		Hand: &hand,
	}
}

// BGR renders the scene as packed 8-bit BGR pixels. The face is drawn as the
// ellipse inscribed in Face.
func (s Scene) BGR() []uint8 {
	w, h := s.Size.X, s.Size.Y
	mask := make([]uint8, w*h)
	paintEllipse(mask, w, s.Face)
	if s.Hand != nil {
		s.Hand.Paint(mask, w, 255)
	}

	out := make([]uint8, 0, w*h*3)
	for _, m := range mask {
		c := BackgroundBGR
		if m != 0 {
			c = SkinBGR
		}
		out = append(out, c[0], c[1], c[2])
	}
	return out
}

func rotateToTopLeft(pts []image.Point) []image.Point {
	if len(pts) == 0 {
		return pts
	}
	start := 0
	for i, p := range pts {
		q := pts[start]
		if p.Y < q.Y || (p.Y == q.Y && p.X < q.X) {
			start = i
		}
	}
	return append(append([]image.Point(nil), pts[start:]...), pts[:start]...)
}

func fill(mask []uint8, width int, r image.Rectangle, v uint8) {
	height := len(mask) / width
	r = r.Intersect(image.Rect(0, 0, width, height))
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			mask[y*width+x] = v
		}
	}
}

func paintEllipse(mask []uint8, width int, r image.Rectangle) {
	height := len(mask) / width
	cx := float64(r.Min.X+r.Max.X) / 2
	cy := float64(r.Min.Y+r.Max.Y) / 2
	ax := float64(r.Dx()) / 2
	ay := float64(r.Dy()) / 2
	if ax == 0 || ay == 0 {
		return
	}
	for y := max(r.Min.Y, 0); y < min(r.Max.Y, height); y++ {
		for x := max(r.Min.X, 0); x < min(r.Max.X, width); x++ {
			dx := (float64(x) + 0.5 - cx) / ax
			dy := (float64(y) + 0.5 - cy) / ay
			if dx*dx+dy*dy <= 1 {
				mask[y*width+x] = 255
			}
		}
	}
}

// roundDiv returns n/d rounded half away from zero, for d > 0.
func roundDiv(n, d int) int {
	if n < 0 {
		return -((-2*n + d) / (2 * d))
	}
	return (2*n + d) / (2 * d)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
