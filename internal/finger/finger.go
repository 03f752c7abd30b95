// Package finger locates raised fingers on a hand contour using k-curvature.
package finger

import (
	"image"
	"math"

	"github.com/ayusman/mudra/internal/cluster"
	"github.com/ayusman/mudra/internal/contour"
	"github.com/ayusman/mudra/internal/geom"
)

// DefaultAngle is the widest tip angle, in radians, accepted as a finger.
const DefaultAngle = 1.0

// baseAngle is the chord divergence, in radians, that marks the base of a finger.
const baseAngle = 1.0

// Finger holds real indices into the contour it was found on.
type Finger struct {
	Tip   int
	Left  int
	Right int
}

// Extract returns one Finger per distinct raised finger on ring.
//
// handSize bounds the hand: candidates lower than handSize.Y below the topmost
// contour point are discarded as arm or noise. k is the curvature window in
// contour points. Tips closer than minDist to each other are merged, and the
// middle candidate of each group is kept. An empty result is valid.
func Extract(ring contour.Ring, handSize image.Point, k int, minDist, maxAngle float64) []Finger {
	n := ring.Len()
	if k < 1 || n < 2*k+1 {
		return nil
	}

	top := ring.At(ring.Topmost())

	var raw []Finger
	for i := 0; i < n; i++ {
		cur := ring.At(i)
		left := ring.At(i - k)
		right := ring.At(i + k)

		angle := geom.PtAngle(left, cur, right)
		if !(angle > 0 && angle < maxAngle && cur.Y < left.Y && cur.Y < right.Y) {
			continue
		}

		if f, ok := findBase(ring, i, k); ok {
			raw = append(raw, f)
		}
	}

	kept := raw[:0]
	for _, f := range raw {
		if ring.At(f.Tip).Y < top.Y+handSize.Y {
			kept = append(kept, f)
		}
	}

	tipDist := func(a, b Finger) float64 {
		return geom.DistSq(ring.At(a.Tip), ring.At(b.Tip))
	}
	return cluster.Middle(cluster.Greedy(kept, tipDist, minDist*minDist))
}

// findBase walks down both sides of the candidate tip at i until the chords on
// either side diverge, which marks where the finger meets the hand.
func findBase(ring contour.Ring, i, k int) (Finger, bool) {
	n := ring.Len()
	half := k / 2
	for leftI, rightI := i-k, i+k; rightI-leftI < n; leftI, rightI = leftI-1, rightI+1 {
		v1 := geom.V(ring.At(rightI)).Sub(geom.V(ring.At(rightI - half)))
		v2 := geom.V(ring.At(leftI)).Sub(geom.V(ring.At(leftI - half)))
		if math.Abs(geom.VecAngle(v1, v2)) > baseAngle {
			return Finger{
				Tip:   ring.RealIndex(i),
				Left:  ring.RealIndex(leftI),
				Right: ring.RealIndex(rightI),
			}, true
		}
	}
	return Finger{}, false
}

// Ranges returns the contour index range [Left, Right) covered by each finger.
func Ranges(fingers []Finger) [][2]int {
	out := make([][2]int, len(fingers))
	for i, f := range fingers {
		out[i] = [2]int{f.Left, f.Right}
	}
	return out
}
