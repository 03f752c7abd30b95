// Package contour models closed contours as rings of points with wrapped indexing.
package contour

import (
	"errors"
	"image"
)

// ErrEmpty is returned when a ring would have no points.
var ErrEmpty = errors.New("contour has no points")

// Ring is a closed contour. Indexing wraps modulo its length, so At(n) is
// At(0) and At(-1) is At(n-1). A Ring does not copy or modify its points.
type Ring struct {
	pts []image.Point
}

// NewRing wraps pts in a Ring.
func NewRing(pts []image.Point) (Ring, error) {
	if len(pts) == 0 {
		return Ring{}, ErrEmpty
	}
	return Ring{pts: pts}, nil
}

// Len returns the number of points.
func (r Ring) Len() int {
	return len(r.pts)
}

// At returns the point at the wrapped index i.
func (r Ring) At(i int) image.Point {
	return r.pts[r.RealIndex(i)]
}

// RealIndex returns i wrapped into [0, Len()).
func (r Ring) RealIndex(i int) int {
	n := len(r.pts)
	i %= n
	if i < 0 {
		i += n
	}
	return i
}

// Dist returns the forward distance from left to right along the ring.
// Both indices are wrapped first.
func (r Ring) Dist(left, right int) int {
	left, right = r.RealIndex(left), r.RealIndex(right)
	if right >= left {
		return right - left
	}
	return right - left + len(r.pts)
}

// Points returns the underlying points.
func (r Ring) Points() []image.Point {
	return r.pts
}

// Without returns the points of the ring with the forward range [left, right)
// removed for each range. A range whose left index is past its right index
// wraps through the end of the ring. Indices are real indices.
func (r Ring) Without(ranges ...[2]int) []image.Point {
	drop := make([]bool, len(r.pts))
	for _, rg := range ranges {
		left, right := r.RealIndex(rg[0]), r.RealIndex(rg[1])
		for i := 0; i < r.Dist(left, right); i++ {
			drop[r.RealIndex(left+i)] = true
		}
	}

	out := make([]image.Point, 0, len(r.pts))
	for i, p := range r.pts {
		if !drop[i] {
			out = append(out, p)
		}
	}
	return out
}

// Topmost returns the index of the point with the smallest y. Ties go to the
// first such point.
func (r Ring) Topmost() int {
	best := 0
	for i, p := range r.pts {
		if p.Y < r.pts[best].Y {
			best = i
		}
	}
	return best
}
