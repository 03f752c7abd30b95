// Package geom provides the plane geometry and interval math used by the hand tracker.
package geom

import (
	"image"
	"math"
)

// Vec is a point or displacement with float coordinates.
type Vec struct {
	X, Y float64
}

// V converts an integer point to a Vec.
func V(p image.Point) Vec {
	return Vec{X: float64(p.X), Y: float64(p.Y)}
}

// Sub returns v - u.
func (v Vec) Sub(u Vec) Vec {
	return Vec{X: v.X - u.X, Y: v.Y - u.Y}
}

// Add returns v + u.
func (v Vec) Add(u Vec) Vec {
	return Vec{X: v.X + u.X, Y: v.Y + u.Y}
}

// Dot returns the dot product of v and u.
func (v Vec) Dot(u Vec) float64 {
	return v.X*u.X + v.Y*u.Y
}

// Cross returns the z component of the 2-D cross product v × u.
func (v Vec) Cross(u Vec) float64 {
	return v.X*u.Y - v.Y*u.X
}

// NormSq returns the squared length of v.
func (v Vec) NormSq() float64 {
	return v.Dot(v)
}

// Point rounds v to the nearest integer point.
func (v Vec) Point() image.Point {
	return image.Point{X: int(math.Round(v.X)), Y: int(math.Round(v.Y))}
}

// VecAngle returns the signed angle in radians between a and b.
//
// The magnitude is the unsigned angle in [0, π]. The sign comes from the 2-D
// cross product a × b, so collinear vectors (parallel or opposite) yield 0.
// A zero-length vector yields NaN, which fails every ordered comparison.
func VecAngle(a, b Vec) float64 {
	denom := math.Sqrt(a.NormSq() * b.NormSq())
	if denom == 0 {
		return math.NaN()
	}
	cos := a.Dot(b) / denom
	// Rounding can push |cos| slightly past 1.
	cos = math.Max(-1, math.Min(1, cos))
	return math.Acos(cos) * sign(a.Cross(b))
}

// PtAngle returns the signed angle at b formed by the rays b→a and b→c.
func PtAngle(a, b, c image.Point) float64 {
	vb := V(b)
	return VecAngle(V(a).Sub(vb), V(c).Sub(vb))
}

// DistSq returns the squared distance between two integer points.
func DistSq(a, b image.Point) float64 {
	d := a.Sub(b)
	return float64(d.X*d.X + d.Y*d.Y)
}

// ClampPoint moves p to the nearest point inside r. The maximum coordinates
// are exclusive, matching image.Rectangle. An empty r returns r.Min.
func ClampPoint(p image.Point, r image.Rectangle) image.Point {
	if r.Empty() {
		return r.Min
	}
	return image.Point{
		X: clampInt(p.X, r.Min.X, r.Max.X-1),
		Y: clampInt(p.Y, r.Min.Y, r.Max.Y-1),
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func sign(v float64) float64 {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
