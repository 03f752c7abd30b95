package contour

import (
	"image"

	"github.com/ayusman/mudra/internal/geom"
)

// Area returns the unsigned area enclosed by the polygon pts.
func Area(pts []image.Point) float64 {
	m00, _, _ := polygonMoments(pts)
	if m00 < 0 {
		return -m00
	}
	return m00
}

// Centroid returns the center of mass of the polygon pts, computed from its
// spatial moments. Degenerate polygons (zero area) fall back to the mean of
// their points. An empty slice returns the zero Vec.
func Centroid(pts []image.Point) geom.Vec {
	if len(pts) == 0 {
		return geom.Vec{}
	}
	m00, m10, m01 := polygonMoments(pts)
	if m00 == 0 {
		var sum geom.Vec
		for _, p := range pts {
			sum = sum.Add(geom.V(p))
		}
		n := float64(len(pts))
		return geom.Vec{X: sum.X / n, Y: sum.Y / n}
	}
	return geom.Vec{X: m10 / m00, Y: m01 / m00}
}

// polygonMoments returns the signed zeroth and first order moments of the
// closed polygon pts using Green's theorem.
func polygonMoments(pts []image.Point) (m00, m10, m01 float64) {
	n := len(pts)
	if n < 3 {
		return 0, 0, 0
	}
	for i := range pts {
		p := geom.V(pts[i])
		q := geom.V(pts[(i+1)%n])
		c := p.Cross(q)
		m00 += c
		m10 += c * (p.X + q.X)
		m01 += c * (p.Y + q.Y)
	}
	return m00 / 2, m10 / 6, m01 / 6
}
