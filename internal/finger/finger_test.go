package finger

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayusman/mudra/internal/contour"
	"github.com/ayusman/mudra/internal/fixture"
)

func ring(t *testing.T, pts []image.Point) contour.Ring {
	t.Helper()
	r, err := contour.NewRing(pts)
	require.NoError(t, err)
	return r
}

func tips(r contour.Ring, fingers []Finger) []image.Point {
	out := make([]image.Point, len(fingers))
	for i, f := range fingers {
		out[i] = r.At(f.Tip)
	}
	return out
}

func TestExtract_FingerCount(t *testing.T) {
	handSize := image.Pt(80, 100)
	k := 25
	minDist := 15.0

	tests := []struct {
		name    string
		hand    fixture.Hand
		want    int
		columns [][2]int
	}{
		{
			name: "fist",
			hand: fixture.Hand{Palm: image.Rect(100, 200, 180, 280)},
			want: 0,
		},
		{
			name: "one finger",
			hand: fixture.Hand{
				Palm:    image.Rect(100, 200, 180, 280),
				Fingers: []fixture.Finger{{X: 110, Width: 12, Height: 50}},
			},
			want:    1,
			columns: [][2]int{{110, 122}},
		},
		{
			name: "two fingers",
			hand: fixture.Hand{
				Palm: image.Rect(100, 200, 180, 280),
				Fingers: []fixture.Finger{
					{X: 110, Width: 12, Height: 50},
					{X: 150, Width: 12, Height: 50},
				},
			},
			want:    2,
			columns: [][2]int{{110, 122}, {150, 162}},
		},
		{
			name: "three fingers",
			hand: fixture.Hand{
				Palm: image.Rect(100, 200, 220, 280),
				Fingers: []fixture.Finger{
					{X: 105, Width: 12, Height: 50},
					{X: 140, Width: 12, Height: 50},
					{X: 175, Width: 12, Height: 50},
				},
			},
			want:    3,
			columns: [][2]int{{105, 117}, {140, 152}, {175, 187}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := ring(t, tt.hand.Contour())
			got := Extract(r, handSize, k, minDist, DefaultAngle)
			require.Len(t, got, tt.want)

			// Every tip lies on top of exactly one finger.
			for _, tip := range tips(r, got) {
				assert.Equal(t, 150, tip.Y, "tip %v", tip)
				hits := 0
				for _, c := range tt.columns {
					if tip.X >= c[0] && tip.X < c[1] {
						hits++
					}
				}
				assert.Equal(t, 1, hits, "tip %v is not on a single finger", tip)
			}

			// No two tips share a finger.
			seen := map[int]bool{}
			for _, tip := range tips(r, got) {
				for ci, c := range tt.columns {
					if tip.X >= c[0] && tip.X < c[1] {
						assert.False(t, seen[ci], "two tips on finger %d", ci)
						seen[ci] = true
					}
				}
			}
		})
	}
}

func TestExtract_SinglePeak(t *testing.T) {
	peak := image.Pt(30, 20)
	pts := fixture.Polygon(image.Pt(0, 100), image.Pt(0, 140), image.Pt(60, 140), image.Pt(60, 100), peak)
	r := ring(t, pts)

	got := Extract(r, image.Pt(100, 200), 10, 10, DefaultAngle)
	require.Len(t, got, 1)
	assert.Equal(t, peak, r.At(got[0].Tip))
	assert.Equal(t, 220, got[0].Tip)

	// The base of the finger lies on either side of the tip.
	assert.Less(t, got[0].Left, got[0].Tip)
	assert.Greater(t, got[0].Right, got[0].Tip)
}

func TestExtract_Circle(t *testing.T) {
	pts := fixture.Circle(image.Pt(200, 200), 60)
	assert.Empty(t, Extract(ring(t, pts), image.Pt(80, 100), 25, 15, DefaultAngle))

	reversed := make([]image.Point, len(pts))
	for i, p := range pts {
		reversed[len(pts)-1-i] = p
	}
	assert.Empty(t, Extract(ring(t, reversed), image.Pt(80, 100), 25, 15, DefaultAngle))
}

func TestExtract_ShortContour(t *testing.T) {
	pts := fixture.Polygon(image.Pt(0, 10), image.Pt(5, 0), image.Pt(10, 10))
	r := ring(t, pts)
	require.Less(t, r.Len(), 2*25+1)
	assert.Empty(t, Extract(r, image.Pt(80, 100), 25, 15, DefaultAngle))
	assert.Empty(t, Extract(r, image.Pt(80, 100), 0, 15, DefaultAngle))
}

func TestExtract_FiltersBelowHand(t *testing.T) {
	hand := fixture.Hand{
		Palm:    image.Rect(100, 200, 180, 280),
		Fingers: []fixture.Finger{{X: 110, Width: 12, Height: 50}},
	}
	r := ring(t, hand.Contour())

	// A hand shorter than the gap to any candidate keeps nothing.
	assert.Empty(t, Extract(r, image.Pt(80, 0), 25, 15, DefaultAngle))
}

func TestRanges(t *testing.T) {
	got := Ranges([]Finger{{Tip: 5, Left: 2, Right: 9}, {Tip: 0, Left: 40, Right: 3}})
	assert.Equal(t, [][2]int{{2, 9}, {40, 3}}, got)
}
