package geom

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrInvalidInterval is returned when an interval's low end exceeds its high end.
	ErrInvalidInterval = errors.New("invalid interval")
	// ErrOpenBound is returned when the closest value lies on an open end.
	ErrOpenBound = errors.New("interval is open on the nearest side")
	// ErrOutOfRange is returned when a value falls outside the interval it must lie in.
	ErrOutOfRange = errors.New("value out of range")
)

// Interval is a real range between Low and High. Both ends are closed unless
// OpenLow or OpenHigh is set, so the zero value is the closed interval [0, 0].
type Interval struct {
	Low      float64
	High     float64
	OpenLow  bool
	OpenHigh bool
}

// Unit is the closed interval [0, 1].
var Unit = Interval{Low: 0, High: 1}

// NewInterval returns the closed interval [low, high].
func NewInterval(low, high float64) (Interval, error) {
	return NewIntervalBounds(low, high, false, false)
}

// NewIntervalBounds returns an interval whose ends are opened as requested.
func NewIntervalBounds(low, high float64, openLow, openHigh bool) (Interval, error) {
	if low > high {
		return Interval{}, fmt.Errorf("%w: low %g > high %g", ErrInvalidInterval, low, high)
	}
	return Interval{Low: low, High: high, OpenLow: openLow, OpenHigh: openHigh}, nil
}

// XInterval returns the closed interval spanning the columns of r, [Min.X, Max.X-1].
func XInterval(r image.Rectangle) Interval {
	return Interval{Low: float64(r.Min.X), High: float64(r.Max.X - 1)}
}

// YInterval returns the closed interval spanning the rows of r, [Min.Y, Max.Y-1].
func YInterval(r image.Rectangle) Interval {
	return Interval{Low: float64(r.Min.Y), High: float64(r.Max.Y - 1)}
}

// Size returns High - Low.
func (iv Interval) Size() float64 {
	return iv.High - iv.Low
}

// Valid reports whether Low <= High.
func (iv Interval) Valid() bool {
	return iv.Low <= iv.High
}

// Contains reports whether v lies in the interval, honoring open ends.
func (iv Interval) Contains(v float64) bool {
	lowOK := v >= iv.Low
	if iv.OpenLow {
		lowOK = v > iv.Low
	}
	highOK := v <= iv.High
	if iv.OpenHigh {
		highOK = v < iv.High
	}
	return lowOK && highOK
}

// Closest returns the value of the interval nearest to v. Values already in
// the interval are returned unchanged; otherwise the nearest end is returned,
// or ErrOpenBound if that end is open. NaN has no nearest end.
func (iv Interval) Closest(v float64) (float64, error) {
	switch {
	case iv.Contains(v):
		return v, nil
	case v >= iv.High:
		if iv.OpenHigh {
			return 0, fmt.Errorf("%w: %g at or above %s", ErrOpenBound, v, iv)
		}
		return iv.High, nil
	case v <= iv.Low:
		if iv.OpenLow {
			return 0, fmt.Errorf("%w: %g at or below %s", ErrOpenBound, v, iv)
		}
		return iv.Low, nil
	default:
		return 0, fmt.Errorf("%w: %g has no closest value in %s", ErrOutOfRange, v, iv)
	}
}

func (iv Interval) String() string {
	l, r := "[", "]"
	if iv.OpenLow {
		l = "("
	}
	if iv.OpenHigh {
		r = ")"
	}
	return fmt.Sprintf("%s%g, %g%s", l, iv.Low, iv.High, r)
}
