// Package detector finds faces in grayscale frames. Faces anchor the hand
// search and are masked out of the skin segmentation.
package detector

import (
	"errors"
	"image"
	"slices"

	"gocv.io/x/gocv"
)

// ErrCascadeLoad is returned when a cascade file cannot be loaded.
var ErrCascadeLoad = errors.New("failed to load cascade")

// Detector defines the interface for face detection implementations.
type Detector interface {
	// Detect returns face rectangles in frame coordinates, largest first.
	// Returns an empty slice if no faces are found.
	Detect(gray gocv.Mat) ([]image.Rectangle, error)

	// Close releases any resources held by the detector.
	Close() error
}

// Scaler is implemented by detectors whose detection width can change at
// runtime.
type Scaler interface {
	SetScaleWidth(width float64)
}

// Config holds options shared by the detectors.
type Config struct {
	// ScaleWidth is the width frames are shrunk to before detection. Frames
	// narrower than this are not enlarged.
	ScaleWidth float64

	// MinSize and MaxSize bound the face size in detection pixels. Used by Pigo.
	MinSize int
	MaxSize int

	// MinQuality drops Pigo detections scoring below it.
	MinQuality float32
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() Config {
	return Config{
		ScaleWidth: 300,
		MinSize:    40,
		MaxSize:    300,
		MinQuality: 5,
	}
}

// Scale returns the factor applied to a frame of the given width before
// detection: min(ScaleWidth/width, 1).
func (c Config) Scale(width int) float64 {
	if width <= 0 || c.ScaleWidth <= 0 {
		return 1
	}
	return min(c.ScaleWidth/float64(width), 1)
}

// unscale maps rectangles found on a scaled frame back to frame coordinates,
// truncating each component.
func unscale(rects []image.Rectangle, scale float64) []image.Rectangle {
	out := make([]image.Rectangle, len(rects))
	for i, r := range rects {
		x := int(float64(r.Min.X) / scale)
		y := int(float64(r.Min.Y) / scale)
		w := int(float64(r.Dx()) / scale)
		h := int(float64(r.Dy()) / scale)
		out[i] = image.Rect(x, y, x+w, y+h)
	}
	return out
}

// SortByArea orders rects by area, largest first. Equal areas keep their order.
func SortByArea(rects []image.Rectangle) {
	slices.SortStableFunc(rects, func(a, b image.Rectangle) int {
		return area(b) - area(a)
	})
}

func area(r image.Rectangle) int {
	return r.Dx() * r.Dy()
}
