package detector

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Cascade detects faces with an OpenCV Haar or LBP cascade.
type Cascade struct {
	cfg        Config
	classifier gocv.CascadeClassifier

	mu     sync.Mutex
	scaled gocv.Mat
	closed bool
}

// NewCascade loads the cascade XML file at path.
func NewCascade(path string, cfg Config) (*Cascade, error) {
	classifier := gocv.NewCascadeClassifier()
	if !classifier.Load(path) {
		classifier.Close()
		return nil, fmt.Errorf("%w: %s", ErrCascadeLoad, path)
	}
	return &Cascade{
		cfg:        cfg,
		classifier: classifier,
		scaled:     gocv.NewMat(),
	}, nil
}

// Detect shrinks gray by the configured scale, runs the cascade, and maps
// the results back to frame coordinates.
func (c *Cascade) Detect(gray gocv.Mat) ([]image.Rectangle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, fmt.Errorf("cascade detector is closed")
	}
	if gray.Empty() {
		return nil, nil
	}

	scale := c.cfg.Scale(gray.Cols())
	src := gray
	if scale < 1 {
		gocv.Resize(gray, &c.scaled, image.Point{}, scale, scale, gocv.InterpolationLinear)
		src = c.scaled
	}

	rects := unscale(c.classifier.DetectMultiScale(src), scale)
	SortByArea(rects)
	return rects, nil
}

// SetScaleWidth changes the width frames are shrunk to before detection.
func (c *Cascade) SetScaleWidth(width float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg.ScaleWidth = width
}

// Close releases the cascade.
func (c *Cascade) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.scaled.Close()
	return c.classifier.Close()
}
