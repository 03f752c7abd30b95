package detector

import (
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// MockDetector is a test implementation of the Detector interface.
// It allows tests to control the detection results.
type MockDetector struct {
	mu    sync.Mutex
	rects []image.Rectangle
	err   error
	calls int
	scale float64
}

// NewMockDetector creates a new MockDetector instance.
func NewMockDetector(rects ...image.Rectangle) *MockDetector {
	return &MockDetector{rects: rects}
}

// SetRects sets the faces that will be returned by Detect.
func (m *MockDetector) SetRects(rects []image.Rectangle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rects = rects
}

// SetError sets the error that will be returned by Detect.
func (m *MockDetector) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Detect was called.
func (m *MockDetector) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// SetScaleWidth records the requested detection width.
func (m *MockDetector) SetScaleWidth(width float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scale = width
}

// ScaleWidth returns the last width passed to SetScaleWidth.
func (m *MockDetector) ScaleWidth() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scale
}

// Detect returns a sorted copy of the configured faces, or the error.
func (m *MockDetector) Detect(gray gocv.Mat) ([]image.Rectangle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if m.rects == nil {
		return nil, nil
	}
	out := append([]image.Rectangle(nil), m.rects...)
	SortByArea(out)
	return out, nil
}

// Close is a no-op for the mock detector.
func (m *MockDetector) Close() error {
	return nil
}
