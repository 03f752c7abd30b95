package capture

import (
	"errors"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// ErrNoMoreFrames is returned by a non-looping MockCamera after its last frame.
var ErrNoMoreFrames = errors.New("no more frames")

// MockCamera plays back frames held in memory. It backs tests and demo runs
// without a webcam.
type MockCamera struct {
	frames  []gocv.Mat
	index   int
	loop    bool
	fps     int
	size    image.Point
	mirror  bool
	reads   int
	mu      sync.Mutex
	running bool
}

// NewMockCamera clones frames and plays them back in order.
func NewMockCamera(frames []gocv.Mat, loop bool) *MockCamera {
	c := &MockCamera{loop: loop, fps: 15}
	c.SetFrames(frames)
	return c
}

// SetNormalize makes ReadFrame resize and mirror frames like a real camera.
func (c *MockCamera) SetNormalize(size image.Point, mirror bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.size = size
	c.mirror = mirror
}

func (c *MockCamera) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = true
	c.index = 0
	return nil
}

func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.running = false
	return nil
}

// ReadFrame returns a copy of the next frame.
func (c *MockCamera) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running {
		return nil, ErrCameraNotOpen
	}
	if len(c.frames) == 0 {
		return nil, ErrEmptyFrame
	}
	if c.index >= len(c.frames) {
		if !c.loop {
			return nil, ErrNoMoreFrames
		}
		c.index = 0
	}

	frame := c.frames[c.index].Clone()
	c.index++
	c.reads++

	normalize(&frame, c.size, c.mirror)
	return &frame, nil
}

func (c *MockCamera) SetFPS(fps int) {
	if fps <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fps = fps
}

func (c *MockCamera) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

func (c *MockCamera) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Reads returns how many frames have been read.
func (c *MockCamera) Reads() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.reads
}

// SetFrames replaces the frame sequence with copies of frames and restarts
// playback.
func (c *MockCamera) SetFrames(frames []gocv.Mat) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.frames {
		c.frames[i].Close()
	}
	c.frames = make([]gocv.Mat, len(frames))
	for i := range frames {
		c.frames[i] = frames[i].Clone()
	}
	c.index = 0
}

// Release closes the held frames.
func (c *MockCamera) Release() {
	c.SetFrames(nil)
}
