// Package capture reads frames from a camera or a video file and gates
// processing on scene activity.
package capture

import (
	"errors"
	"fmt"
	"image"
	"strconv"
	"sync"

	"gocv.io/x/gocv"
)

var (
	// ErrCameraNotOpen is returned when reading from a camera that is not open.
	ErrCameraNotOpen = errors.New("camera is not open")
	// ErrEmptyFrame is returned when the source yields no image.
	ErrEmptyFrame = errors.New("captured frame is empty")
)

// Options configures a Camera.
type Options struct {
	// Source is a device index ("0") or a video file path.
	Source string `json:"source"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	FPS    int    `json:"fps"`
	// Mirror flips frames horizontally so moving the hand right moves the
	// cursor right.
	Mirror bool `json:"mirror"`
}

// DefaultOptions returns the options for the first webcam at 640x480.
func DefaultOptions() Options {
	return Options{
		Source: "0",
		Width:  640,
		Height: 480,
		FPS:    15,
		Mirror: true,
	}
}

// Size returns the configured frame size.
func (o Options) Size() image.Point {
	return image.Pt(o.Width, o.Height)
}

// Camera is a source of BGR frames.
type Camera interface {
	Open() error
	Close() error
	// ReadFrame returns the next frame. The caller closes it.
	ReadFrame() (*gocv.Mat, error)
	SetFPS(fps int)
	FPS() int
	IsOpen() bool
}

type cameraImpl struct {
	opts    Options
	capture *gocv.VideoCapture
	mu      sync.Mutex
	running bool
}

// NewCamera returns a Camera for opts. It is not opened.
func NewCamera(opts Options) Camera {
	return &cameraImpl{opts: opts}
}

// Open opens the source and requests the configured size and rate.
func (c *cameraImpl) Open() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return nil
	}

	var src any = c.opts.Source
	if id, err := strconv.Atoi(c.opts.Source); err == nil {
		src = id
	}

	capture, err := gocv.OpenVideoCapture(src)
	if err != nil {
		return fmt.Errorf("open camera %q: %w", c.opts.Source, err)
	}

	if c.opts.Width > 0 && c.opts.Height > 0 {
		capture.Set(gocv.VideoCaptureFrameWidth, float64(c.opts.Width))
		capture.Set(gocv.VideoCaptureFrameHeight, float64(c.opts.Height))
	}
	if c.opts.FPS > 0 {
		capture.Set(gocv.VideoCaptureFPS, float64(c.opts.FPS))
	}

	c.capture = capture
	c.running = true
	return nil
}

// Close releases the source.
func (c *cameraImpl) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		c.running = false
		return nil
	}

	err := c.capture.Close()
	c.capture = nil
	c.running = false
	return err
}

// ReadFrame reads one frame, resized to the configured size when the device
// ignored the request, and mirrored if configured.
func (c *cameraImpl) ReadFrame() (*gocv.Mat, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.running || c.capture == nil {
		return nil, ErrCameraNotOpen
	}

	mat := gocv.NewMat()
	if ok := c.capture.Read(&mat); !ok || mat.Empty() {
		mat.Close()
		return nil, ErrEmptyFrame
	}

	normalize(&mat, c.opts.Size(), c.opts.Mirror)
	return &mat, nil
}

// SetFPS sets the requested capture rate. Values <= 0 are ignored.
func (c *cameraImpl) SetFPS(fps int) {
	if fps <= 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.opts.FPS = fps
	if c.capture != nil {
		c.capture.Set(gocv.VideoCaptureFPS, float64(fps))
	}
}

func (c *cameraImpl) FPS() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.opts.FPS
}

func (c *cameraImpl) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// normalize resizes frame in place to size unless size has a zero side, then
// flips it horizontally when mirror is set.
func normalize(frame *gocv.Mat, size image.Point, mirror bool) {
	if size.X > 0 && size.Y > 0 && (frame.Cols() != size.X || frame.Rows() != size.Y) {
		gocv.Resize(*frame, frame, size, 0, 0, gocv.InterpolationLinear)
	}
	if mirror {
		gocv.Flip(*frame, frame, 1)
	}
}
