package capture

import (
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

const (
	// motionWidth is the width frames are shrunk to before differencing.
	motionWidth = 160
	// motionBlur is the Gaussian kernel size applied at motionWidth.
	motionBlur = 7
	// motionDiffThreshold is the grey-level change that counts as motion.
	motionDiffThreshold = 25
)

// MotionDetector reports the share of pixels that changed between
// consecutive frames.
type MotionDetector struct {
	threshold float64
	prev      gocv.Mat
	primed    bool
	mu        sync.Mutex
}

// NewMotionDetector returns a detector that reports motion when more than
// threshold percent of pixels change.
func NewMotionDetector(threshold float64) *MotionDetector {
	return &MotionDetector{
		threshold: threshold,
		prev:      gocv.NewMat(),
	}
}

// Detect compares frame with the previous one. The first frame only primes
// the detector and reports no motion.
func (m *MotionDetector) Detect(frame gocv.Mat) (bool, float64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if frame.Empty() {
		return false, 0
	}

	small := gocv.NewMat()
	defer small.Close()
	h := frame.Rows() * motionWidth / frame.Cols()
	if h < 1 {
		h = 1
	}
	gocv.Resize(frame, &small, image.Pt(motionWidth, h), 0, 0, gocv.InterpolationArea)

	gray := gocv.NewMat()
	defer gray.Close()
	if small.Channels() > 1 {
		gocv.CvtColor(small, &gray, gocv.ColorBGRToGray)
	} else {
		small.CopyTo(&gray)
	}
	gocv.GaussianBlur(gray, &gray, image.Pt(motionBlur, motionBlur), 0, 0, gocv.BorderDefault)

	if !m.primed || m.prev.Rows() != gray.Rows() || m.prev.Cols() != gray.Cols() {
		gray.CopyTo(&m.prev)
		m.primed = true
		return false, 0
	}

	diff := gocv.NewMat()
	defer diff.Close()
	gocv.AbsDiff(gray, m.prev, &diff)
	gocv.Threshold(diff, &diff, motionDiffThreshold, 255, gocv.ThresholdBinary)

	changed := float64(gocv.CountNonZero(diff)) / float64(diff.Rows()*diff.Cols()) * 100
	gray.CopyTo(&m.prev)

	return changed > m.threshold, changed
}

// Reset drops the baseline so the next frame primes the detector again.
func (m *MotionDetector) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.primed = false
}

// Close releases the baseline frame.
func (m *MotionDetector) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prev.Close()
	m.prev = gocv.NewMat()
	m.primed = false
}

// Mode is the capture rate mode chosen by a Gate.
type Mode int

const (
	// ModeIdle samples slowly while the scene is still.
	ModeIdle Mode = iota
	// ModeActive samples at full rate while there is motion.
	ModeActive
)

func (m Mode) String() string {
	if m == ModeActive {
		return "active"
	}
	return "idle"
}

// Gate switches to active on motion and back to idle once no motion has been
// seen for the hold duration.
type Gate struct {
	hold       time.Duration
	mode       Mode
	lastMotion time.Time
}

// NewGate returns an idle Gate.
func NewGate(hold time.Duration) *Gate {
	return &Gate{hold: hold}
}

// Update records whether motion was seen at now and returns the mode and
// whether it changed.
func (g *Gate) Update(motion bool, now time.Time) (Mode, bool) {
	prev := g.mode
	switch {
	case motion:
		g.lastMotion = now
		g.mode = ModeActive
	case g.mode == ModeActive && now.Sub(g.lastMotion) > g.hold:
		g.mode = ModeIdle
	}
	return g.mode, g.mode != prev
}

// Mode returns the current mode.
func (g *Gate) Mode() Mode {
	return g.mode
}
