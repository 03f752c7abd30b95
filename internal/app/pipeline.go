package app

import (
	"context"
	"errors"
	"image/color"
	"log"
	"time"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/tracker"
)

var tipColor = color.RGBA{R: 255, A: 255}

// gated reports whether capture slows down while the scene is still.
func (a *App) gated() bool {
	return a.cfg.Pipeline.MotionThreshold > 0
}

func (a *App) initialFPS() int {
	if a.gated() {
		return a.cfg.Pipeline.IdleFPS
	}
	return a.cfg.Pipeline.ActiveFPS
}

func (a *App) fpsFor(mode capture.Mode) int {
	if mode == capture.ModeActive {
		return a.cfg.Pipeline.ActiveFPS
	}
	return a.cfg.Pipeline.IdleFPS
}

// capturing reports whether the capture loop should read frames.
func (a *App) capturing() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled && !a.training
}

// captureLoop reads frames at the current rate and queues them for tracking.
// With motion gating, frames are read slowly and dropped until something
// moves, then read at full rate until the scene has been still for the idle
// timeout.
func (a *App) captureLoop(ctx context.Context) {
	defer a.wg.Done()

	fps := a.initialFPS()
	ticker := time.NewTicker(time.Second / time.Duration(fps))
	defer ticker.Stop()

	mode := capture.ModeActive
	if a.gated() {
		mode = a.gate.Mode()
	}
	a.setMode(mode)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		if !a.capturing() {
			continue
		}

		frame, err := a.camera.ReadFrame()
		if errors.Is(err, capture.ErrNoMoreFrames) {
			log.Println("Camera has no more frames")
			return
		}
		if err != nil {
			log.Printf("Error reading frame: %v", err)
			continue
		}

		if a.gated() {
			motion, _ := a.motion.Detect(*frame)
			var changed bool
			mode, changed = a.gate.Update(motion, time.Now())
			if changed {
				fps = a.fpsFor(mode)
				a.camera.SetFPS(fps)
				ticker.Reset(time.Second / time.Duration(fps))
				a.setMode(mode)
				log.Printf("Switched to %s mode", mode)
			}
			if mode == capture.ModeIdle {
				frame.Close()
				continue
			}
		}

		a.frames.Push(frame)
	}
}

// trackLoop tracks queued frames until ctx is done.
func (a *App) trackLoop(ctx context.Context) {
	defer a.wg.Done()

	for {
		frame, err := a.frames.Wait(ctx)
		if err != nil {
			return
		}
		a.processFrame(*frame)
		frame.Close()
	}
}

// processFrame tracks one frame, applies a found state to the driver and
// publishes the snapshot.
func (a *App) processFrame(frame gocv.Mat) (Snapshot, error) {
	a.trackMu.Lock()
	res, err := a.tracker.MouseState(frame)
	a.trackMu.Unlock()
	defer res.Debug.Close()

	if err != nil {
		a.reportError(err)
		return Snapshot{}, err
	}

	if res.Found {
		a.apply(res.State)
	}

	a.fps.Tick()

	a.mu.RLock()
	mode := a.mode
	a.mu.RUnlock()

	snap := Snapshot{
		State:     res.State,
		Found:     res.Found,
		FaceFound: res.FaceFound,
		Status:    res.Status,
		Fingers:   res.Fingers,
		Mode:      mode,
		FPS:       a.fps.Rate(),
		At:        time.Now(),
	}

	var jpeg []byte
	if res.Debug != nil {
		if jpeg, err = encodeDebug(res.Debug); err != nil {
			log.Printf("Failed to encode debug frame: %v", err)
		}
	}

	a.publish(snap, jpeg)
	return snap, nil
}

// reportError logs tracking errors. A missing classifier is logged once
// until a model is loaded.
func (a *App) reportError(err error) {
	if !errors.Is(err, tracker.ErrNotTrained) {
		log.Printf("Error tracking frame: %v", err)
		return
	}

	a.mu.Lock()
	warned := a.warned
	a.warned = true
	a.mu.Unlock()

	if !warned {
		log.Println("Skipping frames until a skin model is trained")
	}
}

func (a *App) setMode(mode capture.Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.mode = mode
}

func (a *App) publish(snap Snapshot, jpeg []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snapshot = snap
	if jpeg != nil {
		a.debugJPEG = jpeg
	}
	for ch := range a.subs {
		select {
		case ch <- snap:
		default:
		}
	}
}

// encodeDebug renders the most refined mask reached with the fingertips
// circled and returns it as a JPEG.
func encodeDebug(d *tracker.Debug) ([]byte, error) {
	src := d.Selected
	if src.Empty() {
		src = d.Filtered
	}
	if src.Empty() {
		src = d.Skin
	}
	if src.Empty() {
		return nil, nil
	}

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(src, &bgr, gocv.ColorGrayToBGR)
	for _, tip := range d.Tips {
		gocv.Circle(&bgr, tip, 6, tipColor, 2)
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, bgr)
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	return append([]byte(nil), buf.GetBytes()...), nil
}
