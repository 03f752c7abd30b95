// Package app runs the tracking pipeline: it reads camera frames, tracks the
// hand, drives the cursor and keeps the latest state for the tray and the
// HTTP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/capture"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/mouse"
	"github.com/ayusman/mudra/internal/queue"
	"github.com/ayusman/mudra/internal/skin"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/timing"
	"github.com/ayusman/mudra/internal/tracker"
)

// settingsKey is where tracker settings are persisted.
const settingsKey = "tracker"

// fpsWindow is the number of frames the tracking rate is averaged over.
const fpsWindow = 30

var (
	// ErrNoStore is returned by operations that need persistence when the
	// app runs without a store.
	ErrNoStore = errors.New("no store configured")
	// ErrTraining is returned when a training run is already in progress.
	ErrTraining = errors.New("training already in progress")
)

// Options holds the collaborators of an App. The App owns them and closes
// them in Close. Store is optional.
type Options struct {
	Config   config.Config
	Camera   capture.Camera
	Detector detector.Detector
	Driver   mouse.Driver
	Store    *store.Store
}

// Snapshot is the latest tracking outcome.
type Snapshot struct {
	State     mouse.State
	Found     bool
	FaceFound bool
	Status    tracker.Status
	Fingers   int
	Mode      capture.Mode
	FPS       float64
	At        time.Time
}

// App orchestrates capture, tracking and cursor output.
type App struct {
	cfg      config.Config
	camera   capture.Camera
	detector detector.Detector
	driver   mouse.Driver
	store    *store.Store

	// trackMu guards tracker and debugViewers.
	trackMu      sync.Mutex
	tracker      *tracker.Tracker
	debugViewers int

	// driverMu serializes driver output; applied is the last state sent.
	driverMu sync.Mutex
	applied  mouse.State

	frames *queue.Queue[*gocv.Mat]
	motion *capture.MotionDetector
	gate   *capture.Gate
	fps    *timing.RunningAvg

	mu        sync.RWMutex
	enabled   bool
	training  bool
	mode      capture.Mode
	snapshot  Snapshot
	debugJPEG []byte
	subs      map[chan Snapshot]struct{}
	cancel    context.CancelFunc
	started   time.Time
	warned    bool

	wg sync.WaitGroup
}

// New builds an App. Saved tracker settings and the active skin model are
// loaded from the store when one is given.
func New(opts Options) (*App, error) {
	if opts.Camera == nil || opts.Detector == nil || opts.Driver == nil {
		return nil, errors.New("app needs a camera, a detector and a driver")
	}

	cfg := opts.Config
	if opts.Store != nil {
		saved, err := loadTrackerSettings(opts.Store, cfg.Tracker)
		if err != nil {
			return nil, err
		}
		cfg.Tracker = saved
	}

	trk, err := tracker.New(cfg.Tracker, opts.Detector, nil)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:      cfg,
		camera:   opts.Camera,
		detector: opts.Detector,
		driver:   opts.Driver,
		store:    opts.Store,
		tracker:  trk,
		frames:   queue.New(cfg.Pipeline.QueueSize, func(m *gocv.Mat) { m.Close() }),
		motion:   capture.NewMotionDetector(cfg.Pipeline.MotionThreshold),
		gate:     capture.NewGate(cfg.Pipeline.GetIdleTimeout()),
		fps:      timing.NewRunningAvg(fpsWindow),
		enabled:  true,
		snapshot: Snapshot{State: mouse.NewState()},
		subs:     make(map[chan Snapshot]struct{}),
		started:  time.Now(),
	}

	if a.store != nil {
		if err := a.LoadActiveModel(); err != nil {
			trk.Close()
			a.motion.Close()
			return nil, err
		}
	}

	return a, nil
}

// loadTrackerSettings overlays saved settings on def. The screen rectangle
// always comes from def since it describes the current display.
func loadTrackerSettings(s *store.Store, def tracker.Config) (tracker.Config, error) {
	saved := def
	err := s.Settings().Get(settingsKey, &saved)
	if errors.Is(err, store.ErrNotFound) {
		return def, nil
	}
	if err != nil {
		return def, fmt.Errorf("load tracker settings: %w", err)
	}

	saved.ScreenRect = def.ScreenRect
	if err := saved.Validate(); err != nil {
		log.Printf("Ignoring saved tracker settings: %v", err)
		return def, nil
	}
	log.Println("Loaded saved tracker settings")
	return saved, nil
}

// LoadActiveModel loads the active skin model into the tracker. Having no
// active model is not an error.
func (a *App) LoadActiveModel() error {
	if a.store == nil {
		return ErrNoStore
	}

	m, err := a.store.Models().Active()
	if errors.Is(err, store.ErrNotFound) {
		log.Println("No active skin model, train one to start tracking")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load active model: %w", err)
	}
	return a.useModel(m)
}

// ActivateModel makes the stored model id active and loads it.
func (a *App) ActivateModel(id string) error {
	if a.store == nil {
		return ErrNoStore
	}

	if err := a.store.Models().Activate(id); err != nil {
		return err
	}
	m, err := a.store.Models().GetByID(id)
	if err != nil {
		return err
	}
	return a.useModel(m)
}

func (a *App) useModel(m *store.Model) error {
	var b skin.Boost
	if err := b.UnmarshalBinary(m.Data); err != nil {
		return fmt.Errorf("decode model %s: %w", m.ID, err)
	}

	a.trackMu.Lock()
	a.tracker.SetClassifier(&b)
	a.trackMu.Unlock()

	a.mu.Lock()
	a.warned = false
	a.mu.Unlock()

	log.Printf("Using skin model %q (%s)", m.Name, m.ID)
	return nil
}

// Trained reports whether the tracker has a skin classifier.
func (a *App) Trained() bool {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()
	return a.tracker.Trained()
}

// TrackerConfig returns the tracker settings in use.
func (a *App) TrackerConfig() tracker.Config {
	a.trackMu.Lock()
	defer a.trackMu.Unlock()
	return a.tracker.Config()
}

// UpdateTrackerConfig swaps in a tracker built from cfg, keeping the skin
// classifier, and persists cfg. The smoothed position restarts.
func (a *App) UpdateTrackerConfig(cfg tracker.Config) error {
	trk, err := tracker.New(cfg, a.detector, nil)
	if err != nil {
		return err
	}

	a.trackMu.Lock()
	trk.SetClassifier(a.tracker.Classifier())
	trk.SetDebug(a.debugViewers > 0)
	old := a.tracker
	a.tracker = trk
	a.trackMu.Unlock()

	if err := old.Close(); err != nil {
		log.Printf("Error closing tracker: %v", err)
	}

	if a.store != nil {
		if err := a.store.Settings().Set(settingsKey, cfg); err != nil {
			return fmt.Errorf("save tracker settings: %w", err)
		}
	}
	log.Println("Tracker settings updated")
	return nil
}

// SetEnabled pauses or resumes tracking. Pausing releases held buttons.
func (a *App) SetEnabled(enabled bool) {
	a.mu.Lock()
	was := a.enabled
	a.enabled = enabled
	a.mu.Unlock()

	if !was || enabled {
		return
	}

	a.driverMu.Lock()
	defer a.driverMu.Unlock()
	if a.applied.Buttons == mouse.None {
		return
	}
	release := mouse.State{Pos: a.applied.Pos}
	if err := a.driver.Apply(release); err != nil {
		log.Printf("Failed to release buttons: %v", err)
		return
	}
	a.applied = release
}

// apply sends s to the driver unless tracking was paused meanwhile.
func (a *App) apply(s mouse.State) {
	a.driverMu.Lock()
	defer a.driverMu.Unlock()

	if !a.IsEnabled() {
		return
	}
	if err := a.driver.Apply(s); err != nil {
		log.Printf("Failed to apply cursor state %s: %v", s, err)
		return
	}
	a.applied = s
}

// IsEnabled reports whether tracking is enabled.
func (a *App) IsEnabled() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.enabled
}

// Running reports whether the pipeline is started.
func (a *App) Running() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cancel != nil
}

// Uptime returns the time since the app was created.
func (a *App) Uptime() time.Duration {
	return time.Since(a.started)
}

// Snapshot returns the latest tracking outcome.
func (a *App) Snapshot() Snapshot {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snapshot
}

// Subscribe returns a channel receiving every new snapshot and a function
// that ends the subscription. Slow subscribers miss snapshots.
func (a *App) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	a.mu.Lock()
	a.subs[ch] = struct{}{}
	a.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			a.mu.Lock()
			delete(a.subs, ch)
			close(ch)
			a.mu.Unlock()
		})
	}
}

// WatchDebug turns on debug masks until the returned function is called.
func (a *App) WatchDebug() func() {
	a.trackMu.Lock()
	a.debugViewers++
	a.tracker.SetDebug(true)
	a.trackMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			a.trackMu.Lock()
			a.debugViewers--
			a.tracker.SetDebug(a.debugViewers > 0)
			a.trackMu.Unlock()
		})
	}
}

// DebugJPEG returns the latest debug mask as a JPEG, or nil.
func (a *App) DebugJPEG() []byte {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.debugJPEG
}

// Store returns the store, which may be nil.
func (a *App) Store() *store.Store {
	return a.store
}

// Start opens the camera and starts the capture and tracking goroutines.
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return nil
	}

	if err := a.camera.Open(); err != nil {
		return fmt.Errorf("open camera: %w", err)
	}
	a.camera.SetFPS(a.initialFPS())

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(2)
	go a.captureLoop(ctx)
	go a.trackLoop(ctx)

	log.Println("Tracking pipeline started")
	return nil
}

// Stop halts the pipeline and closes the camera.
func (a *App) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.cancel = nil
	a.mu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	a.wg.Wait()
	a.frames.Clear()
	a.motion.Reset()

	if err := a.camera.Close(); err != nil {
		log.Printf("Error closing camera: %v", err)
	}
	log.Println("Tracking pipeline stopped")
}

// Close stops the pipeline and releases every collaborator.
func (a *App) Close() error {
	a.Stop()
	a.motion.Close()

	a.trackMu.Lock()
	errs := []error{a.tracker.Close()}
	a.trackMu.Unlock()

	errs = append(errs, a.driver.Close(), a.detector.Close())
	return errors.Join(errs...)
}

// Train reads n frames from the camera and fits a new skin model from them.
// The user should face the camera without raising a hand. Tracking pauses
// while frames are read. n <= 0 uses the configured frame count.
func (a *App) Train(ctx context.Context, n int) (*store.Model, error) {
	if n <= 0 {
		n = a.cfg.Pipeline.TrainFrames
	}

	a.mu.Lock()
	if a.training {
		a.mu.Unlock()
		return nil, ErrTraining
	}
	a.training = true
	running := a.cancel != nil
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.training = false
		a.mu.Unlock()
	}()

	if !running {
		if err := a.camera.Open(); err != nil {
			return nil, fmt.Errorf("open camera: %w", err)
		}
		defer a.camera.Close()
	}

	frames := make([]gocv.Mat, 0, n)
	defer func() {
		for i := range frames {
			frames[i].Close()
		}
	}()

	log.Printf("Capturing %d training frames", n)
	interval := a.cfg.Pipeline.GetTrainInterval()
	for len(frames) < n {
		frame, err := a.camera.ReadFrame()
		if err != nil {
			return nil, fmt.Errorf("capture training frame %d: %w", len(frames), err)
		}
		frames = append(frames, *frame)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(interval):
		}
	}

	return a.TrainFrames(frames)
}

// TrainFrames fits a skin model from frames and makes it current. With a
// store the model is saved and activated, and the run is recorded whether it
// succeeds or not.
func (a *App) TrainFrames(frames []gocv.Mat) (*store.Model, error) {
	start := time.Now()

	a.trackMu.Lock()
	report, err := a.tracker.Train(frames)
	a.trackMu.Unlock()

	run := &store.Run{
		ID:         uuid.NewString(),
		Frames:     report.Frames,
		FacesFound: report.FacesFound,
		Positives:  report.Positives,
		Negatives:  report.Negatives,
		Duration:   time.Since(start),
	}
	if err != nil {
		run.Error = err.Error()
		a.saveRun(run)
		return nil, fmt.Errorf("train skin model: %w", err)
	}

	data, err := report.Model.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("encode skin model: %w", err)
	}
	model := &store.Model{
		ID:        uuid.NewString(),
		Name:      "trained " + start.Format("2006-01-02 15:04:05"),
		Data:      data,
		Positives: report.Positives,
		Negatives: report.Negatives,
	}

	if a.store != nil {
		if err := a.store.Models().Create(model); err != nil {
			return nil, fmt.Errorf("save skin model: %w", err)
		}
		if err := a.store.Models().Activate(model.ID); err != nil {
			return nil, fmt.Errorf("activate skin model: %w", err)
		}
		model.Active = true
		run.ModelID = model.ID
		a.saveRun(run)
	}

	a.mu.Lock()
	a.warned = false
	a.mu.Unlock()

	log.Printf("Trained skin model %s from %d frames (%d with a face)", model.ID, report.Frames, report.FacesFound)
	return model, nil
}

func (a *App) saveRun(run *store.Run) {
	if a.store == nil {
		return
	}
	if err := a.store.Runs().Create(run); err != nil {
		log.Printf("Failed to record training run: %v", err)
	}
}
