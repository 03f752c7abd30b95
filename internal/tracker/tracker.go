// Package tracker turns webcam frames into cursor states. It finds the face,
// segments skin, picks the hand contour, counts raised fingers, and maps the
// palm centre onto the screen through a Kalman filter.
package tracker

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"log"

	"gocv.io/x/gocv"

	"github.com/ayusman/mudra/internal/contour"
	"github.com/ayusman/mudra/internal/detector"
	"github.com/ayusman/mudra/internal/finger"
	"github.com/ayusman/mudra/internal/geom"
	"github.com/ayusman/mudra/internal/kalman"
	"github.com/ayusman/mudra/internal/mouse"
	"github.com/ayusman/mudra/internal/skin"
)

var (
	// ErrInvalidFrame is returned for empty frames or frames that are not 8-bit BGR.
	ErrInvalidFrame = errors.New("invalid frame")
	// ErrNotTrained is returned when tracking is attempted without a skin classifier.
	ErrNotTrained = errors.New("skin classifier not trained")
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// Result is the outcome of tracking one frame.
type Result struct {
	// State is the new cursor state when Found, otherwise the last one.
	State     mouse.State
	Found     bool
	FaceFound bool
	Status    Status
	Fingers   int

	// Debug holds intermediate masks when debugging is enabled. The caller
	// owns it and must Close it.
	Debug *Debug
}

// Debug holds the intermediate masks of one frame. Masks that were not
// reached are empty.
type Debug struct {
	// Skin is the raw classifier mask.
	Skin gocv.Mat
	// Filtered has every contour that survived face and size filtering.
	Filtered gocv.Mat
	// Selected has only the hand contour.
	Selected gocv.Mat
	// Tips are the fingertips found on the hand contour.
	Tips []image.Point
}

// Close releases the masks.
func (d *Debug) Close() error {
	if d == nil {
		return nil
	}
	return errors.Join(d.Skin.Close(), d.Filtered.Close(), d.Selected.Close())
}

// Tracker holds the per-user state of the pipeline: the skin classifier, its
// pixel cache and the Kalman belief. It is not safe for concurrent use.
type Tracker struct {
	cfg    Config
	det    detector.Detector
	cls    skin.Classifier
	cache  *skin.Cache
	filter *kalman.Filter
	debug  bool
	last   mouse.State

	gray   gocv.Mat
	ycrcb  gocv.Mat
	mask   gocv.Mat
	kernel gocv.Mat
}

// New returns a tracker using det for faces. cls may be nil until Train or
// SetClassifier is called.
func New(cfg Config, det detector.Detector, cls skin.Classifier) (*Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if det == nil {
		return nil, fmt.Errorf("%w: nil face detector", ErrInvalidConfig)
	}
	if s, ok := det.(detector.Scaler); ok {
		s.SetScaleWidth(cfg.DetectScaleWidth)
	}
	return &Tracker{
		cfg:    cfg,
		det:    det,
		cls:    cls,
		cache:  skin.NewCache(),
		filter: kalman.New(cfg.kalmanParams()),
		last:   mouse.NewState(),
		gray:   gocv.NewMat(),
		ycrcb:  gocv.NewMat(),
		mask:   gocv.NewMat(),
		kernel: gocv.GetStructuringElement(gocv.MorphRect, image.Pt(3, 3)),
	}, nil
}

// Config returns the tracker configuration.
func (t *Tracker) Config() Config {
	return t.cfg
}

// SetDebug enables or disables debug masks in results.
func (t *Tracker) SetDebug(on bool) {
	t.debug = on
}

// SetClassifier replaces the skin classifier and clears the pixel cache.
func (t *Tracker) SetClassifier(cls skin.Classifier) {
	t.cls = cls
	t.cache.Reset()
}

// Classifier returns the current skin classifier, or nil.
func (t *Tracker) Classifier() skin.Classifier {
	return t.cls
}

// Trained reports whether a skin classifier is set.
func (t *Tracker) Trained() bool {
	return t.cls != nil
}

// CacheLen returns the number of distinct pixel values scored so far.
func (t *Tracker) CacheLen() int {
	return t.cache.Len()
}

// Reset forgets the smoothed position and the last state.
func (t *Tracker) Reset() {
	t.filter.Reset()
	t.last = mouse.NewState()
}

// Close releases the scratch frames. The detector is not closed.
func (t *Tracker) Close() error {
	return errors.Join(t.gray.Close(), t.ycrcb.Close(), t.mask.Close(), t.kernel.Close())
}

func validFrame(frame gocv.Mat) error {
	if frame.Empty() {
		return fmt.Errorf("%w: empty", ErrInvalidFrame)
	}
	if frame.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("%w: expected 8-bit BGR, got %v", ErrInvalidFrame, frame.Type())
	}
	return nil
}

// MouseState tracks one BGR frame. A frame without a face or without a hand
// is not an error: Found is false and the last state is returned. Debug is
// nil whenever an error is returned.
func (t *Tracker) MouseState(frame gocv.Mat) (res Result, err error) {
	if err := validFrame(frame); err != nil {
		return Result{}, err
	}
	if t.cls == nil {
		return Result{}, ErrNotTrained
	}

	res = Result{State: t.last, Status: StatusNoFace}

	var dbg *Debug
	if t.debug {
		dbg = &Debug{Skin: gocv.NewMat(), Filtered: gocv.NewMat(), Selected: gocv.NewMat()}
		res.Debug = dbg
		defer func() {
			if err != nil {
				dbg.Close()
				res.Debug = nil
			}
		}()
	}

	gocv.CvtColor(frame, &t.gray, gocv.ColorBGRToGray)
	gocv.CvtColor(frame, &t.ycrcb, gocv.ColorBGRToYCrCb)

	var faces []image.Rectangle
	faces, err = t.det.Detect(t.gray)
	if err != nil {
		return res, fmt.Errorf("detect faces: %w", err)
	}
	if len(faces) == 0 {
		return res, nil
	}
	res.FaceFound = true
	res.Status = StatusFaceNoHand
	face := faces[0]

	if err := skin.Mask(t.ycrcb, t.cls, t.cache, t.cfg.Threshold, &t.mask); err != nil {
		return res, fmt.Errorf("skin mask: %w", err)
	}

	if dbg != nil {
		t.mask.CopyTo(&dbg.Skin)
	}

	t.clean(&t.mask)

	frameSize := image.Pt(frame.Cols(), frame.Rows())
	hands := t.handContours(t.mask, faces)
	if len(hands) == 0 {
		return res, nil
	}

	best := selectContour(hands)
	if dbg != nil {
		dbg.Filtered.Close()
		dbg.Filtered = filledMask(frameSize, hands...)
		dbg.Selected.Close()
		dbg.Selected = filledMask(frameSize, hands[best])
	}

	handSize := HandSize(face, t.cfg.HandSizeProp)
	state, fingers, err := t.StateFromContour(hands[best], handSize, frameSize)
	if err != nil {
		return res, err
	}
	if dbg != nil {
		ring, _ := contour.NewRing(hands[best])
		for _, f := range fingers {
			dbg.Tips = append(dbg.Tips, ring.At(f.Tip))
		}
	}

	t.filter.Predict()
	smoothed := t.filter.Correct(geom.V(state.Pos))
	state.Pos = clampToScreen(smoothed, t.cfg.ScreenRect)

	t.last = state
	res.State = state
	res.Found = true
	res.Status = StatusTracking
	res.Fingers = len(fingers)
	return res, nil
}

// clean closes small gaps and then removes small specks: two dilations and
// two erosions, then one erosion and one dilation.
func (t *Tracker) clean(mask *gocv.Mat) {
	for range 2 {
		gocv.Dilate(*mask, mask, t.kernel)
	}
	for range 2 {
		gocv.Erode(*mask, mask, t.kernel)
	}
	gocv.Erode(*mask, mask, t.kernel)
	gocv.Dilate(*mask, mask, t.kernel)
}

// handContours returns the external contours of mask that are large enough
// and do not touch any face.
func (t *Tracker) handContours(mask gocv.Mat, faces []image.Rectangle) [][]image.Point {
	contours := gocv.FindContours(mask, gocv.RetrievalExternal, gocv.ChainApproxNone)
	defer contours.Close()

	minArea := t.cfg.MinContourProp * float64(faces[0].Dx()*faces[0].Dy())

	var out [][]image.Point
	for i := 0; i < contours.Size(); i++ {
		pv := contours.At(i)
		if gocv.ContourArea(pv) < minArea {
			continue
		}
		pts := pv.ToPoints()
		if touchesAny(pts, faces) {
			continue
		}
		out = append(out, pts)
	}
	return out
}

func touchesAny(pts []image.Point, rects []image.Rectangle) bool {
	for _, r := range rects {
		for _, p := range pts {
			if p.In(r) {
				return true
			}
		}
	}
	return false
}

// selectContour returns the index of the contour whose centroid is lowest in
// the frame. Ties go to the first.
func selectContour(contours [][]image.Point) int {
	best := 0
	bestY := contour.Centroid(contours[0]).Y
	for i := 1; i < len(contours); i++ {
		if y := contour.Centroid(contours[i]).Y; y > bestY {
			best, bestY = i, y
		}
	}
	return best
}

// StateFromContour derives an unsmoothed cursor state from a hand contour.
// The buttons come from the finger count. The position is the centre of the
// palm, found by cutting the fingers off the contour and taking the centroid
// of the remainder inside the hand box, projected onto the screen.
func (t *Tracker) StateFromContour(pts []image.Point, handSize, frameSize image.Point) (mouse.State, []finger.Finger, error) {
	ring, err := contour.NewRing(pts)
	if err != nil {
		return mouse.State{}, nil, fmt.Errorf("hand contour: %w", err)
	}

	k := int(t.cfg.KHandHeightProp * float64(handSize.Y))
	minDist := t.cfg.MinFingerDistProp * float64(handSize.Y)
	fingers := finger.Extract(ring, handSize, k, minDist, t.cfg.FingerAngle)

	palm := ring.Without(finger.Ranges(fingers)...)
	if len(palm) == 0 {
		palm = ring.Points()
	}

	frame := image.Rectangle{Max: frameSize}
	palmRing, _ := contour.NewRing(palm)
	bounds := HandBounds(palmRing.At(palmRing.Topmost()), handSize, frame)
	centre := palmCentre(palm, bounds, frameSize)

	mouseRect := t.cfg.MouseRect
	if mouseRect.Empty() {
		mouseRect = frame
	}
	pos, err := projectPoint(centre, mouseRect, t.cfg.ScreenRect)
	if err != nil {
		return mouse.State{}, nil, err
	}

	return mouse.State{Buttons: ButtonsFor(len(fingers)), Pos: pos}, fingers, nil
}

// palmCentre fills palm, crops it to bounds and returns the centroid of the
// crop in frame coordinates. An empty crop falls back to the polygon centroid.
func palmCentre(palm []image.Point, bounds image.Rectangle, frameSize image.Point) geom.Vec {
	if bounds.Empty() {
		return contour.Centroid(palm)
	}

	filled := filledMask(frameSize, palm)
	defer filled.Close()

	region := filled.Region(bounds)
	defer region.Close()

	m := gocv.Moments(region, true)
	if m["m00"] == 0 {
		return contour.Centroid(palm)
	}
	return geom.Vec{
		X: m["m10"]/m["m00"] + float64(bounds.Min.X),
		Y: m["m01"]/m["m00"] + float64(bounds.Min.Y),
	}
}

// filledMask draws the given contours filled on a black single-channel mask.
func filledMask(size image.Point, contours ...[]image.Point) gocv.Mat {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size.Y, size.X, gocv.MatTypeCV8U)
	pv := gocv.NewPointsVectorFromPoints(contours)
	defer pv.Close()
	gocv.DrawContours(&mask, pv, -1, white, -1)
	return mask
}

// TrainReport summarises a training run.
type TrainReport struct {
	Frames     int
	FacesFound int
	Positives  int
	Negatives  int
	Model      *skin.Boost
}

// Train fits a new skin classifier from frames of the user with no hand
// raised. Pixels on the face and neck are skin; pixels well away from them
// are not. The new classifier replaces the current one and clears the cache.
func (t *Tracker) Train(frames []gocv.Mat) (TrainReport, error) {
	report := TrainReport{Frames: len(frames)}
	trainer := skin.NewTrainer(t.cfg.AddChance, t.cfg.Seed)

	faceMask := gocv.NewMat()
	defer faceMask.Close()
	inverse := gocv.NewMat()
	defer inverse.Close()

	for i, frame := range frames {
		if err := validFrame(frame); err != nil {
			return report, fmt.Errorf("training frame %d: %w", i, err)
		}

		gocv.CvtColor(frame, &t.ycrcb, gocv.ColorBGRToYCrCb)
		gocv.CvtColor(frame, &t.gray, gocv.ColorBGRToGray)

		faces, err := t.det.Detect(t.gray)
		if err != nil {
			return report, fmt.Errorf("training frame %d: detect faces: %w", i, err)
		}
		if len(faces) == 0 {
			log.Printf("No face detected in training frame %d", i)
		} else {
			report.FacesFound++
		}

		detector.FaceMask(image.Pt(frame.Cols(), frame.Rows()), faces, &faceMask)
		if _, err := trainer.Add(t.ycrcb, faceMask, true); err != nil {
			return report, fmt.Errorf("training frame %d: %w", i, err)
		}

		gocv.BitwiseNot(faceMask, &inverse)
		for range 3 {
			gocv.Erode(inverse, &inverse, t.kernel)
		}
		if _, err := trainer.Add(t.ycrcb, inverse, false); err != nil {
			return report, fmt.Errorf("training frame %d: %w", i, err)
		}
	}

	report.Positives, report.Negatives = trainer.Counts()
	log.Printf("Training skin classifier on %d positive and %d negative samples", report.Positives, report.Negatives)

	model, err := trainer.Train(t.cfg.boostOptions())
	if err != nil {
		return report, err
	}

	report.Model = model
	t.SetClassifier(model)
	return report, nil
}
