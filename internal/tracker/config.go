package tracker

import (
	"errors"
	"fmt"
	"image"

	"github.com/ayusman/mudra/internal/kalman"
	"github.com/ayusman/mudra/internal/skin"
)

// Config holds the tracker proportions and thresholds. Proportions are
// relative to the largest detected face.
type Config struct {
	// AddChance is the probability of sampling a masked pixel during training.
	AddChance float64 `json:"add_chance"`

	// MinContourProp drops skin contours smaller than this share of the face area.
	MinContourProp float64 `json:"min_contour_prop"`

	// HandSizeProp scales the face size into the expected hand size.
	HandSizeProp float64 `json:"hand_size_prop"`

	// KHandHeightProp sets the finger curvature window as a share of hand height.
	KHandHeightProp float64 `json:"k_hand_height_prop"`

	// MinFingerDistProp merges fingertips closer than this share of hand height.
	MinFingerDistProp float64 `json:"min_finger_dist_prop"`

	// FingerAngle is the widest fingertip angle in radians.
	FingerAngle float64 `json:"finger_angle"`

	// Threshold is the skin score above which a pixel is skin.
	Threshold float64 `json:"threshold"`

	// DetectScaleWidth is the frame width used for face detection.
	DetectScaleWidth float64 `json:"detect_scale_width"`

	// MouseRect is the tracked region of the frame. Empty means the whole frame.
	MouseRect image.Rectangle `json:"mouse_rect"`

	// ScreenRect is the screen region the tracked region maps onto.
	ScreenRect image.Rectangle `json:"screen_rect"`

	MeasurementNoise float64 `json:"measurement_noise"`
	ProcessNoise     float64 `json:"process_noise"`
	InitialError     float64 `json:"initial_error"`

	// BoostRounds and WeightTrim configure classifier training.
	BoostRounds int     `json:"boost_rounds"`
	WeightTrim  float64 `json:"weight_trim"`

	// Seed makes training samples reproducible.
	Seed uint64 `json:"seed"`
}

// DefaultConfig returns the tracker defaults for a 1920x1080 screen.
func DefaultConfig() Config {
	kp := kalman.DefaultParams()
	bo := skin.DefaultBoostOptions()
	return Config{
		AddChance:         0.1,
		MinContourProp:    0.05,
		HandSizeProp:      1.0,
		KHandHeightProp:   0.25,
		MinFingerDistProp: 0.15,
		FingerAngle:       1.0,
		Threshold:         0,
		DetectScaleWidth:  300,
		ScreenRect:        image.Rect(0, 0, 1920, 1080),
		MeasurementNoise:  kp.MeasurementNoise,
		ProcessNoise:      kp.ProcessNoise,
		InitialError:      kp.InitialError,
		BoostRounds:       bo.Rounds,
		WeightTrim:        bo.WeightTrim,
		Seed:              1,
	}
}

// ErrInvalidConfig is returned by Validate.
var ErrInvalidConfig = errors.New("invalid tracker config")

// Validate checks that every proportion and bound is usable.
func (c Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.AddChance > 0 && c.AddChance <= 1, "add_chance must be in (0, 1], got %v", c.AddChance)
	check(c.MinContourProp >= 0, "min_contour_prop must not be negative, got %v", c.MinContourProp)
	check(c.HandSizeProp > 0, "hand_size_prop must be positive, got %v", c.HandSizeProp)
	check(c.KHandHeightProp > 0, "k_hand_height_prop must be positive, got %v", c.KHandHeightProp)
	check(c.MinFingerDistProp >= 0, "min_finger_dist_prop must not be negative, got %v", c.MinFingerDistProp)
	check(c.FingerAngle > 0, "finger_angle must be positive, got %v", c.FingerAngle)
	check(c.DetectScaleWidth > 0, "detect_scale_width must be positive, got %v", c.DetectScaleWidth)
	check(!c.ScreenRect.Empty(), "screen_rect must not be empty")
	check(c.MeasurementNoise > 0, "measurement_noise must be positive, got %v", c.MeasurementNoise)
	check(c.ProcessNoise >= 0, "process_noise must not be negative, got %v", c.ProcessNoise)
	check(c.InitialError >= 0, "initial_error must not be negative, got %v", c.InitialError)
	check(c.BoostRounds > 0, "boost_rounds must be positive, got %d", c.BoostRounds)
	check(c.WeightTrim > 0 && c.WeightTrim <= 1, "weight_trim must be in (0, 1], got %v", c.WeightTrim)

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c Config) kalmanParams() kalman.Params {
	return kalman.Params{
		MeasurementNoise: c.MeasurementNoise,
		ProcessNoise:     c.ProcessNoise,
		InitialError:     c.InitialError,
	}
}

func (c Config) boostOptions() skin.BoostOptions {
	return skin.BoostOptions{
		Rounds:     c.BoostRounds,
		WeightTrim: c.WeightTrim,
	}
}
