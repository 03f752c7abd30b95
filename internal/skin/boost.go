package skin

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
)

// Sample is a labelled training pixel.
type Sample struct {
	Px   Pixel
	Skin bool
}

// BoostOptions controls GentleBoost training.
type BoostOptions struct {
	// Rounds is the number of stumps in the ensemble.
	Rounds int
	// WeightTrim is the share of total weight kept when fitting each stump.
	// Samples with the smallest weights outside that share are skipped for
	// the round. 1 disables trimming.
	WeightTrim float64
}

// DefaultBoostOptions returns 100 rounds with 0.95 weight trimming.
func DefaultBoostOptions() BoostOptions {
	return BoostOptions{
		Rounds:     100,
		WeightTrim: 0.95,
	}
}

// Stump is a one-split regression tree on one channel.
type Stump struct {
	Channel   int     `json:"channel"`
	Threshold uint8   `json:"threshold"`
	Left      float64 `json:"left"`  // value <= Threshold
	Right     float64 `json:"right"` // value > Threshold
}

func (s Stump) eval(px Pixel) float64 {
	if px[s.Channel] <= s.Threshold {
		return s.Left
	}
	return s.Right
}

// Boost is a GentleBoost ensemble of stumps. Predict returns the raw sum of
// stump outputs; a positive sum means skin.
type Boost struct {
	Stumps []Stump `json:"stumps"`
}

// Predict implements Classifier.
func (b *Boost) Predict(px Pixel) float64 {
	var sum float64
	for _, s := range b.Stumps {
		sum += s.eval(px)
	}
	return sum
}

// MarshalBinary encodes the model as JSON for storage.
func (b *Boost) MarshalBinary() ([]byte, error) {
	return json.Marshal(b)
}

// UnmarshalBinary decodes a model written by MarshalBinary.
func (b *Boost) UnmarshalBinary(data []byte) error {
	var m Boost
	if err := json.Unmarshal(data, &m); err != nil {
		return fmt.Errorf("decode boost model: %w", err)
	}
	for i, s := range m.Stumps {
		if s.Channel < 0 || s.Channel > 2 {
			return fmt.Errorf("decode boost model: stump %d has channel %d", i, s.Channel)
		}
	}
	*b = m
	return nil
}

// TrainBoost fits a GentleBoost ensemble to samples.
func TrainBoost(samples []Sample, opts BoostOptions) (*Boost, error) {
	if len(samples) == 0 {
		return nil, ErrNoSamples
	}
	if opts.Rounds <= 0 {
		return nil, fmt.Errorf("train boost: rounds must be positive, got %d", opts.Rounds)
	}
	if opts.WeightTrim <= 0 || opts.WeightTrim > 1 {
		return nil, fmt.Errorf("train boost: weight trim must be in (0, 1], got %v", opts.WeightTrim)
	}

	n := len(samples)
	y := make([]float64, n)
	for i, s := range samples {
		y[i] = -1
		if s.Skin {
			y[i] = 1
		}
	}
	w := make([]float64, n)
	for i := range w {
		w[i] = 1 / float64(n)
	}

	b := &Boost{Stumps: make([]Stump, 0, opts.Rounds)}
	for range opts.Rounds {
		cutoff := trimCutoff(w, opts.WeightTrim)
		s := fitStump(samples, y, w, cutoff)
		b.Stumps = append(b.Stumps, s)

		for i, smp := range samples {
			w[i] *= math.Exp(-y[i] * s.eval(smp.Px))
		}
		sum := floats.Sum(w)
		if sum == 0 || math.IsInf(sum, 0) || math.IsNaN(sum) {
			break
		}
		floats.Scale(1/sum, w)
	}
	return b, nil
}

// trimCutoff returns the smallest weight that is still used so that the used
// weights sum to at least trim of the total.
func trimCutoff(w []float64, trim float64) float64 {
	if trim >= 1 {
		return 0
	}
	sorted := slices.Clone(w)
	slices.Sort(sorted)
	slices.Reverse(sorted)

	target := trim * floats.Sum(sorted)
	var acc float64
	for _, v := range sorted {
		acc += v
		if acc >= target {
			return v
		}
	}
	return 0
}

// fitStump finds the stump minimising weighted squared error. Channel values
// are bytes, so each channel is histogrammed and every threshold scanned.
func fitStump(samples []Sample, y, w []float64, cutoff float64) Stump {
	var sw, swy [3][256]float64
	for i, s := range samples {
		if w[i] < cutoff {
			continue
		}
		for c := range 3 {
			v := s.Px[c]
			sw[c][v] += w[i]
			swy[c][v] += w[i] * y[i]
		}
	}

	totW := floats.Sum(sw[0][:])
	totWY := floats.Sum(swy[0][:])

	best := Stump{Channel: 0, Threshold: 255}
	bestScore := -1.0
	if totW > 0 {
		best.Left = totWY / totW
		bestScore = totWY * totWY / totW
	}

	eps := 1e-12 * totW
	for c := range 3 {
		var lw, lwy float64
		for t := range 255 {
			lw += sw[c][t]
			lwy += swy[c][t]
			rw, rwy := totW-lw, totWY-lwy
			if lw <= eps || rw <= eps {
				continue
			}
			score := lwy*lwy/lw + rwy*rwy/rw
			if score > bestScore {
				bestScore = score
				best = Stump{
					Channel:   c,
					Threshold: uint8(t),
					Left:      lwy / lw,
					Right:     rwy / rw,
				}
			}
		}
	}
	return best
}
