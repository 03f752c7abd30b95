package skin

import (
	"fmt"
	"math/rand/v2"

	"gocv.io/x/gocv"
)

// Trainer gathers randomly sampled pixels from masked frames and fits a
// Boost classifier to them.
type Trainer struct {
	rng       *rand.Rand
	addChance float64
	samples   []Sample
	pos, neg  int
}

// NewTrainer returns a trainer that keeps each masked pixel with probability
// addChance. The same seed always selects the same pixels.
func NewTrainer(addChance float64, seed uint64) *Trainer {
	return &Trainer{
		rng:       rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		addChance: addChance,
	}
}

// AddBytes samples packed 3-byte pixels wherever the matching mask byte is
// non-zero and labels them skin or not. It returns the number added.
func (t *Trainer) AddBytes(pixels, mask []byte, skin bool) int {
	n := min(len(pixels)/3, len(mask))
	added := 0
	for i := range n {
		if mask[i] == 0 || t.rng.Float64() >= t.addChance {
			continue
		}
		t.samples = append(t.samples, Sample{
			Px:   Pixel{pixels[3*i], pixels[3*i+1], pixels[3*i+2]},
			Skin: skin,
		})
		added++
	}
	if skin {
		t.pos += added
	} else {
		t.neg += added
	}
	return added
}

// Add samples a YCrCb frame under a single-channel mask.
func (t *Trainer) Add(ycrcb, mask gocv.Mat, skin bool) (int, error) {
	if ycrcb.Empty() || ycrcb.Type() != gocv.MatTypeCV8UC3 {
		return 0, fmt.Errorf("add samples: %w", ErrInvalidImage)
	}
	if mask.Type() != gocv.MatTypeCV8U || mask.Rows() != ycrcb.Rows() || mask.Cols() != ycrcb.Cols() {
		return 0, fmt.Errorf("add samples: mask does not match frame: %w", ErrInvalidImage)
	}
	return t.AddBytes(ycrcb.ToBytes(), mask.ToBytes(), skin), nil
}

// Counts returns the number of positive and negative samples gathered.
func (t *Trainer) Counts() (pos, neg int) {
	return t.pos, t.neg
}

// Samples returns the gathered samples. The slice is shared.
func (t *Trainer) Samples() []Sample {
	return t.samples
}

// Train fits a classifier to the gathered samples.
func (t *Trainer) Train(opts BoostOptions) (*Boost, error) {
	if t.pos == 0 {
		return nil, ErrNoSamples
	}
	b, err := TrainBoost(t.samples, opts)
	if err != nil {
		return nil, fmt.Errorf("train skin classifier: %w", err)
	}
	return b, nil
}
