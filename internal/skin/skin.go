// Package skin classifies pixels as skin or not and builds skin masks from
// YCrCb frames.
package skin

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrNoSamples is returned when a classifier is trained without positive samples.
var ErrNoSamples = errors.New("no skin samples")

// ErrInvalidImage is returned for images that are not 3-channel 8-bit.
var ErrInvalidImage = errors.New("invalid image")

// Pixel is one YCrCb pixel.
type Pixel [3]uint8

// Classifier scores a pixel. Positive scores mean skin.
type Classifier interface {
	Predict(px Pixel) float64
}

// ClassifierFunc adapts a function to Classifier.
type ClassifierFunc func(px Pixel) float64

// Predict calls f(px).
func (f ClassifierFunc) Predict(px Pixel) float64 {
	return f(px)
}

// Cache memoizes classifier scores per pixel value. A score is computed on the
// first miss and never recomputed. Not safe for concurrent use.
type Cache struct {
	scores map[Pixel]float64
}

// NewCache returns an empty cache.
func NewCache() *Cache {
	return &Cache{scores: make(map[Pixel]float64)}
}

// Lookup returns the cached score for px, computing it with cls on a miss.
func (c *Cache) Lookup(px Pixel, cls Classifier) float64 {
	if v, ok := c.scores[px]; ok {
		return v
	}
	v := cls.Predict(px)
	c.scores[px] = v
	return v
}

// Get returns the cached score for px without computing it.
func (c *Cache) Get(px Pixel) (float64, bool) {
	v, ok := c.scores[px]
	return v, ok
}

// Len returns the number of cached pixel values.
func (c *Cache) Len() int {
	return len(c.scores)
}

// Reset drops all cached scores. Call it after retraining.
func (c *Cache) Reset() {
	clear(c.scores)
}

// MaskBytes classifies packed 3-byte pixels and returns one byte per pixel:
// 255 where the score is above thres, 0 elsewhere. A nil cache uses a
// temporary one.
func MaskBytes(pixels []byte, cls Classifier, cache *Cache, thres float64) []byte {
	if cache == nil {
		cache = NewCache()
	}
	out := make([]byte, len(pixels)/3)
	for i := range out {
		px := Pixel{pixels[3*i], pixels[3*i+1], pixels[3*i+2]}
		if cache.Lookup(px, cls) > thres {
			out[i] = 255
		}
	}
	return out
}

// Mask writes a single-channel skin mask of ycrcb into dst.
func Mask(ycrcb gocv.Mat, cls Classifier, cache *Cache, thres float64, dst *gocv.Mat) error {
	if ycrcb.Empty() || ycrcb.Type() != gocv.MatTypeCV8UC3 {
		return fmt.Errorf("skin mask: %w", ErrInvalidImage)
	}

	data := MaskBytes(ycrcb.ToBytes(), cls, cache, thres)
	m, err := gocv.NewMatFromBytes(ycrcb.Rows(), ycrcb.Cols(), gocv.MatTypeCV8U, data)
	if err != nil {
		return fmt.Errorf("skin mask: %w", err)
	}
	defer m.Close()

	m.CopyTo(dst)
	return nil
}
