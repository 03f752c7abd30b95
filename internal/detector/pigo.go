package detector

import (
	"fmt"
	"image"
	"os"
	"sync"

	pigo "github.com/esimov/pigo/core"
	"gocv.io/x/gocv"
)

// Pigo detects faces with a pigo facefinder cascade. It needs no OpenCV
// cascade files.
type Pigo struct {
	cfg        Config
	classifier *pigo.Pigo

	mu     sync.Mutex
	scaled gocv.Mat
}

// NewPigo unpacks the facefinder cascade at path.
func NewPigo(path string, cfg Config) (*Pigo, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCascadeLoad, err)
	}
	return NewPigoFromBytes(data, cfg)
}

// NewPigoFromBytes unpacks a facefinder cascade already in memory.
func NewPigoFromBytes(cascade []byte, cfg Config) (*Pigo, error) {
	p := pigo.NewPigo()
	classifier, err := p.Unpack(cascade)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCascadeLoad, err)
	}
	return &Pigo{
		cfg:        cfg,
		classifier: classifier,
		scaled:     gocv.NewMat(),
	}, nil
}

// SetScaleWidth changes the width frames are shrunk to before detection.
func (p *Pigo) SetScaleWidth(width float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cfg.ScaleWidth = width
}

// Detect runs the cascade on a shrunk copy of gray.
func (p *Pigo) Detect(gray gocv.Mat) ([]image.Rectangle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if gray.Empty() {
		return nil, nil
	}
	if gray.Type() != gocv.MatTypeCV8U {
		return nil, fmt.Errorf("pigo detect: expected grayscale frame, got %v", gray.Type())
	}

	scale := p.cfg.Scale(gray.Cols())
	src := gray
	if scale < 1 {
		gocv.Resize(gray, &p.scaled, image.Point{}, scale, scale, gocv.InterpolationLinear)
		src = p.scaled
	}

	return p.detectPixels(src.ToBytes(), src.Rows(), src.Cols(), scale), nil
}

func (p *Pigo) detectPixels(pixels []uint8, rows, cols int, scale float64) []image.Rectangle {
	params := pigo.CascadeParams{
		MinSize:     p.cfg.MinSize,
		MaxSize:     p.cfg.MaxSize,
		ShiftFactor: 0.15,
		ScaleFactor: 1.1,
		ImageParams: pigo.ImageParams{
			Pixels: pixels,
			Rows:   rows,
			Cols:   cols,
			Dim:    cols,
		},
	}

	dets := p.classifier.RunCascade(params, 0.0)
	dets = p.classifier.ClusterDetections(dets, 0.2)

	var rects []image.Rectangle
	for _, d := range dets {
		if d.Q < p.cfg.MinQuality {
			continue
		}
		half := d.Scale / 2
		rects = append(rects, image.Rect(d.Col-half, d.Row-half, d.Col-half+d.Scale, d.Row-half+d.Scale))
	}

	rects = unscale(rects, scale)
	SortByArea(rects)
	return rects
}

// Close releases the scratch frame.
func (p *Pigo) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.scaled.Close()
}
