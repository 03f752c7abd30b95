package detector

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

var white = color.RGBA{R: 255, G: 255, B: 255, A: 255}

// FaceMask draws a single-channel mask of size with every face and its neck
// filled. The face is an ellipse 0.8 times the rect width and as tall as the
// rect; the neck is a rectangle half the width, starting at 0.8 of the height
// and reaching 0.4 heights down.
func FaceMask(size image.Point, rects []image.Rectangle, dst *gocv.Mat) {
	mask := gocv.NewMatWithSizeFromScalar(gocv.NewScalar(0, 0, 0, 0), size.Y, size.X, gocv.MatTypeCV8U)
	defer mask.Close()

	for _, r := range rects {
		center, axes := faceEllipse(r)
		gocv.Ellipse(&mask, center, axes, 0, 0, 360, white, -1)
		gocv.Rectangle(&mask, NeckRect(r), white, -1)
	}
	mask.CopyTo(dst)
}

func faceEllipse(r image.Rectangle) (center, axes image.Point) {
	w, h := r.Dx(), r.Dy()
	center = r.Min.Add(image.Pt(w/2, h/2))
	axes = image.Pt(int(float64(w)*0.8/2), int(float64(h)*1.0/2))
	return center, axes
}

// NeckRect returns the neck region below face rect r.
func NeckRect(r image.Rectangle) image.Rectangle {
	w, h := r.Dx(), r.Dy()
	x := r.Min.X + int(float64(w)*0.25)
	y := r.Min.Y + int(0.8*float64(h))
	return image.Rect(x, y, x+int(float64(w)*0.5), y+int(float64(h)*0.4))
}
