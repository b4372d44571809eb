// Package render turns feature windows into grayscale images and files
// them by the binding state of the centre residue.
package render

import (
	"errors"
	"image"
	"image/color"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrNullValue is returned for windows containing a missing value.
var ErrNullValue = errors.New("window contains a missing value")

// Render draws w, whose values are expected in [0, 1], as a grayscale
// image with one column per residue and one row per feature. Each value is
// scaled by 255, clamped to the pixel range and truncated.
func Render(w mat.Matrix) (*image.Gray, error) {
	rows, cols := w.Dims()
	img := image.NewGray(image.Rect(0, 0, cols, rows))
	for y := 0; y < rows; y++ {
		for x := 0; x < cols; x++ {
			v := w.At(y, x)
			if math.IsNaN(v) {
				return nil, ErrNullValue
			}
			img.SetGray(x, y, color.Gray{Y: pixel(v)})
		}
	}
	return img, nil
}

func pixel(v float64) uint8 {
	p := v * 255
	switch {
	case p <= 0:
		return 0
	case p >= 255:
		return 255
	}
	return uint8(p)
}
