// Single-channel working-resolution frames used by detection and tracking
package frame

import (
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"
)

// Luminance is a single-channel frame at working resolution. Samples are
// stored row-major in the 0..255 range.
type Luminance struct {
	W, H int
	Pix  []float64
}

// NewLuminance allocates a zeroed frame of the given working size.
func NewLuminance(w, h int) *Luminance {
	return &Luminance{W: w, H: h, Pix: make([]float64, w*h)}
}

// At returns the sample at (x, y). Callers must stay in bounds.
func (l *Luminance) At(x, y int) float64 {
	return l.Pix[y*l.W+x]
}

// Set writes the sample at (x, y).
func (l *Luminance) Set(x, y int, v float64) {
	l.Pix[y*l.W+x] = v
}

// InBounds reports whether (x, y) lies within the frame.
func (l *Luminance) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < l.W && y < l.H
}

// Downsample scales src to floor(w/factor) x floor(h/factor) and converts it
// to luminance using the standard 0.299R + 0.587G + 0.114B weighting.
// Zero-sized frames are a caller error, not a recoverable condition.
func Downsample(src image.Image, factor int) (*Luminance, error) {
	if factor < 1 {
		return nil, fmt.Errorf("downsample factor must be >= 1, got %d", factor)
	}

	bounds := src.Bounds()
	if bounds.Dx() <= 0 || bounds.Dy() <= 0 {
		return nil, fmt.Errorf("invalid frame dimensions: %dx%d", bounds.Dx(), bounds.Dy())
	}

	w := bounds.Dx() / factor
	h := bounds.Dy() / factor
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("frame %dx%d too small for downsample factor %d",
			bounds.Dx(), bounds.Dy(), factor)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.ApproxBiLinear.Scale(rgba, rgba.Bounds(), src, bounds, xdraw.Src, nil)

	lum := NewLuminance(w, h)
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < w; x++ {
			r := float64(row[x*4])
			g := float64(row[x*4+1])
			b := float64(row[x*4+2])
			lum.Pix[y*w+x] = 0.299*r + 0.587*g + 0.114*b
		}
	}

	return lum, nil
}
