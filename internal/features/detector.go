// Harris-style corner detection over luminance frames
package features

import (
	"sort"

	"overlay-stabilization/internal/frame"
)

// Point is a trackable background feature in working-resolution coordinates.
type Point struct {
	X, Y     float64
	Response float64
}

const (
	// harrisK is the Harris corner sensitivity constant.
	harrisK = 0.04

	// candidateStride is the grid spacing for candidate pixels. Evaluating
	// every third pixel bounds detection cost without losing usable corners.
	candidateStride = 3
)

// Config holds the detector tuning. MinSpacing is in working-resolution
// pixels; the caller converts from source resolution.
type Config struct {
	MaxFeatures int
	Threshold   float64
	MinSpacing  float64
	Window      int
}

// Detector finds corner-like points suitable for frame-to-frame tracking.
type Detector struct {
	cfg Config
}

// NewDetector creates a detector with the given tuning.
func NewDetector(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

type candidate struct {
	x, y     int
	response float64
}

// Detect returns up to MaxFeatures corner points, none closer than
// MinSpacing to another, none inside the exclusion mask. An empty result
// means the frame has no usable structure; callers treat that as a degraded
// state rather than an error.
func (d *Detector) Detect(fr *frame.Luminance, mask *frame.ExclusionMask) []Point {
	w, h := fr.W, fr.H
	win := d.cfg.Window
	border := win + 1 // +1 keeps the central difference in bounds
	if w <= 2*border || h <= 2*border {
		return nil
	}

	ix, iy := gradients(fr)

	var cands []candidate
	for y := border; y < h-border; y += candidateStride {
		for x := border; x < w-border; x += candidateStride {
			if mask.Excluded(x, y) {
				continue
			}

			var sxx, syy, sxy float64
			for dy := -win; dy <= win; dy++ {
				base := (y+dy)*w + x
				for dx := -win; dx <= win; dx++ {
					gx := ix[base+dx]
					gy := iy[base+dx]
					sxx += gx * gx
					syy += gy * gy
					sxy += gx * gy
				}
			}

			det := sxx*syy - sxy*sxy
			trace := sxx + syy
			r := det - harrisK*trace*trace
			if r > d.cfg.Threshold {
				cands = append(cands, candidate{x: x, y: y, response: r})
			}
		}
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].response > cands[j].response })

	minSq := d.cfg.MinSpacing * d.cfg.MinSpacing
	points := make([]Point, 0, d.cfg.MaxFeatures)
	for _, c := range cands {
		if len(points) >= d.cfg.MaxFeatures {
			break
		}
		if tooClose(points, float64(c.x), float64(c.y), minSq) {
			continue
		}
		points = append(points, Point{X: float64(c.x), Y: float64(c.y), Response: c.response})
	}
	return points
}

// gradients computes horizontal and vertical 2-pixel central differences.
// The one-pixel frame border is left at zero.
func gradients(fr *frame.Luminance) (ix, iy []float64) {
	w, h := fr.W, fr.H
	ix = make([]float64, w*h)
	iy = make([]float64, w*h)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*w + x
			ix[i] = (fr.Pix[i+1] - fr.Pix[i-1]) / 2
			iy[i] = (fr.Pix[i+w] - fr.Pix[i-w]) / 2
		}
	}
	return ix, iy
}

func tooClose(points []Point, x, y, minSq float64) bool {
	for i := range points {
		dx := points[i].X - x
		dy := points[i].Y - y
		if dx*dx+dy*dy < minSq {
			return true
		}
	}
	return false
}
