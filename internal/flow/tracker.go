// Iterative Lucas-Kanade point correspondence between consecutive frames
package flow

import (
	"math"

	"overlay-stabilization/internal/features"
	"overlay-stabilization/internal/frame"
)

// singularEps is the determinant floor below which the local 2x2 system is
// considered singular and the point unrecoverable.
const singularEps = 1e-7

// Config holds the tracker tuning. SearchWindow is both the neighborhood
// radius of the local solve and the divergence bound on the displacement.
type Config struct {
	SearchWindow  int
	MaxIterations int
	Epsilon       float64
}

// Result reports the outcome of tracking one point set. Before and After are
// index-aligned: After[i] is the new position of Before[i]. The invariant
// len(After) + Lost == len(input) always holds.
type Result struct {
	Before []features.Point
	After  []features.Point
	Lost   int
}

// Tracker estimates per-point displacement between two luminance frames.
type Tracker struct {
	cfg Config
}

// NewTracker creates a tracker with the given tuning.
func NewTracker(cfg Config) *Tracker {
	return &Tracker{cfg: cfg}
}

// Track locates each input point from prev in curr. Points that cannot be
// followed are counted as lost rather than reported as errors. The input
// slice is never mutated.
func (t *Tracker) Track(prev, curr *frame.Luminance, points []features.Point) Result {
	res := Result{
		Before: make([]features.Point, 0, len(points)),
		After:  make([]features.Point, 0, len(points)),
	}
	for _, p := range points {
		moved, ok := t.trackPoint(prev, curr, p)
		if !ok {
			res.Lost++
			continue
		}
		res.Before = append(res.Before, p)
		res.After = append(res.After, moved)
	}
	return res
}

// trackPoint runs the iterative local solve for a single point. Gradients
// come from the previous frame and stay fixed across iterations; only the
// temporal difference is resampled at the running offset.
func (t *Tracker) trackPoint(prev, curr *frame.Luminance, p features.Point) (features.Point, bool) {
	w, h := prev.W, prev.H
	r := t.cfg.SearchWindow

	px := int(math.Round(p.X))
	py := int(math.Round(p.Y))
	if px < r+1 || py < r+1 || px >= w-r-1 || py >= h-r-1 {
		return features.Point{}, false
	}

	size := 2*r + 1
	gx := make([]float64, size*size)
	gy := make([]float64, size*size)
	var gxx, gyy, gxy float64
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			x, y := px+dx, py+dy
			i := (dy+r)*size + (dx + r)
			gx[i] = (prev.At(x+1, y) - prev.At(x-1, y)) / 2
			gy[i] = (prev.At(x, y+1) - prev.At(x, y-1)) / 2
			gxx += gx[i] * gx[i]
			gyy += gy[i] * gy[i]
			gxy += gx[i] * gy[i]
		}
	}

	det := gxx*gyy - gxy*gxy
	if math.Abs(det) < singularEps {
		return features.Point{}, false
	}

	var offX, offY float64
	for iter := 0; iter < t.cfg.MaxIterations; iter++ {
		var bx, by float64
		for dy := -r; dy <= r; dy++ {
			for dx := -r; dx <= r; dx++ {
				x, y := px+dx, py+dy
				cv, ok := bilinear(curr, float64(x)+offX, float64(y)+offY)
				if !ok {
					return features.Point{}, false
				}
				it := prev.At(x, y) - cv
				i := (dy+r)*size + (dx + r)
				bx += it * gx[i]
				by += it * gy[i]
			}
		}

		stepX := (gyy*bx - gxy*by) / det
		stepY := (gxx*by - gxy*bx) / det
		offX += stepX
		offY += stepY

		// Divergence guard: a displacement reaching the search window is a
		// runaway solve, not a plausible jitter offset.
		if math.Abs(offX) >= float64(r) || math.Abs(offY) >= float64(r) {
			return features.Point{}, false
		}
		if math.Hypot(stepX, stepY) < t.cfg.Epsilon {
			break
		}
	}

	nx := p.X + offX
	ny := p.Y + offY
	if nx < float64(r) || ny < float64(r) || nx >= float64(w-r) || ny >= float64(h-r) {
		return features.Point{}, false
	}
	return features.Point{X: nx, Y: ny, Response: p.Response}, true
}

// bilinear samples fr at a fractional position. ok is false when the sample
// would read outside the frame.
func bilinear(fr *frame.Luminance, x, y float64) (v float64, ok bool) {
	x0 := int(math.Floor(x))
	y0 := int(math.Floor(y))
	if x0 < 0 || y0 < 0 || x0+1 >= fr.W || y0+1 >= fr.H {
		return 0, false
	}
	fx := x - float64(x0)
	fy := y - float64(y0)

	v00 := fr.At(x0, y0)
	v10 := fr.At(x0+1, y0)
	v01 := fr.At(x0, y0+1)
	v11 := fr.At(x0+1, y0+1)

	top := v00 + (v10-v00)*fx
	bot := v01 + (v11-v01)*fx
	return top + (bot-top)*fy, true
}
