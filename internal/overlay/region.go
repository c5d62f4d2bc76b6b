// Downstream renderer contract: shifting overlay regions by a compensation offset
package overlay

import "overlay-stabilization/internal/motion"

// Corner is an overlay corner in percentage space (0-100 of the canvas).
type Corner struct {
	X, Y float64
}

// Region is an overlay quad, corners ordered top-left, top-right,
// bottom-right, bottom-left.
type Region [4]Corner

// Shift moves every corner of the region by the compensation offset,
// converting pixels to percentage space with the live canvas dimensions.
// Using the actual canvas size (instead of a fixed reference resolution)
// keeps the compensation correct when output resolution changes.
// Non-positive canvas dimensions leave the region unchanged.
func Shift(r Region, t motion.Transform, canvasW, canvasH int) Region {
	if canvasW <= 0 || canvasH <= 0 {
		return r
	}
	px := t.DX / float64(canvasW) * 100
	py := t.DY / float64(canvasH) * 100
	for i := range r {
		r[i].X += px
		r[i].Y += py
	}
	return r
}
