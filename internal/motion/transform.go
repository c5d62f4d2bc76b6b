package motion

import "math"

// Transform is a translational compensation offset in pixels. The
// stabilization model is translation-only: scale and rotation are fixed.
type Transform struct {
	DX, DY float64
}

// Identity returns the zero offset.
func Identity() Transform {
	return Transform{}
}

// Scale is fixed at 1 under the translation-only model.
func (t Transform) Scale() float64 { return 1 }

// Rotation is fixed at 0 under the translation-only model.
func (t Transform) Rotation() float64 { return 0 }

// Magnitude returns the Euclidean length of the offset.
func (t Transform) Magnitude() float64 {
	return math.Hypot(t.DX, t.DY)
}

// IsIdentity reports whether the offset is exactly zero.
func (t Transform) IsIdentity() bool {
	return t.DX == 0 && t.DY == 0
}
