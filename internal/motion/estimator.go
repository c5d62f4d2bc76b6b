// Robust whole-frame translation estimation from point correspondences
package motion

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"overlay-stabilization/internal/features"
)

// Estimate aggregates per-point displacements into a single translation.
// Before and after must be index-aligned; the estimate is the component-wise
// median, so a minority of points drifting onto a moving foreground object
// (a hand entering the frame) cannot bias the result. Empty or mismatched
// inputs yield the identity transform.
func Estimate(before, after []features.Point) Transform {
	if len(before) == 0 || len(before) != len(after) {
		return Identity()
	}

	dxs := make([]float64, len(before))
	dys := make([]float64, len(before))
	for i := range before {
		dxs[i] = after[i].X - before[i].X
		dys[i] = after[i].Y - before[i].Y
	}
	sort.Float64s(dxs)
	sort.Float64s(dys)

	return Transform{
		DX: stat.Quantile(0.5, stat.Empirical, dxs, nil),
		DY: stat.Quantile(0.5, stat.Empirical, dys, nil),
	}
}

// Verdict classifies a per-frame estimate against the motion thresholds.
type Verdict int

const (
	// VerdictNormal means the estimate is jitter to compensate.
	VerdictNormal Verdict = iota
	// VerdictLargeMotion means the frame moved too far for jitter; treat it
	// as an intentional camera move and rebase.
	VerdictLargeMotion
	// VerdictExcessiveDrift means accumulating the estimate would push the
	// total compensation past the drift bound.
	VerdictExcessiveDrift
)

func (v Verdict) String() string {
	switch v {
	case VerdictLargeMotion:
		return "large-motion"
	case VerdictExcessiveDrift:
		return "excessive-drift"
	default:
		return "normal"
	}
}

// Limits holds the classification thresholds. LargeMotion is in
// working-resolution pixels, Drift in source-resolution pixels.
type Limits struct {
	LargeMotion float64
	Drift       float64
	Downsample  int
}

// Classify decides whether delta is ordinary jitter, an intentional camera
// move, or a step that would breach the cumulative drift bound.
func Classify(delta, cumulative Transform, lim Limits) Verdict {
	if delta.Magnitude() > lim.LargeMotion {
		return VerdictLargeMotion
	}

	factor := float64(lim.Downsample)
	next := Transform{
		DX: cumulative.DX - delta.DX*factor,
		DY: cumulative.DY - delta.DY*factor,
	}
	if next.Magnitude() > lim.Drift {
		return VerdictExcessiveDrift
	}
	return VerdictNormal
}
