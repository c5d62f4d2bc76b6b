package flow

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overlay-stabilization/internal/features"
	"overlay-stabilization/internal/frame"
)

// wave samples a smooth two-dimensional sinusoid shifted by (ox, oy).
// wave(w, h, -dx, -dy) is exactly wave(w, h, 0, 0) translated by (dx, dy).
func wave(w, h int, ox, oy float64) *frame.Luminance {
	fr := frame.NewLuminance(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := 128 + 60*math.Sin(0.3*(float64(x)+ox))*math.Cos(0.25*(float64(y)+oy))
			fr.Set(x, y, v)
		}
	}
	return fr
}

func gridPoints(w, h, margin, step int) []features.Point {
	var pts []features.Point
	for y := margin; y < h-margin; y += step {
		for x := margin; x < w-margin; x += step {
			pts = append(pts, features.Point{X: float64(x), Y: float64(y), Response: 1})
		}
	}
	return pts
}

func testConfig() Config {
	return Config{SearchWindow: 7, MaxIterations: 30, Epsilon: 0.01}
}

func TestTrackRecoversKnownShift(t *testing.T) {
	prev := wave(128, 96, 0, 0)
	curr := wave(128, 96, -2, -1)
	pts := gridPoints(128, 96, 16, 16)

	tr := NewTracker(testConfig())
	res := tr.Track(prev, curr, pts)

	require.Equal(t, len(pts), len(res.After)+res.Lost)
	require.Equal(t, len(res.Before), len(res.After))
	require.NotEmpty(t, res.After)

	for i := range res.After {
		assert.InDelta(t, 2.0, res.After[i].X-res.Before[i].X, 0.3)
		assert.InDelta(t, 1.0, res.After[i].Y-res.Before[i].Y, 0.3)
	}
}

func TestTrackRecoversSubpixelShift(t *testing.T) {
	prev := wave(128, 96, 0, 0)
	curr := wave(128, 96, -0.5, 0)
	pts := gridPoints(128, 96, 16, 16)

	tr := NewTracker(testConfig())
	res := tr.Track(prev, curr, pts)
	require.NotEmpty(t, res.After)

	for i := range res.After {
		assert.InDelta(t, 0.5, res.After[i].X-res.Before[i].X, 0.2)
		assert.InDelta(t, 0.0, res.After[i].Y-res.Before[i].Y, 0.2)
	}
}

func TestTrackStaticSceneYieldsZeroDisplacement(t *testing.T) {
	fr := wave(128, 96, 0, 0)
	pts := gridPoints(128, 96, 16, 16)

	tr := NewTracker(testConfig())
	res := tr.Track(fr, fr, pts)
	require.NotEmpty(t, res.After)

	for i := range res.After {
		assert.InDelta(t, 0.0, res.After[i].X-res.Before[i].X, 1e-9)
		assert.InDelta(t, 0.0, res.After[i].Y-res.Before[i].Y, 1e-9)
	}
}

func TestTrackRejectsEdgePoints(t *testing.T) {
	prev := wave(64, 64, 0, 0)
	pts := []features.Point{
		{X: 2, Y: 2},
		{X: 62, Y: 32},
		{X: 32, Y: 1},
	}

	tr := NewTracker(testConfig())
	res := tr.Track(prev, prev, pts)

	assert.Empty(t, res.After)
	assert.Equal(t, len(pts), res.Lost)
}

func TestTrackSingularSystemIsLost(t *testing.T) {
	flat := frame.NewLuminance(64, 64)
	pts := []features.Point{{X: 32, Y: 32}}

	tr := NewTracker(testConfig())
	res := tr.Track(flat, flat, pts)

	assert.Empty(t, res.After)
	assert.Equal(t, 1, res.Lost)
}

func TestTrackDivergenceGuard(t *testing.T) {
	// A 5-pixel shift cannot be represented inside a 4-pixel search window;
	// the solve walks toward it and must be aborted, not reported.
	prev := wave(128, 96, 0, 0)
	curr := wave(128, 96, -5, 0)
	pts := gridPoints(128, 96, 16, 16)

	cfg := Config{SearchWindow: 4, MaxIterations: 50, Epsilon: 0.001}
	res := NewTracker(cfg).Track(prev, curr, pts)

	for i := range res.After {
		assert.Less(t, math.Abs(res.After[i].X-res.Before[i].X), 4.0)
	}
}

func TestTrackDoesNotMutateInput(t *testing.T) {
	prev := wave(128, 96, 0, 0)
	curr := wave(128, 96, -2, 0)
	pts := gridPoints(128, 96, 16, 16)
	orig := make([]features.Point, len(pts))
	copy(orig, pts)

	NewTracker(testConfig()).Track(prev, curr, pts)

	assert.Equal(t, orig, pts)
}

func TestTrackPreservesResponse(t *testing.T) {
	prev := wave(128, 96, 0, 0)
	curr := wave(128, 96, -1, 0)
	pts := []features.Point{{X: 40, Y: 40, Response: 123.5}}

	res := NewTracker(testConfig()).Track(prev, curr, pts)
	require.Len(t, res.After, 1)

	assert.Equal(t, 123.5, res.After[0].Response)
}
