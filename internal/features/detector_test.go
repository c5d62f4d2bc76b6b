package features

import (
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"overlay-stabilization/internal/frame"
)

// checkerFrame builds a checkerboard luminance frame whose block
// intersections are strong corners.
func checkerFrame(w, h, block int) *frame.Luminance {
	fr := frame.NewLuminance(w, h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/block+y/block)%2 == 0 {
				fr.Set(x, y, 200)
			}
		}
	}
	return fr
}

func flatFrame(w, h int, v float64) *frame.Luminance {
	fr := frame.NewLuminance(w, h)
	for i := range fr.Pix {
		fr.Pix[i] = v
	}
	return fr
}

func testConfig() Config {
	return Config{
		MaxFeatures: 20,
		Threshold:   1e4,
		MinSpacing:  6,
		Window:      3,
	}
}

func TestDetectFindsCorners(t *testing.T) {
	d := NewDetector(testConfig())
	fr := checkerFrame(96, 96, 8)

	points := d.Detect(fr, nil)

	require.NotEmpty(t, points)
	assert.LessOrEqual(t, len(points), 20)
	for _, p := range points {
		assert.GreaterOrEqual(t, p.X, 0.0)
		assert.GreaterOrEqual(t, p.Y, 0.0)
		assert.Less(t, p.X, float64(fr.W))
		assert.Less(t, p.Y, float64(fr.H))
		assert.Greater(t, p.Response, 1e4)
	}
}

func TestDetectFlatFrameHasNoFeatures(t *testing.T) {
	d := NewDetector(testConfig())

	assert.Empty(t, d.Detect(flatFrame(64, 64, 100), nil))
}

func TestDetectHonorsMinSpacing(t *testing.T) {
	cfg := testConfig()
	cfg.MinSpacing = 12
	d := NewDetector(cfg)

	points := d.Detect(checkerFrame(96, 96, 8), nil)
	require.NotEmpty(t, points)

	for i := range points {
		for j := i + 1; j < len(points); j++ {
			dist := math.Hypot(points[i].X-points[j].X, points[i].Y-points[j].Y)
			assert.GreaterOrEqual(t, dist, 12.0)
		}
	}
}

func TestDetectCapsAtMaxFeatures(t *testing.T) {
	cfg := testConfig()
	cfg.MaxFeatures = 5
	d := NewDetector(cfg)

	points := d.Detect(checkerFrame(96, 96, 8), nil)

	assert.Len(t, points, 5)
}

func TestDetectSortsStrongestFirst(t *testing.T) {
	d := NewDetector(testConfig())

	points := d.Detect(checkerFrame(96, 96, 8), nil)
	require.NotEmpty(t, points)

	for i := 1; i < len(points); i++ {
		assert.LessOrEqual(t, points[i].Response, points[i-1].Response)
	}
}

func TestDetectExcludesMaskedRegion(t *testing.T) {
	w, h := 96, 96
	maskImg := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w/2; x++ {
			maskImg.SetRGBA(x, y, color.RGBA{255, 0, 0, 255})
		}
	}
	mask := frame.ScaleMask(maskImg, w, h)

	d := NewDetector(testConfig())
	points := d.Detect(checkerFrame(w, h, 8), mask)

	require.NotEmpty(t, points)
	for _, p := range points {
		assert.GreaterOrEqual(t, p.X, float64(w/2))
	}
}

func TestDetectTinyFrame(t *testing.T) {
	d := NewDetector(testConfig())

	assert.Empty(t, d.Detect(checkerFrame(6, 6, 2), nil))
}
