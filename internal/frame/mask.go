package frame

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// maskThreshold is the channel convention for exclusion masks: a pixel whose
// first (red) sample exceeds this value marks a region to exclude from
// feature detection, typically a person segmented out upstream.
const maskThreshold = 128

// ExclusionMask is a per-pixel exclusion indicator at working resolution.
type ExclusionMask struct {
	W, H     int
	excluded []bool
}

// Excluded reports whether the working-resolution pixel (x, y) is excluded.
// Out-of-bounds coordinates are not excluded.
func (m *ExclusionMask) Excluded(x, y int) bool {
	if m == nil || x < 0 || y < 0 || x >= m.W || y >= m.H {
		return false
	}
	return m.excluded[y*m.W+x]
}

// Count returns the number of excluded pixels.
func (m *ExclusionMask) Count() int {
	if m == nil {
		return 0
	}
	n := 0
	for _, e := range m.excluded {
		if e {
			n++
		}
	}
	return n
}

// ScaleMask rescales a segmentation mask of arbitrary resolution to the
// working resolution w x h. A nil mask yields a nil ExclusionMask, which
// excludes nothing.
func ScaleMask(mask image.Image, w, h int) *ExclusionMask {
	if mask == nil || w < 1 || h < 1 {
		return nil
	}

	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	xdraw.NearestNeighbor.Scale(rgba, rgba.Bounds(), mask, mask.Bounds(), xdraw.Src, nil)

	out := &ExclusionMask{W: w, H: h, excluded: make([]bool, w*h)}
	for y := 0; y < h; y++ {
		row := rgba.Pix[y*rgba.Stride:]
		for x := 0; x < w; x++ {
			out.excluded[y*w+x] = row[x*4] > maskThreshold
		}
	}
	return out
}
