package stabilize

import (
	"fmt"
	"time"
)

// Config holds the engine tuning. All values are fixed at construction.
//
// Resolution conventions: MinSpacing and DriftThreshold are in source
// pixels; SearchWindow and LargeMotionThreshold are in working pixels.
type Config struct {
	// MaxFeatures caps the tracked feature set.
	MaxFeatures int

	// CornerThreshold is the minimum Harris response for a candidate.
	CornerThreshold float64

	// MinSpacing is the minimum inter-feature distance in source pixels.
	MinSpacing float64

	// SearchWindow is the Lucas-Kanade neighborhood radius in working
	// pixels; it doubles as the per-point divergence bound.
	SearchWindow int

	// MaxIterations caps the iterative solve per point per frame so a
	// Process call stays inside a real-time budget.
	MaxIterations int

	// ConvergenceEpsilon stops the iterative solve once the incremental
	// displacement falls below it.
	ConvergenceEpsilon float64

	// LargeMotionThreshold is the per-frame estimate magnitude (working
	// pixels) above which motion is treated as intentional.
	LargeMotionThreshold float64

	// DriftThreshold bounds the cumulative compensation magnitude in
	// source pixels.
	DriftThreshold float64

	// DownsampleFactor sets the working resolution as source/factor.
	DownsampleFactor int

	// SkipFrames runs detection/tracking only every Nth call; intermediate
	// calls return the cumulative transform unchanged. 1 processes every
	// frame.
	SkipFrames int

	// MinTrackedPoints triggers reinitialization when fewer points survive
	// a tracking step.
	MinTrackedPoints int

	// ResetNotifyInterval rate-limits reset handler invocations. Zero
	// disables rate limiting.
	ResetNotifyInterval time.Duration
}

// DefaultConfig returns tuning suitable for stabilizing a webcam-style feed
// against desk bumps and keyboard vibration.
func DefaultConfig() Config {
	return Config{
		MaxFeatures:          60,
		CornerThreshold:      1e4,
		MinSpacing:           24,
		SearchWindow:         7,
		MaxIterations:        30,
		ConvergenceEpsilon:   0.01,
		LargeMotionThreshold: 10,
		DriftThreshold:       40,
		DownsampleFactor:     2,
		SkipFrames:           1,
		MinTrackedPoints:     10,
		ResetNotifyInterval:  2 * time.Second,
	}
}

// Validate checks the configuration for values the engine cannot run with.
func (c Config) Validate() error {
	if c.MaxFeatures < 1 {
		return fmt.Errorf("max features must be >= 1, got %d", c.MaxFeatures)
	}
	if c.MinSpacing <= 0 {
		return fmt.Errorf("min spacing must be > 0, got %v", c.MinSpacing)
	}
	if c.SearchWindow < 2 {
		return fmt.Errorf("search window must be >= 2, got %d", c.SearchWindow)
	}
	if c.MaxIterations < 1 {
		return fmt.Errorf("max iterations must be >= 1, got %d", c.MaxIterations)
	}
	if c.ConvergenceEpsilon <= 0 {
		return fmt.Errorf("convergence epsilon must be > 0, got %v", c.ConvergenceEpsilon)
	}
	if c.LargeMotionThreshold <= 0 {
		return fmt.Errorf("large motion threshold must be > 0, got %v", c.LargeMotionThreshold)
	}
	if c.DriftThreshold <= 0 {
		return fmt.Errorf("drift threshold must be > 0, got %v", c.DriftThreshold)
	}
	if c.DownsampleFactor < 1 {
		return fmt.Errorf("downsample factor must be >= 1, got %d", c.DownsampleFactor)
	}
	if c.SkipFrames < 1 {
		return fmt.Errorf("skip frames must be >= 1, got %d", c.SkipFrames)
	}
	if c.MinTrackedPoints < 1 {
		return fmt.Errorf("min tracked points must be >= 1, got %d", c.MinTrackedPoints)
	}
	if c.ResetNotifyInterval < 0 {
		return fmt.Errorf("reset notify interval must be >= 0, got %v", c.ResetNotifyInterval)
	}
	return nil
}
