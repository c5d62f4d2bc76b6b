// Stabilization controller: lifecycle state, orchestration, reinit policy
package stabilize

import (
	"fmt"
	"image"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"overlay-stabilization/internal/features"
	"overlay-stabilization/internal/flow"
	"overlay-stabilization/internal/frame"
	"overlay-stabilization/internal/motion"
)

// harrisWindow is the half-size of the detector's structure window.
const harrisWindow = 3

// detector finds trackable points in a luminance frame.
type detector interface {
	Detect(fr *frame.Luminance, mask *frame.ExclusionMask) []features.Point
}

// tracker locates a point set from the previous frame in the current one.
type tracker interface {
	Track(prev, curr *frame.Luminance, points []features.Point) flow.Result
}

// estimatorFunc aggregates index-aligned correspondences into one transform.
type estimatorFunc func(before, after []features.Point) motion.Transform

// ResetReason explains why tracking was transparently reinitialized.
type ResetReason int

const (
	// ReasonFeatureLoss means too many points could not be followed.
	ReasonFeatureLoss ResetReason = iota
	// ReasonLargeMotion means the camera moved intentionally.
	ReasonLargeMotion
	// ReasonDrift means compensation would exceed the drift bound.
	ReasonDrift
)

func (r ResetReason) String() string {
	switch r {
	case ReasonLargeMotion:
		return "large-motion"
	case ReasonDrift:
		return "drift"
	default:
		return "feature-loss"
	}
}

// Status is a snapshot of the engine state for callers and diagnostics.
type Status struct {
	Initialized  bool
	Enabled      bool
	FeatureCount int
	CumulativeDX float64
	CumulativeDY float64
}

// Stabilizer tracks background features across frames and maintains the
// cumulative compensation offset a renderer applies to overlay geometry.
//
// A Stabilizer is synchronous and single-stream: every call runs to
// completion, and instances must not be shared across goroutines. Callers
// stabilizing independent streams use independent instances.
type Stabilizer struct {
	cfg Config
	log logrus.FieldLogger

	detect   detector
	track    tracker
	estimate estimatorFunc

	onReset    func(ResetReason)
	lastNotify time.Time
	now        func() time.Time

	enabled     bool
	initialized bool
	prev        *frame.Luminance
	points      []features.Point
	cumulative  motion.Transform
	frameCount  int
}

// Option customizes a Stabilizer at construction.
type Option func(*Stabilizer)

// WithLogger attaches a structured logger. Without it the engine is silent.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Stabilizer) {
		if log != nil {
			s.log = log
		}
	}
}

// WithResetHandler registers a handler invoked whenever tracking
// reinitializes, rate-limited by Config.ResetNotifyInterval.
func WithResetHandler(handler func(ResetReason)) Option {
	return func(s *Stabilizer) {
		s.onReset = handler
	}
}

// New builds a Stabilizer from the given configuration.
func New(cfg Config, opts ...Option) (*Stabilizer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid stabilizer config: %w", err)
	}

	s := &Stabilizer{
		cfg:     cfg,
		log:     discardLogger(),
		enabled: true,
		now:     time.Now,
	}
	s.detect = features.NewDetector(features.Config{
		MaxFeatures: cfg.MaxFeatures,
		Threshold:   cfg.CornerThreshold,
		MinSpacing:  cfg.MinSpacing / float64(cfg.DownsampleFactor),
		Window:      harrisWindow,
	})
	s.track = flow.NewTracker(flow.Config{
		SearchWindow:  cfg.SearchWindow,
		MaxIterations: cfg.MaxIterations,
		Epsilon:       cfg.ConvergenceEpsilon,
	})
	s.estimate = motion.Estimate

	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Initialize establishes a fresh tracking baseline from the given frame and
// optional exclusion mask, and zeroes the cumulative transform. A zero-sized
// frame is a caller error.
func (s *Stabilizer) Initialize(src, mask image.Image) error {
	lum, err := frame.Downsample(src, s.cfg.DownsampleFactor)
	if err != nil {
		return fmt.Errorf("preprocess frame: %w", err)
	}
	s.rebuild(lum, mask)
	s.cumulative = motion.Identity()
	s.log.WithField("features", len(s.points)).Debug("tracking initialized")
	return nil
}

// Process advances the engine by one admitted frame and returns the current
// compensation offset in source-resolution pixels. Numerical degeneracies
// and tracking failures never surface as errors; the returned transform is
// always valid. The only error condition is a frame the preprocessor
// cannot work with.
func (s *Stabilizer) Process(src, mask image.Image) (motion.Transform, error) {
	if !s.enabled {
		return motion.Identity(), nil
	}
	if !s.initialized {
		if err := s.Initialize(src, mask); err != nil {
			return motion.Identity(), err
		}
		return motion.Identity(), nil
	}

	s.frameCount++
	if s.frameCount%s.cfg.SkipFrames != 0 {
		return s.cumulative, nil
	}

	lum, err := frame.Downsample(src, s.cfg.DownsampleFactor)
	if err != nil {
		return motion.Identity(), fmt.Errorf("preprocess frame: %w", err)
	}

	res := s.track.Track(s.prev, lum, s.points)
	if res.Lost*2 > len(s.points) || len(res.After) < s.cfg.MinTrackedPoints {
		s.log.WithFields(logrus.Fields{
			"tracked": len(res.After),
			"lost":    res.Lost,
		}).Debug("insufficient tracked features")
		s.reinitialize(lum, mask, ReasonFeatureLoss)
		return motion.Identity(), nil
	}

	delta := s.estimate(res.Before, res.After)
	verdict := motion.Classify(delta, s.cumulative, motion.Limits{
		LargeMotion: s.cfg.LargeMotionThreshold,
		Drift:       s.cfg.DriftThreshold,
		Downsample:  s.cfg.DownsampleFactor,
	})
	switch verdict {
	case motion.VerdictLargeMotion:
		s.reinitialize(lum, mask, ReasonLargeMotion)
		return motion.Identity(), nil
	case motion.VerdictExcessiveDrift:
		s.reinitialize(lum, mask, ReasonDrift)
		return motion.Identity(), nil
	}

	// Compensation counteracts observed camera motion, so the per-frame
	// delta is subtracted, scaled back to source resolution.
	factor := float64(s.cfg.DownsampleFactor)
	s.cumulative.DX -= delta.DX * factor
	s.cumulative.DY -= delta.DY * factor

	// The tracked set and current frame become the baseline pair for the
	// next call; they are only ever replaced together.
	s.prev = lum
	s.points = res.After

	return s.cumulative, nil
}

// Reset returns the engine to the uninitialized state. Always safe to call.
func (s *Stabilizer) Reset() {
	s.prev = nil
	s.points = nil
	s.cumulative = motion.Identity()
	s.frameCount = 0
	s.initialized = false
}

// SetEnabled gates processing. Disabling zeroes the cumulative transform so
// a disabled stabilizer never reports a stale offset, but keeps the tracking
// baseline so a later re-enable resumes without a fresh detection.
func (s *Stabilizer) SetEnabled(enabled bool) {
	if !enabled {
		s.cumulative = motion.Identity()
	}
	s.enabled = enabled
}

// Status returns a snapshot of the engine state.
func (s *Stabilizer) Status() Status {
	return Status{
		Initialized:  s.initialized,
		Enabled:      s.enabled,
		FeatureCount: len(s.points),
		CumulativeDX: s.cumulative.DX,
		CumulativeDY: s.cumulative.DY,
	}
}

// rebuild replaces the feature set and previous frame together from an
// already-downsampled frame.
func (s *Stabilizer) rebuild(lum *frame.Luminance, mask image.Image) {
	ex := frame.ScaleMask(mask, lum.W, lum.H)
	s.points = s.detect.Detect(lum, ex)
	s.prev = lum
	s.initialized = true
}

// reinitialize rebases tracking on the current frame within the same call.
// The new baseline has zero offset by construction.
func (s *Stabilizer) reinitialize(lum *frame.Luminance, mask image.Image, reason ResetReason) {
	s.rebuild(lum, mask)
	s.cumulative = motion.Identity()
	s.log.WithFields(logrus.Fields{
		"reason":   reason.String(),
		"features": len(s.points),
	}).Debug("tracking reinitialized")
	s.notifyReset(reason)
}

func (s *Stabilizer) notifyReset(reason ResetReason) {
	if s.onReset == nil {
		return
	}
	now := s.now()
	if s.cfg.ResetNotifyInterval > 0 && !s.lastNotify.IsZero() &&
		now.Sub(s.lastNotify) < s.cfg.ResetNotifyInterval {
		return
	}
	s.lastNotify = now
	s.onReset(reason)
}

func discardLogger() logrus.FieldLogger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
