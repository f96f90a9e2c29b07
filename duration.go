package bounce

import (
	"fmt"
	"math"
	"time"
)

const (
	// DefaultLimit is the maximum duration of rendered output. It protects
	// from runaway output files, callers who need longer renders must raise
	// Resolver.Limit explicitly.
	DefaultLimit = time.Hour
	// DefaultFallbackLength is used when source stage doesn't report its
	// length.
	DefaultFallbackLength = 60.0
)

// Resolver computes total number of frames to render.
type Resolver struct {
	SampleRate int
	// Limit is the maximum output duration, DefaultLimit if zero.
	Limit time.Duration
	// Fallback is the length in seconds used when stage length is not
	// available, DefaultFallbackLength if zero.
	Fallback float64
}

// NewResolver returns resolver with default limit and fallback.
func NewResolver(sampleRate int) Resolver {
	return Resolver{
		SampleRate: sampleRate,
		Limit:      DefaultLimit,
		Fallback:   DefaultFallbackLength,
	}
}

// Seconds returns number of frames for explicit duration in seconds.
func (r Resolver) Seconds(seconds float64) (int, error) {
	if math.IsNaN(seconds) || seconds <= 0 || seconds > r.limit().Seconds() {
		return 0, fmt.Errorf("%w: %v seconds", ErrInvalidDuration, seconds)
	}
	return r.check(int(seconds * float64(r.SampleRate)))
}

// Stage returns number of frames for the length reported by the stage. If
// length is not available, fallback length is used.
func (r Resolver) Stage(l LengthReporter) (int, error) {
	seconds := r.fallback()
	if l != nil {
		if length, ok := l.Length(); ok && length >= 0 && !math.IsNaN(length) {
			seconds = length
		}
	}
	if seconds > float64(math.MaxInt32) {
		return 0, fmt.Errorf("%w: %v seconds", ErrOutputTooLarge, seconds)
	}
	return r.check(int(seconds*float64(r.SampleRate) + 0.5))
}

// MaxFrames returns the maximum number of frames allowed by the limit.
func (r Resolver) MaxFrames() int {
	return int(r.limit().Seconds() * float64(r.SampleRate))
}

func (r Resolver) check(frames int) (int, error) {
	if max := r.MaxFrames(); frames > max {
		return 0, fmt.Errorf("%w: %d frames exceeds %d frames limit", ErrOutputTooLarge, frames, max)
	}
	return frames, nil
}

func (r Resolver) limit() time.Duration {
	if r.Limit <= 0 {
		return DefaultLimit
	}
	return r.Limit
}

func (r Resolver) fallback() float64 {
	if r.Fallback <= 0 {
		return DefaultFallbackLength
	}
	return r.Fallback
}
