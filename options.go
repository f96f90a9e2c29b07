package bounce

import "time"

// Option provides a way to set parameters of the engine.
type Option func(*Engine)

// WithLogger sets logger to the engine. Engine is silent by default.
func WithLogger(logger Logger) Option {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithSinkOpener sets the function which creates render destinations.
func WithSinkOpener(fn SinkOpener) Option {
	return func(e *Engine) {
		e.openSink = fn
	}
}

// WithSilenceDetector sets the detector which ends until-silence tail.
func WithSilenceDetector(d SilenceDetector) Option {
	return func(e *Engine) {
		e.detector = d
	}
}

// WithTailCeiling limits the duration of until-silence tail.
func WithTailCeiling(d time.Duration) Option {
	return func(e *Engine) {
		e.tailCeiling = d
	}
}

// WithLimit sets the maximum output duration.
func WithLimit(d time.Duration) Option {
	return func(e *Engine) {
		e.limit = d
	}
}

// WithFallbackLength sets the length in seconds used when source stage
// doesn't report its length.
func WithFallbackLength(seconds float64) Option {
	return func(e *Engine) {
		e.fallback = seconds
	}
}

// WithMeter sets the musical meter of the transport clock.
func WithMeter(m Meter) Option {
	return func(e *Engine) {
		e.meter = m
	}
}

// WithMetric enables expvar render counters.
func WithMetric() Option {
	return func(e *Engine) {
		e.metric = true
	}
}
