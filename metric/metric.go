// Package metric publishes render counters with expvar.
package metric

import (
	"expvar"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dudk/bounce/signal"
)

const phasesLabel = "bounce.render"

const (
	// BufferCounter measures number of rendered buffers.
	BufferCounter = "Buffers"
	// FrameCounter measures number of rendered frames.
	FrameCounter = "Frames"
	// LatencyCounter measures latency between buffers.
	LatencyCounter = "Latency"
	// DurationCounter counts what's the duration of rendered signal.
	DurationCounter = "Duration"
	// RenderCounter counts number of renders.
	RenderCounter = "Renders"
)

var (
	phases = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		BufferCounter,
		FrameCounter,
		LatencyCounter,
		DurationCounter,
		RenderCounter,
	}
)

// Get metrics values for provided render phase.
func Get(phase string) map[string]string {
	return getCounters(phase)
}

// GetAll returns counters for all measured phases.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	phases.Lock()
	defer phases.Unlock()
	for phase := range phases.m {
		m[phase] = getCounters(phase)
	}
	return m
}

func getCounters(phase string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(phase, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// ResetFunc returns new Measure closure. This closure is needed to postpone metrics
// capture until render phase is actually running.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when buffer is rendered.
type MeasureFunc func(frames int)

// Meter creates new meter closure to capture phase counters.
func Meter(phase string, sampleRate int) ResetFunc {
	metric := phases.get(phase)
	return func() MeasureFunc {
		metric.renders.Add(1)
		calledAt := time.Now()
		var (
			bufferSize     int
			bufferDuration time.Duration
		)
		return func(frames int) {
			metric.latency.set(time.Since(calledAt))
			metric.buffers.Add(1)
			metric.frames.Add(int64(frames))
			// recalculate buffer duration only when buffer size has changed
			if bufferSize != frames {
				bufferSize = frames
				bufferDuration = signal.DurationOf(sampleRate, int64(frames))
			}
			metric.duration.add(bufferDuration)
			calledAt = time.Now()
		}
	}
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(phase string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[phase]; ok {
		return metric
	}
	metric := newMetric(phase)
	m.m[phase] = metric
	return metric
}

type metric struct {
	renders  *expvar.Int
	buffers  *expvar.Int
	frames   *expvar.Int
	latency  *duration
	duration *duration
}

func newMetric(phase string) metric {
	m := metric{
		renders:  expvar.NewInt(key(phase, RenderCounter)),
		buffers:  expvar.NewInt(key(phase, BufferCounter)),
		frames:   expvar.NewInt(key(phase, FrameCounter)),
		latency:  &duration{},
		duration: &duration{},
	}
	expvar.Publish(key(phase, LatencyCounter), m.latency)
	expvar.Publish(key(phase, DurationCounter), m.duration)
	return m
}

func key(phase, counter string) string {
	return fmt.Sprintf("%s.%s.%s", phasesLabel, phase, counter)
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%v", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) add(delta time.Duration) {
	atomic.AddInt64(&v.d, int64(delta))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
