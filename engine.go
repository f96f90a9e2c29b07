package bounce

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/dudk/bounce/metric"
	"github.com/dudk/bounce/signal"
)

// Options of a single render.
type Options struct {
	// Destination is passed to the sink opener, usually a file path.
	Destination string
	// Frames is the number of frames in the main pass.
	Frames int
	Tail   TailMode
}

// Engine renders the graph offline. It implements Host for the graph. Engine
// is not safe for concurrent use.
type Engine struct {
	graph      Graph
	bufferSize int
	sampleRate int
	clock      *Clock

	meter       Meter
	logger      Logger
	openSink    SinkOpener
	detector    SilenceDetector
	tailCeiling time.Duration
	limit       time.Duration
	fallback    float64
	metric      bool

	idleRequested bool
	closed        bool
}

// buffers are allocated once per render and reused for every buffer.
type buffers struct {
	input       [Channels][]float32
	output      [Channels][]float32
	interleaved []float32

	// views are sliced to the size of current buffer.
	inView  [Channels][]float32
	outView [Channels][]float32
}

func newBuffers(bufferSize int) *buffers {
	var b buffers
	in := make([]float32, Channels*bufferSize)
	out := make([]float32, Channels*bufferSize)
	for c := 0; c < Channels; c++ {
		b.input[c] = in[c*bufferSize : (c+1)*bufferSize]
		b.output[c] = out[c*bufferSize : (c+1)*bufferSize]
	}
	b.interleaved = make([]float32, Channels*bufferSize)
	return &b
}

// slice resets input to silence and returns views of n frames.
func (b *buffers) slice(n int) (in, out [][]float32) {
	for c := 0; c < Channels; c++ {
		clear(b.input[c][:n])
		b.inView[c] = b.input[c][:n]
		b.outView[c] = b.output[c][:n]
	}
	return b.inView[:], b.outView[:]
}

// New creates the engine and takes ownership of the graph. The graph is
// instantiated, configured for offline processing and activated. If New
// fails, the graph is closed.
func New(graph Graph, bufferSize, sampleRate int, options ...Option) (*Engine, error) {
	if graph == nil {
		return nil, fmt.Errorf("%w: graph is nil", ErrInitialization)
	}
	e := Engine{
		graph:       graph,
		bufferSize:  bufferSize,
		sampleRate:  sampleRate,
		meter:       DefaultMeter,
		logger:      defaultLogger,
		detector:    LastSample{Threshold: Float32Epsilon},
		tailCeiling: DefaultTailCeiling,
		limit:       DefaultLimit,
		fallback:    DefaultFallbackLength,
	}
	for _, option := range options {
		option(&e)
	}
	if err := e.validate(); err != nil {
		return nil, errors.Join(err, graph.Close())
	}
	e.clock = NewClock(sampleRate, e.meter)

	if err := graph.Instantiate(&e); err != nil {
		return nil, errors.Join(fmt.Errorf("%w: %v", ErrInitialization, err), graph.Close())
	}
	graph.Dispatch(OpcodeBufferSizeChanged, 0, int64(bufferSize), 0)
	graph.Dispatch(OpcodeSampleRateChanged, 0, 0, float32(sampleRate))
	graph.Dispatch(OpcodeOfflineChanged, 0, 1, 0)
	graph.Activate()
	e.logger.Debug(fmt.Sprintf("engine started: buffer size %d, sample rate %d", bufferSize, sampleRate))
	return &e, nil
}

func (e *Engine) validate() error {
	switch {
	case e.bufferSize <= 0:
		return fmt.Errorf("%w: invalid buffer size %d", ErrInitialization, e.bufferSize)
	case e.sampleRate <= 0:
		return fmt.Errorf("%w: invalid sample rate %d", ErrInitialization, e.sampleRate)
	case e.meter.BeatsPerBar < 1 || e.meter.BeatType <= 0:
		return fmt.Errorf("%w: invalid time signature %v/%v", ErrInitialization, e.meter.BeatsPerBar, e.meter.BeatType)
	case e.meter.TicksPerBeat <= 0 || e.meter.BeatsPerMinute <= 0:
		return fmt.Errorf("%w: invalid tempo %v bpm, %v ticks per beat", ErrInitialization, e.meter.BeatsPerMinute, e.meter.TicksPerBeat)
	case e.detector == nil:
		return fmt.Errorf("%w: silence detector is nil", ErrInitialization)
	}
	return nil
}

// Close deactivates and closes the graph. It's safe to call Close multiple
// times.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.graph.Deactivate()
	return e.graph.Close()
}

// LoadFile loads a stage from file into the graph.
func (e *Engine) LoadFile(path string) error {
	return e.load(path, func(l Loader) error { return l.LoadFile(path) })
}

// LoadPlugin loads a stage by plugin identifier into the graph.
func (e *Engine) LoadPlugin(id string) error {
	return e.load(id, func(l Loader) error { return l.LoadPlugin(id) })
}

// SetCustomData applies custom data to the most recently loaded stage.
func (e *Engine) SetCustomData(kind, key, value string) error {
	return e.load(fmt.Sprintf("%s %s=%s", kind, key, value), func(l Loader) error {
		return l.SetCustomData(kind, key, value)
	})
}

func (e *Engine) load(stage string, fn func(Loader) error) error {
	l, ok := e.graph.(Loader)
	if !ok {
		return &StageError{Stage: stage, Err: errors.New("graph doesn't support loading")}
	}
	if err := fn(l); err != nil {
		return &StageError{Stage: stage, Detail: l.LastError(), Err: err}
	}
	e.logger.Debug("loaded " + stage)
	return nil
}

// Resolver returns duration resolver configured for this engine.
func (e *Engine) Resolver() Resolver {
	return Resolver{
		SampleRate: e.sampleRate,
		Limit:      e.limit,
		Fallback:   e.fallback,
	}
}

// StageFrames returns number of frames defined by the length of the most
// recently loaded stage.
func (e *Engine) StageFrames() (int, error) {
	l, _ := e.graph.(LengthReporter)
	return e.Resolver().Stage(l)
}

// Render renders the graph into the destination. The sink is closed on every
// exit path. If the sink was opened, all errors are returned as *RenderError.
func (e *Engine) Render(ctx context.Context, opts Options) (err error) {
	if e.closed {
		return fmt.Errorf("%w: engine is closed", ErrInitialization)
	}
	if opts.Frames < 0 {
		return fmt.Errorf("%w: %d frames", ErrInvalidDuration, opts.Frames)
	}
	if max := e.Resolver().MaxFrames(); opts.Frames > max {
		return fmt.Errorf("%w: %d frames exceeds %d frames limit", ErrOutputTooLarge, opts.Frames, max)
	}
	if e.openSink == nil {
		return fmt.Errorf("%w: sink opener is not set", ErrSinkOpen)
	}
	sink, err := e.openSink(opts.Destination, Channels, e.sampleRate)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrSinkOpen, opts.Destination, err)
	}
	defer func() {
		errClose := sink.Close()
		if err != nil || errClose != nil {
			err = &RenderError{ErrRender: err, ErrClose: errClose}
		}
	}()

	id := newUID()
	e.logger.Debug(fmt.Sprintf("render %s: %d frames to %s, tail: %v", id, opts.Frames, opts.Destination, opts.Tail))
	b := newBuffers(e.bufferSize)
	// idle requested while loading is serviced after the first buffer
	e.clock.Reset()

	measure := e.measure("main")
	for done := 0; done < opts.Frames; done += e.bufferSize {
		if err := ctx.Err(); err != nil {
			return err
		}
		n := min(e.bufferSize, opts.Frames-done)
		if err := e.step(sink, b, n); err != nil {
			return err
		}
		e.clock.Advance(n)
		measure(n)
	}

	switch opts.Tail {
	case TailUntilSilence:
		frames, err := e.tail(ctx, sink, b)
		if err != nil {
			return err
		}
		e.logger.Debug(fmt.Sprintf("render %s: tail of %d frames", id, frames))
	case TailLoop:
		e.logger.Debug(fmt.Sprintf("render %s: loop tail is not supported, render stopped", id))
	}
	e.logger.Info(fmt.Sprintf("render %s: done", id))
	return nil
}

// tail renders with stopped transport until silence is detected or ceiling
// is reached. Clock is not advanced. Number of rendered frames is returned.
func (e *Engine) tail(ctx context.Context, sink Sink, b *buffers) (int, error) {
	e.clock.Stop()
	if r, ok := e.detector.(Resetter); ok {
		r.Reset()
	}
	ceiling := int(e.tailCeiling.Seconds() * float64(e.sampleRate))
	measure := e.measure("tail")
	done := 0
	for done < ceiling {
		if err := ctx.Err(); err != nil {
			return done, err
		}
		n := min(e.bufferSize, ceiling-done)
		if err := e.step(sink, b, n); err != nil {
			return done, err
		}
		done += n
		measure(n)
		if e.detector.Silent(b.outView[0], b.outView[1]) {
			break
		}
	}
	return done, nil
}

// step renders a single buffer of n frames and writes it to the sink.
func (e *Engine) step(sink Sink, b *buffers, n int) error {
	in, out := b.slice(n)
	e.graph.Process(in, out, n)
	samples := signal.Interleave(b.interleaved, out...)
	if err := sink.Write(b.interleaved[:samples]); err != nil {
		return fmt.Errorf("write to sink: %w", err)
	}
	if e.idleRequested {
		e.idleRequested = false
		e.graph.Idle()
	}
	return nil
}

func (e *Engine) measure(phase string) metric.MeasureFunc {
	if !e.metric {
		return func(int) {}
	}
	return metric.Meter(phase, e.sampleRate)()
}

// BufferSize implements Host.
func (e *Engine) BufferSize() int {
	return e.bufferSize
}

// SampleRate implements Host.
func (e *Engine) SampleRate() int {
	return e.sampleRate
}

// Offline implements Host. Engine always renders offline.
func (e *Engine) Offline() bool {
	return true
}

// Position implements Host.
func (e *Engine) Position() Position {
	return e.clock.Position()
}

// RequestIdle implements Host. Idle is called after the current buffer is
// written.
func (e *Engine) RequestIdle() {
	e.idleRequested = true
}

// WriteMIDIEvent implements Host. MIDI output is not supported.
func (e *Engine) WriteMIDIEvent(MIDIEvent) bool {
	return false
}

// UIParameterChanged implements Host.
func (e *Engine) UIParameterChanged(int, float32) {}

// UICustomDataChanged implements Host.
func (e *Engine) UICustomDataChanged(string, string) {}

// UIClosed implements Host.
func (e *Engine) UIClosed() {}

func newUID() string {
	return xid.New().String()
}
