// Package mock provides mocks for render components and allows to execute integration tests.
package mock

import (
	"errors"
	"fmt"

	"github.com/dudk/bounce"
)

// Journal records the order of calls across mocks.
type Journal struct {
	Entries []string
}

func (j *Journal) add(format string, args ...interface{}) {
	if j == nil {
		return
	}
	j.Entries = append(j.Entries, fmt.Sprintf(format, args...))
}

// Graph mocks a bounce.Graph interface. It also implements bounce.Loader and
// bounce.LengthReporter.
type Graph struct {
	counter
	Hooks
	// Signal returns output values for the frame. Frames are counted across
	// all process calls. Output is silent if Signal is nil.
	Signal func(frame int) (left, right float32)
	// RequestIdleOn contains numbers of process calls which request idle.
	RequestIdleOn map[int]bool
	// ReRaise is the number of times idle is requested again from Idle.
	ReRaise int
	// RequestIdleOnLoad makes graph request idle when a stage is loaded.
	RequestIdleOnLoad bool
	// DirtyInput makes graph write into input buffers.
	DirtyInput bool
	// Seconds is reported as length if HasLength is true.
	Seconds    float64
	HasLength  bool
	Journal    *Journal
	Positions  []bounce.Position
	Dispatched []bounce.Opcode
	Loaded     []string
	CustomData []string
	// Idles counts Idle calls.
	Idles int
	// NonSilentInput counts process calls with non-zero input.
	NonSilentInput int

	host      bounce.Host
	lastError string
}

// Instantiate implements bounce.Graph.
func (m *Graph) Instantiate(host bounce.Host) error {
	if m.ErrorOnInstantiate != nil {
		return m.ErrorOnInstantiate
	}
	m.host = host
	m.Instantiated = true
	return nil
}

// Activate implements bounce.Graph.
func (m *Graph) Activate() {
	m.Activated = true
}

// Deactivate implements bounce.Graph.
func (m *Graph) Deactivate() {
	m.Deactivated = true
}

// Process implements bounce.Graph.
func (m *Graph) Process(in, out [][]float32, frames int) {
	call := m.messages
	m.Journal.add("process %d", call)
	m.Positions = append(m.Positions, m.host.Position())
	for _, ch := range in {
		if !silent(ch[:frames]) {
			m.NonSilentInput++
			break
		}
	}
	for i := 0; i < frames; i++ {
		var l, r float32
		if m.Signal != nil {
			l, r = m.Signal(m.samples + i)
		}
		out[0][i], out[1][i] = l, r
	}
	if m.DirtyInput {
		for _, ch := range in {
			for i := range ch {
				ch[i] = 1
			}
		}
	}
	if m.RequestIdleOn[call] {
		m.host.RequestIdle()
	}
	m.advance(frames)
}

// Idle implements bounce.Graph.
func (m *Graph) Idle() {
	m.Idles++
	m.Journal.add("idle")
	if m.ReRaise > 0 {
		m.ReRaise--
		m.host.RequestIdle()
	}
}

// Dispatch implements bounce.Graph.
func (m *Graph) Dispatch(op bounce.Opcode, index int32, value int64, opt float32) int64 {
	m.Dispatched = append(m.Dispatched, op)
	return 0
}

// Close implements bounce.Graph.
func (m *Graph) Close() error {
	m.Closed = true
	return m.ErrorOnClose
}

// LoadFile implements bounce.Loader.
func (m *Graph) LoadFile(path string) error {
	return m.load("file:" + path)
}

// LoadPlugin implements bounce.Loader.
func (m *Graph) LoadPlugin(id string) error {
	return m.load("plugin:" + id)
}

// SetCustomData implements bounce.Loader.
func (m *Graph) SetCustomData(kind, key, value string) error {
	if len(m.Loaded) == 0 {
		m.lastError = "no stage loaded"
		return errors.New(m.lastError)
	}
	m.CustomData = append(m.CustomData, fmt.Sprintf("%s:%s=%s", kind, key, value))
	return nil
}

func (m *Graph) load(stage string) error {
	if m.ErrorOnLoad != nil {
		m.lastError = "cannot load " + stage
		return m.ErrorOnLoad
	}
	m.Loaded = append(m.Loaded, stage)
	m.Journal.add("load %s", stage)
	if m.RequestIdleOnLoad {
		m.host.RequestIdle()
	}
	return nil
}

// LastError implements bounce.Loader.
func (m *Graph) LastError() string {
	return m.lastError
}

// Length implements bounce.LengthReporter.
func (m *Graph) Length() (float64, bool) {
	return m.Seconds, m.HasLength
}

// Sink mocks up a bounce.Sink interface. Its Open method is a
// bounce.SinkOpener.
type Sink struct {
	counter
	Hooks
	Discard     bool
	Destination string
	Journal     *Journal
	ErrorOnCall error
	ErrorOnOpen error
	data        []float32
}

// Open implements bounce.SinkOpener.
func (m *Sink) Open(destination string, channels, sampleRate int) (bounce.Sink, error) {
	if m.ErrorOnOpen != nil {
		return nil, m.ErrorOnOpen
	}
	if channels != bounce.Channels {
		return nil, fmt.Errorf("unexpected number of channels: %d", channels)
	}
	m.Destination = destination
	m.Opened = true
	return m, nil
}

// Write implements bounce.Sink.
func (m *Sink) Write(interleaved []float32) error {
	if m.ErrorOnCall != nil {
		return m.ErrorOnCall
	}
	m.Journal.add("write %d", m.messages)
	if !m.Discard {
		m.data = append(m.data, interleaved...)
	}
	m.advance(len(interleaved) / bounce.Channels)
	return nil
}

// Close implements bounce.Sink.
func (m *Sink) Close() error {
	m.Closed = true
	return m.ErrorOnClose
}

// Data returns interleaved samples written to the sink.
func (m *Sink) Data() []float32 {
	return m.data
}

// Hooks allows to mock components lifecycle.
type Hooks struct {
	Instantiated bool
	Activated    bool
	Deactivated  bool
	Opened       bool
	Closed       bool

	ErrorOnInstantiate error
	ErrorOnLoad        error
	ErrorOnClose       error
}

// Ramp returns signal which linearly decays from the value to zero over the
// number of frames and stays silent after.
func Ramp(value float32, frames int) func(int) (float32, float32) {
	return func(frame int) (float32, float32) {
		if frame >= frames {
			return 0, 0
		}
		v := value * float32(frames-frame) / float32(frames)
		return v, v
	}
}

// Constant returns signal with constant value.
func Constant(left, right float32) func(int) (float32, float32) {
	return func(int) (float32, float32) {
		return left, right
	}
}

func silent(s []float32) bool {
	for _, v := range s {
		if v != 0 {
			return false
		}
	}
	return true
}

// counter counts calls and frames.
type counter struct {
	messages int
	samples  int
}

// Advance counter's metrics.
func (c *counter) advance(size int) {
	c.messages++
	c.samples = c.samples + size
}

// Count returns number of calls and frames.
func (c *counter) Count() (int, int) {
	return c.messages, c.samples
}
