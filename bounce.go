package bounce

// Channels is the number of channels rendered by the engine.
const Channels = 2

// Custom data kinds understood by stages.
const (
	// CustomDataPath marks custom data value as a file system path.
	CustomDataPath = "path"
	// CustomDataString marks custom data value as a plain string.
	CustomDataString = "string"
)

// Graph is a processing graph: one source stage followed by zero or more
// effect stages. The engine drives it buffer by buffer.
//
// Process and Idle are infallible: a graph that cannot produce signal must
// output silence. Process is called synchronously and must complete before
// it returns.
type Graph interface {
	// Instantiate binds the graph to the host. The host stays valid until
	// Close is called.
	Instantiate(Host) error
	Activate()
	Deactivate()
	// Process renders frames into out. The in buffers always contain silence.
	Process(in, out [][]float32, frames int)
	// Idle services work requested with Host.RequestIdle.
	Idle()
	Dispatch(op Opcode, index int32, value int64, opt float32) int64
	Close() error
}

// Loader is implemented by graphs which can load stages.
type Loader interface {
	// LoadFile loads a stage from file, e.g. audio file player.
	LoadFile(path string) error
	// LoadPlugin loads a stage by identifier or plugin path.
	LoadPlugin(id string) error
	// SetCustomData applies custom data to the most recently loaded stage.
	SetCustomData(kind, key, value string) error
	// LastError returns the text of the latest load failure.
	LastError() string
}

// LengthReporter is implemented by graphs which can report the length of the
// most recently loaded stage in seconds.
type LengthReporter interface {
	Length() (float64, bool)
}

// Host is the set of callbacks the graph can use during the render.
type Host interface {
	BufferSize() int
	SampleRate() int
	// Offline is always true for this host.
	Offline() bool
	// Position returns current transport position.
	Position() Position
	// RequestIdle asks the host to call Graph.Idle after the current buffer.
	RequestIdle()
	WriteMIDIEvent(MIDIEvent) bool
	UIParameterChanged(index int, value float32)
	UICustomDataChanged(key, value string)
	UIClosed()
}

// MIDIEvent is a short MIDI message with its frame offset in the buffer.
type MIDIEvent struct {
	Port uint8
	Time uint32
	Size uint8
	Data [4]byte
}

// Opcode is a graph dispatcher operation.
type Opcode int

// Dispatcher opcodes sent by the engine.
const (
	OpcodeNull Opcode = iota
	OpcodeBufferSizeChanged
	OpcodeSampleRateChanged
	OpcodeOfflineChanged
	OpcodeIdle
)

func (op Opcode) String() string {
	switch op {
	case OpcodeNull:
		return "null"
	case OpcodeBufferSizeChanged:
		return "buffer size changed"
	case OpcodeSampleRateChanged:
		return "sample rate changed"
	case OpcodeOfflineChanged:
		return "offline changed"
	case OpcodeIdle:
		return "idle"
	}
	return "unknown"
}

// Sink is a destination of rendered signal. Write receives interleaved
// frames. Implementations must clip samples to [-1, 1] and normalize floats
// when the underlying format is integer.
type Sink interface {
	Write(interleaved []float32) error
	Close() error
}

// SinkOpener creates a sink for the destination.
type SinkOpener func(destination string, channels, sampleRate int) (Sink, error)

// Logger is a global interface for bounce loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
}

type silentLogger struct{}

func (silentLogger) Debug(args ...interface{}) {}

func (silentLogger) Info(args ...interface{}) {}

var defaultLogger silentLogger
