// Package rack provides a processing graph which chains stages: one source
// followed by zero or more effects. Stages are created by loaders, so the
// rack itself doesn't depend on any file format or plugin standard.
package rack

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dudk/bounce"
)

// ParameterLength is the parameter of source stages which reports their
// length in seconds.
const ParameterLength = "Length"

var (
	// ErrUnknownPlugin is returned by plugin loaders which don't handle the
	// identifier. Rack tries the next loader in this case.
	ErrUnknownPlugin = errors.New("unknown plugin")
	// ErrUnknownExtension is returned when there is no file loader for the
	// extension.
	ErrUnknownExtension = errors.New("unknown file extension")
	// ErrNotInstantiated is returned when stage is loaded before the rack is
	// bound to the host.
	ErrNotInstantiated = errors.New("rack is not instantiated")
	// ErrNoStage is returned when custom data is set with no stages loaded.
	ErrNoStage = errors.New("no stage loaded")
	// ErrNotSupported is returned when stage doesn't support the operation.
	ErrNotSupported = errors.New("operation is not supported by stage")
)

type (
	// Stage is a single processor in the rack. Process must fill out with
	// frames of signal, it can't fail.
	Stage interface {
		Name() string
		Process(in, out [][]float32, frames int)
		Close() error
	}

	// Parameterized stages expose named parameters.
	Parameterized interface {
		Parameter(name string) (float64, bool)
		SetParameter(name string, value float64) error
	}

	// CustomDataSetter stages accept custom data.
	CustomDataSetter interface {
		SetCustomData(kind, key, value string) error
	}

	// Idler stages have work to do outside of Process. They request idle
	// with bounce.Host.RequestIdle.
	Idler interface {
		Idle()
	}

	// Activator stages are notified when rack is activated and deactivated.
	Activator interface {
		Activate()
		Deactivate()
	}

	// FileLoader creates a stage from file.
	FileLoader func(host bounce.Host, path string) (Stage, error)

	// PluginLoader creates a stage by identifier. It returns
	// ErrUnknownPlugin if identifier is not handled.
	PluginLoader func(host bounce.Host, id string) (Stage, error)
)

// Rack is a chain of stages. It implements bounce.Graph, bounce.Loader and
// bounce.LengthReporter.
type Rack struct {
	host          bounce.Host
	stages        []Stage
	fileLoaders   map[string]FileLoader
	pluginLoaders []PluginLoader
	// ping-pong buffers between stages.
	buffers [2][bounce.Channels][]float32
	views   [2][bounce.Channels][]float32
	active  bool
	lastErr string
}

// Option configures rack.
type Option func(*Rack)

// WithFileLoader registers loader for provided file extensions. Extensions
// are case-insensitive and must include the dot.
func WithFileLoader(fn FileLoader, extensions ...string) Option {
	return func(r *Rack) {
		for _, ext := range extensions {
			r.fileLoaders[strings.ToLower(ext)] = fn
		}
	}
}

// WithPluginLoader appends plugin loader. Loaders are tried in order.
func WithPluginLoader(fn PluginLoader) Option {
	return func(r *Rack) {
		r.pluginLoaders = append(r.pluginLoaders, fn)
	}
}

// New creates empty rack.
func New(options ...Option) *Rack {
	r := Rack{
		fileLoaders: make(map[string]FileLoader),
	}
	for _, option := range options {
		option(&r)
	}
	return &r
}

// Extensions returns the list of file extensions the rack can load.
func (r *Rack) Extensions() []string {
	exts := make([]string, 0, len(r.fileLoaders))
	for ext := range r.fileLoaders {
		exts = append(exts, ext)
	}
	return exts
}

// CanLoadFile returns true if there is a file loader for the path.
func (r *Rack) CanLoadFile(path string) bool {
	_, ok := r.fileLoaders[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Stages returns names of loaded stages.
func (r *Rack) Stages() []string {
	names := make([]string, 0, len(r.stages))
	for _, s := range r.stages {
		names = append(names, s.Name())
	}
	return names
}

// Instantiate implements bounce.Graph.
func (r *Rack) Instantiate(host bounce.Host) error {
	if host == nil {
		return errors.New("host is nil")
	}
	if host.BufferSize() <= 0 {
		return fmt.Errorf("invalid buffer size: %d", host.BufferSize())
	}
	r.host = host
	r.allocate(host.BufferSize())
	return nil
}

func (r *Rack) allocate(bufferSize int) {
	for i := range r.buffers {
		for c := range r.buffers[i] {
			r.buffers[i][c] = make([]float32, bufferSize)
		}
	}
}

// Activate implements bounce.Graph.
func (r *Rack) Activate() {
	r.active = true
	for _, s := range r.stages {
		if a, ok := s.(Activator); ok {
			a.Activate()
		}
	}
}

// Deactivate implements bounce.Graph.
func (r *Rack) Deactivate() {
	r.active = false
	for _, s := range r.stages {
		if a, ok := s.(Activator); ok {
			a.Deactivate()
		}
	}
}

// Process implements bounce.Graph. The first stage receives the input, every
// next stage receives the output of previous one.
func (r *Rack) Process(in, out [][]float32, frames int) {
	if len(r.stages) == 0 {
		for _, ch := range out {
			clear(ch[:frames])
		}
		return
	}
	src := in
	for i, s := range r.stages {
		dst := out
		if i < len(r.stages)-1 {
			dst = r.view(i%2, frames)
		}
		s.Process(src, dst, frames)
		src = dst
	}
}

func (r *Rack) view(i, frames int) [][]float32 {
	for c := range r.buffers[i] {
		r.views[i][c] = r.buffers[i][c][:frames]
	}
	return r.views[i][:]
}

// Idle implements bounce.Graph.
func (r *Rack) Idle() {
	for _, s := range r.stages {
		if idler, ok := s.(Idler); ok {
			idler.Idle()
		}
	}
}

// Dispatch implements bounce.Graph.
func (r *Rack) Dispatch(op bounce.Opcode, index int32, value int64, opt float32) int64 {
	switch op {
	case bounce.OpcodeBufferSizeChanged:
		if value > 0 && int(value) != len(r.buffers[0][0]) {
			r.allocate(int(value))
		}
	}
	return 0
}

// Close implements bounce.Graph. All stages are closed.
func (r *Rack) Close() error {
	var errs closeErrors
	for _, s := range r.stages {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	r.stages = nil
	return errs.ret()
}

// LoadFile implements bounce.Loader.
func (r *Rack) LoadFile(path string) error {
	if r.host == nil {
		return r.fail(ErrNotInstantiated)
	}
	ext := strings.ToLower(filepath.Ext(path))
	load, ok := r.fileLoaders[ext]
	if !ok {
		return r.fail(fmt.Errorf("%w: %q", ErrUnknownExtension, ext))
	}
	s, err := load(r.host, path)
	if err != nil {
		return r.fail(err)
	}
	r.add(s)
	return nil
}

// LoadPlugin implements bounce.Loader.
func (r *Rack) LoadPlugin(id string) error {
	if r.host == nil {
		return r.fail(ErrNotInstantiated)
	}
	for _, load := range r.pluginLoaders {
		s, err := load(r.host, id)
		if errors.Is(err, ErrUnknownPlugin) {
			continue
		}
		if err != nil {
			return r.fail(err)
		}
		r.add(s)
		return nil
	}
	return r.fail(fmt.Errorf("%w: %s", ErrUnknownPlugin, id))
}

func (r *Rack) add(s Stage) {
	if a, ok := s.(Activator); ok && r.active {
		a.Activate()
	}
	r.stages = append(r.stages, s)
}

// SetCustomData implements bounce.Loader.
func (r *Rack) SetCustomData(kind, key, value string) error {
	if len(r.stages) == 0 {
		return r.fail(ErrNoStage)
	}
	s := r.stages[len(r.stages)-1]
	setter, ok := s.(CustomDataSetter)
	if !ok {
		return r.fail(fmt.Errorf("%w: %s doesn't accept custom data", ErrNotSupported, s.Name()))
	}
	if err := setter.SetCustomData(kind, key, value); err != nil {
		return r.fail(err)
	}
	return nil
}

// LastError implements bounce.Loader.
func (r *Rack) LastError() string {
	return r.lastErr
}

func (r *Rack) fail(err error) error {
	r.lastErr = err.Error()
	return err
}

// Length implements bounce.LengthReporter. It returns the length parameter
// of the most recently loaded stage.
func (r *Rack) Length() (float64, bool) {
	if len(r.stages) == 0 {
		return 0, false
	}
	p, ok := r.stages[len(r.stages)-1].(Parameterized)
	if !ok {
		return 0, false
	}
	return p.Parameter(ParameterLength)
}

// closeErrors wraps errors that might occur when multiple stages are closed.
type closeErrors []error

func (e closeErrors) Error() string {
	s := []string{}
	for _, se := range e {
		s = append(s, se.Error())
	}
	return strings.Join(s, ",")
}

// Unwrap allows to match any of wrapped errors.
func (e closeErrors) Unwrap() []error {
	return e
}

// ret returns untyped nil if error is list is empty.
func (e closeErrors) ret() error {
	if len(e) > 0 {
		return e
	}
	return nil
}
