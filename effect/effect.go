// Package effect provides native stages backed by algo-dsp: effects which
// process the previous stage output and generators which produce signal at
// the transport position. Stages are loaded by identifier, parameters are
// set with string custom data in key=value form.
package effect

import (
	"errors"
	"fmt"
	"maps"
	"sort"
	"strconv"
	"strings"

	"github.com/cwbudde/algo-dsp/dsp/effectchain"

	"github.com/dudk/bounce"
	"github.com/dudk/bounce/rack"
)

// ErrUnknownParameter is returned when parameter is not supported by stage.
var ErrUnknownParameter = errors.New("unknown parameter")

// Registry resolves effect identifiers.
var Registry = effectchain.DefaultRegistry()

// effectIDs lists identifiers of the default registry which work without
// external resources. Convolution reverb needs impulse responses and
// biquad filters need a designer, so only the moog filter is listed.
var effectIDs = []string{
	"bass",
	"bitcrusher",
	"chorus",
	"delay",
	"delay-simple",
	"dist-cheb",
	"distortion",
	"dyn-compressor",
	"dyn-deesser",
	"dyn-expander",
	"dyn-gate",
	"dyn-limiter",
	"dyn-lookahead",
	"dyn-multiband",
	"dyn-transient",
	"filter-moog",
	"flanger",
	"granular",
	"phaser",
	"pitch-spectral",
	"pitch-time",
	"reverb",
	"reverb-fdn",
	"reverb-freeverb",
	"ringmod",
	"spectral-freeze",
	"transformer",
	"tremolo",
	"vocoder",
	"widener",
}

// aliases are short names of registry identifiers.
var aliases = map[string]string{
	"compressor": "dyn-compressor",
	"freeverb":   "reverb-freeverb",
	"gate":       "dyn-gate",
	"limiter":    "dyn-limiter",
}

// IDs returns sorted identifiers of all native stages.
func IDs() []string {
	ids := make([]string, 0, len(effectIDs)+len(aliases)+len(generators))
	ids = append(ids, effectIDs...)
	for id := range aliases {
		ids = append(ids, id)
	}
	for id := range generators {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Load implements rack.PluginLoader. Identifiers are case-insensitive.
func Load(host bounce.Host, id string) (rack.Stage, error) {
	id = strings.ToLower(id)
	if fn, ok := generators[id]; ok {
		g, err := fn(host)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}
		return g, nil
	}
	e, err := New(id, float64(host.SampleRate()))
	if err != nil {
		return nil, err
	}
	return e, nil
}

// Effect runs a registry effect on each channel with its own runtime.
// Parameters are shared by both channels.
type Effect struct {
	name     string
	ctx      effectchain.Context
	params   effectchain.Params
	runtimes [bounce.Channels]effectchain.Runtime
	buffers  [bounce.Channels][]float64
}

// New creates effect by registry identifier or alias. It returns
// rack.ErrUnknownPlugin if the identifier is not registered.
func New(id string, sampleRate float64) (*Effect, error) {
	name := id
	if alias, ok := aliases[id]; ok {
		id = alias
	}
	factory := Registry.Lookup(id)
	if factory == nil {
		return nil, rack.ErrUnknownPlugin
	}
	e := Effect{
		name: name,
		ctx:  effectchain.Context{SampleRate: sampleRate},
		params: effectchain.Params{
			ID:   name,
			Type: id,
			Num:  make(map[string]float64),
			Str:  make(map[string]string),
		},
	}
	for c := range e.runtimes {
		rt, err := factory(e.ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		e.runtimes[c] = rt
	}
	if err := e.configure(e.params); err != nil {
		return nil, err
	}
	return &e, nil
}

func (e *Effect) configure(p effectchain.Params) error {
	for _, rt := range e.runtimes {
		if err := rt.Configure(e.ctx, p); err != nil {
			return fmt.Errorf("%s: %w", e.name, err)
		}
	}
	return nil
}

// apply configures runtimes with updated parameters. Previous parameters
// are restored if configuration fails.
func (e *Effect) apply(update func(p *effectchain.Params)) error {
	next := e.params
	next.Num = maps.Clone(e.params.Num)
	next.Str = maps.Clone(e.params.Str)
	update(&next)
	if err := e.configure(next); err != nil {
		// previous parameters were accepted before
		_ = e.configure(e.params)
		return err
	}
	e.params = next
	return nil
}

// Name implements rack.Stage.
func (e *Effect) Name() string {
	return e.name
}

// Process implements rack.Stage.
func (e *Effect) Process(in, out [][]float32, frames int) {
	for c, rt := range e.runtimes {
		if cap(e.buffers[c]) < frames {
			e.buffers[c] = make([]float64, frames)
		}
		buf := e.buffers[c][:frames]
		for i, v := range in[c][:frames] {
			buf[i] = float64(v)
		}
		rt.Process(buf)
		for i, v := range buf {
			out[c][i] = float32(v)
		}
	}
}

// Close implements rack.Stage.
func (e *Effect) Close() error {
	return nil
}

// Parameter implements rack.Parameterized. Only values set explicitly are
// reported.
func (e *Effect) Parameter(name string) (float64, bool) {
	v, ok := e.params.Num[name]
	return v, ok
}

// SetParameter implements rack.Parameterized. Values out of range are
// clamped by the effect.
func (e *Effect) SetParameter(name string, value float64) error {
	return e.apply(func(p *effectchain.Params) {
		p.Num[name] = value
	})
}

// Option returns string parameter, e.g. reverb model.
func (e *Effect) Option(name string) (string, bool) {
	v, ok := e.params.Str[name]
	return v, ok
}

// SetCustomData implements rack.CustomDataSetter. String data is parsed as
// key=value pair. Numeric values set parameters, others set options.
func (e *Effect) SetCustomData(kind, key, value string) error {
	key, value, err := parseCustomData(kind, key, value)
	if err != nil {
		return err
	}
	if v, err := strconv.ParseFloat(value, 64); err == nil {
		return e.SetParameter(key, v)
	}
	return e.apply(func(p *effectchain.Params) {
		p.Str[key] = value
	})
}

// parseCustomData returns trimmed key and value. Key can be either the
// parameter name or empty with value in key=value form.
func parseCustomData(kind, key, value string) (string, string, error) {
	if kind != bounce.CustomDataString {
		return "", "", fmt.Errorf("%w: %s custom data", rack.ErrNotSupported, kind)
	}
	if key == "" {
		var ok bool
		if key, value, ok = strings.Cut(value, "="); !ok {
			return "", "", fmt.Errorf("invalid parameter %q: expected key=value", value)
		}
	}
	key, value = strings.TrimSpace(key), strings.TrimSpace(value)
	if key == "" {
		return "", "", fmt.Errorf("invalid parameter: empty name")
	}
	return key, value, nil
}

// setCustomData parses numeric parameter from custom data.
func setCustomData(p rack.Parameterized, kind, key, value string) error {
	key, value, err := parseCustomData(kind, key, value)
	if err != nil {
		return err
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid value of %s: %w", key, err)
	}
	return p.SetParameter(key, v)
}
