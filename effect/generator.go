package effect

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/core"
	dspsignal "github.com/cwbudde/algo-dsp/dsp/signal"

	"github.com/dudk/bounce"
	"github.com/dudk/bounce/rack"
)

const (
	defaultFrequency = 440
	defaultAmplitude = 0.5
)

var generators = map[string]func(bounce.Host) (*Generator, error){
	"sine":  newSine,
	"noise": newNoise,
}

// Generator is a source stage. It plays one second tables generated with
// algo-dsp at the transport position and outputs silence when transport is
// stopped. Sine frequency is rounded to whole hertz, so the sine table loops
// seamlessly. Noise table is regenerated for every second of the transport
// with the second as a seed, so noise doesn't repeat.
type Generator struct {
	name      string
	host      bounce.Host
	frequency float64
	amplitude float64
	table     []float32
	// second of the transport the table is generated for.
	second uint64
}

func newGenerator(name string, host bounce.Host) *Generator {
	return &Generator{
		name:      name,
		host:      host,
		frequency: defaultFrequency,
		amplitude: defaultAmplitude,
	}
}

func newSine(host bounce.Host) (*Generator, error) {
	g := newGenerator("sine", host)
	return g, g.generate()
}

func newNoise(host bounce.Host) (*Generator, error) {
	g := newGenerator("noise", host)
	return g, g.generate()
}

func (g *Generator) generate() error {
	var (
		samples []float64
		err     error
	)
	n := g.host.SampleRate()
	coreOpts := []core.ProcessorOption{core.WithSampleRate(float64(n))}
	switch g.name {
	case "sine":
		samples, err = dspsignal.NewGenerator(coreOpts...).Sine(g.frequency, g.amplitude, n)
	default:
		gen := dspsignal.NewGeneratorWithOptions(coreOpts, dspsignal.WithSeed(int64(g.second)+1))
		samples, err = gen.WhiteNoise(g.amplitude, n)
	}
	if err != nil {
		return err
	}
	table := make([]float32, len(samples))
	for i, v := range samples {
		table[i] = float32(v)
	}
	g.table = table
	return nil
}

// Name implements rack.Stage.
func (g *Generator) Name() string {
	return g.name
}

// Process implements rack.Stage.
func (g *Generator) Process(_, out [][]float32, frames int) {
	pos := g.host.Position()
	left, right := out[0][:frames], out[1][:frames]
	if !pos.Playing || len(g.table) == 0 {
		clear(left)
		clear(right)
		return
	}
	length := uint64(len(g.table))
	for i := range left {
		frame := pos.Frame + uint64(i)
		if second := frame / length; g.name == "noise" && second != g.second {
			g.second = second
			if err := g.generate(); err != nil {
				clear(left[i:])
				clear(right[i:])
				return
			}
		}
		v := g.table[frame%length]
		left[i], right[i] = v, v
	}
}

// Close implements rack.Stage.
func (g *Generator) Close() error {
	g.table = nil
	return nil
}

// Parameter implements rack.Parameterized.
func (g *Generator) Parameter(name string) (float64, bool) {
	switch name {
	case "frequency":
		if g.name == "sine" {
			return g.frequency, true
		}
	case "amplitude":
		return g.amplitude, true
	}
	return 0, false
}

// SetParameter implements rack.Parameterized.
func (g *Generator) SetParameter(name string, value float64) error {
	switch {
	case name == "frequency" && g.name == "sine":
		if value <= 0 || value >= float64(g.host.SampleRate())/2 || math.IsNaN(value) {
			return fmt.Errorf("%s frequency out of range: %v", g.name, value)
		}
		g.frequency = math.Round(value)
	case name == "amplitude":
		if value < 0 || value > 1 || math.IsNaN(value) {
			return fmt.Errorf("%s amplitude out of range: %v", g.name, value)
		}
		g.amplitude = value
	default:
		return fmt.Errorf("%w: %s has no parameter %q", ErrUnknownParameter, g.name, name)
	}
	return g.generate()
}

// SetCustomData implements rack.CustomDataSetter.
func (g *Generator) SetCustomData(kind, key, value string) error {
	return setCustomData(g, kind, key, value)
}

var _ rack.Parameterized = (*Generator)(nil)
