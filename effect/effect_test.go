package effect_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/bounce"
	"github.com/dudk/bounce/effect"
	"github.com/dudk/bounce/rack"
)

const sampleRate = 48000

type host struct {
	bounce.Host
	position bounce.Position
}

func (h *host) SampleRate() int           { return sampleRate }
func (h *host) Position() bounce.Position { return h.position }

func impulse(frames int) [][]float32 {
	in := [][]float32{make([]float32, frames), make([]float32, frames)}
	in[0][0], in[1][0] = 1, 1
	return in
}

func energy(out [][]float32) float64 {
	var sum float64
	for _, ch := range out {
		for _, v := range ch {
			sum += float64(v) * float64(v)
		}
	}
	return sum
}

func TestLoad(t *testing.T) {
	h := &host{}
	for _, id := range effect.IDs() {
		t.Run(id, func(t *testing.T) {
			s, err := effect.Load(h, id)
			assert.NoError(t, err)
			assert.Equal(t, id, s.Name())

			out := [][]float32{make([]float32, 256), make([]float32, 256)}
			s.Process(impulse(256), out, 256)
			for _, ch := range out {
				for _, v := range ch {
					assert.False(t, math.IsNaN(float64(v)))
				}
			}
			assert.NoError(t, s.Close())
		})
	}

	s, err := effect.Load(h, "REVERB")
	assert.NoError(t, err)
	assert.Equal(t, "reverb", s.Name())

	_, err = effect.Load(h, "vst-thing")
	assert.ErrorIs(t, err, rack.ErrUnknownPlugin)
}

func TestReverbTail(t *testing.T) {
	s, err := effect.Load(&host{}, "reverb-fdn")
	assert.NoError(t, err)
	e := s.(*effect.Effect)
	assert.NoError(t, e.SetCustomData(bounce.CustomDataString, "", "wet=1"))
	assert.NoError(t, e.SetCustomData(bounce.CustomDataString, "dry", "0"))
	wet, ok := e.Parameter("wet")
	assert.True(t, ok)
	assert.Equal(t, 1.0, wet)

	e.Process(impulse(256), [][]float32{make([]float32, 256), make([]float32, 256)}, 256)
	// input is silent, but the reverb still rings
	silence := [][]float32{make([]float32, 4800), make([]float32, 4800)}
	out := [][]float32{make([]float32, 4800), make([]float32, 4800)}
	e.Process(silence, out, 4800)
	assert.Greater(t, energy(out), 0.0)
}

func TestParameters(t *testing.T) {
	s, err := effect.Load(&host{}, "delay")
	assert.NoError(t, err)
	e := s.(*effect.Effect)

	_, ok := e.Parameter("time")
	assert.False(t, ok)
	assert.NoError(t, e.SetParameter("time", 0.25))
	v, ok := e.Parameter("time")
	assert.True(t, ok)
	assert.Equal(t, 0.25, v)

	assert.ErrorIs(t, e.SetCustomData(bounce.CustomDataPath, "file", "a.wav"), rack.ErrNotSupported)
	assert.Error(t, e.SetCustomData(bounce.CustomDataString, "", "time"))
	assert.Error(t, e.SetCustomData(bounce.CustomDataString, "", "=1"))
	assert.NoError(t, e.SetCustomData(bounce.CustomDataString, "", " mix = 0.5 "))
	v, ok = e.Parameter("mix")
	assert.True(t, ok)
	assert.Equal(t, 0.5, v)

	r, err := effect.Load(&host{}, "reverb")
	assert.NoError(t, err)
	reverb := r.(*effect.Effect)
	assert.NoError(t, reverb.SetCustomData(bounce.CustomDataString, "model", "fdn"))
	model, ok := reverb.Option("model")
	assert.True(t, ok)
	assert.Equal(t, "fdn", model)
	_, ok = reverb.Parameter("model")
	assert.False(t, ok)
}

func TestAliases(t *testing.T) {
	tests := []string{"compressor", "freeverb", "gate", "limiter"}
	for _, id := range tests {
		t.Run(id, func(t *testing.T) {
			s, err := effect.Load(&host{}, id)
			assert.NoError(t, err)
			assert.Equal(t, id, s.Name())
			assert.Contains(t, effect.IDs(), id)
		})
	}
}

func TestChannelsAreIndependent(t *testing.T) {
	s, err := effect.Load(&host{}, "delay")
	assert.NoError(t, err)
	in := [][]float32{make([]float32, 4800), make([]float32, 4800)}
	in[0][0] = 1
	out := [][]float32{make([]float32, 4800), make([]float32, 4800)}
	for i := 0; i < 10; i++ {
		s.Process(in, out, 4800)
		in[0][0] = 0
		assert.Equal(t, make([]float32, 4800), out[1])
	}
}

func TestGenerator(t *testing.T) {
	h := &host{position: bounce.Position{Playing: true}}
	s, err := effect.Load(h, "sine")
	assert.NoError(t, err)
	g := s.(*effect.Generator)
	assert.NoError(t, g.SetCustomData(bounce.CustomDataString, "", "frequency=1000"))
	assert.NoError(t, g.SetParameter("amplitude", 1))

	out := [][]float32{make([]float32, 48), make([]float32, 48)}
	g.Process(nil, out, 48)
	assert.Equal(t, out[0], out[1])
	assert.InDelta(t, 0, out[0][0], 1e-6)
	assert.InDelta(t, 1, out[0][12], 1e-6)

	// table loops seamlessly after one second
	h.position.Frame = sampleRate
	next := [][]float32{make([]float32, 48), make([]float32, 48)}
	g.Process(nil, next, 48)
	assert.InDeltaSlice(t, out[0], next[0], 1e-6)

	h.position.Playing = false
	g.Process(nil, out, 48)
	assert.Equal(t, make([]float32, 48), out[0])

	_, ok := g.Parameter(rack.ParameterLength)
	assert.False(t, ok)
	assert.Error(t, g.SetParameter("frequency", sampleRate))
	assert.Error(t, g.SetParameter("amplitude", 2))
	assert.ErrorIs(t, g.SetParameter("length", 1), effect.ErrUnknownParameter)

	noise, err := effect.Load(h, "noise")
	assert.NoError(t, err)
	_, ok = noise.(rack.Parameterized).Parameter("frequency")
	assert.False(t, ok)
}

func TestNoiseDoesNotRepeat(t *testing.T) {
	h := &host{position: bounce.Position{Playing: true}}
	s, err := effect.Load(h, "noise")
	assert.NoError(t, err)

	render := func(frame uint64) []float32 {
		h.position.Frame = frame
		out := [][]float32{make([]float32, 256), make([]float32, 256)}
		s.Process(nil, out, 256)
		assert.Equal(t, out[0], out[1])
		return out[0]
	}
	first := render(0)
	assert.NotEqual(t, make([]float32, 256), first)
	assert.NotEqual(t, first, render(sampleRate))
	assert.NotEqual(t, first, render(5*sampleRate))
	// same position gives the same noise
	assert.Equal(t, first, render(0))

	// block crossing the second boundary
	h.position.Frame = sampleRate - 128
	out := [][]float32{make([]float32, 256), make([]float32, 256)}
	s.Process(nil, out, 256)
	assert.Equal(t, render(sampleRate)[:128], out[0][128:])
}
