package vst2

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/bounce"
)

func TestTimeInfo(t *testing.T) {
	tests := []struct {
		name   string
		meter  bounce.Meter
		bar    int32
		beat   int32
		tick   float64
		ppq    float64
		barPos float64
	}{
		{name: "start", meter: bounce.DefaultMeter, bar: 1, beat: 1},
		{name: "second beat", meter: bounce.DefaultMeter, bar: 1, beat: 2, ppq: 1},
		{name: "half beat", meter: bounce.DefaultMeter, bar: 2, beat: 3, tick: 960, ppq: 6.5, barPos: 4},
		{
			name:   "six eighths",
			meter:  bounce.Meter{BeatsPerBar: 6, BeatType: 8, TicksPerBeat: 1920, BeatsPerMinute: 120},
			bar:    3,
			beat:   2,
			ppq:    6.5,
			barPos: 6,
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			ti := timeInfoOf(bounce.Position{
				BBT: bounce.BBT{
					Meter: test.meter,
					Valid: true,
					Bar:   test.bar,
					Beat:  test.beat,
					Tick:  test.tick,
				},
			})
			assert.InDelta(t, test.ppq, ti.ppqPos, 1e-9)
			assert.InDelta(t, test.barPos, ti.barStartPos, 1e-9)
			assert.Equal(t, test.meter.BeatsPerMinute, ti.tempo)
			assert.Equal(t, test.meter.BeatsPerBar, ti.notesPerBar)
			assert.EqualValues(t, test.meter.BeatsPerBar, ti.timeSignature().NotesPerBar)
		})
	}
	assert.Equal(t, timeInfo{}, timeInfoOf(bounce.Position{}))
}

func TestWithin(t *testing.T) {
	tests := []struct {
		path     string
		root     string
		expected bool
	}{
		{path: "/usr/lib/vst/Reverb.so", root: "/usr/lib/vst", expected: true},
		{path: "/usr/lib/vst/nested/Reverb.so", root: "/usr/lib/vst/", expected: true},
		{path: "/usr/lib/vst3/Reverb.so", root: "/usr/lib/vst"},
		{path: "/usr/lib/Reverb.so", root: "/usr/lib/vst"},
		{path: "/usr/lib/vst..so", root: "/usr/lib/vst"},
	}
	for _, test := range tests {
		t.Run(test.path, func(t *testing.T) {
			assert.Equal(t, test.expected, within(test.path, test.root))
		})
	}
}
