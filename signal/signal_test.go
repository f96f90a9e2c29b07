package signal_test

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/bounce/signal"
)

func TestInterleave(t *testing.T) {
	tests := []struct {
		channels [][]float32
		expected []float32
	}{
		{
			channels: [][]float32{{1, 2, 3}, {4, 5, 6}},
			expected: []float32{1, 4, 2, 5, 3, 6},
		},
		{
			channels: [][]float32{{1, 2}},
			expected: []float32{1, 2},
		},
		{
			channels: [][]float32{{}, {}},
			expected: []float32{},
		},
	}

	for _, test := range tests {
		dst := make([]float32, len(test.expected))
		n := signal.Interleave(dst, test.channels...)
		assert.Equal(t, len(test.expected), n)
		assert.Equal(t, test.expected, dst[:n])
	}
	assert.Equal(t, 0, signal.Interleave(nil))
}

func TestDeinterleave(t *testing.T) {
	left, right := make([]float32, 3), make([]float32, 3)
	n := signal.Deinterleave([]float32{1, 4, 2, 5, 3, 6}, left, right)
	assert.Equal(t, 3, n)
	assert.Equal(t, []float32{1, 2, 3}, left)
	assert.Equal(t, []float32{4, 5, 6}, right)
}

func TestClip(t *testing.T) {
	tests := []struct {
		in, expected float32
	}{
		{in: 0.5, expected: 0.5},
		{in: 1.5, expected: 1},
		{in: -3, expected: -1},
		{in: float32(math.NaN()), expected: 0},
		{in: float32(math.Inf(1)), expected: 1},
	}
	for _, test := range tests {
		assert.Equal(t, test.expected, signal.Clip(test.in))
	}
}

func TestAsInterInt(t *testing.T) {
	tests := []struct {
		floats   []float32
		bitDepth signal.BitDepth
		expected []int
	}{
		{
			floats:   []float32{1, -1, 0, 2},
			bitDepth: signal.BitDepth16,
			expected: []int{math.MaxInt16 - 1, -(math.MaxInt16 - 1), 0, math.MaxInt16 - 1},
		},
		{
			floats:   []float32{0.5},
			bitDepth: signal.BitDepth8,
			expected: []int{63},
		},
		{
			floats:   nil,
			bitDepth: signal.BitDepth16,
			expected: nil,
		},
	}
	for _, test := range tests {
		result := signal.AsInterInt(nil, test.floats, test.bitDepth)
		assert.Equal(t, test.expected, result)
	}

	// buffer is reused when capacity allows.
	dst := make([]int, 0, 8)
	result := signal.AsInterInt(dst, []float32{1, 1}, signal.BitDepth16)
	assert.Equal(t, 8, cap(result))
}

func TestAsFloat32(t *testing.T) {
	result := signal.AsFloat32(nil, []int{math.MaxInt16, -math.MaxInt16, 0}, signal.BitDepth16)
	assert.Equal(t, []float32{1, -1, 0}, result)
}

func TestSupported(t *testing.T) {
	assert.True(t, signal.BitDepth24.Supported())
	assert.False(t, signal.BitDepth(12).Supported())
}

func TestDurationOf(t *testing.T) {
	assert.Equal(t, time.Second, signal.DurationOf(48000, 48000))
	assert.Equal(t, 500*time.Millisecond, signal.DurationOf(44100, 22050))
}

func TestInterleaved(t *testing.T) {
	s := signal.Interleaved{
		Data:        make([]float32, 96000),
		NumChannels: 2,
		SampleRate:  48000,
	}
	assert.Equal(t, 48000, s.Frames())
	assert.Equal(t, time.Second, s.Duration())
	assert.Equal(t, 0, signal.Interleaved{Data: []float32{1}}.Frames())
	assert.Equal(t, time.Duration(0), signal.Interleaved{}.Duration())
}
