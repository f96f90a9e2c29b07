// Package signal provides conversions between the float32 layout used by the
// render engine and the layouts expected by file sinks. It allows to:
//   - interleave and deinterleave channels
//   - clip samples to the nominal range
//   - convert float samples to int samples of certain bit depth and back
package signal

import (
	"math"
	"time"
)

const (
	// BitDepth8 is 8 bit depth.
	BitDepth8 = BitDepth(8)
	// BitDepth16 is 16 bit depth.
	BitDepth16 = BitDepth(16)
	// BitDepth24 is 24 bit depth.
	BitDepth24 = BitDepth(24)
	// BitDepth32 is 32 bit depth.
	BitDepth32 = BitDepth(32)
)

// BitDepth contains values required for int-to-float and backward conversion.
type BitDepth int

// divider is used when int to float conversion is done.
func (bitDepth BitDepth) divider() float32 {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8
	case BitDepth16:
		return math.MaxInt16
	case BitDepth24:
		return 1<<23 - 1
	case BitDepth32:
		return math.MaxInt32
	default:
		return 1
	}
}

// multiplier is used when float to int conversion is done.
func (bitDepth BitDepth) multiplier() float64 {
	switch bitDepth {
	case BitDepth8:
		return math.MaxInt8 - 1
	case BitDepth16:
		return math.MaxInt16 - 1
	case BitDepth24:
		return 1<<23 - 2
	case BitDepth32:
		return math.MaxInt32 - 1
	default:
		return 1
	}
}

// Supported returns true if bit depth is one of the declared constants.
func (bitDepth BitDepth) Supported() bool {
	switch bitDepth {
	case BitDepth8, BitDepth16, BitDepth24, BitDepth32:
		return true
	}
	return false
}

// Clip limits the sample to [-1, 1] range. NaN is clipped to zero.
func Clip(v float32) float32 {
	switch {
	case v != v:
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}

// Interleave writes channels into dst in frame order: for two channels it's
// L, R, L, R... The number of frames is defined by the first channel, dst must
// have capacity for frames*len(channels) samples. Number of written samples is
// returned.
func Interleave(dst []float32, channels ...[]float32) int {
	numChannels := len(channels)
	if numChannels == 0 {
		return 0
	}
	frames := len(channels[0])
	for c, ch := range channels {
		for i := 0; i < frames; i++ {
			dst[i*numChannels+c] = ch[i]
		}
	}
	return frames * numChannels
}

// Deinterleave splits interleaved samples into channels. Channels must have
// capacity for len(src)/len(channels) frames. Number of frames is returned.
func Deinterleave(src []float32, channels ...[]float32) int {
	numChannels := len(channels)
	if numChannels == 0 {
		return 0
	}
	frames := len(src) / numChannels
	for c, ch := range channels {
		for i := 0; i < frames; i++ {
			ch[i] = src[i*numChannels+c]
		}
	}
	return frames
}

// AsInterInt clips and converts interleaved float samples to ints of provided
// bit depth. The dst slice is reused when it has enough capacity.
func AsInterInt(dst []int, floats []float32, bitDepth BitDepth) []int {
	if cap(dst) < len(floats) {
		dst = make([]int, len(floats))
	}
	dst = dst[:len(floats)]

	multiplier := bitDepth.multiplier()
	for i, v := range floats {
		dst[i] = int(float64(Clip(v)) * multiplier)
	}
	return dst
}

// AsFloat32 converts interleaved int samples of provided bit depth to floats.
// The dst slice is reused when it has enough capacity.
func AsFloat32(dst []float32, ints []int, bitDepth BitDepth) []float32 {
	if cap(dst) < len(ints) {
		dst = make([]float32, len(ints))
	}
	dst = dst[:len(ints)]

	divider := bitDepth.divider()
	for i, v := range ints {
		dst[i] = float32(v) / divider
	}
	return dst
}

// DurationOf returns time duration of passed frames for this sample rate.
func DurationOf(sampleRate int, frames int64) time.Duration {
	return time.Duration(float64(frames) / float64(sampleRate) * float64(time.Second))
}

// Interleaved is a decoded signal in frame order.
type Interleaved struct {
	Data        []float32
	NumChannels int
	SampleRate  int
}

// Frames returns number of frames in the signal.
func (s Interleaved) Frames() int {
	if s.NumChannels == 0 {
		return 0
	}
	return len(s.Data) / s.NumChannels
}

// Duration returns time duration of the signal.
func (s Interleaved) Duration() time.Duration {
	if s.SampleRate == 0 {
		return 0
	}
	return DurationOf(s.SampleRate, int64(s.Frames()))
}
