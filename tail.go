package bounce

import (
	"fmt"
	"math"
	"strings"
	"time"
)

// TailMode defines what happens after the nominal duration is rendered.
type TailMode int

const (
	// TailNone stops the render right after the main pass.
	TailNone TailMode = iota
	// TailUntilSilence keeps rendering with stopped transport until the
	// output decays to silence or the tail ceiling is reached.
	TailUntilSilence
	// TailLoop is reserved and currently behaves like TailNone.
	TailLoop
)

// DefaultTailCeiling is the maximum duration of the until-silence tail.
const DefaultTailCeiling = 5 * time.Second

// Float32Epsilon is the difference between 1 and the next float32 value.
const Float32Epsilon = 1.1920929e-07

func (m TailMode) String() string {
	switch m {
	case TailNone:
		return "none"
	case TailUntilSilence:
		return "silence"
	case TailLoop:
		return "loop"
	}
	return fmt.Sprintf("tail(%d)", int(m))
}

// ParseTailMode returns tail mode by its name.
func ParseTailMode(s string) (TailMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return TailNone, nil
	case "silence", "until-silence":
		return TailUntilSilence, nil
	case "loop":
		return TailLoop, nil
	}
	return TailNone, fmt.Errorf("unknown tail mode: %q", s)
}

// SilenceDetector decides if the tail render can stop. It receives the
// channel buffers of the frames just written.
type SilenceDetector interface {
	Silent(left, right []float32) bool
}

// Resetter is implemented by stateful detectors. Reset is called before each
// tail pass.
type Resetter interface {
	Reset()
}

// LastSample reports silence when the magnitude of the last sample in the
// left channel is below the threshold.
type LastSample struct {
	Threshold float32
}

// Silent implements SilenceDetector.
func (d LastSample) Silent(left, _ []float32) bool {
	if len(left) == 0 {
		return true
	}
	v := left[len(left)-1]
	return v < d.Threshold && v > -d.Threshold
}

// RMS reports silence after Hold consecutive buffers have root mean square
// below the threshold in both channels.
type RMS struct {
	Threshold float64
	Hold      int

	quiet int
}

// Silent implements SilenceDetector.
func (d *RMS) Silent(left, right []float32) bool {
	if rms(left) < d.Threshold && rms(right) < d.Threshold {
		d.quiet++
	} else {
		d.quiet = 0
	}
	hold := d.Hold
	if hold < 1 {
		hold = 1
	}
	return d.quiet >= hold
}

// Reset implements Resetter.
func (d *RMS) Reset() {
	d.quiet = 0
}

func rms(s []float32) float64 {
	if len(s) == 0 {
		return 0
	}
	var sum float64
	for _, v := range s {
		sum += float64(v) * float64(v)
	}
	return math.Sqrt(sum / float64(len(s)))
}
