// Package audiofile provides the audio file player stage. It decodes the
// whole file on load, resamples it to the host sample rate and plays it at
// the transport position.
package audiofile

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dh1tw/gosamplerate"

	"github.com/dudk/bounce"
	"github.com/dudk/bounce/aiff"
	"github.com/dudk/bounce/mp3"
	"github.com/dudk/bounce/rack"
	"github.com/dudk/bounce/signal"
	"github.com/dudk/bounce/wav"
)

const (
	// Name of the stage.
	Name = "Audio File"
	// ParameterLoopMode enables looping of the file when set to 1.
	ParameterLoopMode = "Loop Mode"
	// CustomDataFile is the custom data key which replaces the file.
	CustomDataFile = "file"
)

// Extensions lists supported file extensions.
var Extensions = []string{".wav", ".aif", ".aiff", ".mp3"}

// ErrUnknownParameter is returned when parameter is not supported.
var ErrUnknownParameter = errors.New("unknown parameter")

// ConverterType is the gosamplerate converter used for resampling.
var ConverterType = gosamplerate.SRC_SINC_MEDIUM_QUALITY

// Player plays the audio file. It's always stereo: mono files are played in
// both channels, extra channels are dropped.
type Player struct {
	host   bounce.Host
	path   string
	left   []float32
	right  []float32
	looped bool
}

// Load implements rack.FileLoader.
func Load(host bounce.Host, path string) (rack.Stage, error) {
	p, err := New(host, path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// New decodes the file and returns a player. Loop mode is off.
func New(host bounce.Host, path string) (*Player, error) {
	p := Player{host: host}
	if err := p.open(path); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Player) open(path string) error {
	s, err := ReadFile(path)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	if s.NumChannels < 1 {
		return fmt.Errorf("%s: invalid number of channels: %d", path, s.NumChannels)
	}
	if sr := p.host.SampleRate(); s.SampleRate != sr && s.Frames() > 0 {
		if s, err = Resample(s, sr); err != nil {
			return fmt.Errorf("%s: %w", path, err)
		}
	}
	frames := s.Frames()
	left, right := make([]float32, frames), make([]float32, frames)
	for i := 0; i < frames; i++ {
		left[i] = s.Data[i*s.NumChannels]
		if s.NumChannels > 1 {
			right[i] = s.Data[i*s.NumChannels+1]
		} else {
			right[i] = left[i]
		}
	}
	p.path, p.left, p.right, p.looped = path, left, right, false
	return nil
}

// ReadFile decodes the file by its extension.
func ReadFile(path string) (signal.Interleaved, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		return wav.ReadFile(path)
	case ".aif", ".aiff":
		return aiff.ReadFile(path)
	case ".mp3":
		return mp3.ReadFile(path)
	}
	return signal.Interleaved{}, fmt.Errorf("%w: %s", rack.ErrUnknownExtension, filepath.Ext(path))
}

// Resample converts the signal to provided sample rate.
func Resample(s signal.Interleaved, sampleRate int) (signal.Interleaved, error) {
	ratio := float64(sampleRate) / float64(s.SampleRate)
	if !gosamplerate.IsValidRatio(ratio) {
		return signal.Interleaved{}, fmt.Errorf("invalid resample ratio %v", ratio)
	}
	data, err := gosamplerate.Simple(s.Data, ratio, s.NumChannels, ConverterType)
	if err != nil {
		return signal.Interleaved{}, err
	}
	return signal.Interleaved{
		Data:        data,
		NumChannels: s.NumChannels,
		SampleRate:  sampleRate,
	}, nil
}

// Name implements rack.Stage.
func (p *Player) Name() string {
	return Name
}

// Path returns path of the loaded file.
func (p *Player) Path() string {
	return p.path
}

// Process implements rack.Stage. Output is silent when transport is stopped
// or the position is past the end of file.
func (p *Player) Process(_, out [][]float32, frames int) {
	pos := p.host.Position()
	left, right := out[0][:frames], out[1][:frames]
	if !pos.Playing || len(p.left) == 0 {
		clear(left)
		clear(right)
		return
	}
	length := uint64(len(p.left))
	for i := range left {
		frame := pos.Frame + uint64(i)
		if p.looped {
			frame %= length
		}
		if frame >= length {
			left[i], right[i] = 0, 0
			continue
		}
		left[i], right[i] = p.left[frame], p.right[frame]
	}
}

// Close implements rack.Stage.
func (p *Player) Close() error {
	p.left, p.right = nil, nil
	return nil
}

// Parameter implements rack.Parameterized.
func (p *Player) Parameter(name string) (float64, bool) {
	switch name {
	case rack.ParameterLength:
		return float64(len(p.left)) / float64(p.host.SampleRate()), true
	case ParameterLoopMode:
		if p.looped {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

// SetParameter implements rack.Parameterized.
func (p *Player) SetParameter(name string, value float64) error {
	switch name {
	case ParameterLoopMode:
		p.looped = value >= 0.5
		return nil
	}
	return fmt.Errorf("%w: %s", ErrUnknownParameter, name)
}

// SetCustomData implements rack.CustomDataSetter. Path custom data with key
// "file" replaces the played file.
func (p *Player) SetCustomData(kind, key, value string) error {
	if kind != bounce.CustomDataPath || key != CustomDataFile {
		return fmt.Errorf("%w: %s custom data %q", rack.ErrNotSupported, kind, key)
	}
	return p.open(value)
}
