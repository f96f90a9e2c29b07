// Package wav allows to render into wav files and to decode them.
package wav

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/dudk/bounce/signal"
)

// ErrUnsupportedBitDepth is returned when unsupported bit depth is used.
var ErrUnsupportedBitDepth = errors.New("only 16, 24 and 32 bit depth is supported")

// ErrInvalidFile is returned when wav header cannot be parsed.
var ErrInvalidFile = errors.New("wav is not valid")

const formatPCM = 1

// Sink saves interleaved signal to wav file. Samples are clipped and
// converted to ints of the sink's bit depth.
type Sink struct {
	bitDepth signal.BitDepth
	file     *os.File
	encoder  *wav.Encoder
	ib       *audio.IntBuffer
}

// Supported returns true if wav sink can write with provided bit depth.
func Supported(bitDepth signal.BitDepth) bool {
	return bitDepth == signal.BitDepth16 || bitDepth == signal.BitDepth24 || bitDepth == signal.BitDepth32
}

// NewSink creates the file and returns a sink writing into it.
func NewSink(path string, numChannels, sampleRate int, bitDepth signal.BitDepth) (*Sink, error) {
	if !Supported(bitDepth) {
		return nil, ErrUnsupportedBitDepth
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &Sink{
		bitDepth: bitDepth,
		file:     f,
		encoder:  wav.NewEncoder(f, sampleRate, int(bitDepth), numChannels, formatPCM),
		ib: &audio.IntBuffer{
			Format: &audio.Format{
				NumChannels: numChannels,
				SampleRate:  sampleRate,
			},
			SourceBitDepth: int(bitDepth),
		},
	}, nil
}

// Write encodes interleaved samples.
func (s *Sink) Write(interleaved []float32) error {
	s.ib.Data = signal.AsInterInt(s.ib.Data, interleaved, s.bitDepth)
	return s.encoder.Write(s.ib)
}

// Close finalizes wav header and closes the file.
func (s *Sink) Close() error {
	if err := s.encoder.Close(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// ReadFile decodes the whole wav file.
func ReadFile(path string) (signal.Interleaved, error) {
	f, err := os.Open(path)
	if err != nil {
		return signal.Interleaved{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads the whole wav stream and converts it to floats.
func Decode(r io.ReadSeeker) (signal.Interleaved, error) {
	decoder := wav.NewDecoder(r)
	if !decoder.IsValidFile() {
		return signal.Interleaved{}, ErrInvalidFile
	}
	bitDepth := signal.BitDepth(decoder.BitDepth)
	if !Supported(bitDepth) {
		return signal.Interleaved{}, fmt.Errorf("%w: %d", ErrUnsupportedBitDepth, bitDepth)
	}
	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return signal.Interleaved{}, err
	}
	return signal.Interleaved{
		Data:        signal.AsFloat32(nil, buf.Data, bitDepth),
		NumChannels: int(decoder.NumChans),
		SampleRate:  int(decoder.SampleRate),
	}, nil
}
