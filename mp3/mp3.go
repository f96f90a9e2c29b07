// Package mp3 allows to render into mp3 files with lame and to decode them.
package mp3

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"

	"github.com/hajimehoshi/go-mp3"
	"github.com/viert/lame"

	"github.com/dudk/bounce/signal"
)

const (
	// DefaultBitRate is used when sink bit rate is not set.
	DefaultBitRate = 192
	// DefaultQuality is used when sink quality is not set.
	DefaultQuality = 2
)

// Sink allows to send data to mp3 files.
type Sink struct {
	f    *os.File
	wr   *lame.LameWriter
	ints []int
	buf  bytes.Buffer
}

// NewSink creates the file and initializes lame encoder. Zero bit rate and
// quality are replaced with defaults.
func NewSink(path string, numChannels, sampleRate, bitRate, quality int) (*Sink, error) {
	if bitRate == 0 {
		bitRate = DefaultBitRate
	}
	if quality == 0 {
		quality = DefaultQuality
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	wr := lame.NewWriter(f)
	wr.Encoder.SetBitrate(bitRate)
	wr.Encoder.SetQuality(quality)
	wr.Encoder.SetNumChannels(numChannels)
	wr.Encoder.SetInSamplerate(sampleRate)
	wr.Encoder.SetMode(lame.JOINT_STEREO)
	wr.Encoder.SetVBR(lame.VBR_RH)
	wr.Encoder.InitParams()
	return &Sink{
		f:  f,
		wr: wr,
	}, nil
}

// Write encodes interleaved samples as 16 bit ints.
func (s *Sink) Write(interleaved []float32) error {
	s.ints = signal.AsInterInt(s.ints, interleaved, signal.BitDepth16)
	s.buf.Reset()
	for i := range s.ints {
		if err := binary.Write(&s.buf, binary.LittleEndian, int16(s.ints[i])); err != nil {
			return err
		}
	}
	if _, err := s.wr.Write(s.buf.Bytes()); err != nil {
		return err
	}
	return nil
}

// Close flushes encoder and closes the file.
func (s *Sink) Close() error {
	if err := s.wr.Close(); err != nil {
		s.f.Close()
		return err
	}
	return s.f.Close()
}

// ReadFile decodes the whole mp3 file.
func ReadFile(path string) (signal.Interleaved, error) {
	f, err := os.Open(path)
	if err != nil {
		return signal.Interleaved{}, err
	}
	defer f.Close()
	return Decode(f)
}

// Decode reads the whole mp3 stream. Decoder always provides 16 bit stereo.
func Decode(r io.Reader) (signal.Interleaved, error) {
	d, err := mp3.NewDecoder(r)
	if err != nil {
		return signal.Interleaved{}, err
	}
	data, err := io.ReadAll(d)
	if err != nil {
		return signal.Interleaved{}, err
	}
	ints := make([]int, len(data)/2)
	for i := range ints {
		ints[i] = int(int16(binary.LittleEndian.Uint16(data[2*i:])))
	}
	// drop incomplete frame
	ints = ints[:len(ints)-len(ints)%2]
	return signal.Interleaved{
		Data:        signal.AsFloat32(nil, ints, signal.BitDepth16),
		NumChannels: 2,
		SampleRate:  d.SampleRate(),
	}, nil
}
