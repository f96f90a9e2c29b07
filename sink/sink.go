// Package sink opens render destinations by file extension.
package sink

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dudk/bounce"
	"github.com/dudk/bounce/aiff"
	"github.com/dudk/bounce/mp3"
	"github.com/dudk/bounce/signal"
	"github.com/dudk/bounce/wav"
)

// DefaultBitDepth is used for integer containers when bit depth is not set.
const DefaultBitDepth = signal.BitDepth16

// Format is a container of rendered file.
type Format string

// Supported formats.
const (
	Wav  Format = "wav"
	Aiff Format = "aiff"
	Mp3  Format = "mp3"
)

// FormatOf returns format by file extension. Unknown extensions fall back to
// wav.
func FormatOf(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".aif", ".aiff":
		return Aiff
	case ".mp3":
		return Mp3
	}
	return Wav
}

// Config of file sinks.
type Config struct {
	BitDepth signal.BitDepth
	// BitRate and Quality are used by mp3 encoder only.
	BitRate int
	Quality int
}

// Open implements bounce.SinkOpener.
func (c Config) Open(path string, channels, sampleRate int) (bounce.Sink, error) {
	bitDepth := c.BitDepth
	if bitDepth == 0 {
		bitDepth = DefaultBitDepth
	}
	switch f := FormatOf(path); f {
	case Aiff:
		return aiff.NewSink(path, channels, sampleRate, bitDepth)
	case Mp3:
		return mp3.NewSink(path, channels, sampleRate, c.BitRate, c.Quality)
	case Wav:
		return wav.NewSink(path, channels, sampleRate, bitDepth)
	default:
		return nil, fmt.Errorf("unsupported format: %s", f)
	}
}
