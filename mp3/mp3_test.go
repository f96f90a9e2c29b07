package mp3_test

import (
	"math"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dudk/bounce/mp3"
)

func TestMp3(t *testing.T) {
	const (
		sampleRate = 44100
		bufferSize = 512
		buffers    = 100
	)
	path := filepath.Join(t.TempDir(), "out.mp3")
	s, err := mp3.NewSink(path, 2, sampleRate, 0, 0)
	assert.NoError(t, err)

	buf := make([]float32, 2*bufferSize)
	for i := 0; i < buffers; i++ {
		for j := 0; j < bufferSize; j++ {
			v := float32(0.5 * math.Sin(2*math.Pi*440*float64(i*bufferSize+j)/sampleRate))
			buf[2*j], buf[2*j+1] = v, v
		}
		assert.NoError(t, s.Write(buf))
	}
	assert.NoError(t, s.Close())

	decoded, err := mp3.ReadFile(path)
	assert.NoError(t, err)
	assert.Equal(t, sampleRate, decoded.SampleRate)
	assert.Equal(t, 2, decoded.NumChannels)
	assert.Greater(t, decoded.Frames(), 0)
	for _, v := range decoded.Data {
		assert.LessOrEqual(t, math.Abs(float64(v)), 1.0)
	}
}

func TestDecodeInvalid(t *testing.T) {
	_, err := mp3.Decode(strings.NewReader(""))
	assert.Error(t, err)

	_, err = mp3.ReadFile(filepath.Join(t.TempDir(), "missing.mp3"))
	assert.Error(t, err)
}
