package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"github.com/dudk/bounce"
	"github.com/dudk/bounce/internal/config"
	"github.com/dudk/bounce/signal"
	"github.com/dudk/bounce/vst2"
	"github.com/dudk/bounce/wav"
)

var testConfig = config.Config{
	BufferSize:  256,
	SampleRate:  48000,
	BitDepth:    16,
	BitRate:     192,
	Quality:     2,
	TailCeiling: bounce.DefaultTailCeiling,
}

func TestParseJob(t *testing.T) {
	tests := []struct {
		name   string
		args   []string
		err    error
		failed bool
		check  func(*testing.T, *job)
	}{
		{name: "help", args: []string{"--help"}, err: errHelp},
		{name: "short help", args: []string{"-h"}, err: errHelp},
		{name: "version", args: []string{"--version", "10", "out.wav"}, err: errVersion},
		{name: "missing output", args: []string{"10"}, err: errMissingArgs},
		{name: "unknown flag", args: []string{"-speed", "2", "10", "out.wav"}, failed: true},
		{name: "unknown tail", args: []string{"-tail", "forever", "10", "out.wav"}, failed: true},
		{name: "broken stage", args: []string{"10", "out.wav", "sine", "-c"}, failed: true},
		{
			name: "seconds",
			args: []string{"10", "out.wav", "sine", "-c", "frequency=220", "reverb"},
			check: func(t *testing.T, j *job) {
				assert.False(t, j.isFile)
				assert.Equal(t, 10.0, j.seconds)
				assert.Equal(t, "out.wav", j.output)
				assert.Equal(t, bounce.TailNone, j.tail)
				assert.Equal(t, []stageArg{
					{kind: stagePlugin, value: "sine"},
					{kind: stageData, dataKind: bounce.CustomDataString, key: "frequency", value: "220"},
					{kind: stagePlugin, value: "reverb"},
				}, j.stages)
			},
		},
		{
			name: "file",
			args: []string{"song.mid", "out.mp3"},
			check: func(t *testing.T, j *job) {
				assert.True(t, j.isFile)
				assert.Equal(t, "song.mid", j.input)
				assert.Equal(t, bounce.TailUntilSilence, j.tail)
				assert.Empty(t, j.stages)
			},
		},
		{
			name: "flags",
			args: []string{"-buffer-size", "512", "-sample-rate", "44100", "-bit-depth", "24", "-tail", "loop", "-lenient", "-scan", "/opt/vst", "in.wav", "out.aiff"},
			check: func(t *testing.T, j *job) {
				assert.Equal(t, 512, j.bufferSize)
				assert.Equal(t, 44100, j.sampleRate)
				assert.Equal(t, signal.BitDepth24, j.sink.BitDepth)
				assert.Equal(t, 192, j.sink.BitRate)
				assert.Equal(t, bounce.TailLoop, j.tail)
				assert.True(t, j.lenient)
				assert.Equal(t, stringList{"/opt/vst"}, j.scan)
			},
		},
		{
			name: "list",
			args: []string{"-list"},
			check: func(t *testing.T, j *job) {
				assert.True(t, j.list)
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			j, err := parseJob(test.args, testConfig)
			if test.err != nil {
				assert.ErrorIs(t, err, test.err)
				return
			}
			if test.failed {
				assert.NotNil(t, err)
				return
			}
			assert.Nil(t, err)
			test.check(t, j)
		})
	}
}

func TestParseStages(t *testing.T) {
	plugin := filepath.Join("/usr/lib/vst", "Reverb"+vst2.FileExtension())
	tests := []struct {
		name     string
		args     []string
		expected []stageArg
		failed   bool
	}{
		{
			name: "files",
			args: []string{"./drums", "/tmp/bass", "keys.mid", "vocals.WAV"},
			expected: []stageArg{
				{kind: stageFile, value: "./drums"},
				{kind: stageFile, value: "/tmp/bass"},
				{kind: stageFile, value: "keys.mid"},
				{kind: stageFile, value: "vocals.WAV"},
			},
		},
		{
			name: "plugins",
			args: []string{"delay", "Some Synth", plugin},
			expected: []stageArg{
				{kind: stagePlugin, value: "delay"},
				{kind: stagePlugin, value: "Some Synth"},
				{kind: stagePlugin, value: plugin},
			},
		},
		{
			name: "custom data",
			args: []string{"in.wav", "-p", "other.wav", "-c", "mix= 0.5"},
			expected: []stageArg{
				{kind: stageFile, value: "in.wav"},
				{kind: stageData, dataKind: bounce.CustomDataPath, key: "file", value: "other.wav"},
				{kind: stageData, dataKind: bounce.CustomDataString, key: "mix", value: " 0.5"},
			},
		},
		{name: "missing path", args: []string{"in.wav", "-p"}, failed: true},
		{name: "missing equals", args: []string{"delay", "-c", "mix"}, failed: true},
		{name: "unknown option", args: []string{"delay", "-x", "1"}, failed: true},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stages, err := parseStages(test.args)
			if test.failed {
				assert.NotNil(t, err)
				return
			}
			assert.Nil(t, err)
			assert.Equal(t, test.expected, stages)
		})
	}
}

func setEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"BOUNCE_BUFFER_SIZE",
		"BOUNCE_SAMPLE_RATE",
		"BOUNCE_BIT_DEPTH",
		"BOUNCE_BIT_RATE",
		"BOUNCE_MP3_QUALITY",
		"BOUNCE_TAIL_CEILING",
		"VST_PATH",
	} {
		t.Setenv(key, "")
	}
}

func newApp(args ...string) (*app, *bytes.Buffer) {
	var out bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return &app{
		args:   append([]string{"bounce"}, args...),
		stdout: &out,
		logger: logger,
	}, &out
}

func writeInput(t *testing.T, path string, frames int) {
	t.Helper()
	s, err := wav.NewSink(path, 2, 48000, signal.BitDepth16)
	assert.Nil(t, err)
	data := make([]float32, frames*2)
	for i := range data {
		data[i] = 0.25
	}
	assert.Nil(t, s.Write(data))
	assert.Nil(t, s.Close())
}

func TestRun(t *testing.T) {
	setEnv(t)
	dir := t.TempDir()
	input := filepath.Join(dir, "in.wav")
	writeInput(t, input, 24000)

	tests := []struct {
		name     string
		args     []string
		code     int
		output   string
		frames   int
		contains string
	}{
		{name: "help", args: []string{"--help"}, code: successExitCode, contains: "Usage: bounce"},
		{name: "version", args: []string{"--version"}, code: successExitCode, contains: version},
		{name: "list", args: []string{"-list", "-scan", dir}, code: successExitCode, contains: "reverb"},
		{name: "missing arguments", args: []string{"1"}, code: errorExitCode, contains: "Usage: bounce"},
		{name: "invalid seconds", args: []string{"0", filepath.Join(dir, "zero.wav")}, code: errorExitCode},
		{name: "too long", args: []string{"3601", filepath.Join(dir, "long.wav")}, code: errorExitCode},
		{
			name:   "generator",
			args:   []string{"1", filepath.Join(dir, "sine.wav"), "sine", "-c", "frequency=220", "-c", "amplitude=0.5"},
			code:   successExitCode,
			output: filepath.Join(dir, "sine.wav"),
			frames: 48000,
		},
		{
			name: "unknown plugin",
			args: []string{"1", filepath.Join(dir, "unknown.wav"), "sine", "no-such-plugin"},
			code: errorExitCode,
		},
		{
			name:   "lenient",
			args:   []string{"-lenient", "1", filepath.Join(dir, "lenient.wav"), "sine", "no-such-plugin", "-c", "gain=2"},
			code:   successExitCode,
			output: filepath.Join(dir, "lenient.wav"),
			frames: 48000,
		},
		{
			name:   "file with tail",
			args:   []string{input, filepath.Join(dir, "tail.wav")},
			code:   successExitCode,
			output: filepath.Join(dir, "tail.wav"),
			frames: 24000 + 256,
		},
		{
			name:   "file without tail",
			args:   []string{"-tail", "none", input, filepath.Join(dir, "notail.wav"), "delay", "-c", "mix=0.3"},
			code:   successExitCode,
			output: filepath.Join(dir, "notail.wav"),
			frames: 24000,
		},
		{name: "missing file", args: []string{filepath.Join(dir, "missing.wav"), filepath.Join(dir, "out.wav")}, code: errorExitCode},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			a, out := newApp(test.args...)
			code := a.run(context.Background())
			assert.Equal(t, test.code, code)
			if test.contains != "" {
				assert.Contains(t, out.String(), test.contains)
			}
			if test.output == "" {
				return
			}
			s, err := wav.ReadFile(test.output)
			assert.Nil(t, err)
			assert.Equal(t, test.frames, s.Frames())
		})
	}
}
