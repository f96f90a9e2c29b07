package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dudk/bounce"
	"github.com/dudk/bounce/audiofile"
	"github.com/dudk/bounce/internal/config"
	"github.com/dudk/bounce/midifile"
	"github.com/dudk/bounce/signal"
	"github.com/dudk/bounce/sink"
	"github.com/dudk/bounce/vst2"
)

var (
	errHelp        = errors.New("help requested")
	errVersion     = errors.New("version requested")
	errMissingArgs = errors.New("input and output arguments are required")
)

// job is a single render requested from command line.
type job struct {
	bufferSize  int
	sampleRate  int
	bitDepth    int
	sink        sink.Config
	tailCeiling time.Duration
	tailFlag    string
	scan        stringList
	lenient     bool
	list        bool

	input   string
	seconds float64
	isFile  bool
	output  string
	tail    bounce.TailMode
	stages  []stageArg
}

type stageKind int

const (
	stageFile stageKind = iota
	stagePlugin
	stageData
)

// stageArg is a stage or custom data applied to the last stage.
type stageArg struct {
	kind     stageKind
	dataKind string
	key      string
	value    string
}

func (s stageArg) String() string {
	switch s.kind {
	case stageFile:
		return "file " + s.value
	case stagePlugin:
		return "plugin " + s.value
	}
	return fmt.Sprintf("%s %s=%s", s.dataKind, s.key, s.value)
}

// stringList is a flag which accepts path lists and can be repeated.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, string(filepath.ListSeparator))
}

func (l *stringList) Set(value string) error {
	for _, v := range filepath.SplitList(value) {
		if v != "" {
			*l = append(*l, v)
		}
	}
	return nil
}

func newFlagSet(j *job, cfg config.Config) *flag.FlagSet {
	fs := flag.NewFlagSet("bounce", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.IntVar(&j.bufferSize, "buffer-size", cfg.BufferSize, "frames per buffer")
	fs.IntVar(&j.sampleRate, "sample-rate", cfg.SampleRate, "sample rate of the render")
	fs.IntVar(&j.bitDepth, "bit-depth", cfg.BitDepth, "bit depth of wav and aiff output")
	fs.IntVar(&j.sink.BitRate, "bit-rate", cfg.BitRate, "bit rate of mp3 output in kbps")
	fs.StringVar(&j.tailFlag, "tail", "", "tail mode: none, silence or loop (default silence for files, none for seconds)")
	fs.Var(&j.scan, "scan", "additional paths to scan for vst2 plugins")
	fs.BoolVar(&j.lenient, "lenient", false, "skip stages which fail to load")
	fs.BoolVar(&j.list, "list", false, "show available plugins and exit")
	return fs
}

// parseJob parses command line arguments without program name.
func parseJob(args []string, cfg config.Config) (*job, error) {
	j := job{
		tailCeiling: cfg.TailCeiling,
		scan:        append(stringList(nil), cfg.ScanPaths...),
	}
	j.sink.Quality = cfg.Quality
	var showVersion bool
	fs := newFlagSet(&j, cfg)
	fs.BoolVar(&showVersion, "version", false, "show version and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil, errHelp
		}
		return nil, err
	}
	if showVersion {
		return nil, errVersion
	}
	j.sink.BitDepth = signal.BitDepth(j.bitDepth)
	if j.list {
		return &j, nil
	}

	rest := fs.Args()
	if len(rest) < 2 {
		return nil, errMissingArgs
	}
	j.input, j.output = rest[0], rest[1]
	if seconds, err := strconv.ParseFloat(j.input, 64); err == nil {
		j.seconds = seconds
	} else {
		j.isFile = true
	}

	var err error
	switch {
	case j.tailFlag != "":
		if j.tail, err = bounce.ParseTailMode(j.tailFlag); err != nil {
			return nil, err
		}
	case j.isFile:
		j.tail = bounce.TailUntilSilence
	default:
		j.tail = bounce.TailNone
	}

	if j.stages, err = parseStages(rest[2:]); err != nil {
		return nil, err
	}
	return &j, nil
}

// parseStages classifies stage arguments. Options take the next argument
// as a value.
func parseStages(args []string) ([]stageArg, error) {
	var stages []stageArg
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			kind := stagePlugin
			if isFilePath(arg) {
				kind = stageFile
			}
			stages = append(stages, stageArg{kind: kind, value: arg})
			continue
		}
		if i+1 == len(args) {
			return nil, fmt.Errorf("missing value of %s", arg)
		}
		i++
		switch arg {
		case "-p":
			stages = append(stages, stageArg{
				kind:     stageData,
				dataKind: bounce.CustomDataPath,
				key:      "file",
				value:    args[i],
			})
		case "-c":
			key, value, ok := strings.Cut(args[i], "=")
			if !ok {
				return nil, fmt.Errorf("invalid %s value %q: expected key=value", arg, args[i])
			}
			stages = append(stages, stageArg{
				kind:     stageData,
				dataKind: bounce.CustomDataString,
				key:      key,
				value:    value,
			})
		default:
			return nil, fmt.Errorf("unknown stage option %s", arg)
		}
	}
	return stages, nil
}

// isFilePath returns true for arguments which should be loaded as files.
// Plugin libraries are loaded as plugins even when passed by path.
func isFilePath(arg string) bool {
	ext := strings.ToLower(filepath.Ext(arg))
	if ext == vst2.FileExtension() {
		return false
	}
	if strings.HasPrefix(arg, ".") || strings.HasPrefix(arg, "/") {
		return true
	}
	for _, exts := range [][]string{audiofile.Extensions, midifile.Extensions} {
		for _, e := range exts {
			if ext == e {
				return true
			}
		}
	}
	return false
}
