package main

import (
	"context"
	"errors"

	"github.com/rs/xid"
	"github.com/sirupsen/logrus"

	"github.com/dudk/bounce"
	"github.com/dudk/bounce/audiofile"
	"github.com/dudk/bounce/effect"
	"github.com/dudk/bounce/metric"
	"github.com/dudk/bounce/midifile"
	"github.com/dudk/bounce/rack"
	"github.com/dudk/bounce/vst2"
)

func newRack(cache *vst2.Cache) *rack.Rack {
	return rack.New(
		rack.WithFileLoader(audiofile.Load, audiofile.Extensions...),
		rack.WithFileLoader(midifile.Load, midifile.Extensions...),
		rack.WithPluginLoader(effect.Load),
		rack.WithPluginLoader(vst2.Loader{Cache: cache}.Load),
	)
}

// render loads the stages and renders the output file.
func (j *job) render(ctx context.Context, logger *logrus.Logger) (err error) {
	entry := logger.WithField("session", xid.New().String())
	cache, err := vst2.NewCache(ctx, append(vst2.DefaultScanPaths(), j.scan...)...)
	if err != nil {
		return err
	}
	entry.Debugf("found %d vst2 plugins", len(cache.Libs))

	e, err := bounce.New(newRack(cache), j.bufferSize, j.sampleRate,
		bounce.WithLogger(entry),
		bounce.WithSinkOpener(j.sink.Open),
		bounce.WithTailCeiling(j.tailCeiling),
		bounce.WithMetric(),
	)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, e.Close())
	}()

	frames, err := j.frames(e)
	if err != nil {
		return err
	}
	if err := j.load(e, entry); err != nil {
		return err
	}

	entry.WithFields(logrus.Fields{
		"frames": frames,
		"tail":   j.tail,
	}).Info("rendering " + j.output)
	if err := e.Render(ctx, bounce.Options{
		Destination: j.output,
		Frames:      frames,
		Tail:        j.tail,
	}); err != nil {
		return err
	}
	for phase, counters := range metric.GetAll() {
		entry.WithField("phase", phase).Debug(counters)
	}
	return nil
}

// frames returns the nominal length of the render. Input file is loaded
// as the first stage and defines the length.
func (j *job) frames(e *bounce.Engine) (int, error) {
	if !j.isFile {
		return e.Resolver().Seconds(j.seconds)
	}
	if err := e.LoadFile(j.input); err != nil {
		return 0, err
	}
	return e.StageFrames()
}

func (j *job) load(e *bounce.Engine, logger logrus.FieldLogger) error {
	for _, s := range j.stages {
		var err error
		switch s.kind {
		case stageFile:
			err = e.LoadFile(s.value)
		case stagePlugin:
			err = e.LoadPlugin(s.value)
		case stageData:
			err = e.SetCustomData(s.dataKind, s.key, s.value)
		}
		if err == nil {
			continue
		}
		if !j.lenient {
			return err
		}
		logger.WithError(err).Warn("skipped " + s.String())
	}
	return nil
}
