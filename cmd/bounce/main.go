package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/sirupsen/logrus"

	"github.com/dudk/bounce/internal/config"
	"github.com/dudk/bounce/log"
)

const (
	successExitCode = 0
	errorExitCode   = 1
)

// version is replaced at build time with -ldflags "-X main.version=...".
var version = "v0.1.0-dev"

type app struct {
	args   []string
	stdout io.Writer
	logger *logrus.Logger
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	a := app{
		args:   os.Args,
		stdout: os.Stdout,
		logger: log.GetLogger(),
	}
	code := a.run(ctx)
	stop()
	os.Exit(code)
}

func (a *app) run(ctx context.Context) int {
	j, err := parseJob(a.args[1:], config.Load())
	switch {
	case errors.Is(err, errHelp):
		printUsage(a.stdout)
		return successExitCode
	case errors.Is(err, errVersion):
		fmt.Fprintf(a.stdout, "bounce %s\n", version)
		return successExitCode
	case err != nil:
		a.logger.Error(err)
		printUsage(a.stdout)
		return errorExitCode
	}

	if j.list {
		if err := list(ctx, a.stdout, j.scan); err != nil {
			a.logger.WithError(err).Error("list failed")
			return errorExitCode
		}
		return successExitCode
	}

	if err := j.render(ctx, a.logger); err != nil {
		a.logger.WithError(err).Error("render failed")
		return errorExitCode
	}
	return successExitCode
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Bounce renders a chain of stages into an audio file")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage: bounce [flags] <infile|seconds> <outfile> [stage...]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "The first argument is an input file or a number of seconds to render.")
	fmt.Fprintln(w, "Stages are files, native effects or vst2 plugins. Stage options apply")
	fmt.Fprintln(w, "to the most recently loaded stage:")
	fmt.Fprintln(w, "\t-p <path>\treplace the file of the stage")
	fmt.Fprintln(w, "\t-c <key=value>\tset a stage parameter")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fs := newFlagSet(&job{}, config.Load())
	fs.SetOutput(w)
	fs.PrintDefaults()
}
