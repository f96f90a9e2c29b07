/*
Package bounce renders a signal chain to a file offline.

# Concept

The chain consists of one source stage followed by zero or more effect
stages. Stages live in a processing graph, which is driven by the Engine
buffer by buffer, faster than real time:

	Graph - produces stereo signal for the requested number of frames;
	Engine - owns the transport clock and the render loop;
	Sink - the destination of interleaved signal;

The graph never sees a live transport. Instead, Engine implements Host and
reports a simulated position: frame counter and bar-beat-tick, advanced by
exactly the number of rendered frames after each buffer.

# Construction

Engine takes ownership of the graph. It instantiates the graph, notifies it
about buffer size, sample rate and offline mode and activates it:

	e, err := bounce.New(graph, 256, 48000,
	    bounce.WithSinkOpener(sink.Config{BitDepth: signal.BitDepth16}.Open),
	)
	if err != nil {
	    return err
	}
	defer e.Close()

Stages are loaded through the engine, failures are returned as
*StageError:

	err = e.LoadFile("song.wav")

# Duration

Number of frames to render is computed by Resolver. It either converts an
explicit duration in seconds or uses the length reported by the most
recently loaded stage:

	frames, err := e.StageFrames()

# Render

Render opens the sink, runs the main pass for the requested number of frames
and then optionally runs a tail. The tail continues the render with stopped
transport until the SilenceDetector reports silence, but never longer than
the tail ceiling:

	err = e.Render(ctx, bounce.Options{
	    Destination: "out.wav",
	    Frames:      frames,
	    Tail:        bounce.TailUntilSilence,
	})

Sink is closed on every exit path. Context is checked once per buffer.
*/
package bounce
