package bounce

// Meter is a fixed musical meter of the transport.
type Meter struct {
	BeatsPerBar    float32
	BeatType       float32
	TicksPerBeat   float64
	BeatsPerMinute float64
}

// DefaultMeter is 4/4 at 120 BPM with 1920 ticks per beat.
var DefaultMeter = Meter{
	BeatsPerBar:    4,
	BeatType:       4,
	TicksPerBeat:   1920,
	BeatsPerMinute: 120,
}

// BBT is a bar-beat-tick position.
type BBT struct {
	Meter
	Valid        bool
	Bar          int32 // starts from 1
	Beat         int32 // 1..BeatsPerBar
	Tick         float64
	BarStartTick float64
}

// Position is a transport position reported to the graph.
type Position struct {
	Frame   uint64
	Playing bool
	BBT     BBT
}

// Clock is the transport clock of the offline render. It's not safe for
// concurrent use.
type Clock struct {
	sampleRate int
	meter      Meter
	position   Position

	// frames advanced since reset.
	elapsed int64
	// absolute tick where the current beat starts.
	beatStartTick float64
}

// NewClock returns a clock in the start position.
func NewClock(sampleRate int, meter Meter) *Clock {
	c := Clock{
		sampleRate: sampleRate,
		meter:      meter,
	}
	c.Reset()
	return &c
}

// Reset moves clock to the first beat of the first bar and starts playback.
func (c *Clock) Reset() {
	c.elapsed = 0
	c.beatStartTick = 0
	c.position = Position{
		Playing: true,
		BBT: BBT{
			Meter: c.meter,
			Valid: true,
			Bar:   1,
			Beat:  1,
		},
	}
}

// Stop marks transport as not playing. Position is not changed.
func (c *Clock) Stop() {
	c.position.Playing = false
}

// Position returns current transport position.
func (c *Clock) Position() Position {
	return c.position
}

// Advance moves the clock forward by number of frames. Ticks are derived from
// the total number of advanced frames, so no rounding error is accumulated
// between calls.
func (c *Clock) Advance(frames int) {
	if frames <= 0 {
		return
	}
	c.position.Frame += uint64(frames)
	c.elapsed += int64(frames)

	bbt := &c.position.BBT
	tick := c.ticksAt(c.elapsed) - c.beatStartTick
	for c.meter.TicksPerBeat > 0 && tick >= c.meter.TicksPerBeat {
		tick -= c.meter.TicksPerBeat
		c.beatStartTick += c.meter.TicksPerBeat
		bbt.Beat++
		if float32(bbt.Beat) > c.meter.BeatsPerBar {
			bbt.Bar++
			bbt.Beat = 1
			bbt.BarStartTick += float64(c.meter.BeatsPerBar) * c.meter.TicksPerBeat
		}
	}
	if tick < 0 {
		tick = 0
	}
	bbt.Tick = tick
}

// ticksAt returns the absolute number of ticks for the number of frames.
func (c *Clock) ticksAt(frames int64) float64 {
	return float64(frames) * c.meter.TicksPerBeat * c.meter.BeatsPerMinute / (float64(c.sampleRate) * 60)
}
