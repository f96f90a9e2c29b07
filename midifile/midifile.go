// Package midifile provides the MIDI file player stage. Notes of all tracks
// are rendered with a small bank of sine voices.
package midifile

import (
	"fmt"
	"math"
	"sort"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/dudk/bounce"
	"github.com/dudk/bounce/rack"
)

const (
	// Name of the stage.
	Name = "MIDI File"
	// CustomDataFile is the custom data key which replaces the file.
	CustomDataFile = "file"
	// Extension of supported files.
	Extension = ".mid"

	// MaxVoices is the number of simultaneously sounding notes.
	MaxVoices = 32
	// release is the time constant of note release in seconds.
	release = 0.05
	// attack is the duration of note attack in seconds.
	attack = 0.005
	// silence is the envelope level when voice is stopped.
	silence = 1e-4
	gain    = 0.2
)

// Extensions lists supported file extensions.
var Extensions = []string{".mid", ".midi", ".smf"}

type event struct {
	frame    uint64
	on       bool
	channel  uint8
	key      uint8
	velocity uint8
}

type voice struct {
	channel uint8
	key     uint8
	phase   float64
	step    float64
	amp     float64
	env     float64
	held    bool
}

// Player renders notes of the MIDI file at the transport position.
type Player struct {
	host   bounce.Host
	path   string
	events []event
	length float64

	voices []voice
	// next is the index of the first event which is not applied yet.
	next int
	// expected is the transport frame of the next Process call.
	expected uint64

	attackStep   float64
	releaseCoeff float64
}

// Load implements rack.FileLoader.
func Load(host bounce.Host, path string) (rack.Stage, error) {
	p, err := New(host, path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// New reads the file and returns a player.
func New(host bounce.Host, path string) (*Player, error) {
	sampleRate := float64(host.SampleRate())
	p := Player{
		host:         host,
		voices:       make([]voice, 0, MaxVoices),
		attackStep:   1 / (attack * sampleRate),
		releaseCoeff: math.Exp(-1 / (release * sampleRate)),
	}
	if err := p.open(path); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Player) open(path string) error {
	sampleRate := float64(p.host.SampleRate())
	var (
		events []event
		last   int64
	)
	err := smf.ReadTracks(path).Do(func(ev smf.TrackEvent) {
		if ev.AbsMicroSeconds > last {
			last = ev.AbsMicroSeconds
		}
		var ch, key, vel uint8
		msg := midi.Message(ev.Message)
		frame := uint64(float64(ev.AbsMicroSeconds) * sampleRate / 1e6)
		switch {
		case msg.GetNoteStart(&ch, &key, &vel):
			events = append(events, event{frame: frame, on: true, channel: ch, key: key, velocity: vel})
		case msg.GetNoteEnd(&ch, &key):
			events = append(events, event{frame: frame, channel: ch, key: key})
		}
	}).Error()
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	// note offs go first when events share the frame
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].frame != events[j].frame {
			return events[i].frame < events[j].frame
		}
		return !events[i].on && events[j].on
	})
	p.path = path
	p.events = events
	p.length = float64(last) / 1e6
	p.voices = p.voices[:0]
	p.next = 0
	p.expected = 0
	return nil
}

// Name implements rack.Stage.
func (p *Player) Name() string {
	return Name
}

// Path returns path of the loaded file.
func (p *Player) Path() string {
	return p.path
}

// Notes returns number of notes in the file.
func (p *Player) Notes() int {
	n := 0
	for _, e := range p.events {
		if e.on {
			n++
		}
	}
	return n
}

// Process implements rack.Stage. When transport is stopped, all notes are
// released.
func (p *Player) Process(_, out [][]float32, frames int) {
	pos := p.host.Position()
	if !pos.Playing {
		p.releaseAll()
	} else if pos.Frame != p.expected {
		p.seek(pos.Frame)
	}
	left, right := out[0][:frames], out[1][:frames]
	for i := range left {
		if pos.Playing {
			frame := pos.Frame + uint64(i)
			for p.next < len(p.events) && p.events[p.next].frame <= frame {
				p.apply(p.events[p.next])
				p.next++
			}
		}
		v := float32(p.render() * gain)
		left[i], right[i] = v, v
	}
	if pos.Playing {
		p.expected = pos.Frame + uint64(frames)
	}
}

func (p *Player) apply(e event) {
	if !e.on {
		for i := range p.voices {
			if p.voices[i].held && p.voices[i].channel == e.channel && p.voices[i].key == e.key {
				p.voices[i].held = false
			}
		}
		return
	}
	v := voice{
		channel: e.channel,
		key:     e.key,
		step:    2 * math.Pi * frequency(e.key) / float64(p.host.SampleRate()),
		amp:     float64(e.velocity) / 127,
		held:    true,
	}
	if len(p.voices) < MaxVoices {
		p.voices = append(p.voices, v)
		return
	}
	// steal the quietest voice
	quietest := 0
	for i := range p.voices {
		if p.voices[i].env*p.voices[i].amp < p.voices[quietest].env*p.voices[quietest].amp {
			quietest = i
		}
	}
	p.voices[quietest] = v
}

func (p *Player) render() float64 {
	var sum float64
	active := p.voices[:0]
	for _, v := range p.voices {
		if v.held {
			v.env = math.Min(1, v.env+p.attackStep)
		} else {
			v.env *= p.releaseCoeff
			if v.env < silence {
				continue
			}
		}
		sum += math.Sin(v.phase) * v.amp * v.env
		v.phase = math.Mod(v.phase+v.step, 2*math.Pi)
		active = append(active, v)
	}
	p.voices = active
	return sum
}

func (p *Player) releaseAll() {
	for i := range p.voices {
		p.voices[i].held = false
	}
}

func (p *Player) seek(frame uint64) {
	p.voices = p.voices[:0]
	p.next = sort.Search(len(p.events), func(i int) bool {
		return p.events[i].frame >= frame
	})
}

// Close implements rack.Stage.
func (p *Player) Close() error {
	p.events, p.voices = nil, nil
	return nil
}

// Parameter implements rack.Parameterized. Length is the time of the last
// event in seconds.
func (p *Player) Parameter(name string) (float64, bool) {
	if name == rack.ParameterLength {
		return p.length, true
	}
	return 0, false
}

// SetParameter implements rack.Parameterized. Player has no writable
// parameters.
func (p *Player) SetParameter(name string, _ float64) error {
	return fmt.Errorf("%w: parameter %q", rack.ErrNotSupported, name)
}

// SetCustomData implements rack.CustomDataSetter.
func (p *Player) SetCustomData(kind, key, value string) error {
	if kind != bounce.CustomDataPath || key != CustomDataFile {
		return fmt.Errorf("%w: %s custom data %q", rack.ErrNotSupported, kind, key)
	}
	return p.open(value)
}

// frequency returns frequency of the MIDI key in equal temperament.
func frequency(key uint8) float64 {
	return 440 * math.Pow(2, (float64(key)-69)/12)
}
