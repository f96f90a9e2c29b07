// Package vst2 provides stages which host vst2 plugins. Plugins are loaded
// by path or by name from the scan cache.
package vst2

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unsafe"

	"github.com/dudk/vst2"

	"github.com/dudk/bounce"
	"github.com/dudk/bounce/rack"
)

// processLevelOffline is the vst2 process level reported to plugins.
const processLevelOffline = 4

// Processor hosts a single vst2 plugin.
type Processor struct {
	name    string
	library *vst2.Library
	plugin  *vst2.Plugin
	host    bounce.Host
	buffer  [][]float64
}

// Loader implements rack.PluginLoader. It loads plugins by path or by name
// from the cache.
type Loader struct {
	Cache *Cache
}

// Load implements rack.PluginLoader.
func (l Loader) Load(host bounce.Host, id string) (rack.Stage, error) {
	path, ok := l.resolve(id)
	if !ok {
		return nil, rack.ErrUnknownPlugin
	}
	p, err := Open(host, path)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// resolve returns the library path by identifier.
func (l Loader) resolve(id string) (string, bool) {
	if strings.EqualFold(filepath.Ext(id), FileExtension()) {
		if _, err := os.Stat(id); err == nil {
			return id, true
		}
	}
	if l.Cache == nil {
		return "", false
	}
	return l.Cache.Lookup(id)
}

// Open loads the library and instantiates the plugin.
func Open(host bounce.Host, path string) (*Processor, error) {
	lib, err := vst2.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	plugin, err := lib.Open()
	if err != nil {
		lib.Close()
		return nil, fmt.Errorf("instantiate %s: %w", path, err)
	}
	p := Processor{
		name:    lib.Name,
		library: lib,
		plugin:  plugin,
		host:    host,
		buffer:  make([][]float64, bounce.Channels),
	}
	plugin.SetCallback(p.callback())
	plugin.SetBufferSize(host.BufferSize())
	plugin.SetSampleRate(host.SampleRate())
	plugin.SetSpeakerArrangement(bounce.Channels)
	return &p, nil
}

// Name implements rack.Stage.
func (p *Processor) Name() string {
	return p.name
}

// Activate implements rack.Activator.
func (p *Processor) Activate() {
	p.plugin.Resume()
}

// Deactivate implements rack.Activator.
func (p *Processor) Deactivate() {
	p.plugin.Suspend()
}

// Process implements rack.Stage.
func (p *Processor) Process(in, out [][]float32, frames int) {
	for c := range p.buffer {
		if cap(p.buffer[c]) < frames {
			p.buffer[c] = make([]float64, frames)
		}
		p.buffer[c] = p.buffer[c][:frames]
		for i, v := range in[c][:frames] {
			p.buffer[c][i] = float64(v)
		}
	}
	result := p.plugin.Process(p.buffer)
	for c := range out {
		if c >= len(result) {
			clear(out[c][:frames])
			continue
		}
		for i := 0; i < frames && i < len(result[c]); i++ {
			out[c][i] = float32(result[c][i])
		}
	}
}

// Idle implements rack.Idler.
func (p *Processor) Idle() {
	p.plugin.Dispatch(vst2.EffEditIdle, 0, 0, nil, 0)
}

// Close implements rack.Stage. Plugin is closed before its library.
func (p *Processor) Close() error {
	p.plugin.Close()
	p.library.Close()
	return nil
}

// callback maps plugin requests to the host.
func (p *Processor) callback() vst2.HostCallbackFunc {
	return func(plugin *vst2.Plugin, opcode vst2.MasterOpcode, index int64, value int64, ptr unsafe.Pointer, opt float64) int {
		switch opcode {
		case vst2.AudioMasterIdle:
			p.host.RequestIdle()
		case vst2.AudioMasterGetCurrentProcessLevel:
			return processLevelOffline
		case vst2.AudioMasterGetSampleRate:
			return p.host.SampleRate()
		case vst2.AudioMasterGetBlockSize:
			return p.host.BufferSize()
		case vst2.AudioMasterGetTime:
			pos := p.host.Position()
			ti := timeInfoOf(pos)
			return int(plugin.SetTimeInfo(p.host.SampleRate(), int64(pos.Frame), float32(ti.tempo), ti.timeSignature(), time.Now().UnixNano(), ti.ppqPos, ti.barStartPos))
		}
		return 0
	}
}

// timeInfo is the musical position in quarter notes.
type timeInfo struct {
	tempo       float64
	notesPerBar float32
	ppqPos      float64
	barStartPos float64
}

func (ti timeInfo) timeSignature() vst2.TimeSignature {
	return vst2.TimeSignature{NotesPerBar: int(ti.notesPerBar)}
}

// timeInfoOf converts transport position to vst2 quarter note position.
func timeInfoOf(pos bounce.Position) timeInfo {
	bbt := pos.BBT
	if !bbt.Valid || bbt.TicksPerBeat <= 0 || bbt.BeatType <= 0 {
		return timeInfo{}
	}
	// length of a beat in quarter notes
	quarters := 4 / float64(bbt.BeatType)
	beats := float64(bbt.Bar-1)*float64(bbt.BeatsPerBar) + float64(bbt.Beat-1) + bbt.Tick/bbt.TicksPerBeat
	return timeInfo{
		tempo:       bbt.BeatsPerMinute,
		notesPerBar: bbt.BeatsPerBar,
		ppqPos:      beats * quarters,
		barStartPos: math.Max(0, float64(bbt.Bar-1)*float64(bbt.BeatsPerBar)*quarters),
	}
}
