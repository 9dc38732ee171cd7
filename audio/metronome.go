package audio

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/gopxl/beep"

	"github.com/lixenwraith/beatkeeper/parameter"
)

// MetronomeConfig describes the click track
type MetronomeConfig struct {
	SampleRate int
	BPM        float64
	Length     time.Duration // Track length, 0 = endless
	Loop       bool
	Volume     float64
}

// DefaultMetronomeConfig is a looping 120 BPM track
func DefaultMetronomeConfig() MetronomeConfig {
	return MetronomeConfig{
		SampleRate: parameter.AudioSampleRate,
		BPM:        parameter.DefaultBPM,
		Length:     parameter.DefaultLoopLength,
		Loop:       true,
		Volume:     parameter.ClickVolume,
	}
}

// Metronome is a click track and the AudioClockSource reading its play position
//
// Thread-Safety:
//   - Stream runs on the speaker goroutine and is the only writer of position
//   - Clock reads and control setters are atomics, safe from any goroutine
type Metronome struct {
	rate   beep.SampleRate
	length int64 // Samples, 0 = endless

	position atomic.Int64
	bpmBits  atomic.Uint64
	playing  atomic.Bool
	loop     atomic.Bool
	seek     atomic.Int64 // Pending seek target in samples, -1 = none

	// Speaker goroutine only
	click    [][2]float64
	accent   [][2]float64
	current  [][2]float64
	clickPos int
	lastBeat int64

	// Beat grid anchor, moved on tempo change so the beat count stays continuous
	gridPos      int64
	gridBeat     float64
	gridInterval float64 // Samples per beat the anchor was taken at
}

// NewMetronome creates a stopped metronome
func NewMetronome(cfg MetronomeConfig) *Metronome {
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = parameter.AudioSampleRate
	}
	rate := beep.SampleRate(cfg.SampleRate)

	m := &Metronome{
		rate:     rate,
		length:   int64(rate.N(cfg.Length)),
		click:    renderClick(parameter.ClickFrequency, parameter.ClickDuration, cfg.Volume, rate),
		accent:   renderClick(parameter.ClickAccentFrequency, parameter.ClickDuration, cfg.Volume, rate),
		lastBeat: -1,
	}
	m.SetBPM(cfg.BPM)
	m.loop.Store(cfg.Loop)
	m.seek.Store(-1)
	return m
}

// SampleRate returns the track rate
func (m *Metronome) SampleRate() beep.SampleRate {
	return m.rate
}

// Stream implements beep.Streamer, silence while stopped keeps the device fed
func (m *Metronome) Stream(samples [][2]float64) (n int, ok bool) {
	if target := m.seek.Swap(-1); target >= 0 {
		m.position.Store(target)
		m.lastBeat = -1
		m.current = nil
		m.rebaseGrid()
	}

	if !m.playing.Load() {
		clear(samples)
		return len(samples), true
	}

	pos := m.position.Load()
	bpm := m.CurrentBPM()
	interval := float64(m.rate) * 60 / bpm
	if interval != m.gridInterval {
		if m.gridInterval > 0 {
			m.gridBeat += float64(pos-m.gridPos) / m.gridInterval
			m.gridPos = pos
		}
		m.gridInterval = interval
	}

	for i := range samples {
		if m.length > 0 && pos >= m.length {
			if !m.loop.Load() {
				clear(samples[i:])
				m.playing.Store(false)
				break
			}
			pos = 0
			m.lastBeat = -1
			m.rebaseGrid()
		}

		beat := int64(math.Floor(m.gridBeat + float64(pos-m.gridPos)/interval))
		if beat != m.lastBeat {
			m.lastBeat = beat
			m.current = m.click
			if beat%parameter.BeatsPerBar == 0 {
				m.current = m.accent
			}
			m.clickPos = 0
		}

		samples[i] = [2]float64{}
		if m.clickPos < len(m.current) {
			samples[i] = m.current[m.clickPos]
			m.clickPos++
		}
		pos++
	}

	m.position.Store(pos)
	return len(samples), true
}

func (m *Metronome) Err() error { return nil }

// rebaseGrid restarts beat counting from the track start
func (m *Metronome) rebaseGrid() {
	m.gridPos = 0
	m.gridBeat = 0
}

// CurrentPlaybackTime returns seconds into the track
func (m *Metronome) CurrentPlaybackTime() float64 {
	return float64(m.position.Load()) / float64(m.rate)
}

// CurrentBPM returns the click tempo
func (m *Metronome) CurrentBPM() float64 {
	return math.Float64frombits(m.bpmBits.Load())
}

func (m *Metronome) IsPlaying() bool {
	return m.playing.Load()
}

func (m *Metronome) LoopEnabled() bool {
	return m.loop.Load()
}

// SetBPM changes the tempo, clamped to the supported range
func (m *Metronome) SetBPM(bpm float64) {
	if bpm <= 0 || math.IsNaN(bpm) {
		bpm = parameter.DefaultBPM
	}
	m.bpmBits.Store(math.Float64bits(parameter.ClampBPM(bpm)))
}

// SetPlaying starts or stops the track, position is kept
func (m *Metronome) SetPlaying(playing bool) {
	m.playing.Store(playing)
}

// SetLoop toggles wrapping at the track end
func (m *Metronome) SetLoop(loop bool) {
	m.loop.Store(loop)
}

// Seek moves playback to seconds, applied on the next buffer
func (m *Metronome) Seek(seconds float64) {
	target := int64(math.Max(0, seconds) * float64(m.rate))
	if m.length > 0 && target >= m.length {
		target = m.length - 1
	}
	m.seek.Store(target)
}
