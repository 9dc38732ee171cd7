package engine

import (
	"math"
	"sync"
)

// ScriptedSource is a deterministic AudioClockSource driven by explicit time steps
// Used by the simulate command and tests to inject stalls, seeks and loops
type ScriptedSource struct {
	mu sync.Mutex

	position float64
	bpm      float64
	length   float64 // Track length in seconds, 0 = unbounded
	playing  bool
	loop     bool
	stalled  bool
}

// NewScriptedSource starts playing at position 0 with the given tempo
func NewScriptedSource(bpm float64) *ScriptedSource {
	return &ScriptedSource{bpm: bpm, playing: true}
}

// Advance moves playback forward by dt seconds unless paused or stalled
// Wraps at the track length when looping, stops at the end otherwise
func (s *ScriptedSource) Advance(dt float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.playing || s.stalled || dt <= 0 {
		return
	}
	s.position += dt
	if s.length <= 0 || s.position < s.length {
		return
	}
	if s.loop {
		s.position = math.Mod(s.position, s.length)
	} else {
		s.position = s.length
		s.playing = false
	}
}

// SetTrack sets the track length and loop flag
func (s *ScriptedSource) SetTrack(length float64, loop bool) {
	s.mu.Lock()
	s.length = length
	s.loop = loop
	s.mu.Unlock()
}

// Stall freezes playback time while the clock keeps running
func (s *ScriptedSource) Stall(stalled bool) {
	s.mu.Lock()
	s.stalled = stalled
	s.mu.Unlock()
}

// Seek jumps to an absolute position
func (s *ScriptedSource) Seek(position float64) {
	s.mu.Lock()
	s.position = math.Max(0, position)
	s.mu.Unlock()
}

// SetBPM changes the reported tempo, values <= 0 simulate a source without tempo
func (s *ScriptedSource) SetBPM(bpm float64) {
	s.mu.Lock()
	s.bpm = bpm
	s.mu.Unlock()
}

// SetPlaying starts or stops playback
func (s *ScriptedSource) SetPlaying(playing bool) {
	s.mu.Lock()
	s.playing = playing
	s.mu.Unlock()
}

func (s *ScriptedSource) CurrentPlaybackTime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

func (s *ScriptedSource) CurrentBPM() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bpm
}

func (s *ScriptedSource) IsPlaying() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.playing
}

func (s *ScriptedSource) LoopEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loop
}
