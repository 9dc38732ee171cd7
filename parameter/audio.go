package parameter

import "time"

// Audio hardware settings
const (
	AudioSampleRate     = 44100
	AudioBufferDuration = 50 * time.Millisecond
)

// Metronome click
const (
	ClickFrequency       = 1760.0
	ClickAccentFrequency = 2640.0
	ClickDuration        = 30 * time.Millisecond
	ClickVolume          = 0.5
	BeatsPerBar          = 4

	// DefaultLoopLength is the metronome track length before it wraps
	DefaultLoopLength = 16 * time.Second
)
