package engine

// AudioClockSource supplies continuous playback time from the audio host
// Implementations must be safe to call from the scheduler goroutine while audio runs elsewhere
type AudioClockSource interface {
	// CurrentPlaybackTime returns seconds into the track, may jump backwards on loop or seek
	CurrentPlaybackTime() float64
	// CurrentBPM returns the live tempo, values <= 0 are ignored
	CurrentBPM() float64
	IsPlaying() bool
	LoopEnabled() bool
}

// ClockSample is the per-tick reading taken from the source
type ClockSample struct {
	Raw      float64 // Playback seconds as reported
	Adjusted float64 // Raw plus latency offset
	Interval float64 // Adjusted expressed in beat intervals
}

// Floor returns the integer interval the sample falls in
func (s ClockSample) Floor() int {
	return floorInt(s.Interval)
}
