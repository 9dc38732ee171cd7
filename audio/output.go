package audio

import (
	"fmt"
	"sync"

	"github.com/gopxl/beep"
	"github.com/gopxl/beep/speaker"

	"github.com/lixenwraith/beatkeeper/parameter"
)

// Output owns the speaker device
type Output struct {
	mu          sync.Mutex
	rate        beep.SampleRate
	mixer       *beep.Mixer
	initialized bool
}

// NewOutput creates an output at the given rate
func NewOutput(rate beep.SampleRate) *Output {
	return &Output{
		rate:  rate,
		mixer: &beep.Mixer{},
	}
}

// Start initializes the speaker and begins playing the mixer
func (o *Output) Start() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.initialized {
		return nil
	}
	if err := speaker.Init(o.rate, o.rate.N(parameter.AudioBufferDuration)); err != nil {
		return fmt.Errorf("speaker init: %w", err)
	}
	speaker.Play(o.mixer)
	o.initialized = true
	return nil
}

// Add mixes a streamer in at the given volume
func (o *Output) Add(s beep.Streamer, volume float64) {
	speaker.Lock()
	o.mixer.Add(newVolume(s, volume))
	speaker.Unlock()
}

// Latency is the device buffer, the clock's latency offset should cover it
func (o *Output) Latency() float64 {
	return parameter.AudioBufferDuration.Seconds()
}

// Close stops playback and releases the device
func (o *Output) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.initialized {
		return
	}
	speaker.Clear()
	speaker.Close()
	o.initialized = false
}
