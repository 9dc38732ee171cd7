package motion

import (
	"math"
	"time"

	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/parameter"
)

// GlideDuration is the visual move time in seconds at the given tempo
// Non-positive tempo falls back to the default
func GlideDuration(bpm, beatsPerMove, lerpFraction float64) float64 {
	if bpm <= 0 || math.IsNaN(bpm) {
		bpm = parameter.DefaultBPM
	}
	d := 60.0 / bpm * beatsPerMove * lerpFraction
	return math.Max(parameter.MinGlideSeconds, d)
}

// Glide is a resumable interpolation record advanced once per frame
// Progress is elapsed over the duration at the live tempo, so a tempo change
// moves the position along the same line without jumping back
type Glide struct {
	From         core.Vec2
	To           core.Vec2
	Start        time.Time
	BeatsPerMove float64
	LerpFraction float64
}

// Progress returns completion in [0, 1] at now
func (g Glide) Progress(now time.Time, bpm float64) float64 {
	elapsed := now.Sub(g.Start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	t := elapsed / GlideDuration(bpm, g.BeatsPerMove, g.LerpFraction)
	return math.Min(1, t)
}

// At returns the interpolated position for progress t
func (g Glide) At(t float64) core.Vec2 {
	return g.From.Lerp(g.To, t)
}
