package parameter

import (
	"time"
)

// Tempo bounds and defaults
const (
	DefaultBPM              = 120
	MinBPM                  = 30
	MaxBPM                  = 300
	DefaultStepsPerInterval = 1
)

// IntervalSeconds returns the length of one beat interval at the given tempo
// stepsPerInterval subdivides the beat (2 = eighth notes at quarter-note BPM)
func IntervalSeconds(bpm float64, stepsPerInterval int) float64 {
	if stepsPerInterval < 1 {
		stepsPerInterval = 1
	}
	return 60.0 / (bpm * float64(stepsPerInterval))
}

// ClampBPM bounds a tempo to the supported range
func ClampBPM(bpm float64) float64 {
	if bpm < MinBPM {
		return MinBPM
	}
	if bpm > MaxBPM {
		return MaxBPM
	}
	return bpm
}

// Timing validation and recovery
const (
	// DefaultTolerancePercent is the accepted deviation of an interval from the expected length
	DefaultTolerancePercent = 20.0

	// DefaultLoopThreshold is the absolute deviation treated as a track loop instead of drift
	DefaultLoopThreshold = 500 * time.Millisecond

	// DefaultResetThreshold is the invalid-beat streak that forces a timing reset
	DefaultResetThreshold = 5

	// DefaultLoopGraceWindow is how long tolerance stays doubled after a loop
	DefaultLoopGraceWindow = 2 * time.Second

	// GraceToleranceMultiplier widens tolerance inside the loop grace window
	GraceToleranceMultiplier = 2.0

	// SevereDeviationMultiplier of tolerance forces an immediate reset
	SevereDeviationMultiplier = 3.0

	// LoopClearValidBeats valid beats in a row clear the loop flag
	LoopClearValidBeats = 3

	// TimingRestoreValidBeats valid beats after an invalid streak restore timing validity
	TimingRestoreValidBeats = 2

	// PreTriggerSuppressMultiplier of the reset threshold suppresses animation pre-triggers
	PreTriggerSuppressMultiplier = 2

	// PreTriggerPruneBeats is the age after which fired pre-trigger keys are forgotten
	PreTriggerPruneBeats = 50

	// PreTriggerMaxPosition caps the fractional part of the beat position below the next integer
	PreTriggerMaxPosition = 0.999
)
