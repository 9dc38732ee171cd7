package engine

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/beatkeeper/event"
	"github.com/lixenwraith/beatkeeper/parameter"
	"github.com/lixenwraith/beatkeeper/schedule"
)

// Float comparisons against tolerance bounds
const deviationEpsilon = 1e-9

// MaxBeatsBeforeAction bounds pre-trigger lead
const MaxBeatsBeforeAction = 64.0

// PreTriggerSpec requests an animation lead ahead of every beat matching Schedule
type PreTriggerSpec struct {
	Schedule          schedule.Spec
	BeatsBeforeAction float64
}

// ClockSettings configures validation and recovery
// Zero values fall back to the package defaults
type ClockSettings struct {
	BPM              float64 // Used when the source reports no tempo
	StepsPerInterval int
	TolerancePercent float64
	LoopThreshold    time.Duration
	ResetThreshold   int
	LoopGraceWindow  time.Duration
	LatencyOffset    time.Duration // Added to playback time, compensates output latency

	// DestroyTimedActorsOnReset is the policy announced with TimingReset
	DestroyTimedActorsOnReset bool

	PreTriggers []PreTriggerSpec
}

// DefaultClockSettings returns the stock tuning
func DefaultClockSettings() ClockSettings {
	return ClockSettings{
		BPM:              parameter.DefaultBPM,
		StepsPerInterval: parameter.DefaultStepsPerInterval,
		TolerancePercent: parameter.DefaultTolerancePercent,
		LoopThreshold:    parameter.DefaultLoopThreshold,
		ResetThreshold:   parameter.DefaultResetThreshold,
		LoopGraceWindow:  parameter.DefaultLoopGraceWindow,
	}
}

func (s ClockSettings) normalized() ClockSettings {
	d := DefaultClockSettings()
	if s.BPM <= 0 || math.IsNaN(s.BPM) || math.IsInf(s.BPM, 0) {
		s.BPM = d.BPM
	}
	s.BPM = parameter.ClampBPM(s.BPM)
	if s.StepsPerInterval < 1 {
		s.StepsPerInterval = d.StepsPerInterval
	}
	if s.TolerancePercent <= 0 {
		s.TolerancePercent = d.TolerancePercent
	}
	if s.LoopThreshold <= 0 {
		s.LoopThreshold = d.LoopThreshold
	}
	if s.ResetThreshold < 1 {
		s.ResetThreshold = d.ResetThreshold
	}
	if s.LoopGraceWindow <= 0 {
		s.LoopGraceWindow = d.LoopGraceWindow
	}

	specs := make([]PreTriggerSpec, len(s.PreTriggers))
	for i, p := range s.PreTriggers {
		p.Schedule = p.Schedule.Normalized()
		p.BeatsBeforeAction = math.Max(0, math.Min(p.BeatsBeforeAction, MaxBeatsBeforeAction))
		specs[i] = p
	}
	s.PreTriggers = specs
	return s
}

// ClockOption configures a BeatClock
type ClockOption func(*BeatClock)

// WithClockLogger sets the logger for anomalies and resets
func WithClockLogger(l zerolog.Logger) ClockOption {
	return func(c *BeatClock) { c.log = l }
}

// WithObserver attaches a diagnostics observer
func WithObserver(o Observer) ClockOption {
	return func(c *BeatClock) {
		if o != nil {
			c.obs = o
		}
	}
}

// BeatClock converts playback position into a monotonic beat index stream
//
// Architecture:
//   - Tick samples the source once per frame and records at most one beat
//   - Each beat is validated against the expected interval in scene time
//   - Anomalies are classified and may restart numbering via TimingReset
//   - Animation pre-triggers are evaluated after the beat on every tick
//
// Not safe for concurrent use, ClockScheduler serializes all access
type BeatClock struct {
	bus    *event.Bus
	source AudioClockSource
	tp     TimeProvider
	epoch  time.Time

	settings ClockSettings
	log      zerolog.Logger
	obs      Observer

	state     TimingState
	beatIndex int     // Last published index, next publish is beatIndex+1
	bpm       float64 // Last good tempo

	lastInterval int
	hasInterval  bool
	lastAdjusted float64

	// Interval grid anchor, moved on tempo change so the interval count stays continuous
	gridPlayback float64
	gridInterval float64
	gridExpected float64 // Interval length the anchor was taken at, 0 before the first sample
	retimed      bool    // Tempo changed since the last beat, the next beat is not measured

	pendingReset   bool // Reset announced, no beat published since
	pendingDestroy bool // Destroy policy of the pending reset

	fired map[preTriggerKey]struct{}
}

// NewBeatClock creates a clock reading source and validating against tp
// A nil tp uses the monotonic clock
func NewBeatClock(bus *event.Bus, source AudioClockSource, tp TimeProvider, settings ClockSettings, opts ...ClockOption) *BeatClock {
	if tp == nil {
		tp = NewMonotonicTimeProvider()
	}
	settings = settings.normalized()

	c := &BeatClock{
		bus:       bus,
		source:    source,
		tp:        tp,
		epoch:     tp.Now(),
		settings:  settings,
		log:       zerolog.Nop(),
		obs:       NopObserver{},
		state:     newTimingState(),
		beatIndex: -1,
		bpm:       settings.BPM,
		fired:     make(map[preTriggerKey]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Now returns scene seconds since the clock was created
func (c *BeatClock) Now() float64 {
	return secondsSince(c.tp, c.epoch)
}

// Sample reads the source and converts playback time into beat intervals
// A tempo change moves the grid anchor to the current playback time, so the
// interval count continues from where the old tempo left it
func (c *BeatClock) Sample() ClockSample {
	c.refreshBPM()
	raw := c.source.CurrentPlaybackTime()
	adjusted := raw + c.settings.LatencyOffset.Seconds()

	expected := c.expectedInterval()
	if c.gridExpected > 0 && expected != c.gridExpected {
		c.gridInterval += (adjusted - c.gridPlayback) / c.gridExpected
		c.gridPlayback = adjusted
		c.retimed = c.state.HasLastBeat
		c.log.Debug().
			Float64("bpm", c.bpm).
			Float64("interval", c.gridInterval).
			Msg("tempo change, beat grid re-anchored")
	}
	c.gridExpected = expected

	return ClockSample{
		Raw:      raw,
		Adjusted: adjusted,
		Interval: c.gridInterval + (adjusted-c.gridPlayback)/expected,
	}
}

// rebaseGrid counts intervals from the track start again
func (c *BeatClock) rebaseGrid() {
	c.gridPlayback = 0
	c.gridInterval = 0
}

// Tick advances the clock by one frame
func (c *BeatClock) Tick() {
	if c.source == nil || !c.source.IsPlaying() {
		return
	}

	sample := c.Sample()
	now := c.Now()

	// Playback moved back (loop or seek): the grid follows the track again
	backward := c.hasInterval && sample.Adjusted < c.lastAdjusted
	if backward {
		c.rebaseGrid()
		sample.Interval = sample.Adjusted / c.expectedInterval()
	}
	c.lastAdjusted = sample.Adjusted
	floor := sample.Floor()

	switch {
	case !c.hasInterval:
		c.hasInterval = true
		c.lastInterval = floor
		c.RecordBeat(now)

	case floor != c.lastInterval:
		if backward {
			if c.source.LoopEnabled() {
				c.NotifyPossibleLoop()
			} else {
				c.log.Warn().
					Int("from", c.lastInterval).
					Int("to", floor).
					Float64("playback", sample.Raw).
					Msg("playback moved backwards without loop")
			}
		}
		c.lastInterval = floor
		c.RecordBeat(now)
	}

	c.evaluatePreTriggers(now)
}

// RecordBeat validates a beat observed at now (scene seconds) and publishes the next index
// Returns the published index
func (c *BeatClock) RecordBeat(now float64) int {
	valid := true
	if c.state.HasLastBeat && !c.retimed {
		valid = c.validate(now)
	}

	c.state.LastBeatTime = now
	c.state.HasLastBeat = true
	c.beatIndex++
	c.pendingReset = false
	c.pendingDestroy = false
	c.retimed = false

	c.bus.PublishBeat(c.beatIndex, now, valid)
	c.obs.BeatPublished(c.beatIndex, c.state)
	c.prunePreTriggers()
	return c.beatIndex
}

// validate classifies the interval ending at now and applies recovery
// Returns whether the beat counts as valid
func (c *BeatClock) validate(now float64) bool {
	expected := c.expectedInterval()
	actual := now - c.state.LastBeatTime
	deviationSec := math.Abs(actual - expected)
	deviationPct := deviationSec / expected * 100

	if deviationSec > c.settings.LoopThreshold.Seconds() {
		// Accepted, the valid streak restarts from the discontinuity
		c.markLoop(now)
		c.state.ConsecutiveInvalidBeats = 0
		c.obs.Anomaly(AnomalyLoopDiscontinuity)
		c.log.Debug().
			Int("beat", c.beatIndex+1).
			Float64("deviation_sec", deviationSec).
			Msg("loop discontinuity")
		return true
	}

	inGrace := c.state.InGrace(now, c.settings.LoopGraceWindow.Seconds())
	tolerance := c.settings.TolerancePercent
	if inGrace {
		tolerance *= parameter.GraceToleranceMultiplier
	}

	if deviationPct <= tolerance+deviationEpsilon {
		c.state.ConsecutiveValidBeats++
		c.state.ConsecutiveInvalidBeats = 0
		if c.state.PossibleLoopDetected && c.state.ConsecutiveValidBeats >= parameter.LoopClearValidBeats {
			c.state.PossibleLoopDetected = false
		}
		if !c.state.TimingValid && c.state.ConsecutiveValidBeats >= parameter.TimingRestoreValidBeats {
			c.state.TimingValid = true
			c.log.Info().Int("beat", c.beatIndex+1).Msg("timing restored")
		}
		return true
	}

	c.state.ConsecutiveInvalidBeats++
	c.state.ConsecutiveValidBeats = 0
	c.state.TimingValid = false

	severe := c.settings.TolerancePercent * parameter.SevereDeviationMultiplier
	switch {
	case deviationPct > severe+deviationEpsilon:
		c.obs.Anomaly(AnomalySevereDeviation)
		c.log.Warn().
			Int("beat", c.beatIndex+1).
			Float64("deviation_pct", deviationPct).
			Msg("severe deviation, resetting timing")
		c.resetTo(0, c.settings.DestroyTimedActorsOnReset, event.ResetSevereDeviation)

	case !inGrace && c.state.ConsecutiveInvalidBeats >= c.settings.ResetThreshold:
		c.obs.Anomaly(AnomalySustainedDesync)
		c.log.Warn().
			Int("beat", c.beatIndex+1).
			Int("invalid", c.state.ConsecutiveInvalidBeats).
			Msg("sustained desync, resetting timing")
		c.resetTo(0, c.settings.DestroyTimedActorsOnReset, event.ResetSustainedDesync)

	default:
		c.obs.Anomaly(AnomalyTransientDeviation)
		c.log.Debug().
			Int("beat", c.beatIndex+1).
			Float64("deviation_pct", deviationPct).
			Bool("grace", inGrace).
			Msg("beat outside tolerance")
	}
	return false
}

// Reset restarts numbering so the next published beat is 0
func (c *BeatClock) Reset(destroyTimedActors bool) {
	c.resetTo(0, destroyTimedActors, event.ResetManual)
}

// ResetTo restarts numbering so the next published beat is next
func (c *BeatClock) ResetTo(next int, destroyTimedActors bool) {
	c.resetTo(next, destroyTimedActors, event.ResetManual)
}

// ForceResetTiming is the operator reset, using the configured destroy policy
func (c *BeatClock) ForceResetTiming() {
	c.resetTo(0, c.settings.DestroyTimedActorsOnReset, event.ResetManual)
}

// ForceSetBeatIndex makes v the next published beat, timed actors are kept
func (c *BeatClock) ForceSetBeatIndex(v int) {
	c.resetTo(v, false, event.ResetForcedIndex)
}

func (c *BeatClock) resetTo(next int, destroy bool, reason event.ResetReason) {
	if next < 0 {
		next = 0
	}
	// Repeated requests before the next beat collapse into one, unless the
	// later one asks to destroy timed actors the pending one kept
	if c.pendingReset && c.beatIndex == next-1 && (c.pendingDestroy || !destroy) {
		return
	}

	c.beatIndex = next - 1
	c.state = newTimingState()
	c.pendingReset = true
	c.pendingDestroy = destroy
	c.retimed = false
	clear(c.fired)

	c.obs.TimingReset(reason)
	c.log.Info().
		Int("next", next).
		Bool("destroy", destroy).
		Str("reason", reason.String()).
		Msg("timing reset")

	c.bus.PublishTimingReset(event.TimingResetPayload{
		DestroyTimedActors: destroy,
		NextIndex:          next,
		Reason:             reason,
	})
}

// NotifyPossibleLoop opens the loop grace window from now
func (c *BeatClock) NotifyPossibleLoop() {
	c.markLoop(c.Now())
}

// markLoop flags a loop and restarts the valid streak that will clear it
func (c *BeatClock) markLoop(now float64) {
	c.state.PossibleLoopDetected = true
	c.state.ConsecutiveValidBeats = 0
	c.state.HasLoop = true
	c.state.LastLoopTime = now
}

// ApplySettings swaps tuning without touching timing state
func (c *BeatClock) ApplySettings(s ClockSettings) {
	s = s.normalized()
	// A latency change moves adjusted time, not playback
	c.lastAdjusted += (s.LatencyOffset - c.settings.LatencyOffset).Seconds()
	c.settings = s
	if c.source == nil || c.source.CurrentBPM() <= 0 {
		c.bpm = c.settings.BPM
	}
	clear(c.fired)
}

// Settings returns the active tuning
func (c *BeatClock) Settings() ClockSettings {
	return c.settings
}

// BeatIndex returns the last published index, -1 before the first beat of an epoch
func (c *BeatClock) BeatIndex() int {
	return c.beatIndex
}

// TimingValid reports whether recent beats are within tolerance
func (c *BeatClock) TimingValid() bool {
	return c.state.TimingValid
}

// CurrentBPM returns the tempo used for the expected interval
func (c *BeatClock) CurrentBPM() float64 {
	return c.bpm
}

// State returns a copy of the timing state
func (c *BeatClock) State() TimingState {
	return c.state
}

func (c *BeatClock) refreshBPM() {
	if c.source == nil {
		return
	}
	bpm := c.source.CurrentBPM()
	if bpm <= 0 || math.IsNaN(bpm) || math.IsInf(bpm, 0) {
		return
	}
	c.bpm = parameter.ClampBPM(bpm)
}

func (c *BeatClock) expectedInterval() float64 {
	return parameter.IntervalSeconds(c.bpm, c.settings.StepsPerInterval)
}

func floorInt(x float64) int {
	return int(math.Floor(x))
}
