package motion

import (
	"time"

	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/engine"
	"github.com/lixenwraith/beatkeeper/parameter"
)

// TempoFunc reports the live tempo, read every frame while a glide runs
type TempoFunc func() float64

// Mover turns step directions into world positions
// The logical position changes on Step, the rendered position follows through a glide
type Mover struct {
	grid         core.Grid
	clock        engine.TimeProvider
	tempo        TempoFunc
	stepDistance float64
	roundToStep  bool
	instant      bool
	beatsPerMove float64
	lerpFraction float64

	logical  core.Vec2
	rendered core.Vec2
	glide    *Glide
}

// MoverOption configures a Mover
type MoverOption func(*Mover)

// WithGrid snaps targets to cell centers
func WithGrid(g core.Grid) MoverOption {
	return func(m *Mover) { m.grid = g }
}

// WithClock sets the scene clock glides are timed against
func WithClock(tp engine.TimeProvider) MoverOption {
	return func(m *Mover) {
		if tp != nil {
			m.clock = tp
		}
	}
}

// WithTempo sets the live tempo source
func WithTempo(fn TempoFunc) MoverOption {
	return func(m *Mover) { m.tempo = fn }
}

// WithStepDistance sets world units per step
func WithStepDistance(d float64) MoverOption {
	return func(m *Mover) {
		if d > 0 {
			m.stepDistance = d
		}
	}
}

// WithRoundToStep snaps to step-distance multiples when no grid is set
func WithRoundToStep() MoverOption {
	return func(m *Mover) { m.roundToStep = true }
}

// WithInstant disables gliding
func WithInstant() MoverOption {
	return func(m *Mover) { m.instant = true }
}

// WithGlide sets the move interval in beats and the share of it spent gliding
func WithGlide(beatsPerMove, lerpFraction float64) MoverOption {
	return func(m *Mover) {
		if beatsPerMove > 0 {
			m.beatsPerMove = beatsPerMove
		}
		if lerpFraction > 0 {
			m.lerpFraction = lerpFraction
		}
	}
}

// NewMover places a mover at start, snapped like any step target
func NewMover(start core.Vec2, opts ...MoverOption) *Mover {
	m := &Mover{
		clock:        engine.NewMonotonicTimeProvider(),
		stepDistance: parameter.DefaultStepDistance,
		beatsPerMove: 1,
		lerpFraction: parameter.DefaultLerpFraction,
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logical = m.snap(start)
	m.rendered = m.logical
	return m
}

func (m *Mover) snap(p core.Vec2) core.Vec2 {
	if m.grid != nil {
		return m.grid.CellCenterWorld(m.grid.WorldToCell(p))
	}
	if m.roundToStep {
		return p.RoundTo(m.stepDistance)
	}
	return p
}

// Step moves the logical position one step in dir and returns the new target
// An in-flight glide is cancelled and the new one starts from the current rendered position
func (m *Mover) Step(dir core.Direction) core.Vec2 {
	target := m.snap(m.logical.Add(dir.Vector().Scale(m.stepDistance)))

	if m.instant {
		m.logical = target
		m.rendered = target
		m.glide = nil
		return target
	}

	now := m.clock.Now()
	from := m.Update(now)
	m.logical = target
	m.glide = &Glide{
		From:         from,
		To:           target,
		Start:        now,
		BeatsPerMove: m.beatsPerMove,
		LerpFraction: m.lerpFraction,
	}
	return target
}

// Update advances the glide to now and returns the rendered position
func (m *Mover) Update(now time.Time) core.Vec2 {
	if m.glide == nil {
		return m.rendered
	}

	t := m.glide.Progress(now, m.bpm())
	m.rendered = m.glide.At(t)
	if t >= 1 {
		m.rendered = m.glide.To
		m.glide = nil
	}
	return m.rendered
}

// Settle drops any glide and renders at the logical position
func (m *Mover) Settle() {
	m.glide = nil
	m.rendered = m.logical
}

// Teleport snaps both positions to p without gliding
func (m *Mover) Teleport(p core.Vec2) {
	m.logical = m.snap(p)
	m.Settle()
}

// Position returns the logical position
func (m *Mover) Position() core.Vec2 {
	return m.logical
}

// Rendered returns the last rendered position
func (m *Mover) Rendered() core.Vec2 {
	return m.rendered
}

// Gliding reports an in-flight glide
func (m *Mover) Gliding() bool {
	return m.glide != nil
}

func (m *Mover) bpm() float64 {
	if m.tempo == nil {
		return parameter.DefaultBPM
	}
	return m.tempo()
}
