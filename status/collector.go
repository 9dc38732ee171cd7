package status

import (
	"github.com/lixenwraith/beatkeeper/actor"
	"github.com/lixenwraith/beatkeeper/engine"
	"github.com/lixenwraith/beatkeeper/event"
)

// Collector feeds clock and actor diagnostics into a Board and optional Metrics
// Implements engine.Observer and actor.Observer
type Collector struct {
	board   *Board
	metrics *Metrics // nil disables Prometheus
}

// NewCollector creates a collector, metrics may be nil
func NewCollector(board *Board, metrics *Metrics) *Collector {
	return &Collector{board: board, metrics: metrics}
}

var (
	_ engine.Observer = (*Collector)(nil)
	_ actor.Observer  = (*Collector)(nil)
)

func (c *Collector) BeatPublished(index int, state engine.TimingState) {
	c.board.Beat.Store(int64(index))
	c.board.TimingValid.Store(state.TimingValid)
	c.board.LoopDetected.Store(state.PossibleLoopDetected)
	c.board.InvalidStreak.Store(int64(state.ConsecutiveInvalidBeats))

	if c.metrics == nil {
		return
	}
	timing := "valid"
	valid := 1.0
	if !state.TimingValid {
		timing = "invalid"
		valid = 0
	}
	c.metrics.beats.WithLabelValues(timing).Inc()
	c.metrics.beatIndex.Set(float64(index))
	c.metrics.timingValid.Set(valid)
	c.metrics.invalidStreak.Set(float64(state.ConsecutiveInvalidBeats))
}

func (c *Collector) Anomaly(a engine.Anomaly) {
	c.board.Anomalies.Get(a.String()).Add(1)
	if c.metrics != nil {
		c.metrics.anomalies.WithLabelValues(a.String()).Inc()
	}
}

func (c *Collector) TimingReset(reason event.ResetReason) {
	c.board.Resets.Add(1)
	c.board.LastReset.Store(reason.String())
	if c.metrics != nil {
		c.metrics.resets.WithLabelValues(reason.String()).Inc()
	}
}

func (c *Collector) PreTriggerFired() {
	if c.metrics != nil {
		c.metrics.preTriggers.WithLabelValues("fired").Inc()
	}
}

func (c *Collector) PreTriggerSuppressed() {
	if c.metrics != nil {
		c.metrics.preTriggers.WithLabelValues("suppressed").Inc()
	}
}

func (c *Collector) ActorSpawned(kind actor.Kind) {
	n := c.board.Actors.Get(kind.String()).Add(1)
	if c.metrics != nil {
		c.metrics.actors.WithLabelValues(kind.String()).Set(float64(n))
	}
}

func (c *Collector) ActorDestroyed(kind actor.Kind) {
	n := c.board.Actors.Get(kind.String()).Add(-1)
	if c.metrics != nil {
		c.metrics.actors.WithLabelValues(kind.String()).Set(float64(n))
	}
}

// SetBPM records the tempo the clock is running at
func (c *Collector) SetBPM(bpm float64) {
	c.board.BPM.Set(bpm)
}
