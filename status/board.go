// Package status exposes live clock and actor state to the HUD and to Prometheus
package status

import "sync/atomic"

// Board is the live status written from the scheduler goroutine and read by the renderer
// Every field is an atomic, readers never block the frame loop
type Board struct {
	Beat          atomic.Int64
	TimingValid   atomic.Bool
	LoopDetected  atomic.Bool
	InvalidStreak atomic.Int64
	BPM           AtomicFloat
	LastReset     AtomicLabel
	Resets        atomic.Int64

	// Keyed counters: anomaly names and live actor kinds
	Anomalies *MetricMap[atomic.Int64]
	Actors    *MetricMap[atomic.Int64]
}

// NewBoard creates a board in the pre-first-beat state
func NewBoard() *Board {
	b := &Board{
		Anomalies: NewMetricMap[atomic.Int64](),
		Actors:    NewMetricMap[atomic.Int64](),
	}
	b.Beat.Store(-1)
	b.TimingValid.Store(true)
	return b
}

// Count is one keyed counter in a snapshot
type Count struct {
	Key   string
	Value int64
}

// Snapshot is a consistent-enough copy for one rendered frame
type Snapshot struct {
	Beat          int
	TimingValid   bool
	LoopDetected  bool
	InvalidStreak int
	BPM           float64
	LastReset     string
	Resets        int64
	Anomalies     []Count
	Actors        []Count
}

// Snapshot copies the board, keyed counters sorted by key
func (b *Board) Snapshot() Snapshot {
	s := Snapshot{
		Beat:          int(b.Beat.Load()),
		TimingValid:   b.TimingValid.Load(),
		LoopDetected:  b.LoopDetected.Load(),
		InvalidStreak: int(b.InvalidStreak.Load()),
		BPM:           b.BPM.Get(),
		LastReset:     b.LastReset.Load(),
		Resets:        b.Resets.Load(),
	}
	b.Anomalies.Range(func(k string, v *atomic.Int64) {
		s.Anomalies = append(s.Anomalies, Count{Key: k, Value: v.Load()})
	})
	b.Actors.Range(func(k string, v *atomic.Int64) {
		s.Actors = append(s.Actors, Count{Key: k, Value: v.Load()})
	})
	return s
}
