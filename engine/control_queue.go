package engine

import (
	"sync"
	"sync/atomic"

	"github.com/lixenwraith/beatkeeper/parameter"
)

// ControlKind identifies an operational request for the clock owner
type ControlKind uint8

const (
	ControlResetTiming ControlKind = iota
	ControlSetBeatIndex
	ControlNotifyLoop
	ControlApplySettings
	ControlPause
	ControlResume
)

var controlNames = [...]string{
	ControlResetTiming:   "reset_timing",
	ControlSetBeatIndex:  "set_beat_index",
	ControlNotifyLoop:    "notify_loop",
	ControlApplySettings: "apply_settings",
	ControlPause:         "pause",
	ControlResume:        "resume",
}

func (k ControlKind) String() string {
	if int(k) >= len(controlNames) {
		return "unknown"
	}
	return controlNames[k]
}

// Control is one queued request
type Control struct {
	Kind     ControlKind
	Index    int            // ControlSetBeatIndex
	Settings *ClockSettings // ControlApplySettings
}

// playback reports controls that set the scheduler's run state
// At most one is pending, the newest wins, and overflow never evicts it
func (k ControlKind) playback() bool {
	return k == ControlPause || k == ControlResume
}

// ControlQueue buffers clock controls between frames
// Thread-Safety: Push from any goroutine, Consume from the scheduler loop only
//
// Pending controls coalesce on push:
//   - Pause and Resume replace any pending Pause or Resume
//   - ApplySettings replaces a pending ApplySettings in place
//   - NotifyLoop is dropped while one is pending
//   - ResetTiming directly after a pending ResetTiming is dropped
//
// Overflow: the oldest control that is not Pause or Resume is evicted
type ControlQueue struct {
	mu      sync.Mutex
	pending []Control
	dropped atomic.Uint64
}

func NewControlQueue() *ControlQueue {
	return &ControlQueue{pending: make([]Control, 0, parameter.ControlQueueSize)}
}

// Push queues ctl, coalescing with pending controls of the same effect
func (q *ControlQueue) Push(ctl Control) {
	q.mu.Lock()
	defer q.mu.Unlock()

	switch {
	case ctl.Kind.playback():
		q.remove(func(c Control) bool { return c.Kind.playback() })

	case ctl.Kind == ControlApplySettings:
		for i := range q.pending {
			if q.pending[i].Kind == ControlApplySettings {
				q.pending[i] = ctl
				return
			}
		}

	case ctl.Kind == ControlNotifyLoop:
		for _, c := range q.pending {
			if c.Kind == ControlNotifyLoop {
				return
			}
		}

	case ctl.Kind == ControlResetTiming:
		if n := len(q.pending); n > 0 && q.pending[n-1].Kind == ControlResetTiming {
			return
		}
	}

	if len(q.pending) >= parameter.ControlQueueSize {
		evicted := false
		for i, c := range q.pending {
			if !c.Kind.playback() {
				q.pending = append(q.pending[:i], q.pending[i+1:]...)
				evicted = true
				break
			}
		}
		q.dropped.Add(1)
		if !evicted {
			return
		}
	}
	q.pending = append(q.pending, ctl)
}

// remove deletes every pending control matching drop, keeping order
func (q *ControlQueue) remove(drop func(Control) bool) {
	kept := q.pending[:0]
	for _, c := range q.pending {
		if !drop(c) {
			kept = append(kept, c)
		}
	}
	q.pending = kept
}

// Consume returns all pending controls in FIFO order
func (q *ControlQueue) Consume() []Control {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.pending) == 0 {
		return nil
	}
	out := make([]Control, len(q.pending))
	copy(out, q.pending)
	q.pending = q.pending[:0]
	return out
}

// Len returns the pending count
func (q *ControlQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Dropped returns the number of controls evicted by overflow
func (q *ControlQueue) Dropped() uint64 {
	return q.dropped.Load()
}
