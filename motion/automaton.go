package motion

import (
	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/parameter"
)

// State is the automaton's position in its path
type State struct {
	PathIndex     int
	StepsTaken    int // Steps already taken in the current segment
	MovingForward bool
}

// Automaton yields one direction per scheduled tick
//
// Ping-pong walks every segment forward, then the same segments from the last
// back to index 0 with opposite directions, so each cycle ends where it began.
// The end segments are walked twice in a row, once each way: a cycle moves the
// index pointer 2*(L-1) times and flips twice, taking 2*L ticks for L unit
// segments. A single-segment ping-pong alternates its direction
type Automaton struct {
	path     Path
	mode     Mode
	state    State
	maxSkips int
}

// NewAutomaton copies path and starts at the first segment moving forward
func NewAutomaton(path Path, mode Mode) *Automaton {
	p := make(Path, len(path))
	copy(p, path)
	return &Automaton{
		path:     p,
		mode:     mode,
		state:    State{MovingForward: true},
		maxSkips: parameter.MaxZeroSegmentSkips,
	}
}

// Next returns the direction for this tick and advances the state
// Returns false when no movable segment is reachable within the skip limit
func (a *Automaton) Next() (core.Direction, bool) {
	if len(a.path) == 0 {
		return core.DirNone, false
	}

	for skips := 0; a.path[a.state.PathIndex].Count <= 0; skips++ {
		if skips >= a.maxSkips {
			return core.DirNone, false
		}
		a.state.StepsTaken = 0
		a.advance()
	}

	seg := a.path[a.state.PathIndex]
	dir := seg.Direction
	if a.mode == ModePingPong && !a.state.MovingForward {
		dir = dir.Opposite()
	}

	a.state.StepsTaken++
	if a.state.StepsTaken >= seg.Count {
		a.state.StepsTaken = 0
		a.advance()
	}
	return dir, true
}

func (a *Automaton) advance() {
	n := len(a.path)
	if a.mode == ModeLoop {
		a.state.PathIndex = (a.state.PathIndex + 1) % n
		return
	}

	// At either end the same segment is walked again reversed
	switch {
	case a.state.MovingForward && a.state.PathIndex >= n-1:
		a.state.MovingForward = false
	case !a.state.MovingForward && a.state.PathIndex <= 0:
		a.state.MovingForward = true
	case a.state.MovingForward:
		a.state.PathIndex++
	default:
		a.state.PathIndex--
	}
}

// State returns a copy of the current state
func (a *Automaton) State() State {
	return a.state
}

// Reset returns to the first segment moving forward
func (a *Automaton) Reset() {
	a.state = State{MovingForward: true}
}

// Path returns the walked path
func (a *Automaton) Path() Path {
	return a.path
}

// Mode returns the walk mode
func (a *Automaton) Mode() Mode {
	return a.mode
}
