package actor

import (
	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/motion"
	"github.com/lixenwraith/beatkeeper/parameter"
	"github.com/lixenwraith/beatkeeper/schedule"
)

// Enemy walks a path on the shared global phase, hurting whatever it steps onto
type Enemy struct {
	base
	auto          *motion.Automaton
	contactDamage int
}

// NewEnemy creates an enemy that walks path from start
func NewEnemy(start core.Vec2, path motion.Path, mode motion.Mode) *Enemy {
	return &Enemy{
		base:          newBase(KindEnemy, start),
		auto:          motion.NewAutomaton(path, mode),
		contactDamage: parameter.DefaultContactDamage,
	}
}

func (e *Enemy) Convention() schedule.Convention { return schedule.ConventionGlobal }

// Tick takes one step and applies contact damage at the new cell
func (e *Enemy) Tick() {
	dir, ok := e.auto.Next()
	if !ok {
		return
	}
	to := e.mover.Step(dir)

	// Contact damage is optional, walking never depends on a collider
	if e.world != nil && e.world.collider != nil {
		damage(e.world.collider.TargetsAt(to), e.contactDamage)
	}
}

// OnTimingReset snaps a mid-glide enemy onto its cell, phase follows the new numbering
func (e *Enemy) OnTimingReset(bool) {
	e.mover.Settle()
}

// State returns the path state
func (e *Enemy) State() motion.State {
	return e.auto.State()
}
