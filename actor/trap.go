package actor

import (
	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/event"
	"github.com/lixenwraith/beatkeeper/parameter"
	"github.com/lixenwraith/beatkeeper/schedule"
)

// Trap strikes its cell on the global phase so all traps on a level fire together
type Trap struct {
	base
	dmg     int
	armed   bool
	strikes int
}

// NewTrap creates a trap at pos
func NewTrap(pos core.Vec2) *Trap {
	return &Trap{
		base: newBase(KindTrap, pos),
		dmg:  parameter.DefaultTrapDamage,
	}
}

func (t *Trap) Convention() schedule.Convention { return schedule.ConventionGlobal }

// Tick damages every vulnerable target on the trap's cell
func (t *Trap) Tick() {
	t.armed = false
	col := t.collider()
	if col == nil {
		return
	}
	t.strikes++
	damage(col.TargetsAt(t.Position()), t.dmg)
}

// OnPreTrigger raises the spikes ahead of the strike
func (t *Trap) OnPreTrigger(event.PreTriggerPayload) {
	t.armed = true
}

// Armed reports a strike announced by a pre-trigger
func (t *Trap) Armed() bool {
	return t.armed
}

// Strikes returns how many times the trap has struck
func (t *Trap) Strikes() int {
	return t.strikes
}
