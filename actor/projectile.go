package actor

import (
	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/schedule"
)

// Projectile flies straight on a local phase that starts at spawn
// It is a timed actor: a destroying TimingReset removes it
type Projectile struct {
	base
	dir      core.Direction
	lifetime int
	dmg      int
	moves    int
}

// NewProjectile creates a projectile at pos moving in dir
func NewProjectile(pos core.Vec2, dir core.Direction, lifetime, dmg int) *Projectile {
	if lifetime < 1 {
		lifetime = 1
	}
	return &Projectile{
		base:     newBase(KindProjectile, pos),
		dir:      dir,
		lifetime: lifetime,
		dmg:      dmg,
	}
}

func (p *Projectile) Convention() schedule.Convention { return schedule.ConventionLocal }

// Tick moves one step and damages everything along the swept segment
func (p *Projectile) Tick() {
	col := p.collider()
	if col == nil {
		return
	}

	from := p.Position()
	to := p.mover.Step(p.dir)
	p.moves++

	if damage(col.TargetsAlong(from, to), p.dmg) > 0 || p.moves >= p.lifetime {
		p.world.Destroy(p.id)
	}
}

// OnTimingReset destroys or resyncs: the glide lands and the local phase restarts
func (p *Projectile) OnTimingReset(destroyTimedActors bool) {
	if destroyTimedActors {
		p.world.Destroy(p.id)
		return
	}
	p.mover.Settle()
	p.binding.Gate().ResetCounter()
}

// Moves returns steps taken so far
func (p *Projectile) Moves() int {
	return p.moves
}
