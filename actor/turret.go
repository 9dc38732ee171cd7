package actor

import (
	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/event"
	"github.com/lixenwraith/beatkeeper/parameter"
	"github.com/lixenwraith/beatkeeper/schedule"
)

// ProjectileSpec describes what a turret fires
type ProjectileSpec struct {
	Schedule schedule.Spec
	Lifetime int // Moves before expiry
	Damage   int
}

// DefaultProjectileSpec moves every beat
func DefaultProjectileSpec() ProjectileSpec {
	return ProjectileSpec{
		Schedule: schedule.NewSpec(1, 0),
		Lifetime: parameter.DefaultProjectileLifetime,
		Damage:   parameter.DefaultProjectileDamage,
	}
}

// Turret fires projectiles on its own local phase, which starts when it is placed
type Turret struct {
	base
	facing     core.Direction
	projectile ProjectileSpec

	charging bool
	shots    int
	live     []ID // Fired projectiles still in the world, pruned on every shot
}

// NewTurret creates a turret at pos firing towards facing
func NewTurret(pos core.Vec2, facing core.Direction, projectile ProjectileSpec) *Turret {
	return &Turret{
		base:       newBase(KindTurret, pos),
		facing:     facing,
		projectile: projectile,
	}
}

func (t *Turret) Convention() schedule.Convention { return schedule.ConventionLocal }

// Tick spawns a projectile one step ahead
func (t *Turret) Tick() {
	t.charging = false
	if t.world == nil {
		t.missing("world")
		return
	}

	muzzle := t.Position().Add(t.facing.Vector().Scale(t.world.step))
	p := NewProjectile(muzzle, t.facing, t.projectile.Lifetime, t.projectile.Damage)
	t.prune()
	t.live = append(t.live, t.world.Spawn(p, t.projectile.Schedule))
	t.shots++
}

// prune forgets projectiles that hit, expired or were destroyed by a reset
func (t *Turret) prune() {
	kept := t.live[:0]
	for _, id := range t.live {
		if _, ok := t.world.Get(id); ok {
			kept = append(kept, id)
		}
	}
	t.live = kept
}

// OnPreTrigger starts the charge-up tell ahead of a shot
func (t *Turret) OnPreTrigger(event.PreTriggerPayload) {
	t.charging = true
}

// Charging reports an announced upcoming shot
func (t *Turret) Charging() bool {
	return t.charging
}

// Facing returns the firing direction
func (t *Turret) Facing() core.Direction {
	return t.facing
}

// Projectiles returns ids of this turret's projectiles still in the world, oldest first
func (t *Turret) Projectiles() []ID {
	if t.world != nil {
		t.prune()
	}
	return t.live
}

// Shots returns the number of projectiles fired so far
func (t *Turret) Shots() int {
	return t.shots
}
