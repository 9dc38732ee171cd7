// Package actor holds the beat-driven actor kinds and the world that owns their lifetime
package actor

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/motion"
	"github.com/lixenwraith/beatkeeper/schedule"
)

// ID identifies a spawned actor, UUIDv7 so ids sort by spawn time
type ID = uuid.UUID

// Kind is the actor type
type Kind uint8

const (
	KindEnemy Kind = iota
	KindTurret
	KindProjectile
	KindTrap
)

var kindNames = [...]string{
	KindEnemy:      "enemy",
	KindTurret:     "turret",
	KindProjectile: "projectile",
	KindTrap:       "trap",
}

func (k Kind) String() string {
	if int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// Entity is anything the world can spawn
type Entity interface {
	schedule.Actor
	ID() ID
	Kind() Kind
	Rendered() core.Vec2
	// Convention is fixed per kind
	Convention() schedule.Convention
	entity() *base
}

// base carries the state shared by all kinds
type base struct {
	id      ID
	kind    Kind
	start   core.Vec2
	world   *World
	mover   *motion.Mover
	binding *schedule.Binding
	log     zerolog.Logger
	warned  map[string]bool
	alive   bool
}

func newBase(kind Kind, start core.Vec2) base {
	return base{kind: kind, start: start}
}

func (b *base) entity() *base { return b }

// ID returns the world-assigned id
func (b *base) ID() ID { return b.id }

// Kind returns the actor type
func (b *base) Kind() Kind { return b.kind }

// Alive reports whether the actor is still in its world
func (b *base) Alive() bool { return b.alive }

// Position returns the logical position
func (b *base) Position() core.Vec2 {
	if b.mover == nil {
		return b.start
	}
	return b.mover.Position()
}

// Rendered returns the glide position
func (b *base) Rendered() core.Vec2 {
	if b.mover == nil {
		return b.start
	}
	return b.mover.Rendered()
}

// Update advances the glide
func (b *base) Update(now time.Time) {
	if b.mover != nil {
		b.mover.Update(now)
	}
}

// Ticks returns how many scheduled beats the actor has acted on
func (b *base) Ticks() int {
	if b.binding == nil {
		return 0
	}
	return b.binding.Ticks()
}

// collider returns the world collider, warning once per actor when absent
func (b *base) collider() core.Collider {
	if b.world != nil && b.world.collider != nil {
		return b.world.collider
	}
	b.missing("collider")
	return nil
}

// missing logs a missing collaborator once per actor
func (b *base) missing(name string) {
	if b.warned == nil {
		b.warned = make(map[string]bool)
	}
	if b.warned[name] {
		return
	}
	b.warned[name] = true
	b.log.Warn().Str("collaborator", name).Msg("missing collaborator, tick skipped")
}

// damage applies amount to every vulnerable target, returns the number hit
func damage(targets []core.DamageTarget, amount int) int {
	hit := 0
	for _, t := range targets {
		if t == nil || t.IsInvulnerable() {
			continue
		}
		t.TakeDamage(amount)
		hit++
	}
	return hit
}
