package main

import (
	"fmt"
	"math"

	"github.com/gdamore/tcell/v2"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/beatkeeper/actor"
	"github.com/lixenwraith/beatkeeper/config"
	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/engine"
	"github.com/lixenwraith/beatkeeper/event"
	"github.com/lixenwraith/beatkeeper/motion"
	"github.com/lixenwraith/beatkeeper/render"
)

// dummy is a static target that refills when knocked out
type dummy struct {
	cell      core.Cell
	hp, maxHP int
	knockouts int
}

func (d *dummy) TakeDamage(amount int) {
	d.hp -= amount
	if d.hp <= 0 {
		d.knockouts++
		d.hp = d.maxHP
	}
}

func (d *dummy) IsInvulnerable() bool { return false }

// field answers actor collision queries against the dummies
type field struct {
	arena   render.Arena
	dummies []*dummy
}

var _ core.Collider = (*field)(nil)

func (f *field) at(c core.Cell) []core.DamageTarget {
	var out []core.DamageTarget
	for _, d := range f.dummies {
		if d.cell == c {
			out = append(out, d)
		}
	}
	return out
}

func (f *field) TargetsAt(pos core.Vec2) []core.DamageTarget {
	return f.at(f.arena.WorldToCell(pos))
}

// TargetsAlong samples every cell crossed from..to, excluding from
func (f *field) TargetsAlong(from, to core.Vec2) []core.DamageTarget {
	a, b := f.arena.WorldToCell(from), f.arena.WorldToCell(to)
	dx, dy := b.X-a.X, b.Y-a.Y
	n := max(abs(dx), abs(dy))

	var out []core.DamageTarget
	for i := 1; i <= n; i++ {
		c := core.Cell{
			X: a.X + int(math.Round(float64(i*dx)/float64(n))),
			Y: a.Y + int(math.Round(float64(i*dy)/float64(n))),
		}
		out = append(out, f.at(c)...)
	}
	return out
}

var styleDummy = render.StyleDefault.Foreground(tcell.ColorLightGreen)

// glyphs draws each dummy as its remaining hit points, capped at 9
func (f *field) glyphs() []render.Glyph {
	out := make([]render.Glyph, 0, len(f.dummies))
	for _, d := range f.dummies {
		out = append(out, render.Glyph{Cell: d.cell, Rune: rune('0' + min(d.hp, 9)), Style: styleDummy})
	}
	return out
}

func (f *field) knockouts() int {
	n := 0
	for _, d := range f.dummies {
		n += d.knockouts
	}
	return n
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// sandbox is the configured arena: world, targets and their collaborators
type sandbox struct {
	arena render.Arena
	field *field
	world *actor.World
}

func newSandbox(cfg config.SandboxConfig, bus *event.Bus, tp engine.TimeProvider, tempo motion.TempoFunc, obs actor.Observer, log zerolog.Logger) (*sandbox, error) {
	arena := render.NewArena(cfg.Width, cfg.Height)
	f := &field{arena: arena}
	for _, d := range cfg.Dummies {
		f.dummies = append(f.dummies, &dummy{
			cell:  arena.WorldToCell(d.At.Vec2()),
			hp:    d.HP,
			maxHP: d.HP,
		})
	}

	world := actor.NewWorld(bus,
		actor.WithGrid(arena),
		actor.WithCollider(f),
		actor.WithClock(tp),
		actor.WithTempo(tempo),
		actor.WithObserver(obs),
		actor.WithLogger(log),
	)

	for i, e := range cfg.Enemies {
		path, err := motion.ParsePath(e.Path)
		if err != nil {
			return nil, fmt.Errorf("enemy %d: %w", i, err)
		}
		world.Spawn(actor.NewEnemy(e.At.Vec2(), path, e.Mode), e.Spec())
	}
	for _, t := range cfg.Turrets {
		projectile := actor.ProjectileSpec{
			Schedule: t.Projectile.Spec(),
			Lifetime: t.Projectile.Lifetime,
			Damage:   t.Projectile.Damage,
		}
		world.Spawn(actor.NewTurret(t.At.Vec2(), t.Facing, projectile), t.Spec())
	}
	for _, t := range cfg.Traps {
		world.Spawn(actor.NewTrap(t.At.Vec2()), t.Spec())
	}

	return &sandbox{arena: arena, field: f, world: world}, nil
}
