package render

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/beatkeeper/actor"
	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/event"
	"github.com/lixenwraith/beatkeeper/motion"
	"github.com/lixenwraith/beatkeeper/schedule"
	"github.com/lixenwraith/beatkeeper/status"
)

func TestArena_Grid(t *testing.T) {
	a := NewArena(10, 5)

	tests := []struct {
		name string
		pos  core.Vec2
		want core.Cell
	}{
		{"inside", core.Vec2{X: 3.7, Y: 2.1}, core.Cell{X: 3, Y: 2}},
		{"negative clamps", core.Vec2{X: -0.5, Y: -4}, core.Cell{X: 0, Y: 0}},
		{"past edge clamps", core.Vec2{X: 12, Y: 5}, core.Cell{X: 9, Y: 4}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.WorldToCell(tt.pos))
		})
	}

	assert.Equal(t, core.Vec2{X: 3.5, Y: 2.5}, a.CellCenterWorld(core.Cell{X: 3, Y: 2}))
	assert.True(t, a.Contains(core.Cell{X: 9, Y: 4}))
	assert.False(t, a.Contains(core.Cell{X: 10, Y: 0}))
}

func simScreen(t *testing.T, w, h int) tcell.SimulationScreen {
	t.Helper()
	s := tcell.NewSimulationScreen("UTF-8")
	require.NoError(t, s.Init())
	s.SetSize(w, h)
	t.Cleanup(s.Fini)
	return s
}

func runeAt(s tcell.Screen, x, y int) rune {
	r, _, _, _ := s.GetContent(x, y)
	return r
}

func TestView_DrawsActorsInsideBorder(t *testing.T) {
	arena := NewArena(12, 6)
	bus := event.NewBus()
	world := actor.NewWorld(bus, actor.WithGrid(arena), actor.WithInstantMoves())

	path, err := motion.ParsePath("right*2")
	require.NoError(t, err)
	world.Spawn(actor.NewEnemy(core.Vec2{X: 1, Y: 1}, path, motion.ModeLoop), schedule.NewSpec(1, 0))
	world.Spawn(actor.NewTurret(core.Vec2{X: 0, Y: 3}, core.DirRight, actor.DefaultProjectileSpec()), schedule.NewSpec(4, 0))
	world.Spawn(actor.NewTrap(core.Vec2{X: 5, Y: 5}), schedule.NewSpec(2, 0))

	bus.PublishBeat(0, 0, true)

	w, h := NewView(nil, arena).Size()
	screen := simScreen(t, w, h)
	view := NewView(screen, arena)

	view.Draw(world, status.NewBoard().Snapshot(), []Glyph{{Cell: core.Cell{X: 8, Y: 2}, Rune: 'D', Style: StyleDefault}})

	assert.Equal(t, tcell.RuneULCorner, runeAt(screen, 0, 0))
	assert.Equal(t, tcell.RuneLRCorner, runeAt(screen, arena.Width+1, arena.Height+1))

	// Enemy stepped right once from cell (1,1), drawn at +1 border offset
	assert.Equal(t, 'E', runeAt(screen, 3, 2))
	// Turret fired on its first local beat, the projectile waits at the muzzle
	assert.Equal(t, '>', runeAt(screen, 1, 4))
	assert.Equal(t, '•', runeAt(screen, 2, 4))
	assert.Equal(t, '△', runeAt(screen, 6, 6))
	assert.Equal(t, 'D', runeAt(screen, 9, 3))
}

func TestView_ChargingTurret(t *testing.T) {
	arena := NewArena(4, 4)
	bus := event.NewBus()
	world := actor.NewWorld(bus, actor.WithGrid(arena))
	world.Spawn(actor.NewTurret(core.Vec2{X: 1, Y: 1}, core.DirUp, actor.DefaultProjectileSpec()), schedule.NewSpec(2, 0))

	bus.PublishBeat(0, 0, true)
	bus.PublishPreTrigger(event.PreTriggerPayload{EveryN: 2, ActionBeat: 2, BeatsBeforeAction: 1})

	w, h := NewView(nil, arena).Size()
	screen := simScreen(t, w, h)
	NewView(screen, arena).Draw(world, status.NewBoard().Snapshot(), nil)

	assert.Equal(t, '*', runeAt(screen, 2, 2))
}

func TestStatusLine(t *testing.T) {
	tests := []struct {
		name string
		snap status.Snapshot
		want string
	}{
		{
			"before first beat",
			status.Snapshot{Beat: -1, BPM: 120, TimingValid: true},
			"beat -     bpm 120.0  timing ok  resets 0",
		},
		{
			"invalid with reset",
			status.Snapshot{Beat: 12, BPM: 96, InvalidStreak: 3, Resets: 1, LastReset: "manual"},
			"beat 12    bpm  96.0  timing INVALID(3)  resets 1 (manual)",
		},
		{
			"loop with actors",
			status.Snapshot{
				Beat: 4, BPM: 120, TimingValid: true, LoopDetected: true,
				Actors: []status.Count{{Key: "enemy", Value: 2}, {Key: "trap", Value: 1}},
			},
			"beat 4     bpm 120.0  timing loop  resets 0  enemy 2  trap 1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusLine(tt.snap))
		})
	}
}
