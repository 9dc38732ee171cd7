// Package render draws the sandbox arena and HUD on a tcell screen
package render

import (
	"math"

	"github.com/lixenwraith/beatkeeper/core"
)

// Arena is the sandbox tilemap, one world unit per terminal cell
// Positions outside the arena clamp to the border cells
type Arena struct {
	Width, Height int
}

// NewArena creates an arena of at least one cell
func NewArena(width, height int) Arena {
	return Arena{Width: max(1, width), Height: max(1, height)}
}

var _ core.Grid = Arena{}

// WorldToCell implements core.Grid
func (a Arena) WorldToCell(pos core.Vec2) core.Cell {
	return core.Cell{
		X: clampInt(int(math.Floor(pos.X)), 0, a.Width-1),
		Y: clampInt(int(math.Floor(pos.Y)), 0, a.Height-1),
	}
}

// CellCenterWorld implements core.Grid
func (a Arena) CellCenterWorld(c core.Cell) core.Vec2 {
	return core.Vec2{X: float64(c.X) + 0.5, Y: float64(c.Y) + 0.5}
}

// Contains reports whether c is inside the arena
func (a Arena) Contains(c core.Cell) bool {
	return c.X >= 0 && c.Y >= 0 && c.X < a.Width && c.Y < a.Height
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
