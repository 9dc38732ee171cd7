package render

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"

	"github.com/lixenwraith/beatkeeper/actor"
	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/parameter"
	"github.com/lixenwraith/beatkeeper/status"
)

// Palette
var (
	StyleDefault    = tcell.StyleDefault.Background(tcell.ColorBlack).Foreground(tcell.ColorSilver)
	styleValid      = StyleDefault.Foreground(tcell.ColorGreen)
	styleInvalid    = StyleDefault.Foreground(tcell.ColorRed)
	styleLoop       = StyleDefault.Foreground(tcell.ColorYellow)
	styleEnemy      = StyleDefault.Foreground(tcell.ColorOrangeRed).Bold(true)
	styleTurret     = StyleDefault.Foreground(tcell.ColorDeepSkyBlue)
	styleCharging   = StyleDefault.Foreground(tcell.ColorAqua).Bold(true)
	styleProjectile = StyleDefault.Foreground(tcell.ColorWhite)
	styleTrap       = StyleDefault.Foreground(tcell.ColorGray)
	styleArmed      = StyleDefault.Foreground(tcell.ColorFuchsia).Bold(true)
	stylePulse      = StyleDefault.Background(tcell.ColorGreen).Foreground(tcell.ColorBlack)
	styleHelp       = StyleDefault.Foreground(tcell.ColorGray)
)

// HelpLine lists the sandbox keys
const HelpLine = "q quit  r reset  0 beat 0  l loop  p pause  +/- bpm  space play"

// Glyph is an extra cell drawn under the actors
type Glyph struct {
	Cell  core.Cell
	Rune  rune
	Style tcell.Style
}

// View draws an arena with a border and a two-line HUD below it
type View struct {
	screen tcell.Screen
	arena  Arena
}

// NewView creates a view, the arena is drawn at (1,1) inside its border
func NewView(screen tcell.Screen, arena Arena) *View {
	return &View{screen: screen, arena: arena}
}

// Arena returns the drawn grid
func (v *View) Arena() Arena {
	return v.arena
}

// Size returns the screen cells needed: border plus HUD
func (v *View) Size() (int, int) {
	return v.arena.Width + 2, v.arena.Height + 4
}

// Draw renders one frame and shows it
func (v *View) Draw(world *actor.World, snap status.Snapshot, extras []Glyph) {
	v.screen.SetStyle(StyleDefault)
	v.screen.Clear()

	v.drawBorder(borderStyle(snap))
	for _, g := range extras {
		v.put(g.Cell, g.Rune, g.Style)
	}
	if world != nil {
		world.Each(func(e actor.Entity) {
			r, style := glyphFor(e)
			v.put(v.arena.WorldToCell(e.Rendered()), r, style)
		})
	}
	v.drawStatus(snap)
	v.screen.Show()
}

func (v *View) put(c core.Cell, r rune, style tcell.Style) {
	if !v.arena.Contains(c) {
		return
	}
	v.screen.SetContent(c.X+1, c.Y+1, r, nil, style)
}

func borderStyle(snap status.Snapshot) tcell.Style {
	switch {
	case !snap.TimingValid:
		return styleInvalid
	case snap.LoopDetected:
		return styleLoop
	default:
		return styleValid
	}
}

func (v *View) drawBorder(style tcell.Style) {
	w, h := v.arena.Width+1, v.arena.Height+1
	for x := 1; x < w; x++ {
		v.screen.SetContent(x, 0, tcell.RuneHLine, nil, style)
		v.screen.SetContent(x, h, tcell.RuneHLine, nil, style)
	}
	for y := 1; y < h; y++ {
		v.screen.SetContent(0, y, tcell.RuneVLine, nil, style)
		v.screen.SetContent(w, y, tcell.RuneVLine, nil, style)
	}
	v.screen.SetContent(0, 0, tcell.RuneULCorner, nil, style)
	v.screen.SetContent(w, 0, tcell.RuneURCorner, nil, style)
	v.screen.SetContent(0, h, tcell.RuneLLCorner, nil, style)
	v.screen.SetContent(w, h, tcell.RuneLRCorner, nil, style)
}

var turretRunes = map[core.Direction]rune{
	core.DirUp:    '^',
	core.DirDown:  'v',
	core.DirLeft:  '<',
	core.DirRight: '>',
}

func glyphFor(e actor.Entity) (rune, tcell.Style) {
	switch a := e.(type) {
	case *actor.Enemy:
		return 'E', styleEnemy
	case *actor.Turret:
		if a.Charging() {
			return '*', styleCharging
		}
		if r, ok := turretRunes[a.Facing()]; ok {
			return r, styleTurret
		}
		return 'T', styleTurret
	case *actor.Projectile:
		return '•', styleProjectile
	case *actor.Trap:
		if a.Armed() {
			return '▲', styleArmed
		}
		return '△', styleTrap
	}
	return '?', StyleDefault
}

// StatusLine formats the HUD text for a snapshot
func StatusLine(snap status.Snapshot) string {
	var b strings.Builder

	beat := "-"
	if snap.Beat >= 0 {
		beat = fmt.Sprint(snap.Beat)
	}
	fmt.Fprintf(&b, "beat %-5s bpm %5.1f  ", beat, snap.BPM)

	switch {
	case !snap.TimingValid:
		fmt.Fprintf(&b, "timing INVALID(%d)", snap.InvalidStreak)
	case snap.LoopDetected:
		b.WriteString("timing loop")
	default:
		b.WriteString("timing ok")
	}

	fmt.Fprintf(&b, "  resets %d", snap.Resets)
	if snap.LastReset != "" {
		fmt.Fprintf(&b, " (%s)", snap.LastReset)
	}
	for _, c := range snap.Actors {
		fmt.Fprintf(&b, "  %s %d", c.Key, c.Value)
	}
	return b.String()
}

func (v *View) drawStatus(snap status.Snapshot) {
	y := v.arena.Height + 2

	// Bar pulse, one box per beat in the bar
	for i := 0; i < parameter.BeatsPerBar; i++ {
		style := StyleDefault
		if snap.Beat >= 0 && snap.Beat%parameter.BeatsPerBar == i {
			style = stylePulse
		}
		v.screen.SetContent(i*2, y, '■', nil, style)
	}

	v.drawText(parameter.BeatsPerBar*2+1, y, StatusLine(snap), borderStyle(snap))
	v.drawText(0, y+1, HelpLine, styleHelp)
}

func (v *View) drawText(x, y int, s string, style tcell.Style) {
	for _, r := range s {
		v.screen.SetContent(x, y, r, nil, style)
		x++
	}
}
