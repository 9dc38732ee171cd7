package core

import (
	"fmt"
	"strings"
)

// Direction is a unit step on the grid
// Screen convention: +Y points down, Up is (0,-1)
type Direction uint8

const (
	DirNone Direction = iota
	DirUp
	DirDown
	DirLeft
	DirRight
	DirUpLeft
	DirUpRight
	DirDownLeft
	DirDownRight
)

var directionNames = [...]string{
	DirNone:      "none",
	DirUp:        "up",
	DirDown:      "down",
	DirLeft:      "left",
	DirRight:     "right",
	DirUpLeft:    "up-left",
	DirUpRight:   "up-right",
	DirDownLeft:  "down-left",
	DirDownRight: "down-right",
}

var directionVectors = [...]Vec2{
	DirNone:      {0, 0},
	DirUp:        {0, -1},
	DirDown:      {0, 1},
	DirLeft:      {-1, 0},
	DirRight:     {1, 0},
	DirUpLeft:    {-1, -1},
	DirUpRight:   {1, -1},
	DirDownLeft:  {-1, 1},
	DirDownRight: {1, 1},
}

var directionOpposites = [...]Direction{
	DirNone:      DirNone,
	DirUp:        DirDown,
	DirDown:      DirUp,
	DirLeft:      DirRight,
	DirRight:     DirLeft,
	DirUpLeft:    DirDownRight,
	DirUpRight:   DirDownLeft,
	DirDownLeft:  DirUpRight,
	DirDownRight: DirUpLeft,
}

// Vector returns the direction's step offset; diagonals are not normalized so they land on cell corners
func (d Direction) Vector() Vec2 {
	if int(d) >= len(directionVectors) {
		return Vec2{}
	}
	return directionVectors[d]
}

// Opposite returns the reversed direction
func (d Direction) Opposite() Direction {
	if int(d) >= len(directionOpposites) {
		return DirNone
	}
	return directionOpposites[d]
}

func (d Direction) String() string {
	if int(d) >= len(directionNames) {
		return "unknown"
	}
	return directionNames[d]
}

// ParseDirection accepts the String() names, case-insensitive, plus single-letter u/d/l/r
func ParseDirection(s string) (Direction, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	switch s {
	case "u":
		return DirUp, nil
	case "d":
		return DirDown, nil
	case "l":
		return DirLeft, nil
	case "r":
		return DirRight, nil
	}
	for i, name := range directionNames {
		if name == s {
			return Direction(i), nil
		}
	}
	return DirNone, fmt.Errorf("unknown direction %q", s)
}

// UnmarshalText lets directions appear as names in YAML config
func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalText mirrors UnmarshalText
func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}
