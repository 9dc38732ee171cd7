// Package motion walks actors along step paths in lockstep with their scheduled beats
package motion

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/lixenwraith/beatkeeper/core"
)

// Segment repeats one direction Count times, zero-count segments are skipped
type Segment struct {
	Direction core.Direction `yaml:"dir" json:"dir"`
	Count     int            `yaml:"count" json:"count" validate:"gte=0"`
}

func (s Segment) String() string {
	return fmt.Sprintf("%s*%d", s.Direction, s.Count)
}

// Path is an ordered list of segments
type Path []Segment

// Steps returns the number of moves in one forward pass
func (p Path) Steps() int {
	n := 0
	for _, s := range p {
		if s.Count > 0 {
			n += s.Count
		}
	}
	return n
}

// Movable reports whether any segment has a positive count
func (p Path) Movable() bool {
	return p.Steps() > 0
}

func (p Path) String() string {
	parts := make([]string, len(p))
	for i, s := range p {
		parts[i] = s.String()
	}
	return strings.Join(parts, ",")
}

// ParsePath reads the compact form "up*3,right*6,down" (count defaults to 1)
// Separators may be commas or whitespace
func ParsePath(s string) (Path, error) {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n'
	})

	path := make(Path, 0, len(fields))
	for _, f := range fields {
		name, countStr, hasCount := strings.Cut(f, "*")

		dir, err := core.ParseDirection(name)
		if err != nil {
			return nil, fmt.Errorf("segment %q: %w", f, err)
		}

		count := 1
		if hasCount {
			count, err = strconv.Atoi(countStr)
			if err != nil || count < 0 {
				return nil, fmt.Errorf("segment %q: invalid count", f)
			}
		}
		path = append(path, Segment{Direction: dir, Count: count})
	}
	return path, nil
}

// Mode selects how the automaton continues past the last segment
type Mode uint8

const (
	// ModeLoop wraps from the last segment to the first
	ModeLoop Mode = iota
	// ModePingPong walks back and forth, reversing directions on the way back
	ModePingPong
)

func (m Mode) String() string {
	if m == ModePingPong {
		return "pingpong"
	}
	return "loop"
}

// ParseMode accepts "loop", "pingpong" or "ping-pong"
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "loop", "":
		return ModeLoop, nil
	case "pingpong", "ping-pong", "ping_pong":
		return ModePingPong, nil
	}
	return ModeLoop, fmt.Errorf("unknown path mode %q", s)
}

func (m Mode) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Mode) UnmarshalText(b []byte) error {
	v, err := ParseMode(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}
