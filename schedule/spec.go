// Package schedule implements the "act every N beats with offset O" contract shared by all actor kinds
package schedule

import "fmt"

// Spec is an actor's beat schedule
// Active beats satisfy (counter - Offset) mod EveryN == 0
type Spec struct {
	EveryN int `yaml:"every_n" json:"every_n" validate:"gte=0"`
	Offset int `yaml:"offset" json:"offset"`
}

// NewSpec returns a normalized spec
func NewSpec(everyN, offset int) Spec {
	return Spec{EveryN: everyN, Offset: offset}.Normalized()
}

// Normalized clamps EveryN to at least 1
func (s Spec) Normalized() Spec {
	if s.EveryN < 1 {
		s.EveryN = 1
	}
	return s
}

// Matches reports whether counter is an active beat
func (s Spec) Matches(counter int) bool {
	return mod(counter-s.Offset, s.Normalized().EveryN) == 0
}

// NextMatch returns the smallest active beat >= from
func (s Spec) NextMatch(from int) int {
	n := s.Normalized().EveryN
	r := mod(from-s.Offset, n)
	if r == 0 {
		return from
	}
	return from + n - r
}

func (s Spec) String() string {
	return fmt.Sprintf("every %d +%d", s.Normalized().EveryN, s.Offset)
}

// mod is a non-negative modulo, n must be positive
func mod(a, n int) int {
	r := a % n
	if r < 0 {
		r += n
	}
	return r
}
