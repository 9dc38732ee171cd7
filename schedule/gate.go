package schedule

// Convention selects which counter the schedule predicate is evaluated against
// Each actor kind commits to one and keeps it for its lifetime
type Convention uint8

const (
	// ConventionGlobal uses the published BeatIndex, all actors share absolute phase
	ConventionGlobal Convention = iota
	// ConventionLocal counts received beats from -1, phase starts when the actor does
	ConventionLocal
)

func (c Convention) String() string {
	if c == ConventionLocal {
		return "local"
	}
	return "global"
}

// Gate enforces at-most-once, in-order delivery of beat indices within a reset epoch
// and maintains the counter for the chosen convention
type Gate struct {
	spec       Spec
	convention Convention

	local int  // Local counter, -1 before the first admitted beat
	last  int  // Last admitted beat index in this epoch
	seen  bool // Any beat admitted in this epoch
}

// NewGate creates a gate for the given schedule
func NewGate(spec Spec, convention Convention) *Gate {
	return &Gate{
		spec:       spec.Normalized(),
		convention: convention,
		local:      -1,
	}
}

// Admit accepts a beat index that is newer than the last one in this epoch
// Returns the counter the predicate applies to
func (g *Gate) Admit(beatIndex int) (int, bool) {
	if g.seen && beatIndex <= g.last {
		return 0, false
	}
	g.seen = true
	g.last = beatIndex

	if g.convention == ConventionLocal {
		g.local++
		return g.local, true
	}
	return beatIndex, true
}

// Fire admits the beat and evaluates the schedule predicate
func (g *Gate) Fire(beatIndex int) bool {
	counter, ok := g.Admit(beatIndex)
	return ok && g.spec.Matches(counter)
}

// Projects reports whether a future beat index will fire, assuming every beat up to it is delivered
// Local gates cannot project before their first beat
func (g *Gate) Projects(beatIndex int) bool {
	if g.seen && beatIndex <= g.last {
		return false
	}
	if g.convention == ConventionGlobal {
		return g.spec.Matches(beatIndex)
	}
	if !g.seen {
		return false
	}
	return g.spec.Matches(g.local + beatIndex - g.last)
}

// NewEpoch forgets the last admitted index so numbering may restart
func (g *Gate) NewEpoch() {
	g.seen = false
	g.last = 0
}

// ResetCounter restarts the local counter at -1, no effect on global convention
func (g *Gate) ResetCounter() {
	g.local = -1
}

// Counter returns the current local counter, or the last admitted index for global convention
func (g *Gate) Counter() int {
	if g.convention == ConventionLocal {
		return g.local
	}
	if !g.seen {
		return -1
	}
	return g.last
}

// Spec returns the normalized schedule
func (g *Gate) Spec() Spec {
	return g.spec
}

// Convention returns the counting convention
func (g *Gate) Convention() Convention {
	return g.convention
}
