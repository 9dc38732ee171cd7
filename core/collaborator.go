package core

// Grid maps world positions onto the tilemap owned by the host
type Grid interface {
	WorldToCell(pos Vec2) Cell
	CellCenterWorld(cell Cell) Vec2
}

// DamageTarget is anything that can be hurt by an actor
type DamageTarget interface {
	TakeDamage(amount int)
	IsInvulnerable() bool
}

// Collider answers spatial queries against the host's colliders
// Results are observational: movement never waits on them
type Collider interface {
	// TargetsAt returns targets occupying the cell containing pos
	TargetsAt(pos Vec2) []DamageTarget
	// TargetsAlong returns targets on the swept segment from..to, excluding from
	TargetsAlong(from, to Vec2) []DamageTarget
}
