package parameter

import "time"

// Frame loop timing
const (
	// FrameUpdateInterval is the clock sampling and glide update interval (~60 FPS)
	FrameUpdateInterval = 16 * time.Millisecond

	// DefaultFrameRate matches FrameUpdateInterval
	DefaultFrameRate = 60

	// PausedSleepMultiplier stretches the loop sleep while paused
	PausedSleepMultiplier = 4
)

// Control queue limits
const (
	// ControlQueueSize is the pending control capacity between two frames
	ControlQueueSize = 256
)

// Motion defaults
const (
	// MaxZeroSegmentSkips bounds zero-length segment skipping per tick
	MaxZeroSegmentSkips = 16

	// MinGlideSeconds is the shortest glide duration
	MinGlideSeconds = 0.01

	// DefaultLerpFraction is the share of the move interval spent gliding
	DefaultLerpFraction = 0.8

	// DefaultStepDistance is one grid cell in world units
	DefaultStepDistance = 1.0
)

// Actor defaults
const (
	// DefaultProjectileLifetime is the number of scheduled moves before a projectile expires
	DefaultProjectileLifetime = 24

	// DefaultProjectileDamage applied on hit
	DefaultProjectileDamage = 1

	// DefaultTrapDamage applied per armed beat
	DefaultTrapDamage = 1

	// DefaultContactDamage applied by enemies stepping onto a target
	DefaultContactDamage = 1
)
