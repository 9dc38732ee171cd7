package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// PausableClock provides pausable scene time with pause duration tracking
// Glides and timing validation read it so a scene pause is neither motion nor desync
type PausableClock struct {
	mu sync.RWMutex

	base TimeProvider

	// Base time tracking
	realStartTime time.Time // When clock was created (real time)
	gameStartTime time.Time // Scene time epoch

	// Pause state
	isPaused        atomic.Bool
	pauseStartTime  time.Time     // When current pause started (real time)
	totalPausedTime time.Duration // Cumulative pause duration
}

// NewPausableClock creates a pausable clock over the given real time provider, nil uses the monotonic clock
func NewPausableClock(base TimeProvider) *PausableClock {
	if base == nil {
		base = NewMonotonicTimeProvider()
	}
	now := base.Now()
	return &PausableClock{
		base:          base,
		realStartTime: now,
		gameStartTime: now,
	}
}

// Now returns current scene time (frozen while paused)
func (pc *PausableClock) Now() time.Time {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	if pc.isPaused.Load() {
		return pc.gameStartTime.Add(pc.pauseStartTime.Sub(pc.realStartTime) - pc.totalPausedTime)
	}

	// Scene elapsed = real elapsed - total paused time
	realElapsed := pc.base.Now().Sub(pc.realStartTime)
	return pc.gameStartTime.Add(realElapsed - pc.totalPausedTime)
}

// RealTime returns the underlying provider time (unaffected by pause)
func (pc *PausableClock) RealTime() time.Time {
	return pc.base.Now()
}

// Pause stops scene time advancement
func (pc *PausableClock) Pause() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if pc.isPaused.Load() {
		return
	}
	pc.pauseStartTime = pc.base.Now()
	pc.isPaused.Store(true)
}

// Resume continues scene time advancement
func (pc *PausableClock) Resume() {
	pc.mu.Lock()
	defer pc.mu.Unlock()
	if !pc.isPaused.Load() {
		return
	}
	pc.totalPausedTime += pc.base.Now().Sub(pc.pauseStartTime)
	pc.pauseStartTime = time.Time{}
	pc.isPaused.Store(false)
}

// IsPaused returns current pause state
func (pc *PausableClock) IsPaused() bool {
	return pc.isPaused.Load()
}

// TotalPauseDuration returns cumulative pause time including an ongoing pause
func (pc *PausableClock) TotalPauseDuration() time.Duration {
	pc.mu.RLock()
	defer pc.mu.RUnlock()

	total := pc.totalPausedTime
	if pc.isPaused.Load() {
		total += pc.base.Now().Sub(pc.pauseStartTime)
	}
	return total
}
