package engine

import (
	"sync/atomic"
	"time"
)

// MockTimeProvider is a manually stepped clock for tests and headless simulation
// Reads are lock-free so the frame loop and test goroutine can share it
type MockTimeProvider struct {
	epoch   time.Time
	elapsed atomic.Int64 // nanoseconds since epoch
}

// NewMockTimeProvider starts the mock at startTime
func NewMockTimeProvider(startTime time.Time) *MockTimeProvider {
	return &MockTimeProvider{epoch: startTime}
}

// Now returns the current mocked time
func (m *MockTimeProvider) Now() time.Time {
	return m.epoch.Add(time.Duration(m.elapsed.Load()))
}

// SetTime moves the mock to t, which may be before the current reading
func (m *MockTimeProvider) SetTime(t time.Time) {
	m.elapsed.Store(int64(t.Sub(m.epoch)))
}

// Advance steps the mock forward by d
func (m *MockTimeProvider) Advance(d time.Duration) {
	m.elapsed.Add(int64(d))
}

// AdvanceSeconds steps the mock forward by fractional seconds
func (m *MockTimeProvider) AdvanceSeconds(s float64) {
	m.Advance(time.Duration(s * float64(time.Second)))
}
