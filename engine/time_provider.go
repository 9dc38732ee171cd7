package engine

import "time"

// TimeProvider is the wall-clock abstraction used for validation and glide timing
type TimeProvider interface {
	Now() time.Time
}

// MonotonicTimeProvider provides the real system time with monotonic clock readings
// Used for real-time operations that should not pause
type MonotonicTimeProvider struct{}

// NewMonotonicTimeProvider creates a new monotonic time provider
func NewMonotonicTimeProvider() *MonotonicTimeProvider {
	return &MonotonicTimeProvider{}
}

// Now returns the current time with monotonic clock reading
func (p *MonotonicTimeProvider) Now() time.Time {
	return time.Now()
}

// secondsSince converts a provider reading into float seconds from an epoch
func secondsSince(p TimeProvider, epoch time.Time) float64 {
	return p.Now().Sub(epoch).Seconds()
}
