package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMonotonicTimeProvider(t *testing.T) {
	provider := NewMonotonicTimeProvider()

	t1 := provider.Now()
	time.Sleep(10 * time.Millisecond)
	t2 := provider.Now()

	assert.True(t, t2.After(t1))
	assert.GreaterOrEqual(t, t2.Sub(t1), 10*time.Millisecond)
}

func TestMockTimeProvider(t *testing.T) {
	mock := NewMockTimeProvider(testEpoch)
	assert.True(t, mock.Now().Equal(testEpoch))

	next := testEpoch.Add(24 * time.Hour)
	mock.SetTime(next)
	assert.True(t, mock.Now().Equal(next))

	mock.Advance(time.Hour)
	mock.Advance(30 * time.Minute)
	assert.True(t, mock.Now().Equal(next.Add(90*time.Minute)))

	mock.AdvanceSeconds(0.25)
	assert.Equal(t, 0.25, secondsSince(mock, next.Add(90*time.Minute)))

	// Rewind is allowed
	mock.SetTime(testEpoch)
	assert.True(t, mock.Now().Equal(testEpoch))
}

func TestPausableClock_FreezesWhilePaused(t *testing.T) {
	base := NewMockTimeProvider(testEpoch)
	pc := NewPausableClock(base)

	base.Advance(time.Second)
	assert.Equal(t, time.Second, pc.Now().Sub(testEpoch))

	pc.Pause()
	pc.Pause()
	assert.True(t, pc.IsPaused())

	base.Advance(5 * time.Second)
	assert.Equal(t, time.Second, pc.Now().Sub(testEpoch), "frozen")
	assert.Equal(t, 5*time.Second, pc.TotalPauseDuration())
	assert.True(t, pc.RealTime().Equal(testEpoch.Add(6*time.Second)))

	pc.Resume()
	pc.Resume()
	assert.False(t, pc.IsPaused())

	base.Advance(2 * time.Second)
	assert.Equal(t, 3*time.Second, pc.Now().Sub(testEpoch))
	assert.Equal(t, 5*time.Second, pc.TotalPauseDuration())
}

func TestScriptedSource(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(s *ScriptedSource)
		steps   []float64
		want    float64
		playing bool
	}{
		{"plain advance", nil, []float64{0.5, 0.25}, 0.75, true},
		{"stall holds position", func(s *ScriptedSource) { s.Stall(true) }, []float64{1}, 0, true},
		{"loop wraps", func(s *ScriptedSource) { s.SetTrack(2, true) }, []float64{1.5, 1.0}, 0.5, true},
		{"end stops", func(s *ScriptedSource) { s.SetTrack(2, false) }, []float64{1.5, 1.0}, 2, false},
		{"paused", func(s *ScriptedSource) { s.SetPlaying(false) }, []float64{1}, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewScriptedSource(120)
			if tt.setup != nil {
				tt.setup(s)
			}
			for _, dt := range tt.steps {
				s.Advance(dt)
			}
			assert.InDelta(t, tt.want, s.CurrentPlaybackTime(), 1e-9)
			assert.Equal(t, tt.playing, s.IsPlaying())
		})
	}
}
