package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/beatkeeper/schedule"
)

func leadSettings(specs ...PreTriggerSpec) ClockSettings {
	s := DefaultClockSettings()
	s.PreTriggers = specs
	return s
}

func TestPreTrigger_FiresOnceWhenWindowOpens(t *testing.T) {
	f := newClockFixture(leadSettings(PreTriggerSpec{Schedule: schedule.NewSpec(2, 0), BeatsBeforeAction: 0.5}))

	f.clock.RecordBeat(0)
	f.clock.evaluatePreTriggers(0.1)
	assert.Empty(t, f.trace.leads, "beat 2 lead opens at 1.5")

	f.clock.RecordBeat(0.5)
	f.clock.evaluatePreTriggers(0.6)
	assert.Empty(t, f.trace.leads)

	f.clock.evaluatePreTriggers(0.76)
	f.clock.evaluatePreTriggers(0.9)
	f.clock.evaluatePreTriggers(0.99)

	require.Len(t, f.trace.leads, 1)
	lead := f.trace.leads[0]
	assert.Equal(t, 1, lead.BeatFloor)
	assert.Equal(t, 2, lead.ActionBeat)
	assert.Equal(t, 2, lead.EveryN)
	assert.Equal(t, 0.5, lead.BeatsBeforeAction)
	assert.Equal(t, 1, f.obs.fired)
}

func TestPreTrigger_LongLeadCoversSeveralBeats(t *testing.T) {
	f := newClockFixture(leadSettings(PreTriggerSpec{Schedule: schedule.NewSpec(1, 0), BeatsBeforeAction: 3}))

	f.clock.RecordBeat(0)
	f.clock.evaluatePreTriggers(0)

	// Position 0: beats 1..3 are all within three beats
	var actions []int
	for _, l := range f.trace.leads {
		actions = append(actions, l.ActionBeat)
	}
	assert.Equal(t, []int{1, 2, 3}, actions)

	f.clock.RecordBeat(0.5)
	f.clock.evaluatePreTriggers(0.5)
	assert.Len(t, f.trace.leads, 4, "only beat 4 is new")
}

func TestPreTrigger_EachSpecTrackedSeparately(t *testing.T) {
	f := newClockFixture(leadSettings(
		PreTriggerSpec{Schedule: schedule.NewSpec(1, 0), BeatsBeforeAction: 0.5},
		PreTriggerSpec{Schedule: schedule.NewSpec(1, 0), BeatsBeforeAction: 0.25},
	))

	f.clock.RecordBeat(0)
	f.clock.evaluatePreTriggers(0.45)

	require.Len(t, f.trace.leads, 2)
	assert.Equal(t, f.trace.leads[0].ActionBeat, f.trace.leads[1].ActionBeat)
}

func TestPreTrigger_PositionCappedBelowNextBeat(t *testing.T) {
	f := newClockFixture(leadSettings(PreTriggerSpec{Schedule: schedule.NewSpec(1, 0), BeatsBeforeAction: 0}))

	f.clock.RecordBeat(0)
	// Late beat: fraction would exceed 1 without the cap
	f.clock.evaluatePreTriggers(0.9)

	assert.Empty(t, f.trace.leads)
	assert.InDelta(t, 0.999, f.clock.BeatPosition(0.9), 1e-12)
}

func TestPreTrigger_SuppressedDuringDeepDesync(t *testing.T) {
	f := newClockFixture(leadSettings(PreTriggerSpec{Schedule: schedule.NewSpec(1, 0), BeatsBeforeAction: 0.5}))
	f.clock.RecordBeat(0)

	f.clock.state.ConsecutiveInvalidBeats = 2 * f.clock.settings.ResetThreshold
	f.clock.evaluatePreTriggers(0.3)
	assert.Empty(t, f.trace.leads)
	assert.Equal(t, 1, f.obs.suppressed)

	// A loop in progress explains the streak, leads resume
	f.clock.state.PossibleLoopDetected = true
	f.clock.evaluatePreTriggers(0.3)
	assert.Len(t, f.trace.leads, 1)
}

func TestPreTrigger_ResetClearsDedupe(t *testing.T) {
	f := newClockFixture(leadSettings(PreTriggerSpec{Schedule: schedule.NewSpec(1, 0), BeatsBeforeAction: 0.5}))

	f.clock.RecordBeat(0)
	f.clock.evaluatePreTriggers(0.3)
	require.Len(t, f.trace.leads, 1)
	assert.Equal(t, 1, f.clock.PendingPreTriggers())

	f.clock.ForceResetTiming()
	assert.Equal(t, 0, f.clock.PendingPreTriggers())

	f.clock.RecordBeat(1.0)
	f.clock.evaluatePreTriggers(1.3)
	require.Len(t, f.trace.leads, 2)
	assert.Equal(t, 1, f.trace.leads[1].ActionBeat, "same action beat fires again in the new epoch")
}

func TestPreTrigger_OldKeysPruned(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())
	f.clock.fired[preTriggerKey{beat: 0}] = struct{}{}
	f.clock.fired[preTriggerKey{beat: 30}] = struct{}{}

	f.feed(spaced(0, 0.5, 52)...) // Last index 51

	assert.Equal(t, 1, f.clock.PendingPreTriggers())
	_, kept := f.clock.fired[preTriggerKey{beat: 30}]
	assert.True(t, kept)
}

func TestPreTrigger_FiredFromTick(t *testing.T) {
	f := newClockFixture(leadSettings(PreTriggerSpec{Schedule: schedule.NewSpec(4, 0), BeatsBeforeAction: 1}))

	f.run(400, 0.01) // 4s, beats 0..7

	var actions []int
	for _, l := range f.trace.leads {
		actions = append(actions, l.ActionBeat)
		assert.Less(t, l.BeatFloor, l.ActionBeat)
	}
	assert.Equal(t, []int{4, 8}, actions)
}

func TestPreTrigger_ZeroLeadFiresOnActionBeat(t *testing.T) {
	for _, lead := range []float64{0, 0.0005} {
		f := newClockFixture(leadSettings(PreTriggerSpec{Schedule: schedule.NewSpec(2, 0), BeatsBeforeAction: lead}))

		f.run(260, 0.01) // Beats 0..5

		var actions, floors []int
		for _, l := range f.trace.leads {
			actions = append(actions, l.ActionBeat)
			floors = append(floors, l.BeatFloor)
		}
		assert.Equal(t, []int{0, 2, 4}, actions, "lead %g", lead)
		assert.Equal(t, actions, floors, "fired on the beat itself")
		assert.Equal(t, 3, f.obs.fired)
	}
}

func TestPreTrigger_ShortLeadDoesNotRefireArrivedBeat(t *testing.T) {
	f := newClockFixture(leadSettings(PreTriggerSpec{Schedule: schedule.NewSpec(1, 0), BeatsBeforeAction: 0.25}))

	f.clock.RecordBeat(0)
	f.clock.evaluatePreTriggers(0)
	assert.Empty(t, f.trace.leads, "beat 0 already arrived")

	f.clock.evaluatePreTriggers(0.4)
	f.clock.RecordBeat(0.5)
	f.clock.evaluatePreTriggers(0.5)

	require.Len(t, f.trace.leads, 1)
	assert.Equal(t, 1, f.trace.leads[0].ActionBeat)
}
