package engine

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lixenwraith/beatkeeper/event"
	"github.com/lixenwraith/beatkeeper/schedule"
)

var testEpoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// trace records bus traffic in publish order
type trace struct {
	beats  []event.BeatPayload
	resets []event.TimingResetPayload
	leads  []event.PreTriggerPayload
	order  []event.EventType
}

func newTrace(bus *event.Bus) *trace {
	tr := &trace{}
	bus.Subscribe(event.Func(func(ev event.Event) {
		tr.order = append(tr.order, ev.Type)
		switch p := ev.Payload.(type) {
		case *event.BeatPayload:
			tr.beats = append(tr.beats, *p)
		case *event.TimingResetPayload:
			tr.resets = append(tr.resets, *p)
		case *event.PreTriggerPayload:
			tr.leads = append(tr.leads, *p)
		}
	}, event.EventBeat, event.EventTimingReset, event.EventAnimationPreTrigger))
	return tr
}

func (tr *trace) indices() []int {
	out := make([]int, len(tr.beats))
	for i, b := range tr.beats {
		out[i] = b.Index
	}
	return out
}

type countingObserver struct {
	NopObserver
	anomalies  map[Anomaly]int
	resets     []event.ResetReason
	fired      int
	suppressed int
}

func newCountingObserver() *countingObserver {
	return &countingObserver{anomalies: make(map[Anomaly]int)}
}

func (o *countingObserver) Anomaly(a Anomaly) { o.anomalies[a]++ }
func (o *countingObserver) TimingReset(r event.ResetReason) { o.resets = append(o.resets, r) }
func (o *countingObserver) PreTriggerFired() { o.fired++ }
func (o *countingObserver) PreTriggerSuppressed() { o.suppressed++ }

type clockFixture struct {
	clock  *BeatClock
	source *ScriptedSource
	time   *MockTimeProvider
	trace  *trace
	obs    *countingObserver
}

func newClockFixture(settings ClockSettings) *clockFixture {
	bus := event.NewBus()
	f := &clockFixture{
		source: NewScriptedSource(120),
		time:   NewMockTimeProvider(testEpoch),
		trace:  newTrace(bus),
		obs:    newCountingObserver(),
	}
	f.clock = NewBeatClock(bus, f.source, f.time, settings, WithObserver(f.obs))
	return f
}

// feed records beats at absolute scene times
func (f *clockFixture) feed(times ...float64) {
	for _, at := range times {
		f.clock.RecordBeat(at)
	}
}

// run advances source and scene time together, ticking once per step
func (f *clockFixture) run(frames int, dt float64) {
	for i := 0; i < frames; i++ {
		f.source.Advance(dt)
		f.time.AdvanceSeconds(dt)
		f.clock.Tick()
	}
}

func spaced(start, step float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

func TestBeatClock_SteadyBeatsStayValid(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())

	f.feed(spaced(0, 0.5, 10)...)

	assert.True(t, f.clock.TimingValid())
	assert.Equal(t, 0, f.clock.State().ConsecutiveInvalidBeats)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9}, f.trace.indices())
	assert.Empty(t, f.trace.resets)
}

func TestBeatClock_LoopGapAccepted(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())

	f.feed(spaced(0, 0.5, 10)...)
	f.feed(4.5 + 2.0)

	st := f.clock.State()
	assert.True(t, st.PossibleLoopDetected)
	assert.True(t, st.HasLoop)
	assert.Equal(t, 6.5, st.LastLoopTime)
	assert.True(t, f.clock.TimingValid())
	assert.Empty(t, f.trace.resets)

	require.Len(t, f.trace.beats, 11)
	assert.Equal(t, 10, f.trace.beats[10].Index)
	assert.True(t, f.trace.beats[10].Valid)
	assert.Equal(t, 1, f.obs.anomalies[AnomalyLoopDiscontinuity])
}

func TestBeatClock_SustainedDesyncResets(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())

	f.feed(0, 0.5, 1.0)
	// 0.2s spacing against 0.5s expected: 60% deviation, not severe
	f.feed(1.2, 1.4, 1.6, 1.8)

	assert.Empty(t, f.trace.resets)
	assert.Equal(t, 4, f.clock.State().ConsecutiveInvalidBeats)
	assert.False(t, f.clock.TimingValid())

	f.feed(2.0)

	require.Len(t, f.trace.resets, 1)
	assert.Equal(t, event.ResetSustainedDesync, f.trace.resets[0].Reason)
	assert.Equal(t, 0, f.trace.resets[0].NextIndex)
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5, 6, 0}, f.trace.indices())

	// Reset announced before the restarted beat
	n := len(f.trace.order)
	assert.Equal(t, []event.EventType{event.EventTimingReset, event.EventBeat}, f.trace.order[n-2:])

	assert.Equal(t, 4, f.obs.anomalies[AnomalyTransientDeviation])
	assert.Equal(t, 1, f.obs.anomalies[AnomalySustainedDesync])
	assert.True(t, f.clock.TimingValid(), "reset clears timing state")
}

func TestBeatClock_SevereDeviationResetsImmediately(t *testing.T) {
	settings := DefaultClockSettings()
	settings.DestroyTimedActorsOnReset = true
	f := newClockFixture(settings)

	// 1.0s interval: 100% deviation, below the loop threshold
	f.feed(0, 0.5, 1.5)

	require.Len(t, f.trace.resets, 1)
	assert.Equal(t, event.ResetSevereDeviation, f.trace.resets[0].Reason)
	assert.True(t, f.trace.resets[0].DestroyTimedActors)
	assert.Equal(t, []int{0, 1, 0}, f.trace.indices())
	assert.Equal(t, 1, f.obs.anomalies[AnomalySevereDeviation])
}

func TestBeatClock_GraceWindowDoublesTolerance(t *testing.T) {
	tests := []struct {
		name      string
		withLoop  bool
		wantValid bool
	}{
		{"outside grace", false, false},
		{"inside grace", true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newClockFixture(DefaultClockSettings())
			f.feed(0, 0.5, 1.0)
			last := 1.0
			if tt.withLoop {
				last = 3.0
				f.feed(last)
			}

			// 30% deviation
			f.feed(last + 0.65)

			n := len(f.trace.beats)
			assert.Equal(t, tt.wantValid, f.trace.beats[n-1].Valid)
		})
	}
}

func TestBeatClock_GraceWindowDefersSustainedReset(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())
	f.feed(0, 0.5, 1.0, 3.0) // loop at 3.0

	// 50% deviation: invalid even with doubled tolerance, below severe
	f.feed(spaced(3.25, 0.25, 5)...)

	assert.Empty(t, f.trace.resets)
	assert.Equal(t, 5, f.clock.State().ConsecutiveInvalidBeats)

	f.feed(4.5, 4.75, 5.0)
	assert.Empty(t, f.trace.resets, "still inside the window")

	// Window has closed, streak now resets
	f.feed(5.25)
	require.Len(t, f.trace.resets, 1)
	assert.Equal(t, event.ResetSustainedDesync, f.trace.resets[0].Reason)
}

func TestBeatClock_RecoveryRestoresValidity(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())
	f.feed(0, 0.5, 0.8) // 40% deviation

	assert.False(t, f.clock.TimingValid())

	f.feed(1.3)
	assert.False(t, f.clock.TimingValid(), "one valid beat is not enough")

	f.feed(1.8)
	assert.True(t, f.clock.TimingValid())
}

func TestBeatClock_LoopFlagClearsAfterValidStreak(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())
	f.feed(0, 0.5, 1.0, 3.0)
	require.True(t, f.clock.State().PossibleLoopDetected)

	f.feed(3.5, 4.0)
	assert.True(t, f.clock.State().PossibleLoopDetected)

	f.feed(4.5)
	assert.False(t, f.clock.State().PossibleLoopDetected)
}

func TestBeatClock_ForceResetIdempotent(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())
	f.feed(0, 0.5, 1.0)

	f.clock.ForceResetTiming()
	once := f.clock.State()
	f.clock.ForceResetTiming()

	assert.Equal(t, once, f.clock.State())
	assert.Len(t, f.trace.resets, 1)
	assert.Equal(t, -1, f.clock.BeatIndex())

	f.feed(7.0) // No reference after reset, accepted unmeasured
	assert.Equal(t, []int{0, 1, 2, 0}, f.trace.indices())
	assert.True(t, f.trace.beats[3].Valid)
	assert.Empty(t, f.obs.anomalies)
}

func TestBeatClock_DestroyingResetOverridesPendingKeep(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())
	f.feed(0, 0.5)

	f.clock.Reset(false)
	f.clock.Reset(true)
	f.clock.Reset(false) // Weaker than pending, collapsed

	require.Len(t, f.trace.resets, 2)
	assert.False(t, f.trace.resets[0].DestroyTimedActors)
	assert.True(t, f.trace.resets[1].DestroyTimedActors)
	assert.Equal(t, 0, f.trace.resets[1].NextIndex)

	f.feed(1.0)
	f.clock.Reset(true)
	assert.Len(t, f.trace.resets, 3, "a beat in between ends the pending reset")
}

func TestBeatClock_ForceSetBeatIndex(t *testing.T) {
	settings := DefaultClockSettings()
	settings.DestroyTimedActorsOnReset = true
	f := newClockFixture(settings)
	f.feed(0, 0.5)

	f.clock.ForceSetBeatIndex(40)
	f.feed(1.0, 1.5)

	require.Len(t, f.trace.resets, 1)
	assert.Equal(t, event.TimingResetPayload{NextIndex: 40, Reason: event.ResetForcedIndex}, f.trace.resets[0])
	assert.Equal(t, []int{0, 1, 40, 41}, f.trace.indices())

	f.clock.ForceSetBeatIndex(-3)
	f.feed(2.0)
	assert.Equal(t, 0, f.clock.BeatIndex())
}

func TestBeatClock_NotifyPossibleLoopUsesSceneTime(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())
	f.time.AdvanceSeconds(12.5)

	f.clock.NotifyPossibleLoop()
	f.clock.NotifyPossibleLoop()

	st := f.clock.State()
	assert.True(t, st.PossibleLoopDetected)
	assert.InDelta(t, 12.5, st.LastLoopTime, 1e-9)
	assert.True(t, st.InGrace(14.0, 2.0))
	assert.False(t, st.InGrace(14.6, 2.0))
}

func TestBeatClock_TickPublishesMonotonicBeats(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())

	f.run(100, 0.01)
	f.source.Stall(true)
	f.run(30, 0.01)
	f.source.Stall(false)
	f.run(400, 0.01)

	require.NotEmpty(t, f.trace.beats)
	assert.Equal(t, 0, f.trace.beats[0].Index)

	// Each beat is previous+1, or the announced next index right after a reset
	prev := -1
	expectReset := -1
	for _, et := range f.trace.order {
		switch et {
		case event.EventTimingReset:
			expectReset = f.trace.resets[0].NextIndex
			f.trace.resets = f.trace.resets[1:]
		case event.EventBeat:
			b := f.trace.beats[0]
			f.trace.beats = f.trace.beats[1:]
			if expectReset >= 0 {
				assert.Equal(t, expectReset, b.Index)
				expectReset = -1
			} else {
				assert.Equal(t, prev+1, b.Index)
			}
			prev = b.Index
		}
	}
}

func TestBeatClock_TickFollowsPlayback(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())

	f.run(249, 0.01) // 2.49s at 120 BPM

	assert.Equal(t, []int{0, 1, 2, 3, 4}, f.trace.indices())
	assert.True(t, f.clock.TimingValid())
}

func TestBeatClock_BeatTimeIsSceneTime(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())
	f.source.Seek(30)
	f.time.AdvanceSeconds(2)

	f.clock.Tick()

	require.Len(t, f.trace.beats, 1)
	assert.InDelta(t, 2.0, f.trace.beats[0].Time, 1e-9, "scene seconds, not playback")
}

func TestBeatClock_TickSkipsWhenNotPlaying(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())
	f.source.SetPlaying(false)

	f.run(100, 0.01)

	assert.Empty(t, f.trace.beats)
	assert.Equal(t, -1, f.clock.BeatIndex())
}

func TestBeatClock_TrackLoopWrap(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())
	f.source.SetTrack(2.0, true)

	f.run(230, 0.01) // Wraps once at 2.0s

	st := f.clock.State()
	assert.True(t, st.PossibleLoopDetected)
	assert.Empty(t, f.trace.resets)

	idx := f.trace.indices()
	require.GreaterOrEqual(t, len(idx), 5)
	for i := 1; i < len(idx); i++ {
		assert.Equal(t, idx[i-1]+1, idx[i])
	}
}

func TestBeatClock_TempoChangeKeepsNumbering(t *testing.T) {
	for _, bpm := range []float64{100, 150, 240} {
		t.Run(fmt.Sprintf("%gbpm", bpm), func(t *testing.T) {
			f := newClockFixture(DefaultClockSettings())

			f.run(1010, 0.01) // 10.1s at 120 BPM
			before := len(f.trace.beats)
			f.source.SetBPM(bpm)
			f.run(500, 0.01)

			assert.Empty(t, f.trace.resets)
			assert.Empty(t, f.obs.anomalies)
			assert.False(t, f.clock.State().PossibleLoopDetected)
			assert.Greater(t, len(f.trace.beats), before+3)

			idx := f.trace.indices()
			for i := 1; i < len(idx); i++ {
				assert.Equal(t, idx[i-1]+1, idx[i])
			}
			for _, b := range f.trace.beats {
				assert.True(t, b.Valid, "beat %d", b.Index)
			}
		})
	}
}

func TestBeatClock_SeekAfterTempoChangeFollowsTrack(t *testing.T) {
	f := newClockFixture(DefaultClockSettings())
	f.source.SetTrack(30, true)

	f.run(500, 0.01)
	f.source.SetBPM(60)
	f.run(300, 0.01) // 8s, grid re-anchored at 5s

	f.source.Seek(1.5)
	f.run(1, 0.01)

	// Back on the track grid: 1.51s at 60 BPM is interval 1
	assert.Equal(t, 1, f.clock.Sample().Floor())
	assert.True(t, f.clock.State().PossibleLoopDetected)
	assert.Empty(t, f.trace.resets)
}

func TestBeatClock_BPMFallbackAndClamp(t *testing.T) {
	settings := DefaultClockSettings()
	settings.BPM = 90
	f := newClockFixture(settings)

	assert.Equal(t, 90.0, f.clock.CurrentBPM(), "configured tempo before first sample")

	f.source.SetBPM(140)
	f.clock.Sample()
	assert.Equal(t, 140.0, f.clock.CurrentBPM())

	f.source.SetBPM(0)
	f.clock.Sample()
	assert.Equal(t, 140.0, f.clock.CurrentBPM(), "last good tempo kept")

	f.source.SetBPM(1000)
	f.clock.Sample()
	assert.Equal(t, 300.0, f.clock.CurrentBPM())
}

func TestBeatClock_LatencyOffsetShiftsSample(t *testing.T) {
	settings := DefaultClockSettings()
	settings.LatencyOffset = 100 * time.Millisecond
	f := newClockFixture(settings)
	f.source.Seek(0.45)

	s := f.clock.Sample()
	assert.InDelta(t, 0.45, s.Raw, 1e-9)
	assert.InDelta(t, 0.55, s.Adjusted, 1e-9)
	assert.Equal(t, 1, s.Floor())
}

func TestClockSettings_Normalized(t *testing.T) {
	s := ClockSettings{
		BPM:         -5,
		PreTriggers: []PreTriggerSpec{{Schedule: schedule.Spec{EveryN: 0}, BeatsBeforeAction: 500}},
	}.normalized()

	d := DefaultClockSettings()
	assert.Equal(t, d.BPM, s.BPM)
	assert.Equal(t, d.TolerancePercent, s.TolerancePercent)
	assert.Equal(t, d.ResetThreshold, s.ResetThreshold)
	assert.Equal(t, 1, s.PreTriggers[0].Schedule.EveryN)
	assert.Equal(t, MaxBeatsBeforeAction, s.PreTriggers[0].BeatsBeforeAction)
}

func TestAnomalyString(t *testing.T) {
	assert.Equal(t, "loop_discontinuity", AnomalyLoopDiscontinuity.String())
	assert.Equal(t, "unknown", Anomaly(99).String())
}
