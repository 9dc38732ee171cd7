package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	name  string
	log   *[]string
	types []EventType
}

func (r *recorder) HandleEvent(ev Event) {
	*r.log = append(*r.log, r.name+":"+ev.Type.String())
}

func (r *recorder) EventTypes() []EventType { return r.types }

func TestBus_FanOutInSubscriptionOrder(t *testing.T) {
	bus := NewBus()
	var log []string

	for _, name := range []string{"a", "b", "c"} {
		bus.Subscribe(&recorder{name: name, log: &log, types: []EventType{EventBeat}})
	}

	bus.PublishBeat(0, 0, true)

	assert.Equal(t, []string{"a:EventBeat", "b:EventBeat", "c:EventBeat"}, log)
}

func TestBus_OnlyMatchingTypes(t *testing.T) {
	bus := NewBus()
	var log []string

	bus.Subscribe(&recorder{name: "beat", log: &log, types: []EventType{EventBeat}})
	bus.Subscribe(&recorder{name: "reset", log: &log, types: []EventType{EventTimingReset}})

	bus.PublishTimingReset(TimingResetPayload{Reason: ResetManual})

	assert.Equal(t, []string{"reset:EventTimingReset"}, log)
}

func TestBus_PayloadDelivered(t *testing.T) {
	bus := NewBus()
	var got *BeatPayload

	bus.Subscribe(Func(func(ev Event) {
		got = ev.Payload.(*BeatPayload)
	}, EventBeat))

	bus.SetFrame(42)
	bus.PublishBeat(7, 3.5, false)

	require.NotNil(t, got)
	assert.Equal(t, 7, got.Index)
	assert.Equal(t, 3.5, got.Time)
	assert.False(t, got.Valid)
}

func TestBus_FrameStamp(t *testing.T) {
	bus := NewBus()
	var frame int64

	bus.Subscribe(Func(func(ev Event) { frame = ev.Frame }, EventBeat))
	bus.SetFrame(99)
	bus.PublishBeat(1, 0, true)

	assert.Equal(t, int64(99), frame)
}

func TestBus_UnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus()
	count := 0

	sub := bus.Subscribe(Func(func(Event) { count++ }, EventBeat))
	bus.PublishBeat(0, 0, true)

	assert.True(t, bus.Unsubscribe(sub))
	assert.False(t, bus.Unsubscribe(sub), "second unsubscribe is a no-op")

	bus.PublishBeat(1, 0, true)
	assert.Equal(t, 1, count)
	assert.Equal(t, 0, bus.HandlerCount(EventBeat))
}

func TestBus_ZeroSubscriptionIgnored(t *testing.T) {
	bus := NewBus()
	assert.False(t, bus.Unsubscribe(Subscription{}))
}

func TestBus_StaleSubscriptionAfterSlotReuse(t *testing.T) {
	bus := NewBus()
	first := 0
	second := 0

	old := bus.Subscribe(Func(func(Event) { first++ }, EventBeat))
	require.True(t, bus.Unsubscribe(old))

	// Reuses the freed slot with a new generation
	bus.Subscribe(Func(func(Event) { second++ }, EventBeat))

	assert.False(t, bus.Unsubscribe(old), "stale handle must not remove the new handler")

	bus.PublishBeat(0, 0, true)
	assert.Equal(t, 0, first)
	assert.Equal(t, 1, second)
}

func TestBus_UnsubscribeDuringPublish(t *testing.T) {
	bus := NewBus()
	var order []string
	var victim Subscription

	bus.Subscribe(Func(func(Event) {
		order = append(order, "killer")
		bus.Unsubscribe(victim)
	}, EventBeat))
	victim = bus.Subscribe(Func(func(Event) {
		order = append(order, "victim")
	}, EventBeat))

	bus.PublishBeat(0, 0, true)
	assert.Equal(t, []string{"killer"}, order)
}

func TestBus_SubscribeDuringPublishMissesCurrentEvent(t *testing.T) {
	bus := NewBus()
	late := 0
	added := false

	bus.Subscribe(Func(func(Event) {
		if !added {
			added = true
			bus.Subscribe(Func(func(Event) { late++ }, EventBeat))
		}
	}, EventBeat))

	bus.PublishBeat(0, 0, true)
	assert.Equal(t, 0, late)

	bus.PublishBeat(1, 0, true)
	assert.Equal(t, 1, late)
}

func TestBus_PanicDoesNotStopFanOut(t *testing.T) {
	bus := NewBus()
	reached := false

	bus.Subscribe(Func(func(Event) { panic("broken actor") }, EventBeat))
	bus.Subscribe(Func(func(Event) { reached = true }, EventBeat))

	assert.NotPanics(t, func() { bus.PublishBeat(0, 0, true) })
	assert.True(t, reached)
}

func TestBus_ReentrantPublish(t *testing.T) {
	bus := NewBus()
	var seen []EventType

	bus.Subscribe(Func(func(ev Event) {
		seen = append(seen, ev.Type)
		if ev.Type == EventTimingReset {
			bus.PublishBeat(0, 0, true)
		}
	}, EventBeat, EventTimingReset))

	bus.PublishTimingReset(TimingResetPayload{})
	assert.Equal(t, []EventType{EventTimingReset, EventBeat}, seen)
}

func TestEventNames(t *testing.T) {
	tests := []struct {
		et   EventType
		name string
	}{
		{EventBeat, "EventBeat"},
		{EventAnimationPreTrigger, "EventAnimationPreTrigger"},
		{EventTimingReset, "EventTimingReset"},
		{EventType(999), "EventUnknown"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.name, tt.et.String())
		})
	}

	et, ok := GetEventType("beat")
	assert.True(t, ok)
	assert.Equal(t, EventBeat, et)

	_, ok = GetEventType("bogus")
	assert.False(t, ok)
}

func TestResetReasonString(t *testing.T) {
	assert.Equal(t, "severe_deviation", ResetSevereDeviation.String())
	assert.Equal(t, "unknown", ResetReason(200).String())
}
