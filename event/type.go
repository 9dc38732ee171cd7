package event

// EventType represents the type of clock event
type EventType int

const (
	// EventNone is the zero value and is never published
	EventNone EventType = iota

	// EventBeat announces a new beat index
	// Trigger: BeatClock on every accepted interval, valid or not
	// Consumer: schedule.Binding, journal, status | Payload: *BeatPayload
	EventBeat

	// EventAnimationPreTrigger asks visuals to start an animation ahead of a scheduled action beat
	// Trigger: BeatClock pre-trigger pass when the fractional beat position crosses a lead threshold
	// Consumer: animation hosts, journal | Payload: *PreTriggerPayload
	EventAnimationPreTrigger

	// EventTimingReset signals that beat numbering restarts
	// Trigger: BeatClock on sustained or severe desync, manual reset, forced beat index
	// Consumer: schedule.Binding, actor.World, journal | Payload: *TimingResetPayload
	EventTimingReset

	eventTypeCount
)

// Event represents a single clock event with metadata
type Event struct {
	Type    EventType
	Payload any
	Frame   int64 // Scheduler frame the event was published on, 0 outside the frame loop
}
