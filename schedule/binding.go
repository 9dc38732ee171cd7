package schedule

import (
	"github.com/lixenwraith/beatkeeper/event"
)

// Actor is any consumer that acts on its scheduled beats
type Actor interface {
	Tick()
}

// ResetAware actors are told when beat numbering restarts
type ResetAware interface {
	OnTimingReset(destroyTimedActors bool)
}

// PreTriggerAware actors receive animation leads for their own schedule
type PreTriggerAware interface {
	OnPreTrigger(p event.PreTriggerPayload)
}

// Binding connects one actor to the bus with its schedule
// Subscription lifetime is the binding lifetime: Close on actor destruction
type Binding struct {
	bus   *event.Bus
	sub   event.Subscription
	gate  *Gate
	actor Actor

	ticks int
}

// Bind subscribes the actor and returns its binding
func Bind(bus *event.Bus, actor Actor, spec Spec, convention Convention) *Binding {
	b := &Binding{
		bus:   bus,
		gate:  NewGate(spec, convention),
		actor: actor,
	}
	b.sub = bus.Subscribe(b)
	return b
}

// EventTypes implements event.Handler
func (b *Binding) EventTypes() []event.EventType {
	types := []event.EventType{event.EventBeat, event.EventTimingReset}
	if _, ok := b.actor.(PreTriggerAware); ok {
		types = append(types, event.EventAnimationPreTrigger)
	}
	return types
}

// HandleEvent implements event.Handler
func (b *Binding) HandleEvent(ev event.Event) {
	switch ev.Type {
	case event.EventBeat:
		if p, ok := ev.Payload.(*event.BeatPayload); ok {
			b.OnBeat(p.Index)
		}

	case event.EventTimingReset:
		if p, ok := ev.Payload.(*event.TimingResetPayload); ok {
			b.gate.NewEpoch()
			if ra, ok := b.actor.(ResetAware); ok {
				ra.OnTimingReset(p.DestroyTimedActors)
			}
		}

	case event.EventAnimationPreTrigger:
		if p, ok := ev.Payload.(*event.PreTriggerPayload); ok {
			spec := b.gate.Spec()
			if p.EveryN == spec.EveryN && p.Offset == spec.Offset && b.gate.Projects(p.ActionBeat) {
				b.actor.(PreTriggerAware).OnPreTrigger(*p)
			}
		}
	}
}

// OnBeat evaluates the schedule for a beat index and ticks the actor on a match
// Returns whether the actor ticked
func (b *Binding) OnBeat(beatIndex int) bool {
	if !b.gate.Fire(beatIndex) {
		return false
	}
	b.ticks++
	b.actor.Tick()
	return true
}

// Close unsubscribes, safe to call more than once
func (b *Binding) Close() {
	if b.sub.Valid() {
		b.bus.Unsubscribe(b.sub)
		b.sub = event.Subscription{}
	}
}

// Gate exposes the binding's gate, used by actors that resync their local phase
func (b *Binding) Gate() *Gate {
	return b.gate
}

// Ticks returns how many times the actor has been ticked
func (b *Binding) Ticks() int {
	return b.ticks
}
