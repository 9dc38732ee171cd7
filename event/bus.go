package event

import (
	"sync"

	"github.com/rs/zerolog"
)

// Handler processes specific event types
// Actors and diagnostics implement this interface to receive published events
type Handler interface {
	// HandleEvent processes a single event
	// Called synchronously on the publishing goroutine
	HandleEvent(ev Event)

	// EventTypes returns the event types this handler processes
	// The bus uses this for registration
	EventTypes() []EventType
}

// HandlerFunc adapts a closure to Handler
type HandlerFunc struct {
	Types []EventType
	Fn    func(Event)
}

func (h HandlerFunc) HandleEvent(ev Event)     { h.Fn(ev) }
func (h HandlerFunc) EventTypes() []EventType { return h.Types }

// Func builds a HandlerFunc for the given types
func Func(fn func(Event), types ...EventType) HandlerFunc {
	return HandlerFunc{Types: types, Fn: fn}
}

// Subscription identifies a registered handler, the zero value is never valid
// Stale subscriptions (already removed, or a reused slot) are ignored
type Subscription struct {
	slot uint32 // index+1
	gen  uint32
}

// Valid reports whether the subscription was ever issued
func (s Subscription) Valid() bool {
	return s.slot != 0
}

type busSlot struct {
	handler Handler
	types   []EventType
	gen     uint32
	live    bool
}

type busTarget struct {
	slot uint32
	gen  uint32
}

// Bus dispatches events to subscribed handlers
//
// Architecture:
//   - Synchronous fan-out on the publisher's goroutine, no queue
//   - Handlers are invoked in subscription order
//   - Handlers subscribed during a publish miss that event
//   - Handlers unsubscribed during a publish are skipped for the rest of it
//   - A panicking handler is recovered and logged; fan-out continues
//
// The mutex only guards registration state, handlers run unlocked so they may
// subscribe, unsubscribe or publish re-entrantly
type Bus struct {
	mu     sync.Mutex
	slots  []busSlot
	free   []uint32
	byType map[EventType][]busTarget
	frame  int64

	log zerolog.Logger
}

// BusOption configures a Bus
type BusOption func(*Bus)

// WithLogger sets the logger used for handler panics
func WithLogger(l zerolog.Logger) BusOption {
	return func(b *Bus) { b.log = l }
}

// NewBus creates an empty bus
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		byType: make(map[EventType][]busTarget),
		log:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe registers a handler for its declared event types
func (b *Bus) Subscribe(h Handler) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	var idx uint32
	if n := len(b.free); n > 0 {
		idx = b.free[n-1]
		b.free = b.free[:n-1]
	} else {
		b.slots = append(b.slots, busSlot{})
		idx = uint32(len(b.slots) - 1)
	}

	s := &b.slots[idx]
	s.handler = h
	s.types = append(s.types[:0], h.EventTypes()...)
	s.live = true

	target := busTarget{slot: idx, gen: s.gen}
	for _, t := range s.types {
		b.byType[t] = append(b.byType[t], target)
	}

	return Subscription{slot: idx + 1, gen: s.gen}
}

// Unsubscribe removes a handler, returns false if the subscription was already gone
func (b *Bus) Unsubscribe(sub Subscription) bool {
	if !sub.Valid() {
		return false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := sub.slot - 1
	if int(idx) >= len(b.slots) {
		return false
	}
	s := &b.slots[idx]
	if !s.live || s.gen != sub.gen {
		return false
	}

	for _, t := range s.types {
		targets := b.byType[t]
		for i, tg := range targets {
			if tg.slot == idx && tg.gen == sub.gen {
				// Copy-on-write so in-flight publish snapshots stay intact
				next := make([]busTarget, 0, len(targets)-1)
				next = append(next, targets[:i]...)
				next = append(next, targets[i+1:]...)
				b.byType[t] = next
				break
			}
		}
	}

	s.live = false
	s.handler = nil
	s.gen++
	b.free = append(b.free, idx)
	return true
}

// SetFrame stamps subsequent events with the scheduler frame number
func (b *Bus) SetFrame(frame int64) {
	b.mu.Lock()
	b.frame = frame
	b.mu.Unlock()
}

// Publish delivers an event to every handler subscribed to its type
func (b *Bus) Publish(t EventType, payload any) {
	b.mu.Lock()
	targets := b.byType[t]
	ev := Event{Type: t, Payload: payload, Frame: b.frame}
	b.mu.Unlock()

	for _, tg := range targets {
		b.mu.Lock()
		s := b.slots[tg.slot]
		b.mu.Unlock()

		if !s.live || s.gen != tg.gen {
			continue
		}
		b.dispatch(s.handler, ev)
	}
}

func (b *Bus) dispatch(h Handler, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error().
				Str("event", ev.Type.String()).
				Interface("panic", r).
				Msg("handler panicked, continuing fan-out")
		}
	}()
	h.HandleEvent(ev)
}

// PublishBeat announces a beat index
func (b *Bus) PublishBeat(index int, at float64, valid bool) {
	b.Publish(EventBeat, &BeatPayload{Index: index, Time: at, Valid: valid})
}

// PublishPreTrigger announces an animation lead
func (b *Bus) PublishPreTrigger(p PreTriggerPayload) {
	b.Publish(EventAnimationPreTrigger, &p)
}

// PublishTimingReset announces a new beat epoch
func (b *Bus) PublishTimingReset(p TimingResetPayload) {
	b.Publish(EventTimingReset, &p)
}

// HandlerCount returns the number of live handlers registered for the given type
func (b *Bus) HandlerCount(t EventType) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.byType[t])
}

// HasHandlers returns true if any handlers are registered for the given type
func (b *Bus) HasHandlers(t EventType) bool {
	return b.HandlerCount(t) > 0
}
