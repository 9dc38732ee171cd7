package actor

import (
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/engine"
	"github.com/lixenwraith/beatkeeper/event"
	"github.com/lixenwraith/beatkeeper/motion"
	"github.com/lixenwraith/beatkeeper/parameter"
	"github.com/lixenwraith/beatkeeper/schedule"
)

// Observer receives actor lifetime changes
type Observer interface {
	ActorSpawned(kind Kind)
	ActorDestroyed(kind Kind)
}

type nopObserver struct{}

func (nopObserver) ActorSpawned(Kind)   {}
func (nopObserver) ActorDestroyed(Kind) {}

// World owns spawned actors, their bus subscriptions and per-frame glide updates
// Lives on the scheduler goroutine: Spawn and Destroy are safe from inside bus handlers
type World struct {
	bus      *event.Bus
	grid     core.Grid
	collider core.Collider
	clock    engine.TimeProvider
	tempo    motion.TempoFunc
	instant  bool
	step     float64

	log zerolog.Logger
	obs Observer

	entities map[ID]Entity
	order    []ID // Spawn order, replaced on change so iteration may mutate
}

// WorldOption configures a World
type WorldOption func(*World)

// WithGrid sets the grid movers snap to
func WithGrid(g core.Grid) WorldOption {
	return func(w *World) { w.grid = g }
}

// WithCollider sets the damage query collaborator
func WithCollider(c core.Collider) WorldOption {
	return func(w *World) { w.collider = c }
}

// WithClock sets the scene clock glides use
func WithClock(tp engine.TimeProvider) WorldOption {
	return func(w *World) { w.clock = tp }
}

// WithTempo sets the live tempo glides read
func WithTempo(fn motion.TempoFunc) WorldOption {
	return func(w *World) { w.tempo = fn }
}

// WithInstantMoves disables gliding for all actors
func WithInstantMoves() WorldOption {
	return func(w *World) { w.instant = true }
}

// WithStepDistance sets world units per step
func WithStepDistance(d float64) WorldOption {
	return func(w *World) { w.step = d }
}

// WithLogger sets the world logger, actors log through child loggers
func WithLogger(l zerolog.Logger) WorldOption {
	return func(w *World) { w.log = l }
}

// WithObserver attaches a lifetime observer
func WithObserver(o Observer) WorldOption {
	return func(w *World) {
		if o != nil {
			w.obs = o
		}
	}
}

// NewWorld creates an empty world publishing through bus
func NewWorld(bus *event.Bus, opts ...WorldOption) *World {
	w := &World{
		bus:      bus,
		step:     parameter.DefaultStepDistance,
		log:      zerolog.Nop(),
		obs:      nopObserver{},
		entities: make(map[ID]Entity),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

func (w *World) newMover(start core.Vec2) *motion.Mover {
	opts := []motion.MoverOption{motion.WithStepDistance(w.step)}
	if w.grid != nil {
		opts = append(opts, motion.WithGrid(w.grid))
	}
	if w.clock != nil {
		opts = append(opts, motion.WithClock(w.clock))
	}
	if w.tempo != nil {
		opts = append(opts, motion.WithTempo(w.tempo))
	}
	if w.instant {
		opts = append(opts, motion.WithInstant())
	}
	return motion.NewMover(start, opts...)
}

// Spawn adds the entity and subscribes it with spec under its kind's convention
// An entity spawned during a beat publish first acts on the following beat
func (w *World) Spawn(e Entity, spec schedule.Spec) ID {
	b := e.entity()
	b.id = uuid.Must(uuid.NewV7())
	b.world = w
	b.alive = true
	b.log = w.log.With().Str("actor", b.kind.String()).Str("id", b.id.String()).Logger()
	b.mover = w.newMover(b.start)
	b.binding = schedule.Bind(w.bus, e, spec, e.Convention())

	w.entities[b.id] = e
	order := make([]ID, len(w.order), len(w.order)+1)
	copy(order, w.order)
	w.order = append(order, b.id)

	w.obs.ActorSpawned(b.kind)
	b.log.Debug().Str("schedule", spec.String()).Msg("spawned")
	return b.id
}

// Destroy removes the actor and closes its subscription, false if already gone
func (w *World) Destroy(id ID) bool {
	e, ok := w.entities[id]
	if !ok {
		return false
	}
	b := e.entity()
	b.binding.Close()
	b.alive = false
	delete(w.entities, id)

	order := make([]ID, 0, len(w.order))
	for _, o := range w.order {
		if o != id {
			order = append(order, o)
		}
	}
	w.order = order

	w.obs.ActorDestroyed(b.kind)
	b.log.Debug().Msg("destroyed")
	return true
}

// Get returns a live actor
func (w *World) Get(id ID) (Entity, bool) {
	e, ok := w.entities[id]
	return e, ok
}

// Len returns the live actor count
func (w *World) Len() int {
	return len(w.entities)
}

// Count returns the live actors of one kind
func (w *World) Count(kind Kind) int {
	n := 0
	for _, e := range w.entities {
		if e.Kind() == kind {
			n++
		}
	}
	return n
}

// Each visits live actors in spawn order
func (w *World) Each(fn func(Entity)) {
	for _, id := range w.order {
		if e, ok := w.entities[id]; ok {
			fn(e)
		}
	}
}

// Update advances every glide to now, called once per frame
func (w *World) Update(now time.Time) {
	w.Each(func(e Entity) {
		e.entity().Update(now)
	})
}

// Clear destroys all actors
func (w *World) Clear() {
	for _, id := range w.order {
		w.Destroy(id)
	}
}
