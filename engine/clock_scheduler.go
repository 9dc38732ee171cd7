package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/lixenwraith/beatkeeper/core"
	"github.com/lixenwraith/beatkeeper/event"
	"github.com/lixenwraith/beatkeeper/parameter"
)

// FrameFunc runs after the clock tick on every unpaused frame, now is scene time
type FrameFunc func(now time.Time)

// ClockScheduler drives the beat clock on a fixed frame interval
// Single owner of BeatClock: other goroutines reach it only through the control queue
// Handles pause-aware scheduling without busy-wait
type ClockScheduler struct {
	clock         *BeatClock
	bus           *event.Bus
	pausableClock *PausableClock
	controls      *ControlQueue
	onFrame       FrameFunc

	frameInterval time.Duration
	nextDeadline  time.Time // Next frame deadline for drift correction

	frameCount atomic.Int64
	paused     atomic.Bool
	mu         sync.Mutex

	stopChan chan struct{}
	wakeChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	running  atomic.Bool

	log zerolog.Logger
}

// SchedulerOption configures a ClockScheduler
type SchedulerOption func(*ClockScheduler)

// WithFrameInterval overrides the frame interval
func WithFrameInterval(d time.Duration) SchedulerOption {
	return func(cs *ClockScheduler) {
		if d > 0 {
			cs.frameInterval = d
		}
	}
}

// WithFrameFunc sets the per-frame hook (actor glides, rendering)
func WithFrameFunc(fn FrameFunc) SchedulerOption {
	return func(cs *ClockScheduler) { cs.onFrame = fn }
}

// WithSchedulerLogger sets the scheduler logger
func WithSchedulerLogger(l zerolog.Logger) SchedulerOption {
	return func(cs *ClockScheduler) { cs.log = l }
}

// NewClockScheduler creates a scheduler for clock
// pausableClock must be the time provider the clock validates against
func NewClockScheduler(clock *BeatClock, bus *event.Bus, pausableClock *PausableClock, opts ...SchedulerOption) *ClockScheduler {
	cs := &ClockScheduler{
		clock:         clock,
		bus:           bus,
		pausableClock: pausableClock,
		controls:      NewControlQueue(),
		frameInterval: parameter.FrameUpdateInterval,
		stopChan:      make(chan struct{}),
		wakeChan:      make(chan struct{}, 1),
		log:           zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(cs)
	}
	return cs
}

// Start begins the scheduler loop
func (cs *ClockScheduler) Start() {
	if cs.running.CompareAndSwap(false, true) {
		cs.wg.Add(1)
		core.Go(cs.schedulerLoop)
	}
}

// Stop halts the scheduler loop and waits for the current frame to finish
func (cs *ClockScheduler) Stop() {
	cs.stopOnce.Do(func() {
		if cs.running.CompareAndSwap(true, false) {
			close(cs.stopChan)
			cs.wg.Wait()
		}
	})
}

// Running reports whether the loop is active
func (cs *ClockScheduler) Running() bool {
	return cs.running.Load()
}

// schedulerLoop runs frames at the configured interval with drift correction
func (cs *ClockScheduler) schedulerLoop() {
	defer cs.wg.Done()

	cs.mu.Lock()
	cs.nextDeadline = cs.pausableClock.RealTime().Add(cs.frameInterval)
	cs.mu.Unlock()

	timer := time.NewTimer(0)
	if !timer.Stop() {
		select {
		case <-timer.C:
		default:
		}
	}
	defer timer.Stop()

	for {
		select {
		case <-cs.stopChan:
			return
		default:
		}

		var sleepDuration time.Duration

		if cs.paused.Load() {
			// Controls still drain while paused so Resume is seen
			cs.drainControls()
			sleepDuration = cs.frameInterval * parameter.PausedSleepMultiplier
		} else {
			now := cs.pausableClock.RealTime()

			cs.mu.Lock()
			deadline := cs.nextDeadline
			cs.mu.Unlock()

			if !now.Before(deadline) {
				cs.RunFrame()

				cs.mu.Lock()
				cs.nextDeadline = cs.nextDeadline.Add(cs.frameInterval)
				maxBehind := cs.frameInterval * 2
				if now.Sub(cs.nextDeadline) > maxBehind {
					cs.nextDeadline = now.Add(cs.frameInterval)
				}
				deadline = cs.nextDeadline
				cs.mu.Unlock()

				sleepDuration = deadline.Sub(cs.pausableClock.RealTime())
			} else {
				sleepDuration = deadline.Sub(now)
			}
		}

		if sleepDuration > 0 {
			timer.Reset(sleepDuration)
			select {
			case <-timer.C:
			case <-cs.wakeChan:
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
			case <-cs.stopChan:
				return
			}
		}
	}
}

// RunFrame executes one frame synchronously: controls, clock tick, frame hook
// Called by the loop, and directly by headless simulations and tests
func (cs *ClockScheduler) RunFrame() {
	frame := cs.frameCount.Add(1)
	cs.bus.SetFrame(frame)

	cs.drainControls()
	if cs.paused.Load() {
		return
	}

	cs.clock.Tick()
	if cs.onFrame != nil {
		cs.onFrame(cs.pausableClock.Now())
	}
}

func (cs *ClockScheduler) drainControls() {
	for _, ctl := range cs.controls.Consume() {
		cs.apply(ctl)
	}
}

func (cs *ClockScheduler) apply(ctl Control) {
	cs.log.Debug().Str("control", ctl.Kind.String()).Int("index", ctl.Index).Msg("control")

	switch ctl.Kind {
	case ControlResetTiming:
		cs.clock.ForceResetTiming()
	case ControlSetBeatIndex:
		cs.clock.ForceSetBeatIndex(ctl.Index)
	case ControlNotifyLoop:
		cs.clock.NotifyPossibleLoop()
	case ControlApplySettings:
		if ctl.Settings != nil {
			cs.clock.ApplySettings(*ctl.Settings)
		}
	case ControlPause:
		if cs.paused.CompareAndSwap(false, true) {
			cs.pausableClock.Pause()
		}
	case ControlResume:
		if cs.paused.CompareAndSwap(true, false) {
			cs.pausableClock.Resume()
			cs.mu.Lock()
			cs.nextDeadline = cs.pausableClock.RealTime()
			cs.mu.Unlock()
		}
	}
}

// Submit queues a control for the next frame, safe from any goroutine
func (cs *ClockScheduler) Submit(ctl Control) {
	dropped := cs.controls.Dropped()
	cs.controls.Push(ctl)
	if cs.controls.Dropped() > dropped {
		cs.log.Warn().Str("control", ctl.Kind.String()).Msg("control queue full, oldest control evicted")
	}
	select {
	case cs.wakeChan <- struct{}{}:
	default:
	}
}

// RequestReset queues ForceResetTiming
func (cs *ClockScheduler) RequestReset() {
	cs.Submit(Control{Kind: ControlResetTiming})
}

// RequestBeatIndex queues ForceSetBeatIndex
func (cs *ClockScheduler) RequestBeatIndex(v int) {
	cs.Submit(Control{Kind: ControlSetBeatIndex, Index: v})
}

// RequestLoopNotice queues NotifyPossibleLoop
func (cs *ClockScheduler) RequestLoopNotice() {
	cs.Submit(Control{Kind: ControlNotifyLoop})
}

// RequestSettings queues a live settings change
func (cs *ClockScheduler) RequestSettings(s ClockSettings) {
	cs.Submit(Control{Kind: ControlApplySettings, Settings: &s})
}

// RequestPause queues a pause, scene time freezes with it
func (cs *ClockScheduler) RequestPause() {
	cs.Submit(Control{Kind: ControlPause})
}

// RequestResume queues a resume
func (cs *ClockScheduler) RequestResume() {
	cs.Submit(Control{Kind: ControlResume})
}

// IsPaused reports the applied pause state
func (cs *ClockScheduler) IsPaused() bool {
	return cs.paused.Load()
}

// FrameCount returns frames executed so far
func (cs *ClockScheduler) FrameCount() int64 {
	return cs.frameCount.Load()
}

// Clock returns the driven clock, only safe to read from the frame hook
func (cs *ClockScheduler) Clock() *BeatClock {
	return cs.clock
}
