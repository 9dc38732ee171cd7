package engine

import (
	"math"

	"github.com/lixenwraith/beatkeeper/event"
	"github.com/lixenwraith/beatkeeper/parameter"
)

// preTriggerKey identifies one fired lead: the action beat and the spec that produced it
type preTriggerKey struct {
	beat int
	spec int
}

// BeatPosition returns the fractional beat position at now
// The fraction is capped below the next integer so a late beat never reads as arrived
func (c *BeatClock) BeatPosition(now float64) float64 {
	if !c.state.HasLastBeat || c.beatIndex < 0 {
		return float64(c.beatIndex)
	}
	frac := (now - c.state.LastBeatTime) / c.expectedInterval()
	frac = math.Max(0, math.Min(frac, parameter.PreTriggerMaxPosition))
	return float64(c.beatIndex) + frac
}

// preTriggersSuppressed reports a desync deep enough that leads would point at wrong beats
func (c *BeatClock) preTriggersSuppressed() bool {
	limit := parameter.PreTriggerSuppressMultiplier * c.settings.ResetThreshold
	return c.state.ConsecutiveInvalidBeats >= limit && !c.state.PossibleLoopDetected
}

// evaluatePreTriggers fires each lead whose window has opened, once per (action beat, spec)
func (c *BeatClock) evaluatePreTriggers(now float64) {
	if len(c.settings.PreTriggers) == 0 || !c.state.HasLastBeat || c.beatIndex < 0 {
		return
	}
	if c.preTriggersSuppressed() {
		c.obs.PreTriggerSuppressed()
		return
	}

	pos := c.BeatPosition(now)
	floor := c.beatIndex

	for i, spec := range c.settings.PreTriggers {
		n := spec.Schedule.EveryN
		// A lead shorter than the position cap never opens before its beat, it fires on arrival
		first := floor + 1
		if spec.BeatsBeforeAction < 1-parameter.PreTriggerMaxPosition {
			first = floor
		}
		for b := spec.Schedule.NextMatch(first); float64(b)-spec.BeatsBeforeAction <= pos; b += n {
			key := preTriggerKey{beat: b, spec: i}
			if _, ok := c.fired[key]; ok {
				continue
			}
			c.fired[key] = struct{}{}

			c.bus.PublishPreTrigger(event.PreTriggerPayload{
				BeatFloor:         floor,
				EveryN:            spec.Schedule.EveryN,
				Offset:            spec.Schedule.Offset,
				BeatsBeforeAction: spec.BeatsBeforeAction,
				ActionBeat:        b,
			})
			c.obs.PreTriggerFired()
		}
	}
}

// prunePreTriggers forgets keys whose action beat is far behind
func (c *BeatClock) prunePreTriggers() {
	horizon := c.beatIndex - parameter.PreTriggerPruneBeats
	for k := range c.fired {
		if k.beat < horizon {
			delete(c.fired, k)
		}
	}
}

// PendingPreTriggers returns the number of remembered fired keys
func (c *BeatClock) PendingPreTriggers() int {
	return len(c.fired)
}
