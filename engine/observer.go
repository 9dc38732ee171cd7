package engine

import "github.com/lixenwraith/beatkeeper/event"

// Observer receives clock diagnostics
// Called synchronously from the tick path, implementations must not block
type Observer interface {
	BeatPublished(index int, state TimingState)
	Anomaly(a Anomaly)
	TimingReset(reason event.ResetReason)
	PreTriggerFired()
	PreTriggerSuppressed()
}

// NopObserver discards all diagnostics
type NopObserver struct{}

func (NopObserver) BeatPublished(int, TimingState) {}
func (NopObserver) Anomaly(Anomaly)                {}
func (NopObserver) TimingReset(event.ResetReason)  {}
func (NopObserver) PreTriggerFired()               {}
func (NopObserver) PreTriggerSuppressed()          {}
