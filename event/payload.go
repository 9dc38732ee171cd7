package event

// BeatPayload carries the published beat index
type BeatPayload struct {
	Index int     `json:"index"`
	Time  float64 `json:"time"` // Scene time the beat was observed at, seconds since the clock epoch
	Valid bool    `json:"valid"`
}

// PreTriggerPayload describes an upcoming scheduled action
type PreTriggerPayload struct {
	BeatFloor         int     `json:"beat_floor"` // Integer part of the beat position when fired
	EveryN            int     `json:"every_n"`
	Offset            int     `json:"offset"`
	BeatsBeforeAction float64 `json:"beats_before_action"`
	ActionBeat        int     `json:"action_beat"` // Beat index the paired action lands on
}

// ResetReason explains why beat numbering restarted
type ResetReason uint8

const (
	ResetManual ResetReason = iota
	ResetSustainedDesync
	ResetSevereDeviation
	ResetForcedIndex
)

var resetReasonNames = [...]string{
	ResetManual:          "manual",
	ResetSustainedDesync: "sustained_desync",
	ResetSevereDeviation: "severe_deviation",
	ResetForcedIndex:     "forced_index",
}

func (r ResetReason) String() string {
	if int(r) >= len(resetReasonNames) {
		return "unknown"
	}
	return resetReasonNames[r]
}

// TimingResetPayload carries the timed-actor policy for the new epoch
type TimingResetPayload struct {
	DestroyTimedActors bool        `json:"destroy_timed_actors"`
	NextIndex          int         `json:"next_index"`
	Reason             ResetReason `json:"reason"`
}
