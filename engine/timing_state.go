package engine

// TimingState is the validation state of the beat clock
// Owned by BeatClock, callers only ever see copies
type TimingState struct {
	LastBeatTime            float64 // Scene seconds of the last accepted beat
	HasLastBeat             bool
	ConsecutiveValidBeats   int
	ConsecutiveInvalidBeats int
	TimingValid             bool
	PossibleLoopDetected    bool
	LastLoopTime            float64 // Scene seconds of the last loop notice
	HasLoop                 bool
}

func newTimingState() TimingState {
	return TimingState{TimingValid: true}
}

// InGrace reports whether now falls inside the loop grace window
func (s TimingState) InGrace(now, window float64) bool {
	return s.HasLoop && now-s.LastLoopTime <= window
}

// Anomaly classifies a beat that did not arrive on time
type Anomaly uint8

const (
	// AnomalyTransientDeviation is a single late or early beat within the reset threshold
	AnomalyTransientDeviation Anomaly = iota
	// AnomalySustainedDesync is an invalid streak reaching the reset threshold
	AnomalySustainedDesync
	// AnomalySevereDeviation exceeds the severe multiple of tolerance and resets immediately
	AnomalySevereDeviation
	// AnomalyLoopDiscontinuity is a jump larger than the loop threshold, typically a track loop
	AnomalyLoopDiscontinuity
)

var anomalyNames = [...]string{
	AnomalyTransientDeviation: "transient_deviation",
	AnomalySustainedDesync:    "sustained_desync",
	AnomalySevereDeviation:    "severe_deviation",
	AnomalyLoopDiscontinuity:  "loop_discontinuity",
}

func (a Anomaly) String() string {
	if int(a) >= len(anomalyNames) {
		return "unknown"
	}
	return anomalyNames[a]
}
