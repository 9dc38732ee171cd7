package event

import "strings"

var typeToName = [...]string{
	EventNone:                "EventNone",
	EventBeat:                "EventBeat",
	EventAnimationPreTrigger: "EventAnimationPreTrigger",
	EventTimingReset:         "EventTimingReset",
}

// GetEventName returns the string name for an EventType
func GetEventName(et EventType) string {
	if et < 0 || et >= eventTypeCount {
		return "EventUnknown"
	}
	return typeToName[et]
}

// GetEventType returns the EventType for a name, with or without the "Event" prefix
func GetEventType(name string) (EventType, bool) {
	for i, n := range typeToName {
		if strings.EqualFold(n, name) || strings.EqualFold(strings.TrimPrefix(n, "Event"), name) {
			return EventType(i), true
		}
	}
	return EventNone, false
}

func (et EventType) String() string {
	return GetEventName(et)
}

// AllTypes returns every publishable event type
func AllTypes() []EventType {
	return []EventType{EventBeat, EventAnimationPreTrigger, EventTimingReset}
}
