package engine

import "fmt"

// Event is an asynchronous notification from an Engine. The set of events is closed: ErrorEvent, EOSEvent,
// DurationChangedEvent and StateChangedEvent
type Event interface {
	isEvent()
}

// ErrorEvent is a runtime failure reported by the engine. It is always fatal to a session
type ErrorEvent struct {
	Source  string
	Message string
	Debug   string
}

// EOSEvent signals that the end of the stream was reached
type EOSEvent struct{}

// DurationChangedEvent signals that any previously queried duration is no longer valid
type DurationChangedEvent struct{}

// StateChangedEvent signals that an element of the engine completed a state transition
type StateChangedEvent struct {
	Source string
	Old    State
	New    State
}

func (ErrorEvent) isEvent()           {}
func (EOSEvent) isEvent()             {}
func (DurationChangedEvent) isEvent() {}
func (StateChangedEvent) isEvent()    {}

func (e ErrorEvent) String() string {
	return fmt.Sprintf("error from %s: %s", e.Source, e.Message)
}

func (EOSEvent) String() string {
	return "end of stream"
}

func (DurationChangedEvent) String() string {
	return "duration changed"
}

func (e StateChangedEvent) String() string {
	return fmt.Sprintf("%s changed state from %s to %s", e.Source, e.Old, e.New)
}
