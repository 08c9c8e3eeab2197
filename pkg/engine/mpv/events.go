package mpv

import (
	"encoding/json"

	"github.com/broar/playbin-cli/pkg/engine"
)

// Observed property ids
const (
	observePause = iota + 1
	observeDuration
)

// translator turns the mpv event stream into engine events. mpv has no notion of pipeline states, so they are
// derived from whether a file is loaded and the pause property
type translator struct {
	state  engine.State
	paused bool
	loaded bool
}

func newTranslator() *translator {
	return &translator{state: engine.StateReady, paused: true}
}

func (t *translator) translate(msg message) []engine.Event {
	switch msg.Event {
	case "property-change":
		return t.propertyChanged(msg)
	case "file-loaded":
		t.loaded = true
		return t.moveTo(t.target())
	case "end-file":
		t.loaded = false
		return t.endFile(msg)
	case "shutdown":
		return t.moveTo(engine.StateNull)
	default:
		return nil
	}
}

func (t *translator) propertyChanged(msg message) []engine.Event {
	switch msg.Name {
	case "pause":
		var paused bool
		if err := json.Unmarshal(msg.Data, &paused); err != nil {
			return nil
		}

		t.paused = paused
		if !t.loaded {
			return nil
		}

		return t.moveTo(t.target())
	case "duration":
		return []engine.Event{engine.DurationChangedEvent{}}
	default:
		return nil
	}
}

func (t *translator) endFile(msg message) []engine.Event {
	switch msg.Reason {
	case "eof":
		return []engine.Event{engine.EOSEvent{}}
	case "error":
		fileError := msg.FileError
		if fileError == "" {
			fileError = "unknown error"
		}

		return []engine.Event{engine.ErrorEvent{Source: Name, Message: "failed to play media", Debug: fileError}}
	default:
		return nil
	}
}

func (t *translator) target() engine.State {
	if t.paused {
		return engine.StatePaused
	}

	return engine.StatePlaying
}

// moveTo steps through every state between the current and the target one
func (t *translator) moveTo(target engine.State) []engine.Event {
	var events []engine.Event
	for t.state != target {
		old := t.state
		if t.state < target {
			t.state++
		} else {
			t.state--
		}

		events = append(events, engine.StateChangedEvent{Source: Name, Old: old, New: t.state})
	}

	return events
}
