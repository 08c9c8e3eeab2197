package session

import (
	"fmt"

	"github.com/broar/playbin-cli/pkg/engine"
)

// Command is a user request decoded from a keystroke. The set of commands is closed: SelectAudioTrack,
// SelectTextTrack and Quit
type Command interface {
	isCommand()
}

// SelectAudioTrack switches to the audio stream at Index
type SelectAudioTrack struct {
	Index uint32
}

// SelectTextTrack switches to the subtitle stream at Index
type SelectTextTrack struct {
	Index uint32
}

// Quit ends the session
type Quit struct{}

func (SelectAudioTrack) isCommand() {}
func (SelectTextTrack) isCommand()  {}
func (Quit) isCommand()             {}

func (c SelectAudioTrack) String() string {
	return fmt.Sprintf("select audio stream %d", c.Index)
}

func (c SelectTextTrack) String() string {
	return fmt.Sprintf("select subtitle stream %d", c.Index)
}

func (Quit) String() string {
	return "quit"
}

// SelectTrack returns the selection command for a track kind
func SelectTrack(kind engine.TrackKind, index uint32) Command {
	if kind == engine.TrackText {
		return SelectTextTrack{Index: index}
	}

	return SelectAudioTrack{Index: index}
}

// Outcome is the result of applying a command or handling an event
type Outcome int

const (
	// OutcomeApplied means the command or event changed the session
	OutcomeApplied Outcome = iota

	// OutcomeOutOfRange means a track index was not below the current number of tracks
	OutcomeOutOfRange

	// OutcomeIgnored means the session is terminating or the event does not concern it
	OutcomeIgnored

	// OutcomeFailed means the engine refused a call made on behalf of the command
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeApplied:
		return "applied"
	case OutcomeOutOfRange:
		return "out-of-range"
	case OutcomeIgnored:
		return "ignored"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}
