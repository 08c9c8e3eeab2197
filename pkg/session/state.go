package session

import (
	"fmt"
	"time"

	"github.com/broar/playbin-cli/pkg/engine"
	"github.com/samber/mo"
)

// Phase is the lifecycle phase of a session
type Phase int

const (
	PhaseStarting Phase = iota
	PhasePlaying
	PhaseTerminating
	PhaseStopped
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseStarting:
		return "starting"
	case PhasePlaying:
		return "playing"
	case PhaseTerminating:
		return "terminating"
	case PhaseStopped:
		return "stopped"
	case PhaseFailed:
		return "failed"
	default:
		return fmt.Sprintf("Phase(%d)", int(p))
	}
}

// SeekState tracks the one-shot seek of a session. It only ever moves forward
type SeekState int

const (
	SeekNotYet SeekState = iota
	SeekRequested
	SeekDone
)

func (s SeekState) String() string {
	switch s {
	case SeekNotYet:
		return "not-yet"
	case SeekRequested:
		return "requested"
	case SeekDone:
		return "done"
	default:
		return fmt.Sprintf("SeekState(%d)", int(s))
	}
}

// NoTrack is the index of a track selection that was never changed by a command
const NoTrack = -1

// TrackSelection is the last selection applied by a command
type TrackSelection struct {
	Video int
	Audio int
	Text  int
}

func newTrackSelection() TrackSelection {
	return TrackSelection{Video: NoTrack, Audio: NoTrack, Text: NoTrack}
}

func (s *TrackSelection) set(kind engine.TrackKind, index int) {
	switch kind {
	case engine.TrackVideo:
		s.Video = index
	case engine.TrackAudio:
		s.Audio = index
	case engine.TrackText:
		s.Text = index
	}
}

// Get returns the selected index for a track kind
func (s TrackSelection) Get(kind engine.TrackKind) int {
	switch kind {
	case engine.TrackVideo:
		return s.Video
	case engine.TrackAudio:
		return s.Audio
	default:
		return s.Text
	}
}

// state is guarded by Controller.mu. The terminate flag lives on the Controller so it can be read without the lock
type state struct {
	phase     Phase
	playing   bool
	analyzed  bool
	seekable  bool
	seek      SeekState
	duration  mo.Option[time.Duration]
	selection TrackSelection
	failure   error
	reason    string
}

func newState() state {
	return state{
		phase:     PhaseStarting,
		seek:      SeekNotYet,
		duration:  mo.None[time.Duration](),
		selection: newTrackSelection(),
	}
}
