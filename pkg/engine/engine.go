package engine

//go:generate mockgen -destination=mock_engine/mock_engine.go -package=mock_engine github.com/broar/playbin-cli/pkg/engine Engine

import (
	"errors"
	"fmt"
	"time"
)

const (
	PropName         = "name"
	PropNVideo       = "n-video"
	PropNAudio       = "n-audio"
	PropNText        = "n-text"
	PropCurrentVideo = "current-video"
	PropCurrentAudio = "current-audio"
	PropCurrentText  = "current-text"
	PropSeekable     = "seekable"
)

var (
	// ErrEngine is the root of every error returned by an Engine once it has been opened
	ErrEngine = errors.New("playback engine error")

	// ErrUnknownProperty is returned when an Engine does not support a property name
	ErrUnknownProperty = fmt.Errorf("%w: unknown property", ErrEngine)

	// ErrPropertyType is returned when a property value has an unexpected type
	ErrPropertyType = fmt.Errorf("%w: unexpected property type", ErrEngine)
)

// State is a playback state of an Engine
type State int

const (
	StateNull State = iota
	StateReady
	StatePaused
	StatePlaying
)

func (s State) String() string {
	switch s {
	case StateNull:
		return "NULL"
	case StateReady:
		return "READY"
	case StatePaused:
		return "PAUSED"
	case StatePlaying:
		return "PLAYING"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// SeekFlags modify how a seek is performed
type SeekFlags uint

const (
	// SeekFlush discards queued data so the new position is heard immediately
	SeekFlush SeekFlags = 1 << iota

	// SeekKeyUnit snaps the position to the nearest key frame
	SeekKeyUnit

	// SeekAccurate seeks to the exact position, possibly slower
	SeekAccurate
)

// Tags describes a single stream within the media
type Tags struct {
	Codec    string
	Language string
	Bitrate  uint
}

// Engine is the capability interface of a media playback engine. PollEvent may be called concurrently with any other
// method; every other method is expected to be called by one owner at a time
type Engine interface {

	// SetState requests a state transition. Completion is signaled later by a StateChangedEvent
	SetState(target State) error

	// Property returns the current value of a named property
	Property(name string) (interface{}, error)

	// SetProperty sets a named property
	SetProperty(name string, value interface{}) error

	// Seek moves playback to an absolute position
	Seek(position time.Duration, flags SeekFlags) error

	// QueryPosition returns the current playback position if it is known
	QueryPosition() (time.Duration, bool)

	// QueryDuration returns the total media duration if it is known
	QueryDuration() (time.Duration, bool)

	// Tags returns the tags of the stream at index for the given track kind
	Tags(kind TrackKind, index int) (Tags, bool)

	// PollEvent waits at most timeout for the next event
	PollEvent(timeout time.Duration) (Event, bool)
}

// Opener is a function which constructs an Engine from a Config
type Opener func(cfg Config) (Engine, error)

// IntProperty reads a property and converts it to an int
func IntProperty(e Engine, name string) (int, error) {
	value, err := e.Property(name)
	if err != nil {
		return 0, err
	}

	switch v := value.(type) {
	case int:
		return v, nil
	case int32:
		return int(v), nil
	case int64:
		return int(v), nil
	case uint:
		return int(v), nil
	case uint32:
		return int(v), nil
	case uint64:
		return int(v), nil
	case float64:
		return int(v), nil
	default:
		return 0, fmt.Errorf("%w: %s is %T, not an integer", ErrPropertyType, name, value)
	}
}

// BoolProperty reads a property and converts it to a bool
func BoolProperty(e Engine, name string) (bool, error) {
	value, err := e.Property(name)
	if err != nil {
		return false, err
	}

	v, ok := value.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s is %T, not a bool", ErrPropertyType, name, value)
	}

	return v, nil
}

// StringProperty reads a property and converts it to a string
func StringProperty(e Engine, name string) (string, error) {
	value, err := e.Property(name)
	if err != nil {
		return "", err
	}

	v, ok := value.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s is %T, not a string", ErrPropertyType, name, value)
	}

	return v, nil
}
