package engine

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ErrUnknownTrackKind is returned when parsing a track kind name that does not exist
var ErrUnknownTrackKind = errors.New("unknown track kind")

// TrackKind is a kind of selectable stream
type TrackKind uint

const (
	TrackVideo TrackKind = 1 << iota
	TrackAudio
	TrackText
)

var trackKindNames = map[TrackKind]string{
	TrackVideo: "video",
	TrackAudio: "audio",
	TrackText:  "text",
}

func (k TrackKind) String() string {
	if name, ok := trackKindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("TrackKind(%d)", uint(k))
}

// Label is the human readable name of a stream of this kind
func (k TrackKind) Label() string {
	if k == TrackText {
		return "subtitle"
	}

	return k.String()
}

// CountProperty is the property holding the number of streams of this kind
func (k TrackKind) CountProperty() string {
	switch k {
	case TrackVideo:
		return PropNVideo
	case TrackAudio:
		return PropNAudio
	default:
		return PropNText
	}
}

// CurrentProperty is the property holding the index of the selected stream of this kind
func (k TrackKind) CurrentProperty() string {
	switch k {
	case TrackVideo:
		return PropCurrentVideo
	case TrackAudio:
		return PropCurrentAudio
	default:
		return PropCurrentText
	}
}

// ParseTrackKind parses a single track kind name. "subtitle" is accepted as an alias of "text"
func ParseTrackKind(name string) (TrackKind, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "subtitle" || name == "sub" {
		return TrackText, nil
	}

	for kind, kindName := range trackKindNames {
		if kindName == name {
			return kind, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownTrackKind, name)
}

// TrackKinds is a set of track kinds
type TrackKinds uint

// AllTrackKinds enables audio, video and text
const AllTrackKinds = TrackKinds(TrackVideo | TrackAudio | TrackText)

// Has reports whether the kind is in the set
func (s TrackKinds) Has(kind TrackKind) bool {
	return s&TrackKinds(kind) != 0
}

// With returns the set with kind added
func (s TrackKinds) With(kind TrackKind) TrackKinds {
	return s | TrackKinds(kind)
}

// Without returns the set with kind removed
func (s TrackKinds) Without(kind TrackKind) TrackKinds {
	return s &^ TrackKinds(kind)
}

// Disabled returns the kinds missing from the set
func (s TrackKinds) Disabled() TrackKinds {
	return AllTrackKinds &^ s
}

// Kinds returns the members of the set in video, audio, text order
func (s TrackKinds) Kinds() []TrackKind {
	return lo.Filter([]TrackKind{TrackVideo, TrackAudio, TrackText}, func(kind TrackKind, _ int) bool {
		return s.Has(kind)
	})
}

func (s TrackKinds) String() string {
	return strings.Join(lo.Map(s.Kinds(), func(kind TrackKind, _ int) string {
		return kind.String()
	}), ",")
}

// ParseTrackKinds parses a list of track kind names into a set
func ParseTrackKinds(names []string) (TrackKinds, error) {
	var kinds TrackKinds
	for _, name := range names {
		kind, err := ParseTrackKind(name)
		if err != nil {
			return 0, err
		}

		kinds = kinds.With(kind)
	}

	return kinds, nil
}
