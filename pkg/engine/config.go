package engine

import (
	"errors"

	"github.com/samber/mo"
)

var (
	// ErrEmptyURI is returned when a Config has no media URI
	ErrEmptyURI = errors.New("media URI cannot be empty")

	// ErrNoTracks is returned when a Config enables no track kinds
	ErrNoTracks = errors.New("at least one track kind must be enabled")
)

// Config describes the media an Engine should be opened with
type Config struct {
	// URI is the media to play
	URI string

	// SubtitleURI is an external subtitle file added as a text track
	SubtitleURI mo.Option[string]

	// SubtitleFont is a font description such as "Sans, 18" used to render subtitles
	SubtitleFont mo.Option[string]

	// Tracks is the set of track kinds the engine should render
	Tracks TrackKinds

	// ConnectionSpeed is a hint of the available network bandwidth in kbit/s
	ConnectionSpeed mo.Option[uint64]

	// AudioFiles are external files added as alternate audio tracks
	AudioFiles []string
}

// Validate checks that the Config can be used to open an Engine
func (c Config) Validate() error {
	if c.URI == "" {
		return ErrEmptyURI
	}

	if c.Tracks == 0 {
		return ErrNoTracks
	}

	return nil
}
