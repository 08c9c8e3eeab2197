package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/broar/playbin-cli/pkg/engine"
)

const (
	// DefaultPollTimeout bounds each wait for an engine event
	DefaultPollTimeout = 100 * time.Millisecond

	// DefaultKeyInterval is the pause between two keyboard reads
	DefaultKeyInterval = 50 * time.Millisecond
)

var (
	// ErrInvalidConfig is returned by Start when the session configuration cannot be used
	ErrInvalidConfig = errors.New("invalid session configuration")

	// ErrDigitTarget is returned when digit keys are bound to a track kind that cannot be selected
	ErrDigitTarget = errors.New("digit keys must select audio or text streams")
)

// SeekPolicy describes the one-shot seek of a session: once the position passes After, playback jumps to To
type SeekPolicy struct {
	Enabled bool
	After   time.Duration
	To      time.Duration
}

// Config is the configuration of a single session
type Config struct {
	Engine engine.Config

	// DigitTarget is the track kind selected by the digit keys
	DigitTarget engine.TrackKind

	Seek SeekPolicy

	// PollTimeout bounds each wait for an engine event
	PollTimeout time.Duration

	// KeyInterval is the pause between two keyboard reads
	KeyInterval time.Duration
}

// DefaultConfig returns a Config for uri with every track kind enabled and digits selecting audio streams
func DefaultConfig(uri string) Config {
	return Config{
		Engine: engine.Config{
			URI:    uri,
			Tracks: engine.AllTrackKinds,
		},
		DigitTarget: engine.TrackAudio,
		PollTimeout: DefaultPollTimeout,
		KeyInterval: DefaultKeyInterval,
	}
}

// Validate checks that the Config can start a session
func (c Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	if c.DigitTarget != engine.TrackAudio && c.DigitTarget != engine.TrackText {
		return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, ErrDigitTarget, c.DigitTarget)
	}

	if !c.Engine.Tracks.Has(c.DigitTarget) {
		return fmt.Errorf("%w: %w: %s streams are disabled", ErrInvalidConfig, ErrDigitTarget, c.DigitTarget.Label())
	}

	if c.PollTimeout <= 0 {
		return fmt.Errorf("%w: poll timeout must be greater than 0", ErrInvalidConfig)
	}

	if c.KeyInterval < 0 {
		return fmt.Errorf("%w: key interval cannot be negative", ErrInvalidConfig)
	}

	if c.Seek.Enabled && (c.Seek.After < 0 || c.Seek.To < 0) {
		return fmt.Errorf("%w: seek positions cannot be negative", ErrInvalidConfig)
	}

	return nil
}
