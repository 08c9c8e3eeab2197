package session

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/broar/playbin-cli/pkg/engine"
	"github.com/google/uuid"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"
)

var (
	// ErrEngineInit is returned by Start when the engine cannot be constructed
	ErrEngineInit = errors.New("failed to initialize playback engine")

	// ErrStateChangeRejected is returned by Start when the engine refuses the initial transition to PLAYING
	ErrStateChangeRejected = errors.New("playback engine rejected the transition to PLAYING")

	// ErrPlayback is wrapped by the failure of a session that ended with an engine error event
	ErrPlayback = errors.New("playback failed")

	// ErrUnknownCommand is returned when applying a command the controller does not know
	ErrUnknownCommand = errors.New("unknown command")
)

// Controller owns the state of a single playback session. Commands from the keyboard goroutine and events from the
// dispatcher are serialized through it, and it is the only caller of the engine's setters
type Controller struct {
	id       string
	cfg      Config
	engine   engine.Engine
	reporter Reporter
	log      logrus.FieldLogger

	// interactive is set before the session runs when a keyboard forwards commands
	interactive bool

	// self is the engine's own element name, used to tell its state changes apart from those of child elements
	self string

	terminate atomic.Bool
	done      chan struct{}

	mu    sync.Mutex
	state state
}

// Start opens an engine from cfg and requests the PLAYING state. The returned Controller is in PhaseStarting until
// the engine confirms the transition
func Start(cfg Config, open engine.Opener, reporter Reporter, logger logrus.FieldLogger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if reporter == nil {
		reporter = nopReporter{}
	}

	if logger == nil {
		discard := logrus.New()
		discard.SetOutput(io.Discard)
		logger = discard
	}

	id := uuid.New().String()
	logger = logger.WithFields(logrus.Fields{"session": id, "uri": cfg.Engine.URI})

	e, err := open(cfg.Engine)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEngineInit, err)
	}

	c := &Controller{
		id:       id,
		cfg:      cfg,
		engine:   e,
		reporter: reporter,
		log:      logger,
		done:     make(chan struct{}),
		state:    newState(),
	}

	if name, err := engine.StringProperty(e, engine.PropName); err == nil {
		c.self = name
	} else {
		c.log.WithError(err).Debug("engine has no name, accepting state changes from any source")
	}

	if err := e.SetState(engine.StatePlaying); err != nil {
		if nullErr := e.SetState(engine.StateNull); nullErr != nil {
			c.log.WithError(nullErr).Warn("failed to return engine to NULL after rejected start")
		}

		closeEngine(e, c.log)
		return nil, fmt.Errorf("%w: %w", ErrStateChangeRejected, err)
	}

	c.log.WithField("tracks", cfg.Engine.Tracks.String()).Info("session started")
	return c, nil
}

// ID is the unique identifier of the session
func (c *Controller) ID() string {
	return c.id
}

// ShouldTerminate reports whether the session is terminating. It never blocks and is safe to call from any goroutine
func (c *Controller) ShouldTerminate() bool {
	return c.terminate.Load()
}

// Done returns a channel which is closed once the session starts terminating
func (c *Controller) Done() <-chan struct{} {
	return c.done
}

// Phase returns the current lifecycle phase
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.phase
}

// Playing reports whether the engine confirmed the PLAYING state and has not left it since
func (c *Controller) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.playing
}

// Duration returns the cached media duration. It is absent after a duration change until it is queried again
func (c *Controller) Duration() mo.Option[time.Duration] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.duration
}

// Selection returns the last track selection applied by a command
func (c *Controller) Selection() TrackSelection {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.selection
}

// SeekState returns the progress of the one-shot seek
func (c *Controller) SeekState() SeekState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.seek
}

// Err returns the failure captured from an engine error event, if any
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state.failure
}

// ApplyCommand validates and applies a user command. Track indices are checked against the number of tracks the
// engine reports at this moment. Once the session is terminating every command is ignored
func (c *Controller) ApplyCommand(cmd Command) (Outcome, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminate.Load() {
		c.log.WithField("command", cmd).Debug("ignoring command, session is terminating")
		return OutcomeIgnored, nil
	}

	switch cmd := cmd.(type) {
	case Quit:
		c.terminateLocked("quit requested")
		return OutcomeApplied, nil
	case SelectAudioTrack:
		return c.selectTrackLocked(engine.TrackAudio, cmd.Index)
	case SelectTextTrack:
		return c.selectTrackLocked(engine.TrackText, cmd.Index)
	default:
		return OutcomeIgnored, fmt.Errorf("%w: %T", ErrUnknownCommand, cmd)
	}
}

func (c *Controller) selectTrackLocked(kind engine.TrackKind, index uint32) (Outcome, error) {
	n, err := engine.IntProperty(c.engine, kind.CountProperty())
	if err != nil {
		return OutcomeFailed, fmt.Errorf("failed to query number of %s streams: %w", kind.Label(), err)
	}

	if int64(index) >= int64(n) {
		c.log.WithFields(logrus.Fields{"kind": kind, "index": index, "count": n}).Info("rejected out of range track")
		return OutcomeOutOfRange, nil
	}

	if err := c.engine.SetProperty(kind.CurrentProperty(), int(index)); err != nil {
		return OutcomeFailed, fmt.Errorf("failed to select %s stream %d: %w", kind.Label(), index, err)
	}

	c.state.selection.set(kind, int(index))
	c.log.WithFields(logrus.Fields{"kind": kind, "index": index}).Info("selected track")
	return OutcomeApplied, nil
}

// HandleEvent applies an engine event to the session
func (c *Controller) HandleEvent(event engine.Event) Outcome {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminate.Load() {
		c.log.WithField("event", event).Debug("ignoring event, session is terminating")
		return OutcomeIgnored
	}

	switch event := event.(type) {
	case engine.ErrorEvent:
		c.reporter.Error(fmt.Sprintf("Error received from element %s: %s", event.Source, event.Message))
		if event.Debug != "" {
			c.reporter.Error(fmt.Sprintf("Debugging information: %s", event.Debug))
		}

		c.state.phase = PhaseFailed
		c.state.failure = fmt.Errorf("%w: element %s: %s", ErrPlayback, event.Source, event.Message)
		if event.Debug != "" {
			c.state.failure = fmt.Errorf("%w (%s)", c.state.failure, event.Debug)
		}

		c.log.WithError(c.state.failure).Error("session failed")
		c.terminateLocked("engine error")
		return OutcomeApplied
	case engine.EOSEvent:
		c.reporter.Info("End-Of-Stream reached.")
		c.terminateLocked("end of stream")
		return OutcomeApplied
	case engine.DurationChangedEvent:
		c.state.duration = mo.None[time.Duration]()
		return OutcomeApplied
	case engine.StateChangedEvent:
		return c.handleStateChangedLocked(event)
	default:
		c.log.WithField("event", fmt.Sprintf("%T", event)).Warn("ignoring unknown event")
		return OutcomeIgnored
	}
}

func (c *Controller) handleStateChangedLocked(event engine.StateChangedEvent) Outcome {
	if c.self != "" && event.Source != c.self {
		return OutcomeIgnored
	}

	c.reporter.Info(fmt.Sprintf("Pipeline state changed from %s to %s", event.Old, event.New))
	c.state.playing = event.New == engine.StatePlaying

	if c.state.playing && c.state.phase == PhaseStarting {
		c.state.phase = PhasePlaying
		c.log.Info("session playing")
	}

	if c.state.playing && !c.state.analyzed {
		c.state.analyzed = true
		c.analyzeLocked()
	}

	return OutcomeApplied
}

// analyzeLocked reports the streams of the media and records whether it can be seeked
func (c *Controller) analyzeLocked() {
	seekable, err := engine.BoolProperty(c.engine, engine.PropSeekable)
	switch {
	case err != nil:
		c.log.WithError(err).Warn("seeking query failed")
		c.reporter.Error("Seeking query failed.")
	case seekable:
		c.state.seekable = true
		end := "--:--"
		if duration, ok := c.engine.QueryDuration(); ok {
			end = FormatTime(duration)
		}
		c.reporter.Info(fmt.Sprintf("Seeking is ENABLED from 0:00 to %s", end))
	default:
		c.reporter.Info("Seeking is DISABLED for this stream.")
	}

	report := StreamReport{
		Current:     newTrackSelection(),
		DigitTarget: c.cfg.DigitTarget,
		Interactive: c.interactive,
	}

	for _, kind := range []engine.TrackKind{engine.TrackVideo, engine.TrackAudio, engine.TrackText} {
		n, err := engine.IntProperty(c.engine, kind.CountProperty())
		if err != nil {
			c.log.WithError(err).WithField("kind", kind).Warn("failed to query number of streams")
			continue
		}

		streams := make([]StreamInfo, 0, n)
		for i := 0; i < n; i++ {
			stream := StreamInfo{Index: i, Tags: mo.None[engine.Tags]()}
			if tags, ok := c.engine.Tags(kind, i); ok {
				stream.Tags = mo.Some(tags)
			}

			streams = append(streams, stream)
		}

		switch kind {
		case engine.TrackVideo:
			report.Video = streams
		case engine.TrackAudio:
			report.Audio = streams
		case engine.TrackText:
			report.Text = streams
		}

		if current, err := engine.IntProperty(c.engine, kind.CurrentProperty()); err == nil {
			report.Current.set(kind, current)
		}
	}

	c.reporter.StreamsAnalyzed(report)
}

// Tick reports the playback progress and applies the seek policy. It is called by the dispatcher whenever an event
// poll times out and does nothing unless the session is playing
func (c *Controller) Tick() (Progress, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.terminate.Load() || !c.state.playing {
		return Progress{}, false
	}

	position, ok := c.engine.QueryPosition()
	if !ok {
		c.log.Debug("could not query current position")
		return Progress{}, false
	}

	if c.state.duration.IsAbsent() {
		if duration, ok := c.engine.QueryDuration(); ok {
			c.state.duration = mo.Some(duration)
		}
	}

	progress := Progress{Position: position, Duration: c.state.duration}
	c.reporter.Progress(progress)
	c.seekLocked(position)

	return progress, true
}

func (c *Controller) seekLocked(position time.Duration) {
	policy := c.cfg.Seek
	if !policy.Enabled || !c.state.seekable || c.state.seek != SeekNotYet || position <= policy.After {
		return
	}

	c.state.seek = SeekRequested
	c.reporter.Info(fmt.Sprintf("Reached %s, performing seek...", FormatTime(policy.After)))

	if err := c.engine.Seek(policy.To, engine.SeekFlush|engine.SeekKeyUnit); err != nil {
		c.log.WithError(err).Warn("seek failed")
		c.reporter.Error(fmt.Sprintf("Failed to seek: %v", err))
		return
	}

	c.state.seek = SeekDone
	c.log.WithField("position", policy.To).Info("seek done")
}

// terminateLocked moves the session into PhaseTerminating, including from PhaseFailed whose failure stays recorded.
// The terminate flag is set exactly once
func (c *Controller) terminateLocked(reason string) {
	c.state.phase = PhaseTerminating

	if c.terminate.CompareAndSwap(false, true) {
		c.state.reason = reason
		close(c.done)
		c.log.WithField("reason", reason).Info("session terminating")
	}
}

// requestTermination terminates the session unless it already is
func (c *Controller) requestTermination(reason string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.terminate.Load() {
		c.terminateLocked(reason)
	}
}

// teardown drives the engine to NULL and closes it. It must only be called once no other goroutine uses the engine
func (c *Controller) teardown() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	if err := c.engine.SetState(engine.StateNull); err != nil {
		errs = append(errs, fmt.Errorf("failed to set engine to NULL: %w", err))
	}

	if closer, ok := c.engine.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close engine: %w", err))
		}
	}

	if c.state.failure != nil {
		c.state.phase = PhaseFailed
	} else {
		c.state.phase = PhaseStopped
	}

	c.log.WithField("phase", c.state.phase).Info("session ended")
	return errors.Join(errs...)
}

// Result describes how a session ended
type Result struct {
	ID     string
	Phase  Phase
	Reason string

	// Err is the engine failure that ended the session, if any
	Err error

	// Teardown holds the failures that happened while shutting the engine down. They never abort the shutdown
	Teardown error
}

func (c *Controller) result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Result{
		ID:     c.id,
		Phase:  c.state.phase,
		Reason: c.state.reason,
		Err:    c.state.failure,
	}
}

func closeEngine(e engine.Engine, log logrus.FieldLogger) {
	closer, ok := e.(io.Closer)
	if !ok {
		return
	}

	if err := closer.Close(); err != nil {
		log.WithError(err).Warn("failed to close engine")
	}
}
