package audio

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/broar/playbin-cli/pkg/engine"
	"github.com/faiface/beep"
	"github.com/spf13/afero"
)

const (
	// Name is the value of the name property and the source of every event emitted by the Engine
	Name = "audio"

	// DefaultBufferSize is the default size of the buffer used by the output device
	DefaultBufferSize = 1 * time.Second / 10

	// DefaultResampleQuality is the quality used when a track has a different sample rate than the first track
	DefaultResampleQuality = 4

	eventBufferSize = 32
)

var (
	// ErrNoAudio is returned when audio is disabled for the media. Audio is the only track kind this Engine renders
	ErrNoAudio = errors.New("audio tracks must be enabled")

	// ErrTrackIndex is returned when selecting an audio track which does not exist
	ErrTrackIndex = fmt.Errorf("%w: audio track index out of range", engine.ErrEngine)

	// ErrClosed is returned when using an Engine which has been set to NULL
	ErrClosed = fmt.Errorf("%w: engine is closed", engine.ErrEngine)
)

// Output is a device playing beep streamers. Lock and Unlock guard any streamer passed to Play
type Output interface {
	Init(sampleRate beep.SampleRate, bufferSize int) error
	Play(s ...beep.Streamer)
	Lock()
	Unlock()
	Close()
}

// Engine is an engine.Engine playing local audio files. Every file is one audio track, only one of which is heard at
// a time
type Engine struct {
	fs         afero.Fs
	output     Output
	bufferSize time.Duration
	quality    int
	events     chan engine.Event

	// final holds an EOS or error event that did not fit in events
	final chan engine.Event

	mux     sync.Mutex
	tracks  []*track
	current int
	state   engine.State
	started bool
	closed  bool
	ctrl    *beep.Ctrl
}

// Option is an alias for a function that modifies an Engine. An Option is used to override the default values of Engine
type Option func(e *Engine) error

// WithFs overrides the filesystem media files are opened from
func WithFs(fs afero.Fs) Option {
	return func(e *Engine) error {
		if fs == nil {
			return errors.New("filesystem cannot be nil")
		}

		e.fs = fs
		return nil
	}
}

// WithOutput overrides the output device. The default is the system speaker
func WithOutput(output Output) Option {
	return func(e *Engine) error {
		if output == nil {
			return errors.New("output cannot be nil")
		}

		e.output = output
		return nil
	}
}

// WithBufferSize allows overriding the buffer size used for playback. Use a lower duration for better responsiveness
// and conversely a higher duration for higher quality but greater CPU usage
func WithBufferSize(bufferSize time.Duration) Option {
	return func(e *Engine) error {
		if bufferSize <= 0 {
			return errors.New("buffer size must be greater than 0")
		}

		e.bufferSize = bufferSize
		return nil
	}
}

// Opener returns an engine.Opener creating Engines configured with options
func Opener(options ...Option) engine.Opener {
	return func(cfg engine.Config) (engine.Engine, error) {
		return Open(cfg, options...)
	}
}

// Open decodes the media URI and every alternate audio file of cfg. The returned Engine is in the NULL state
func Open(cfg engine.Config, options ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if !cfg.Tracks.Has(engine.TrackAudio) {
		return nil, ErrNoAudio
	}

	e := &Engine{
		fs:         afero.NewOsFs(),
		output:     speakerOutput{},
		bufferSize: DefaultBufferSize,
		quality:    DefaultResampleQuality,
		events:     make(chan engine.Event, eventBufferSize),
		final:      make(chan engine.Event, 1),
		state:      engine.StateNull,
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	for _, path := range append([]string{cfg.URI}, cfg.AudioFiles...) {
		track, err := openTrack(e.fs, path)
		if err != nil {
			e.closeTracks()
			return nil, err
		}

		e.tracks = append(e.tracks, track)
	}

	e.ctrl = &beep.Ctrl{Paused: true}
	return e, nil
}

// SetState steps the Engine towards target, emitting one StateChangedEvent per intermediate state
func (e *Engine) SetState(target engine.State) error {
	e.mux.Lock()
	defer e.mux.Unlock()

	if e.closed {
		if target == engine.StateNull {
			return nil
		}

		return ErrClosed
	}

	if target == engine.StateNull {
		e.stop()
		return nil
	}

	if target >= engine.StatePaused && !e.started {
		if err := e.start(); err != nil {
			return err
		}
	}

	e.output.Lock()
	e.ctrl.Paused = target != engine.StatePlaying
	e.output.Unlock()

	for e.state != target {
		old := e.state
		if e.state < target {
			e.state++
		} else {
			e.state--
		}

		e.emit(engine.StateChangedEvent{Source: Name, Old: old, New: e.state})
	}

	return nil
}

// start initializes the output with the format of the first track and starts the current one paused
func (e *Engine) start() error {
	format := e.tracks[0].format
	if err := e.output.Init(format.SampleRate, format.SampleRate.N(e.bufferSize)); err != nil {
		return fmt.Errorf("%w: failed to initialize output with format %+v: %v", engine.ErrEngine, format, err)
	}

	e.output.Lock()
	e.ctrl.Streamer = e.streamer(e.current)
	e.output.Unlock()

	e.output.Play(e.ctrl)
	e.started = true
	return nil
}

// stop silences the output and releases every stream
func (e *Engine) stop() {
	old := e.state

	e.output.Lock()
	e.ctrl.Streamer = nil
	e.output.Unlock()

	if e.started {
		e.output.Close()
	}

	e.closeTracks()
	e.closed = true
	e.state = engine.StateNull

	if old != engine.StateNull {
		e.emit(engine.StateChangedEvent{Source: Name, Old: old, New: engine.StateNull})
	}
}

// streamer wraps the track at index so it is heard at the output sample rate and reports its end. Must be called with
// the output locked
func (e *Engine) streamer(index int) beep.Streamer {
	t := e.tracks[index]

	var s beep.Streamer = t.stream
	if rate := e.tracks[0].format.SampleRate; t.format.SampleRate != rate {
		s = beep.Resample(e.quality, t.format.SampleRate, rate, t.stream)
	}

	// The callback runs on the output goroutine with the output locked
	return beep.Seq(s, beep.Callback(func() {
		if err := t.stream.Err(); err != nil {
			e.emit(engine.ErrorEvent{Source: Name, Message: "failed to decode audio", Debug: fmt.Sprintf("%s: %v", t.path, err)})
			return
		}

		e.emit(engine.EOSEvent{})
	}))
}

// emit queues an event. When the queue is full other events are dropped, but the first EOS or error is kept aside
// and delivered once the queue has been drained
func (e *Engine) emit(event engine.Event) {
	select {
	case e.events <- event:
		return
	default:
	}

	switch event.(type) {
	case engine.EOSEvent, engine.ErrorEvent:
		select {
		case e.final <- event:
		default:
		}
	}
}

// Property returns one of the engine property values
func (e *Engine) Property(name string) (interface{}, error) {
	e.mux.Lock()
	defer e.mux.Unlock()

	switch name {
	case engine.PropName:
		return Name, nil
	case engine.PropNVideo, engine.PropNText:
		return 0, nil
	case engine.PropNAudio:
		return len(e.tracks), nil
	case engine.PropCurrentVideo, engine.PropCurrentText:
		return -1, nil
	case engine.PropCurrentAudio:
		return e.current, nil
	case engine.PropSeekable:
		return true, nil
	default:
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownProperty, name)
	}
}

// SetProperty supports current-audio, which switches the heard track while keeping the playback position
func (e *Engine) SetProperty(name string, value interface{}) error {
	if name != engine.PropCurrentAudio {
		return fmt.Errorf("%w: %s cannot be set", engine.ErrUnknownProperty, name)
	}

	index, ok := value.(int)
	if !ok {
		return fmt.Errorf("%w: %s must be an int, got %T", engine.ErrPropertyType, name, value)
	}

	e.mux.Lock()
	defer e.mux.Unlock()

	if e.closed {
		return ErrClosed
	}

	if index < 0 || index >= len(e.tracks) {
		return fmt.Errorf("%w: %d", ErrTrackIndex, index)
	}

	if index == e.current {
		return nil
	}

	e.output.Lock()
	defer e.output.Unlock()

	from, to := e.tracks[e.current], e.tracks[index]
	if err := to.seek(from.position()); err != nil {
		return err
	}

	e.current = index
	if e.started {
		e.ctrl.Streamer = e.streamer(index)
	}

	if from.length() != to.length() {
		e.emit(engine.DurationChangedEvent{})
	}

	return nil
}

// Seek moves the current track to position. Every seek is flushing and exact so flags are ignored
func (e *Engine) Seek(position time.Duration, _ engine.SeekFlags) error {
	e.mux.Lock()
	defer e.mux.Unlock()

	if e.closed {
		return ErrClosed
	}

	e.output.Lock()
	defer e.output.Unlock()
	return e.tracks[e.current].seek(position)
}

// QueryPosition returns the position of the current track
func (e *Engine) QueryPosition() (time.Duration, bool) {
	e.mux.Lock()
	defer e.mux.Unlock()

	if e.closed {
		return 0, false
	}

	e.output.Lock()
	defer e.output.Unlock()
	return e.tracks[e.current].position(), true
}

// QueryDuration returns the length of the current track
func (e *Engine) QueryDuration() (time.Duration, bool) {
	e.mux.Lock()
	defer e.mux.Unlock()

	if e.closed {
		return 0, false
	}

	e.output.Lock()
	defer e.output.Unlock()
	return e.tracks[e.current].length(), true
}

// Tags returns the codec of an audio track. Local files carry no language
func (e *Engine) Tags(kind engine.TrackKind, index int) (engine.Tags, bool) {
	e.mux.Lock()
	defer e.mux.Unlock()

	if kind != engine.TrackAudio || index < 0 || index >= len(e.tracks) {
		return engine.Tags{}, false
	}

	return e.tracks[index].tags(), true
}

// PollEvent waits at most timeout for the next event
func (e *Engine) PollEvent(timeout time.Duration) (engine.Event, bool) {
	select {
	case event := <-e.events:
		return event, true
	default:
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case event := <-e.events:
		return event, true
	case event := <-e.final:
		return event, true
	case <-timer.C:
		return nil, false
	}
}

// Close releases every resource of the Engine. It is a no-op once the Engine has been set to NULL
func (e *Engine) Close() error {
	e.mux.Lock()
	defer e.mux.Unlock()

	if e.closed {
		return nil
	}

	e.stop()
	return nil
}

func (e *Engine) closeTracks() {
	for _, t := range e.tracks {
		_ = t.stream.Close()
	}
}
