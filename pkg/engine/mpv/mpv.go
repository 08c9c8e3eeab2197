// Package mpv implements a playback engine driving an mpv process over its JSON-IPC socket
package mpv

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/broar/playbin-cli/pkg/engine"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// Name is the value of the name property and the source of every event emitted by the Engine
	Name = "mpv"

	// DefaultBinary is the mpv executable looked up on the PATH
	DefaultBinary = "mpv"

	// DefaultQuitTimeout is how long mpv is given to exit after quit before it is killed
	DefaultQuitTimeout = 3 * time.Second

	socketWaitRetries = 10
	socketWaitDelay   = 300 * time.Millisecond
	eventBufferSize   = 64
)

// ErrUnsupportedState is returned when requesting a state mpv cannot be put into
var ErrUnsupportedState = fmt.Errorf("%w: unsupported state", engine.ErrEngine)

// process is a running mpv
type process interface {
	Exited() <-chan struct{}
	Kill() error
}

// Engine is an engine.Engine backed by an mpv process
type Engine struct {
	binary      string
	socketDir   string
	timeout     time.Duration
	quitTimeout time.Duration
	log         logrus.FieldLogger

	socketPath string
	proc       process
	client     *client
	events     chan engine.Event
	quitting   atomic.Bool

	mu         sync.Mutex
	translator *translator
	closed     bool
}

// Option is an alias for a function that modifies an Engine. An Option is used to override the default values of Engine
type Option func(e *Engine) error

// WithBinary overrides the mpv executable
func WithBinary(binary string) Option {
	return func(e *Engine) error {
		if binary == "" {
			return errors.New("mpv binary cannot be empty")
		}

		e.binary = binary
		return nil
	}
}

// WithSocketDir overrides the directory the IPC socket is created in
func WithSocketDir(dir string) Option {
	return func(e *Engine) error {
		e.socketDir = dir
		return nil
	}
}

// WithRequestTimeout overrides how long a command waits for its reply
func WithRequestTimeout(timeout time.Duration) Option {
	return func(e *Engine) error {
		if timeout <= 0 {
			return errors.New("request timeout must be greater than 0")
		}

		e.timeout = timeout
		return nil
	}
}

// WithQuitTimeout overrides how long mpv is given to exit before it is killed
func WithQuitTimeout(timeout time.Duration) Option {
	return func(e *Engine) error {
		if timeout <= 0 {
			return errors.New("quit timeout must be greater than 0")
		}

		e.quitTimeout = timeout
		return nil
	}
}

// WithLogger sets the logger used for IPC diagnostics
func WithLogger(logger logrus.FieldLogger) Option {
	return func(e *Engine) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}

		e.log = logger
		return nil
	}
}

// Opener returns an engine.Opener launching mpv with options
func Opener(options ...Option) engine.Opener {
	return func(cfg engine.Config) (engine.Engine, error) {
		return Open(cfg, options...)
	}
}

func newEngine(options ...Option) (*Engine, error) {
	discard := logrus.New()
	discard.SetOutput(io.Discard)

	e := &Engine{
		binary:      DefaultBinary,
		socketDir:   os.TempDir(),
		timeout:     DefaultRequestTimeout,
		quitTimeout: DefaultQuitTimeout,
		log:         discard,
		events:      make(chan engine.Event, eventBufferSize),
		translator:  newTranslator(),
	}

	for _, option := range options {
		if err := option(e); err != nil {
			return nil, err
		}
	}

	return e, nil
}

// Open launches mpv paused on the media of cfg and connects to its IPC socket
func Open(cfg engine.Config, options ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e, err := newEngine(options...)
	if err != nil {
		return nil, err
	}

	socketPath := filepath.Join(e.socketDir, fmt.Sprintf("playbin-%s.sock", uuid.NewString()))
	args, err := buildArgs(cfg, socketPath)
	if err != nil {
		return nil, err
	}

	proc, err := startProcess(e.binary, args)
	if err != nil {
		return nil, fmt.Errorf("start mpv: %w", err)
	}

	conn, err := waitForSocket(socketPath, proc)
	if err != nil {
		select {
		case <-proc.Exited():
		default:
			e.log.Warn("killing mpv: socket never became ready")
			_ = proc.Kill()
		}

		_ = os.Remove(socketPath)
		return nil, fmt.Errorf("mpv socket not ready: %w", err)
	}

	if err := e.attach(conn, proc, socketPath); err != nil {
		_ = e.Close()
		return nil, err
	}

	return e, nil
}

// waitForSocket polls until the IPC socket accepts connections and returns the connection
func waitForSocket(socketPath string, proc process) (net.Conn, error) {
	for i := 0; i < socketWaitRetries; i++ {
		select {
		case <-proc.Exited():
			return nil, errors.New("mpv exited before socket was ready")
		case <-time.After(socketWaitDelay):
		}

		conn, err := net.Dial("unix", socketPath)
		if err == nil {
			return conn, nil
		}
	}

	return nil, fmt.Errorf("socket %s not ready after %d attempts", socketPath, socketWaitRetries)
}

// attach starts talking to mpv over conn and subscribes to the properties states are derived from
func (e *Engine) attach(conn net.Conn, proc process, socketPath string) error {
	e.proc = proc
	e.socketPath = socketPath
	e.client = newClient(conn, e.timeout, e.handleMessage)
	e.emit(engine.StateChangedEvent{Source: Name, Old: engine.StateNull, New: engine.StateReady})

	go e.watchConnection()

	properties := []struct {
		id   int
		name string
	}{
		{observePause, "pause"},
		{observeDuration, "duration"},
	}

	for _, prop := range properties {
		if _, err := e.client.command("observe_property", prop.id, prop.name); err != nil {
			return fmt.Errorf("observe %s: %w", prop.name, err)
		}
	}

	return nil
}

// watchConnection reports a connection lost while mpv was expected to be running
func (e *Engine) watchConnection() {
	<-e.client.Done()
	if e.quitting.Load() {
		return
	}

	err := e.client.closeErr()
	e.log.WithError(err).Warn("lost connection to mpv")
	e.emit(engine.ErrorEvent{Source: Name, Message: "lost connection to mpv", Debug: err.Error()})
}

func (e *Engine) handleMessage(msg message) {
	e.mu.Lock()
	events := e.translator.translate(msg)
	e.mu.Unlock()

	e.log.WithField("event", msg.Event).WithField("name", msg.Name).Debug("received mpv event")
	for _, event := range events {
		e.emit(event)
	}
}

func (e *Engine) emit(event engine.Event) {
	select {
	case e.events <- event:
	default:
		e.log.WithField("event", event).Warn("dropping event, nobody is polling")
	}
}

// SetState pauses or resumes playback. NULL quits mpv
func (e *Engine) SetState(target engine.State) error {
	switch target {
	case engine.StateNull:
		return e.Close()
	case engine.StatePaused, engine.StatePlaying:
		return e.set("pause", target == engine.StatePaused)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedState, target)
	}
}

// Property returns one of the engine property values
func (e *Engine) Property(name string) (interface{}, error) {
	switch name {
	case engine.PropName:
		return Name, nil
	case engine.PropNVideo, engine.PropNAudio, engine.PropNText:
		tracks, err := e.trackList(countKind(name))
		if err != nil {
			return nil, err
		}

		return len(tracks), nil
	case engine.PropCurrentVideo, engine.PropCurrentAudio, engine.PropCurrentText:
		return e.currentTrack(currentKind(name))
	case engine.PropSeekable:
		var seekable bool
		if err := e.get("seekable", &seekable); err != nil {
			return nil, err
		}

		return seekable, nil
	default:
		return nil, fmt.Errorf("%w: %s", engine.ErrUnknownProperty, name)
	}
}

// SetProperty selects a track by its index among the tracks of its kind. An index of -1 disables the kind
func (e *Engine) SetProperty(name string, value interface{}) error {
	switch name {
	case engine.PropCurrentVideo, engine.PropCurrentAudio, engine.PropCurrentText:
	default:
		return fmt.Errorf("%w: %s cannot be set", engine.ErrUnknownProperty, name)
	}

	index, ok := value.(int)
	if !ok {
		return fmt.Errorf("%w: %s must be an int, got %T", engine.ErrPropertyType, name, value)
	}

	kind := currentKind(name)
	if index < 0 {
		return e.set(trackProperty(kind), "no")
	}

	tracks, err := e.trackList(kind)
	if err != nil {
		return err
	}

	if index >= len(tracks) {
		return fmt.Errorf("%w: %s index %d out of range", engine.ErrEngine, kind, index)
	}

	return e.set(trackProperty(kind), tracks[index].ID)
}

// Seek moves playback to an absolute position
func (e *Engine) Seek(position time.Duration, flags engine.SeekFlags) error {
	mode := "absolute"
	switch {
	case flags&engine.SeekAccurate != 0:
		mode += "+exact"
	case flags&engine.SeekKeyUnit != 0:
		mode += "+keyframes"
	}

	_, err := e.client.command("seek", position.Seconds(), mode)
	return err
}

// QueryPosition returns time-pos
func (e *Engine) QueryPosition() (time.Duration, bool) {
	return e.seconds("time-pos")
}

// QueryDuration returns duration, which is unknown for live streams
func (e *Engine) QueryDuration() (time.Duration, bool) {
	return e.seconds("duration")
}

// Tags returns the codec, language and bitrate mpv reports for a track
func (e *Engine) Tags(kind engine.TrackKind, index int) (engine.Tags, bool) {
	tracks, err := e.trackList(kind)
	if err != nil || index < 0 || index >= len(tracks) {
		return engine.Tags{}, false
	}

	t := tracks[index]
	if t.Codec == "" && t.Lang == "" && t.Bitrate == 0 {
		return engine.Tags{}, false
	}

	return engine.Tags{Codec: t.Codec, Language: t.Lang, Bitrate: uint(t.Bitrate)}, true
}

// PollEvent waits at most timeout for the next event
func (e *Engine) PollEvent(timeout time.Duration) (engine.Event, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case event := <-e.events:
		return event, true
	case <-timer.C:
		return nil, false
	}
}

// Close asks mpv to quit, kills it when it does not exit in time and removes the IPC socket. Calling Close more than
// once does nothing
func (e *Engine) Close() error {
	e.mu.Lock()
	if e.closed || e.client == nil {
		e.mu.Unlock()
		return nil
	}

	e.closed = true
	e.mu.Unlock()

	e.quitting.Store(true)
	if _, err := e.client.command("quit"); err != nil {
		e.log.WithError(err).Debug("mpv did not acknowledge quit")
	}

	var errs []error
	select {
	case <-e.proc.Exited():
	case <-time.After(e.quitTimeout):
		e.log.Warn("killing mpv: it did not quit in time")
		if err := e.proc.Kill(); err != nil {
			errs = append(errs, fmt.Errorf("kill mpv: %w", err))
		}
	}

	if err := e.client.close(); err != nil {
		errs = append(errs, fmt.Errorf("close mpv connection: %w", err))
	}

	if err := os.Remove(e.socketPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		errs = append(errs, fmt.Errorf("remove mpv socket: %w", err))
	}

	return errors.Join(errs...)
}

func (e *Engine) get(property string, v interface{}) error {
	data, err := e.client.command("get_property", property)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %s: %v", engine.ErrPropertyType, property, err)
	}

	return nil
}

func (e *Engine) set(property string, value interface{}) error {
	_, err := e.client.command("set_property", property, value)
	return err
}

func (e *Engine) seconds(property string) (time.Duration, bool) {
	var seconds *float64
	if err := e.get(property, &seconds); err != nil || seconds == nil {
		return 0, false
	}

	return time.Duration(*seconds * float64(time.Second)), true
}

// trackInfo is one entry of mpv's track-list property
type trackInfo struct {
	ID       int     `json:"id"`
	Type     string  `json:"type"`
	Codec    string  `json:"codec"`
	Lang     string  `json:"lang"`
	Bitrate  float64 `json:"demux-bitrate"`
	Selected bool    `json:"selected"`
}

// trackList returns the tracks of a kind in the order mpv lists them
func (e *Engine) trackList(kind engine.TrackKind) ([]trackInfo, error) {
	var all []trackInfo
	if err := e.get("track-list", &all); err != nil {
		return nil, err
	}

	tracks := make([]trackInfo, 0, len(all))
	for _, t := range all {
		if t.Type == trackType(kind) {
			tracks = append(tracks, t)
		}
	}

	return tracks, nil
}

// currentTrack returns the index of the selected track of a kind, or -1 when none is selected
func (e *Engine) currentTrack(kind engine.TrackKind) (int, error) {
	tracks, err := e.trackList(kind)
	if err != nil {
		return 0, err
	}

	for i, t := range tracks {
		if t.Selected {
			return i, nil
		}
	}

	return -1, nil
}

func countKind(property string) engine.TrackKind {
	switch property {
	case engine.PropNVideo:
		return engine.TrackVideo
	case engine.PropNAudio:
		return engine.TrackAudio
	default:
		return engine.TrackText
	}
}

func currentKind(property string) engine.TrackKind {
	switch property {
	case engine.PropCurrentVideo:
		return engine.TrackVideo
	case engine.PropCurrentAudio:
		return engine.TrackAudio
	default:
		return engine.TrackText
	}
}

// trackType is the type of a track-list entry
func trackType(kind engine.TrackKind) string {
	if kind == engine.TrackText {
		return "sub"
	}

	return kind.String()
}

// trackProperty is the property selecting a track of the kind by id
func trackProperty(kind engine.TrackKind) string {
	switch kind {
	case engine.TrackVideo:
		return "vid"
	case engine.TrackAudio:
		return "aid"
	default:
		return "sid"
	}
}

// command is an mpv child process
type command struct {
	cmd    *exec.Cmd
	exited chan struct{}
}

func startProcess(binary string, args []string) (*command, error) {
	cmd := exec.Command(binary, args...)
	cmd.SysProcAttr = sysProcAttr()
	cmd.Stdin = nil
	cmd.Stdout = nil
	cmd.Stderr = nil

	if err := cmd.Start(); err != nil {
		return nil, err
	}

	c := &command{cmd: cmd, exited: make(chan struct{})}
	go func() {
		_ = cmd.Wait()
		close(c.exited)
	}()

	return c, nil
}

func (c *command) Exited() <-chan struct{} {
	return c.exited
}

func (c *command) Kill() error {
	return killProcess(c.cmd)
}
