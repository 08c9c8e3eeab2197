package mpv

import (
	"bufio"
	"encoding/json"
	"errors"
	"net"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/broar/playbin-cli/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultTestTimeout = 3 * time.Second

func testTracks() []map[string]interface{} {
	return []map[string]interface{}{
		{"id": 1, "type": "video", "codec": "vp8", "selected": true},
		{"id": 1, "type": "audio", "codec": "vorbis", "lang": "en", "demux-bitrate": 80000, "selected": true},
		{"id": 2, "type": "audio", "codec": "vorbis", "lang": "es"},
		{"id": 1, "type": "sub", "lang": "el"},
	}
}

// fakeMPV answers IPC commands the way mpv does
type fakeMPV struct {
	conn       net.Conn
	exited     chan struct{}
	exitOnQuit bool
	silent     bool

	writeMu sync.Mutex

	mu       sync.Mutex
	props    map[string]interface{}
	commands [][]interface{}
	kills    int
	exitOnce sync.Once
}

func (f *fakeMPV) Exited() <-chan struct{} {
	return f.exited
}

func (f *fakeMPV) Kill() error {
	f.mu.Lock()
	f.kills++
	f.mu.Unlock()
	f.exit()
	return nil
}

func (f *fakeMPV) exit() {
	f.exitOnce.Do(func() {
		close(f.exited)
	})
}

func (f *fakeMPV) send(v interface{}) {
	payload, _ := json.Marshal(v)

	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_, _ = f.conn.Write(append(payload, '\n'))
}

func (f *fakeMPV) serve() {
	scanner := bufio.NewScanner(f.conn)
	for scanner.Scan() {
		var req struct {
			Command   []interface{} `json:"command"`
			RequestID int64         `json:"request_id"`
		}

		if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
			continue
		}

		f.mu.Lock()
		f.commands = append(f.commands, req.Command)
		silent := f.silent
		f.mu.Unlock()

		if silent {
			continue
		}

		f.handle(req.RequestID, req.Command)
	}
}

func (f *fakeMPV) handle(id int64, command []interface{}) {
	reply := map[string]interface{}{"request_id": id, "error": "success"}
	var event map[string]interface{}

	switch command[0] {
	case "get_property":
		f.mu.Lock()
		value, ok := f.props[command[1].(string)]
		f.mu.Unlock()

		if ok {
			reply["data"] = value
		} else {
			reply["error"] = "property unavailable"
		}
	case "set_property":
		name := command[1].(string)
		f.mu.Lock()
		f.props[name] = command[2]
		f.mu.Unlock()

		if name == "pause" {
			event = map[string]interface{}{"event": "property-change", "id": observePause, "name": "pause", "data": command[2]}
		}
	case "observe_property":
		if command[2] == "pause" {
			f.mu.Lock()
			event = map[string]interface{}{"event": "property-change", "id": observePause, "name": "pause", "data": f.props["pause"]}
			f.mu.Unlock()
		}
	case "quit":
		f.mu.Lock()
		exitOnQuit := f.exitOnQuit
		f.mu.Unlock()

		if exitOnQuit {
			defer f.exit()
		}
	}

	f.send(reply)
	if event != nil {
		f.send(event)
	}
}

func (f *fakeMPV) killCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.kills
}

func (f *fakeMPV) recorded(name string) [][]interface{} {
	f.mu.Lock()
	defer f.mu.Unlock()

	var commands [][]interface{}
	for _, command := range f.commands {
		if command[0] == name {
			commands = append(commands, command)
		}
	}

	return commands
}

func startFakeMPV(t *testing.T, options ...Option) (*Engine, *fakeMPV) {
	t.Helper()

	local, remote := net.Pipe()
	f := &fakeMPV{
		conn:       remote,
		exited:     make(chan struct{}),
		exitOnQuit: true,
		props: map[string]interface{}{
			"pause":      true,
			"seekable":   true,
			"time-pos":   12.5,
			"track-list": testTracks(),
		},
	}

	go f.serve()

	socketPath := filepath.Join(t.TempDir(), "mpv.sock")
	require.NoError(t, os.WriteFile(socketPath, nil, 0o600))

	e, err := newEngine(append([]Option{WithRequestTimeout(time.Second), WithQuitTimeout(time.Second)}, options...)...)
	require.NoError(t, err)
	require.NoError(t, e.attach(local, f, socketPath))

	t.Cleanup(func() {
		_ = e.Close()
		_ = remote.Close()
	})

	return e, f
}

// collectEvents polls until n events were received
func collectEvents(t *testing.T, e *Engine, n int) []engine.Event {
	t.Helper()

	var events []engine.Event
	deadline := time.Now().Add(defaultTestTimeout)
	for len(events) < n && time.Now().Before(deadline) {
		if event, ok := e.PollEvent(10 * time.Millisecond); ok {
			events = append(events, event)
		}
	}

	require.Len(t, events, n, "received %v", events)
	return events
}

func TestOptions(t *testing.T) {
	testCases := []struct {
		name   string
		option Option
	}{
		{"EmptyBinary", WithBinary("")},
		{"ZeroRequestTimeout", WithRequestTimeout(0)},
		{"NegativeQuitTimeout", WithQuitTimeout(-1 * time.Second)},
		{"NilLogger", WithLogger(nil)},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(tt *testing.T) {
			e, err := newEngine(testCase.option)
			assert.Error(tt, err)
			assert.Nil(tt, e)
		})
	}
}

func TestOpen_MissingBinary(t *testing.T) {
	cfg := engine.Config{URI: "https://example.com/sintel.webm", Tracks: engine.AllTrackKinds}
	e, err := Open(cfg, WithBinary(filepath.Join(t.TempDir(), "no-such-mpv")))
	assert.Error(t, err)
	assert.Nil(t, e)
}

func TestOpen_InvalidConfig(t *testing.T) {
	e, err := Open(engine.Config{Tracks: engine.AllTrackKinds})
	assert.True(t, errors.Is(err, engine.ErrEmptyURI))
	assert.Nil(t, e)
}

func TestEngine_Properties(t *testing.T) {
	e, _ := startFakeMPV(t)

	testCases := []struct {
		property string
		expected interface{}
	}{
		{engine.PropName, Name},
		{engine.PropNVideo, 1},
		{engine.PropNAudio, 2},
		{engine.PropNText, 1},
		{engine.PropCurrentVideo, 0},
		{engine.PropCurrentAudio, 0},
		{engine.PropCurrentText, -1},
		{engine.PropSeekable, true},
	}

	for _, testCase := range testCases {
		t.Run(testCase.property, func(tt *testing.T) {
			value, err := e.Property(testCase.property)
			assert.NoError(tt, err)
			assert.Equal(tt, testCase.expected, value)
		})
	}

	_, err := e.Property("volume")
	assert.True(t, errors.Is(err, engine.ErrUnknownProperty))
}

func TestEngine_SetProperty(t *testing.T) {
	e, f := startFakeMPV(t)

	require.NoError(t, e.SetProperty(engine.PropCurrentAudio, 1))
	require.NoError(t, e.SetProperty(engine.PropCurrentText, -1))
	assert.Equal(t, [][]interface{}{
		{"set_property", "aid", float64(2)},
		{"set_property", "sid", "no"},
	}, f.recorded("set_property"))

	testCases := []struct {
		name     string
		property string
		value    interface{}
		expected error
	}{
		{"OutOfRange", engine.PropCurrentAudio, 2, engine.ErrEngine},
		{"WrongType", engine.PropCurrentAudio, uint32(1), engine.ErrPropertyType},
		{"ReadOnly", engine.PropNAudio, 1, engine.ErrUnknownProperty},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(tt *testing.T) {
			err := e.SetProperty(testCase.property, testCase.value)
			assert.True(tt, errors.Is(err, testCase.expected), "unexpected error %v", err)
		})
	}
}

func TestEngine_Tags(t *testing.T) {
	e, _ := startFakeMPV(t)

	tags, ok := e.Tags(engine.TrackAudio, 0)
	assert.True(t, ok)
	assert.Equal(t, engine.Tags{Codec: "vorbis", Language: "en", Bitrate: 80000}, tags)

	tags, ok = e.Tags(engine.TrackText, 0)
	assert.True(t, ok)
	assert.Equal(t, engine.Tags{Language: "el"}, tags)

	_, ok = e.Tags(engine.TrackText, 1)
	assert.False(t, ok)
}

func TestEngine_Queries(t *testing.T) {
	e, _ := startFakeMPV(t)

	position, ok := e.QueryPosition()
	assert.True(t, ok)
	assert.Equal(t, 12500*time.Millisecond, position)

	// Live streams have no duration
	_, ok = e.QueryDuration()
	assert.False(t, ok)
}

func TestEngine_Seek(t *testing.T) {
	testCases := []struct {
		name     string
		flags    engine.SeekFlags
		expected string
	}{
		{"KeyUnit", engine.SeekFlush | engine.SeekKeyUnit, "absolute+keyframes"},
		{"Accurate", engine.SeekFlush | engine.SeekAccurate, "absolute+exact"},
		{"Flush", engine.SeekFlush, "absolute"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(tt *testing.T) {
			e, f := startFakeMPV(tt)
			require.NoError(tt, e.Seek(30*time.Second, testCase.flags))
			assert.Equal(tt, [][]interface{}{{"seek", float64(30), testCase.expected}}, f.recorded("seek"))
		})
	}
}

func TestEngine_PlaybackStates(t *testing.T) {
	e, f := startFakeMPV(t)

	require.NoError(t, e.SetState(engine.StatePlaying))
	f.send(map[string]interface{}{"event": "file-loaded"})

	assert.Equal(t, []engine.Event{
		engine.StateChangedEvent{Source: Name, Old: engine.StateNull, New: engine.StateReady},
		engine.StateChangedEvent{Source: Name, Old: engine.StateReady, New: engine.StatePaused},
		engine.StateChangedEvent{Source: Name, Old: engine.StatePaused, New: engine.StatePlaying},
	}, collectEvents(t, e, 3))

	require.NoError(t, e.SetState(engine.StatePaused))
	assert.Equal(t, []engine.Event{
		engine.StateChangedEvent{Source: Name, Old: engine.StatePlaying, New: engine.StatePaused},
	}, collectEvents(t, e, 1))

	assert.True(t, errors.Is(e.SetState(engine.StateReady), ErrUnsupportedState))
}

func TestEngine_EndOfFile(t *testing.T) {
	testCases := []struct {
		name     string
		event    map[string]interface{}
		expected engine.Event
	}{
		{
			name:     "EOF",
			event:    map[string]interface{}{"event": "end-file", "reason": "eof"},
			expected: engine.EOSEvent{},
		},
		{
			name:     "Error",
			event:    map[string]interface{}{"event": "end-file", "reason": "error", "file_error": "loading failed"},
			expected: engine.ErrorEvent{Source: Name, Message: "failed to play media", Debug: "loading failed"},
		},
		{
			name:     "DurationChanged",
			event:    map[string]interface{}{"event": "property-change", "id": observeDuration, "name": "duration", "data": 52.0},
			expected: engine.DurationChangedEvent{},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(tt *testing.T) {
			e, f := startFakeMPV(tt)
			collectEvents(tt, e, 1)

			f.send(testCase.event)
			assert.Equal(tt, []engine.Event{testCase.expected}, collectEvents(tt, e, 1))
		})
	}
}

func TestEngine_CommandErrors(t *testing.T) {
	e, f := startFakeMPV(t, WithRequestTimeout(100*time.Millisecond))

	_, err := e.client.command("get_property", "chapter-list")
	assert.True(t, errors.Is(err, ErrCommand))

	f.mu.Lock()
	f.silent = true
	f.mu.Unlock()

	_, err = e.client.command("get_property", "time-pos")
	assert.True(t, errors.Is(err, ErrTimeout))
	assert.True(t, errors.Is(err, engine.ErrEngine))
}

func TestEngine_LostConnection(t *testing.T) {
	e, f := startFakeMPV(t)
	collectEvents(t, e, 1)

	require.NoError(t, f.conn.Close())
	events := collectEvents(t, e, 1)
	errorEvent, ok := events[0].(engine.ErrorEvent)
	require.True(t, ok)
	assert.Equal(t, "lost connection to mpv", errorEvent.Message)

	_, err := e.Property(engine.PropNAudio)
	assert.True(t, errors.Is(err, ErrDisconnected))
}

func TestEngine_Close(t *testing.T) {
	e, f := startFakeMPV(t)

	require.NoError(t, e.SetState(engine.StateNull))
	assert.Len(t, f.recorded("quit"), 1)
	assert.Zero(t, f.killCount())

	_, err := os.Stat(e.socketPath)
	assert.True(t, errors.Is(err, os.ErrNotExist))

	// Leaving mpv is not a lost connection
	for {
		event, ok := e.PollEvent(20 * time.Millisecond)
		if !ok {
			break
		}

		_, isError := event.(engine.ErrorEvent)
		assert.False(t, isError, "unexpected %v", event)
	}

	require.NoError(t, e.Close())
	assert.Len(t, f.recorded("quit"), 1)
}

func TestEngine_CloseKillsStuckProcess(t *testing.T) {
	e, f := startFakeMPV(t, WithQuitTimeout(20*time.Millisecond))
	f.mu.Lock()
	f.exitOnQuit = false
	f.mu.Unlock()

	require.NoError(t, e.Close())
	assert.Equal(t, 1, f.killCount())
}
