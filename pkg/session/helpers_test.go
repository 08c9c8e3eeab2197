package session

import (
	"sync"
	"time"

	"github.com/broar/playbin-cli/pkg/engine"
	"github.com/broar/playbin-cli/pkg/engine/mock_engine"
	"github.com/golang/mock/gomock"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
)

const (
	testEngineName = "playbin"
	testURI        = "https://example.com/media/sintel_cropped_multilingual.webm"
)

func testLogger() logrus.FieldLogger {
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logger
}

func testConfig() Config {
	cfg := DefaultConfig(testURI)
	cfg.PollTimeout = 5 * time.Millisecond
	cfg.KeyInterval = time.Millisecond
	return cfg
}

// recordingReporter keeps everything a session reports
type recordingReporter struct {
	mu         sync.Mutex
	infos      []string
	errors     []string
	reports    []StreamReport
	progresses []Progress
}

func (r *recordingReporter) Progress(progress Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progresses = append(r.progresses, progress)
}

func (r *recordingReporter) StreamsAnalyzed(report StreamReport) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reports = append(r.reports, report)
}

func (r *recordingReporter) Info(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.infos = append(r.infos, text)
}

func (r *recordingReporter) Error(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errors = append(r.errors, text)
}

func (r *recordingReporter) reportCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reports)
}

func (r *recordingReporter) firstReport() StreamReport {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.reports[0]
}

func (r *recordingReporter) errorTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.errors...)
}

func (r *recordingReporter) infoTexts() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.infos...)
}

// expectStart registers the calls Start makes on a healthy engine
func expectStart(e *mock_engine.MockEngine) {
	e.EXPECT().Property(engine.PropName).Return(testEngineName, nil)
	e.EXPECT().SetState(engine.StatePlaying).Return(nil)
}

// expectStreams registers the calls made by the stream analysis of media with the given number of streams
func expectStreams(e *mock_engine.MockEngine, video, audio, text int) {
	e.EXPECT().Property(engine.PropSeekable).Return(true, nil).AnyTimes()
	e.EXPECT().QueryDuration().Return(52*time.Second, true).AnyTimes()
	e.EXPECT().Property(engine.PropNVideo).Return(video, nil).AnyTimes()
	e.EXPECT().Property(engine.PropNAudio).Return(audio, nil).AnyTimes()
	e.EXPECT().Property(engine.PropNText).Return(text, nil).AnyTimes()
	e.EXPECT().Property(engine.PropCurrentVideo).Return(0, nil).AnyTimes()
	e.EXPECT().Property(engine.PropCurrentAudio).Return(0, nil).AnyTimes()
	e.EXPECT().Property(engine.PropCurrentText).Return(-1, nil).AnyTimes()
	e.EXPECT().Tags(gomock.Any(), gomock.Any()).Return(engine.Tags{Codec: "Vorbis", Language: "en"}, true).AnyTimes()
}

func playingEvent() engine.Event {
	return engine.StateChangedEvent{Source: testEngineName, Old: engine.StatePaused, New: engine.StatePlaying}
}

// fakeEngine is a scriptable engine for tests which run a whole session across goroutines
type fakeEngine struct {
	events chan engine.Event

	mu        sync.Mutex
	nAudio    int
	nText     int
	position  time.Duration
	states    []engine.State
	selected  map[string]int
	seeks     []time.Duration
	closed    int
	failStart error
}

func newFakeEngine(nAudio, nText int) *fakeEngine {
	return &fakeEngine{
		events:   make(chan engine.Event, 16),
		nAudio:   nAudio,
		nText:    nText,
		position: time.Second,
		selected: map[string]int{},
	}
}

func (f *fakeEngine) open(engine.Config) (engine.Engine, error) {
	return f, nil
}

func (f *fakeEngine) SetState(target engine.State) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.states = append(f.states, target)
	if target == engine.StatePlaying {
		if f.failStart != nil {
			return f.failStart
		}

		f.events <- playingEvent()
	}

	return nil
}

func (f *fakeEngine) Property(name string) (interface{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch name {
	case engine.PropName:
		return testEngineName, nil
	case engine.PropNVideo:
		return 1, nil
	case engine.PropNAudio:
		return f.nAudio, nil
	case engine.PropNText:
		return f.nText, nil
	case engine.PropSeekable:
		return true, nil
	case engine.PropCurrentVideo, engine.PropCurrentAudio, engine.PropCurrentText:
		if index, ok := f.selected[name]; ok {
			return index, nil
		}
		return 0, nil
	default:
		return nil, engine.ErrUnknownProperty
	}
}

func (f *fakeEngine) SetProperty(name string, value interface{}) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	index, ok := value.(int)
	if !ok {
		return engine.ErrPropertyType
	}

	f.selected[name] = index
	return nil
}

func (f *fakeEngine) Seek(position time.Duration, _ engine.SeekFlags) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.seeks = append(f.seeks, position)
	f.position = position
	return nil
}

func (f *fakeEngine) QueryPosition() (time.Duration, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.position, true
}

func (f *fakeEngine) QueryDuration() (time.Duration, bool) {
	return 52 * time.Second, true
}

func (f *fakeEngine) Tags(engine.TrackKind, int) (engine.Tags, bool) {
	return engine.Tags{}, false
}

func (f *fakeEngine) PollEvent(timeout time.Duration) (engine.Event, bool) {
	select {
	case event := <-f.events:
		return event, true
	case <-time.After(timeout):
		return nil, false
	}
}

func (f *fakeEngine) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakeEngine) stateRequests(target engine.State) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	n := 0
	for _, state := range f.states {
		if state == target {
			n++
		}
	}

	return n
}

func (f *fakeEngine) selection(name string) (int, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	index, ok := f.selected[name]
	return index, ok
}

// fakeTerminal is a Terminal fed from a channel
type fakeTerminal struct {
	keys chan Key
	wake chan struct{}

	mu          sync.Mutex
	raw         bool
	inits       int
	restores    int
	panicOnRead bool
}

func newFakeTerminal() *fakeTerminal {
	return &fakeTerminal{
		keys: make(chan Key, 8),
		wake: make(chan struct{}, 1),
	}
}

func (f *fakeTerminal) Init() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = true
	f.inits++
	return nil
}

func (f *fakeTerminal) ReadKey() (Key, error) {
	f.mu.Lock()
	panicOnRead := f.panicOnRead
	f.mu.Unlock()

	if panicOnRead {
		panic("terminal exploded")
	}

	select {
	case key := <-f.keys:
		return key, nil
	case <-f.wake:
		return Key{}, nil
	}
}

func (f *fakeTerminal) Wake() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}

func (f *fakeTerminal) Restore() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.raw = false
	f.restores++
}

func (f *fakeTerminal) isRaw() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.raw
}

func (f *fakeTerminal) restoreCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.restores
}
