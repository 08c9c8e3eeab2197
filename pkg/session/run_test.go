package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/broar/playbin-cli/pkg/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const defaultTestTimeout = 3 * time.Second

type runResult struct {
	result Result
	err    error
}

func startRun(ctx context.Context, cfg Config, e *fakeEngine, terminal Terminal, reporter Reporter) <-chan runResult {
	results := make(chan runResult, 1)
	deps := Dependencies{
		Open:     e.open,
		Reporter: reporter,
		Logger:   testLogger(),
	}

	if terminal != nil {
		deps.Terminal = terminal
	}

	go func() {
		result, err := Run(ctx, cfg, deps)
		results <- runResult{result, err}
	}()

	return results
}

func waitForRun(t *testing.T, results <-chan runResult) runResult {
	t.Helper()

	select {
	case r := <-results:
		return r
	case <-time.After(defaultTestTimeout):
		t.Fatalf("session did not end after %s", defaultTestTimeout)
		return runResult{}
	}
}

func waitForAnalysis(t *testing.T, reporter *recordingReporter) {
	t.Helper()
	require.Eventually(t, func() bool { return reporter.reportCount() == 1 }, defaultTestTimeout, time.Millisecond)
}

func TestRun_ErrorEvent(t *testing.T) {
	e := newFakeEngine(2, 0)
	terminal := newFakeTerminal()
	reporter := &recordingReporter{}

	results := startRun(context.Background(), testConfig(), e, terminal, reporter)
	waitForAnalysis(t, reporter)
	e.events <- engine.ErrorEvent{Source: testEngineName, Message: "decode failure"}

	r := waitForRun(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, PhaseFailed, r.result.Phase)
	assert.True(t, errors.Is(r.result.Err, ErrPlayback))
	assert.Contains(t, r.result.Err.Error(), "decode failure")
	assert.NoError(t, r.result.Teardown)

	assert.False(t, terminal.isRaw())
	assert.Equal(t, 1, e.stateRequests(engine.StateNull))
	assert.Equal(t, 1, e.closed)
}

func TestRun_InterruptWhilePlaying(t *testing.T) {
	e := newFakeEngine(2, 0)
	terminal := newFakeTerminal()
	reporter := &recordingReporter{}

	results := startRun(context.Background(), testConfig(), e, terminal, reporter)
	waitForAnalysis(t, reporter)
	terminal.keys <- Key{Interrupt: true}

	r := waitForRun(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, PhaseStopped, r.result.Phase)
	assert.Equal(t, "quit requested", r.result.Reason)
	assert.NoError(t, r.result.Err)

	// Run only returns after the keyboard goroutine was joined
	assert.False(t, terminal.isRaw())
	assert.Equal(t, 1, terminal.inits)
	assert.GreaterOrEqual(t, terminal.restoreCount(), 1)
	assert.Equal(t, 1, e.stateRequests(engine.StateNull))
}

func TestRun_EOSStopsKeyboard(t *testing.T) {
	e := newFakeEngine(1, 0)
	terminal := newFakeTerminal()
	reporter := &recordingReporter{}

	results := startRun(context.Background(), testConfig(), e, terminal, reporter)
	waitForAnalysis(t, reporter)
	e.events <- engine.EOSEvent{}

	r := waitForRun(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, PhaseStopped, r.result.Phase)
	assert.Equal(t, "end of stream", r.result.Reason)
	assert.False(t, terminal.isRaw())
	assert.Equal(t, 1, e.stateRequests(engine.StateNull))
}

func TestRun_DigitKeysSelectTracks(t *testing.T) {
	testCases := []struct {
		name     string
		target   engine.TrackKind
		property string
		label    string
	}{
		{"Audio", engine.TrackAudio, engine.PropCurrentAudio, "audio"},
		{"Text", engine.TrackText, engine.PropCurrentText, "subtitle"},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(tt *testing.T) {
			e := newFakeEngine(3, 3)
			terminal := newFakeTerminal()
			reporter := &recordingReporter{}
			cfg := testConfig()
			cfg.DigitTarget = testCase.target

			results := startRun(context.Background(), cfg, e, terminal, reporter)
			waitForAnalysis(tt, reporter)
			assert.True(tt, reporter.firstReport().Interactive)

			terminal.keys <- Key{Rune: '2'}
			terminal.keys <- Key{Rune: 'x'}
			terminal.keys <- Key{Rune: '7'}
			require.Eventually(tt, func() bool {
				return len(reporter.errorTexts()) == 1
			}, defaultTestTimeout, time.Millisecond)

			terminal.keys <- Key{Interrupt: true}
			r := waitForRun(tt, results)
			require.NoError(tt, r.err)

			index, ok := e.selection(testCase.property)
			require.True(tt, ok)
			assert.Equal(tt, 2, index)
			assert.Contains(tt, reporter.infoTexts(), "Setting current "+testCase.label+" stream to 2")
			assert.Equal(tt, []string{"Index out of bounds"}, reporter.errorTexts())
		})
	}
}

func TestRun_ContextCancelWithoutKeyboard(t *testing.T) {
	e := newFakeEngine(1, 0)
	reporter := &recordingReporter{}
	ctx, cancel := context.WithCancel(context.Background())

	results := startRun(ctx, testConfig(), e, nil, reporter)
	waitForAnalysis(t, reporter)
	assert.False(t, reporter.firstReport().Interactive)
	assert.NotContains(t, reporter.firstReport().Lines(), "Type any number to select a different audio stream")
	cancel()

	r := waitForRun(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, PhaseStopped, r.result.Phase)
	assert.Equal(t, 1, e.stateRequests(engine.StateNull))
}

func TestRun_KeyboardPanicRestoresTerminal(t *testing.T) {
	e := newFakeEngine(1, 0)
	terminal := newFakeTerminal()
	terminal.panicOnRead = true
	reporter := &recordingReporter{}

	results := startRun(context.Background(), testConfig(), e, terminal, reporter)
	waitForAnalysis(t, reporter)
	require.Eventually(t, func() bool { return !terminal.isRaw() && terminal.restoreCount() > 0 }, defaultTestTimeout, time.Millisecond)

	// The session outlives its keyboard and still ends normally
	e.events <- engine.EOSEvent{}
	r := waitForRun(t, results)
	require.NoError(t, r.err)
	assert.Equal(t, PhaseStopped, r.result.Phase)
	assert.Equal(t, 1, e.stateRequests(engine.StateNull))
}

func TestRun_StartError(t *testing.T) {
	e := newFakeEngine(1, 0)
	e.failStart = errors.New("could not open resource for reading")
	terminal := newFakeTerminal()

	results := startRun(context.Background(), testConfig(), e, terminal, &recordingReporter{})
	r := waitForRun(t, results)

	assert.True(t, errors.Is(r.err, ErrStateChangeRejected))
	assert.Zero(t, terminal.inits)
	assert.Equal(t, 1, e.stateRequests(engine.StateNull))
}

func TestRun_SeekPolicy(t *testing.T) {
	e := newFakeEngine(1, 0)
	e.position = 12 * time.Second
	reporter := &recordingReporter{}
	cfg := testConfig()
	cfg.Seek = SeekPolicy{Enabled: true, After: 10 * time.Second, To: 30 * time.Second}

	results := startRun(context.Background(), cfg, e, nil, reporter)
	require.Eventually(t, func() bool {
		e.mu.Lock()
		defer e.mu.Unlock()
		return len(e.seeks) == 1
	}, defaultTestTimeout, time.Millisecond)

	// Give the dispatcher a few more ticks past the seek threshold
	time.Sleep(50 * time.Millisecond)
	e.events <- engine.EOSEvent{}
	waitForRun(t, results)

	e.mu.Lock()
	defer e.mu.Unlock()
	assert.Equal(t, []time.Duration{30 * time.Second}, e.seeks)
}

func TestShutdownCoordinator_RunsOnce(t *testing.T) {
	e := newFakeEngine(1, 0)
	terminal := newFakeTerminal()
	ctrl, err := Start(testConfig(), e.open, nil, testLogger())
	require.NoError(t, err)

	coordinator := NewShutdownCoordinator(ctrl, nil, terminal)
	first := coordinator.Shutdown()
	second := coordinator.Shutdown()

	assert.Equal(t, first, second)
	assert.Equal(t, PhaseStopped, first.Phase)
	assert.Equal(t, "shutdown", first.Reason)
	assert.True(t, ctrl.ShouldTerminate())
	assert.Equal(t, 1, terminal.restoreCount())
	assert.Equal(t, 1, e.stateRequests(engine.StateNull))
}
