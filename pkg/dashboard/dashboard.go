package dashboard

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/broar/playbin-cli/pkg/session"
	"github.com/gdamore/tcell/v2"
)

const (
	// DefaultMessageLines is the number of recent messages kept on screen
	DefaultMessageLines = 8

	titleRow    = 0
	progressRow = 1
	messagesRow = 3
)

var (
	// ErrNilScreen is an error returned when attempting to use a nil Screen for a TerminalDashboard
	ErrNilScreen = errors.New("screen cannot be nil")

	// ErrRestored is returned when initializing a TerminalDashboard which has already been restored
	ErrRestored = errors.New("dashboard has already been restored")

	defaultTextStyle = tcell.StyleDefault.Foreground(tcell.ColorReset).Background(tcell.ColorReset)
	titleStyle       = defaultTextStyle.Bold(true)
	errorTextStyle   = defaultTextStyle.Foreground(tcell.ColorRed)
)

// TerminalDashboard is the raw-mode terminal of a session. It reads single keys from a tcell screen and places
// everything the session reports on it. Once restored, reports are forwarded to a fallback reporter instead
type TerminalDashboard struct {
	screen       tcell.Screen
	fallback     session.Reporter
	messageLines int

	mu       sync.Mutex
	active   bool
	restored bool
	title    *TextWidget
	progress *TextWidget
	messages *LogWidget
	streams  *Widget
}

var (
	_ session.Terminal = (*TerminalDashboard)(nil)
	_ session.Reporter = (*TerminalDashboard)(nil)
)

// Option is an alias for a function that modifies a TerminalDashboard. An Option is used to override the default values of TerminalDashboard
type Option func(dashboard *TerminalDashboard) error

// WithScreen allows clients to override the screen used to display the dashboard
func WithScreen(screen tcell.Screen) Option {
	return func(dashboard *TerminalDashboard) error {
		if screen == nil {
			return ErrNilScreen
		}

		dashboard.screen = screen
		return nil
	}
}

// WithFallback sets the reporter used once the terminal has been restored
func WithFallback(reporter session.Reporter) Option {
	return func(dashboard *TerminalDashboard) error {
		dashboard.fallback = reporter
		return nil
	}
}

// WithTitle sets the text of the first row
func WithTitle(title string) Option {
	return func(dashboard *TerminalDashboard) error {
		dashboard.title.SetText(title)
		return nil
	}
}

// WithMessageLines overrides how many recent messages are kept on screen
func WithMessageLines(lines int) Option {
	return func(dashboard *TerminalDashboard) error {
		if lines <= 0 {
			return errors.New("message lines must be greater than 0")
		}

		dashboard.messageLines = lines
		return nil
	}
}

// NewTerminalDashboard creates a new TerminalDashboard object that is configured with a list of Options. The default
// screen is the terminal tcell finds through $TERM
func NewTerminalDashboard(options ...Option) (*TerminalDashboard, error) {
	dashboard := &TerminalDashboard{
		messageLines: DefaultMessageLines,
		title:        NewTextWidget(0, titleRow, "", titleStyle),
		progress:     NewTextWidget(0, progressRow, session.Progress{}.String(), defaultTextStyle),
	}

	for _, option := range options {
		if err := option(dashboard); err != nil {
			return nil, err
		}
	}

	if dashboard.screen == nil {
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("failed to create default screen: %w", err)
		}

		dashboard.screen = screen
	}

	dashboard.messages = NewLogWidget(0, messagesRow, dashboard.messageLines)
	dashboard.streams = NewWidget(0, messagesRow+dashboard.messageLines+1, nil, defaultTextStyle)
	return dashboard, nil
}

// Init puts the terminal into raw mode and draws the dashboard
func (d *TerminalDashboard) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.restored {
		return ErrRestored
	}

	if err := d.screen.Init(); err != nil {
		return fmt.Errorf("failed to initialize screen: %w", err)
	}

	d.active = true
	d.screen.Clear()
	for _, drawer := range d.drawers() {
		drawer.Draw(d.screen)
	}

	d.screen.Show()
	return nil
}

// ReadKey blocks until a key is pressed or the dashboard is woken up. io.EOF is returned once the screen is gone
func (d *TerminalDashboard) ReadKey() (session.Key, error) {
	for {
		switch event := d.screen.PollEvent().(type) {
		case nil:
			return session.Key{}, io.EOF
		case *tcell.EventInterrupt:
			return session.Key{}, nil
		case *tcell.EventResize:
			d.redraw()
		case *tcell.EventKey:
			if key, ok := decodeKey(event); ok {
				return key, nil
			}
		}
	}
}

func decodeKey(event *tcell.EventKey) (session.Key, bool) {
	switch event.Key() {
	case tcell.KeyEscape, tcell.KeyCtrlC:
		return session.Key{Interrupt: true}, true
	case tcell.KeyRune:
		return session.Key{Rune: event.Rune()}, true
	default:
		return session.Key{}, false
	}
}

// Wake unblocks a pending ReadKey
func (d *TerminalDashboard) Wake() {
	_ = d.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

// Restore leaves raw mode. Every later report goes to the fallback reporter
func (d *TerminalDashboard) Restore() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.restored = true
	if !d.active {
		return
	}

	d.active = false
	d.screen.Fini()
}

// Progress updates the position row
func (d *TerminalDashboard) Progress(progress session.Progress) {
	d.update(func() {
		d.show(d.progress, func() { d.progress.SetText(progress.String()) })
	}, func(fallback session.Reporter) {
		fallback.Progress(progress)
	})
}

// StreamsAnalyzed draws the stream report below the messages
func (d *TerminalDashboard) StreamsAnalyzed(report session.StreamReport) {
	d.update(func() {
		d.show(d.streams, func() { d.streams.SetDrawing(report.Lines()) })
	}, func(fallback session.Reporter) {
		fallback.StreamsAnalyzed(report)
	})
}

// Info adds a message
func (d *TerminalDashboard) Info(text string) {
	d.update(func() {
		d.show(d.messages, func() { d.messages.Append(text, defaultTextStyle) })
	}, func(fallback session.Reporter) {
		fallback.Info(text)
	})
}

// Error adds a message highlighted as a failure
func (d *TerminalDashboard) Error(text string) {
	d.update(func() {
		d.show(d.messages, func() { d.messages.Append(text, errorTextStyle) })
	}, func(fallback session.Reporter) {
		fallback.Error(text)
	})
}

// update runs draw while the screen may still be drawn on and forward after it has been restored
func (d *TerminalDashboard) update(draw func(), forward func(session.Reporter)) {
	d.mu.Lock()
	if !d.restored {
		draw()
		d.mu.Unlock()
		return
	}

	fallback := d.fallback
	d.mu.Unlock()

	if fallback != nil {
		forward(fallback)
	}
}

// show changes a drawer and redraws it when the screen is active. Must be called with the lock held
func (d *TerminalDashboard) show(drawer Drawer, change func()) {
	if !d.active {
		change()
		return
	}

	drawer.Clear(d.screen)
	change()
	drawer.Draw(d.screen)
	d.screen.Show()
}

func (d *TerminalDashboard) redraw() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.active {
		return
	}

	d.screen.Clear()
	for _, drawer := range d.drawers() {
		drawer.Draw(d.screen)
	}

	d.screen.Sync()
}

func (d *TerminalDashboard) drawers() []Drawer {
	return []Drawer{d.title, d.progress, d.messages, d.streams}
}
