package session

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/broar/playbin-cli/pkg/engine"
	"github.com/sirupsen/logrus"
)

// ErrKeyboardPanic is returned by Keyboard.Run when the read loop panicked
var ErrKeyboardPanic = errors.New("keyboard loop panicked")

// Key is a single decoded input event. The zero Key is returned by a Terminal that was woken up without input
type Key struct {
	Rune rune

	// Interrupt is set for the interrupt chord (Ctrl+C) and Escape
	Interrupt bool
}

// IsZero reports whether the key carries no input
func (k Key) IsZero() bool {
	return k == Key{}
}

// Terminal is a raw single-key input device
type Terminal interface {

	// Init puts the terminal into raw mode
	Init() error

	// ReadKey blocks until a key is pressed or Wake is called
	ReadKey() (Key, error)

	// Wake unblocks a pending ReadKey
	Wake()

	// Restore leaves raw mode. It is safe to call more than once
	Restore()
}

// DecodeKey translates a key into a command. Digits select a stream of the target kind, the interrupt chord quits
func DecodeKey(key Key, target engine.TrackKind) (Command, bool) {
	if key.Interrupt {
		return Quit{}, true
	}

	if key.Rune < '0' || key.Rune > '9' {
		return nil, false
	}

	return SelectTrack(target, uint32(key.Rune-'0')), true
}

// Keyboard reads keys from a Terminal on its own goroutine and forwards the decoded commands to a Controller
type Keyboard struct {
	terminal Terminal
	ctrl     *Controller
	target   engine.TrackKind
	interval time.Duration
	reporter Reporter
	log      logrus.FieldLogger
}

// NewKeyboard returns a Keyboard for the terminal which forwards commands to ctrl
func NewKeyboard(terminal Terminal, ctrl *Controller) *Keyboard {
	return &Keyboard{
		terminal: terminal,
		ctrl:     ctrl,
		target:   ctrl.cfg.DigitTarget,
		interval: ctrl.cfg.KeyInterval,
		reporter: ctrl.reporter,
		log:      ctrl.log.WithField("component", "keyboard"),
	}
}

// Run puts the terminal into raw mode and reads keys until the session terminates. Raw mode is left on every return
// path, including a panic, which is recovered and returned as an error
func (k *Keyboard) Run() (err error) {
	if err := k.terminal.Init(); err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}

	defer k.terminal.Restore()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrKeyboardPanic, r)
		}
	}()

	stop := make(chan struct{})
	defer close(stop)

	go func() {
		select {
		case <-k.ctrl.Done():
			k.terminal.Wake()
		case <-stop:
		}
	}()

	for !k.ctrl.ShouldTerminate() {
		key, err := k.terminal.ReadKey()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return fmt.Errorf("failed to read key: %w", err)
		}

		k.handle(key)

		select {
		case <-k.ctrl.Done():
		case <-time.After(k.interval):
		}
	}

	return nil
}

func (k *Keyboard) handle(key Key) {
	if key.IsZero() {
		return
	}

	cmd, ok := DecodeKey(key, k.target)
	if !ok {
		return
	}

	outcome, err := k.ctrl.ApplyCommand(cmd)
	if err != nil {
		k.log.WithError(err).WithField("command", cmd).Warn("failed to apply command")
		k.reporter.Error(err.Error())
		return
	}

	switch cmd := cmd.(type) {
	case SelectAudioTrack:
		k.reportSelection(outcome, engine.TrackAudio, cmd.Index)
	case SelectTextTrack:
		k.reportSelection(outcome, engine.TrackText, cmd.Index)
	}
}

func (k *Keyboard) reportSelection(outcome Outcome, kind engine.TrackKind, index uint32) {
	switch outcome {
	case OutcomeApplied:
		k.reporter.Info(fmt.Sprintf("Setting current %s stream to %d", kind.Label(), index))
	case OutcomeOutOfRange:
		k.reporter.Error("Index out of bounds")
	}
}
