package session

import (
	"context"

	"github.com/broar/playbin-cli/pkg/engine"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Dependencies are the collaborators of a session
type Dependencies struct {
	Open     engine.Opener
	Reporter Reporter
	Logger   logrus.FieldLogger

	// Terminal is the keyboard device. A nil Terminal runs the session without keyboard input
	Terminal Terminal
}

// Run plays a single session to completion. The keyboard is read on its own goroutine while the event dispatcher runs on
// the calling goroutine; the shutdown coordinator runs on every return path, including a panic. The returned error is
// only set when the session could not start
func Run(ctx context.Context, cfg Config, deps Dependencies) (result Result, err error) {
	ctrl, err := Start(cfg, deps.Open, deps.Reporter, deps.Logger)
	if err != nil {
		return Result{}, err
	}

	var keyboard *errgroup.Group
	if deps.Terminal != nil {
		ctrl.interactive = true
		keyboard = &errgroup.Group{}
		keyboard.Go(NewKeyboard(deps.Terminal, ctrl).Run)
	}

	coordinator := NewShutdownCoordinator(ctrl, keyboard, deps.Terminal)
	defer func() {
		result = coordinator.Shutdown()
	}()

	NewDispatcher(ctrl, cfg.PollTimeout).Run(ctx)
	return result, nil
}
