package session

import (
	"context"
	"time"
)

// Dispatcher is the event loop of a session. It runs on the goroutine that owns the engine
type Dispatcher struct {
	ctrl    *Controller
	timeout time.Duration
}

// NewDispatcher returns a Dispatcher which waits at most timeout for each engine event
func NewDispatcher(ctrl *Controller, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultPollTimeout
	}

	return &Dispatcher{ctrl: ctrl, timeout: timeout}
}

// Run polls engine events and routes them to the controller until the session terminates. Whenever a poll times out
// the controller reports progress instead. Cancelling ctx is treated as a quit command
func (d *Dispatcher) Run(ctx context.Context) {
	for !d.ctrl.ShouldTerminate() {
		select {
		case <-ctx.Done():
			d.ctrl.log.WithError(ctx.Err()).Info("context done, quitting")
			if _, err := d.ctrl.ApplyCommand(Quit{}); err != nil {
				d.ctrl.log.WithError(err).Warn("failed to quit")
			}
			continue
		default:
		}

		event, ok := d.ctrl.engine.PollEvent(d.timeout)
		if !ok {
			d.ctrl.Tick()
			continue
		}

		outcome := d.ctrl.HandleEvent(event)
		d.ctrl.log.WithField("event", event).WithField("outcome", outcome).Debug("handled event")
	}
}
