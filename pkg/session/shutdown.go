package session

import (
	"sync"

	"golang.org/x/sync/errgroup"
)

// ShutdownCoordinator tears a session down exactly once: it stops the keyboard goroutine, restores the terminal and
// drives the engine to NULL. Teardown failures are recorded in the Result and never returned as errors
type ShutdownCoordinator struct {
	ctrl     *Controller
	keyboard *errgroup.Group
	terminal Terminal

	once   sync.Once
	result Result
}

// NewShutdownCoordinator returns a coordinator for ctrl. keyboard and terminal may be nil when the session runs
// without keyboard input
func NewShutdownCoordinator(ctrl *Controller, keyboard *errgroup.Group, terminal Terminal) *ShutdownCoordinator {
	return &ShutdownCoordinator{
		ctrl:     ctrl,
		keyboard: keyboard,
		terminal: terminal,
	}
}

// Shutdown tears the session down on the first call and returns the same Result on every call
func (s *ShutdownCoordinator) Shutdown() Result {
	s.once.Do(func() {
		s.result = s.shutdown()
	})

	return s.result
}

func (s *ShutdownCoordinator) shutdown() Result {
	s.ctrl.requestTermination("shutdown")

	if s.terminal != nil {
		s.terminal.Wake()
	}

	if s.keyboard != nil {
		if err := s.keyboard.Wait(); err != nil {
			s.ctrl.log.WithError(err).Warn("keyboard loop ended with an error")
		}
	}

	if s.terminal != nil {
		s.terminal.Restore()
	}

	teardownErr := s.ctrl.teardown()
	if teardownErr != nil {
		s.ctrl.log.WithError(teardownErr).Warn("engine teardown failed")
		s.ctrl.reporter.Error(teardownErr.Error())
	}

	result := s.ctrl.result()
	result.Teardown = teardownErr
	return result
}
