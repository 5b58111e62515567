// Package devserver runs the development loop: an initial full build, then rebuilds
// driven by filesystem notifications while the preview server runs alongside.
package devserver

import (
	"context"
	"log/slog"
	"sync/atomic"

	"git.home.luguber.info/inful/refsite/internal/build"
	"git.home.luguber.info/inful/refsite/internal/foundation/errors"
	"git.home.luguber.info/inful/refsite/internal/logfields"
)

// State is the scheduler's observable state.
type State int32

const (
	StateStarting State = iota
	StateWatching
	StateRebuildingContent
	StateRebuildingFull
	StateStopped
)

func (s State) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateWatching:
		return "watching"
	case StateRebuildingContent:
		return "rebuilding-content"
	case StateRebuildingFull:
		return "rebuilding-full"
	case StateStopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// Rebuilder performs the builds. *build.Builder implements it.
type Rebuilder interface {
	Full(ctx context.Context) (*build.State, build.Report, error)
	Content(ctx context.Context) (build.Report, error)
}

// Reloader notifies preview clients after a successful rebuild. *livereload.Hub
// implements it.
type Reloader interface {
	Reload() int
}

// ServeFunc runs the preview server until ctx is done.
type ServeFunc func(ctx context.Context) error

// Options wires a Scheduler.
type Options struct {
	Builder  Rebuilder
	Reloader Reloader
	// Source notifies changes in the source tree.
	Source <-chan struct{}
	// Templates notifies changes in the template or reference trees.
	Templates <-chan struct{}
	// Serve runs concurrently with the watch loop; nil runs no server.
	Serve ServeFunc
	// Observe, when set, is called on every state transition.
	Observe func(State)
}

// Scheduler serializes rebuilds: a notification is handled to completion before the
// next one is looked at.
type Scheduler struct {
	opts  Options
	state atomic.Int32
}

// New creates a Scheduler.
func New(opts Options) *Scheduler {
	return &Scheduler{opts: opts}
}

// State returns the current state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(st State) {
	s.state.Store(int32(st))
	slog.Debug("Scheduler state", logfields.State(st.String()))
	if s.opts.Observe != nil {
		s.opts.Observe(st)
	}
}

// Run performs the initial full build and then handles notifications until ctx is done
// (returns nil), the server terminates, or a full rebuild fails (both return an error).
// A failed initial build is returned without starting the server.
func (s *Scheduler) Run(ctx context.Context) error {
	s.setState(StateStarting)
	if _, _, err := s.opts.Builder.Full(ctx); err != nil {
		s.setState(StateStopped)
		return err
	}

	serveCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	serverDone := make(chan error, 1)
	go func() { serverDone <- s.serve(serveCtx) }()

	stop := func(err error) error {
		stopServer()
		<-serverDone
		s.setState(StateStopped)
		return err
	}

	s.setState(StateWatching)
	for {
		select {
		case <-ctx.Done():
			return stop(nil)
		case err := <-serverDone:
			s.setState(StateStopped)
			if err == nil {
				err = errors.RuntimeError("preview server exited").Build()
			}
			slog.Error("Preview server terminated", logfields.Error(err))
			return err
		case <-s.opts.Templates:
			if err := s.rebuildFull(ctx); err != nil {
				return stop(err)
			}
		case <-s.opts.Source:
			s.rebuildContent(ctx)
		}
	}
}

func (s *Scheduler) serve(ctx context.Context) error {
	if s.opts.Serve == nil {
		<-ctx.Done()
		return nil
	}
	return s.opts.Serve(ctx)
}

// rebuildContent re-renders the source tree. Failure keeps the stale output.
func (s *Scheduler) rebuildContent(ctx context.Context) {
	s.setState(StateRebuildingContent)
	defer s.setState(StateWatching)

	slog.Info("Source change detected, rebuilding content")
	if _, err := s.opts.Builder.Content(ctx); err != nil {
		slog.Error("Content rebuild failed, serving previous output",
			slog.String("category", string(errors.CategoryOf(err))),
			logfields.Error(err))
		return
	}
	s.reload()
}

// rebuildFull rebuilds everything after a template or reference change. A pending
// source notification is dropped since the full build re-renders the source tree too.
func (s *Scheduler) rebuildFull(ctx context.Context) error {
	s.setState(StateRebuildingFull)

	slog.Info("Template change detected, rebuilding site")
	state, _, err := s.opts.Builder.Full(ctx)
	if err != nil {
		slog.Error("Full rebuild failed", logfields.Error(err))
		return err
	}
	if reg := state.Templates(); reg != nil {
		slog.Info("Template registry replaced", logfields.Count(reg.Len()))
	}
	select {
	case <-s.opts.Source:
	default:
	}
	s.reload()
	s.setState(StateWatching)
	return nil
}

func (s *Scheduler) reload() {
	if s.opts.Reloader == nil {
		return
	}
	n := s.opts.Reloader.Reload()
	slog.Debug("Live reload sent", logfields.Clients(n))
}
