// Package watch rebuilds the site when its sources change.
//
// Filesystem events pass through a Filter and a Debouncer into a Queue that
// holds at most one pending rebuild. A single Loop goroutine consumes the
// queue and runs builds synchronously, so builds never overlap.
package watch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/blackmann/home-archive-2022-01/internal/build"
	ferrors "github.com/blackmann/home-archive-2022-01/internal/foundation/errors"
	"github.com/blackmann/home-archive-2022-01/internal/logfields"
)

// State is the loop state.
type State int32

const (
	StateIdle State = iota
	StateBuilding
)

func (s State) String() string {
	if s == StateBuilding {
		return "building"
	}
	return "idle"
}

// Runner performs one full build.
type Runner interface {
	Run(ctx context.Context) (*build.Report, error)
}

// Options configures a Loop.
type Options struct {
	Debounce time.Duration
	// RebuildInterval enables periodic rebuilds when > 0.
	RebuildInterval time.Duration
	Logger          *slog.Logger
	// OnBuild is called after every build the loop runs.
	OnBuild func(Trigger, *build.Report, error)
}

// Loop waits for qualifying changes and rebuilds.
type Loop struct {
	runner Runner
	source Source
	filter *Filter
	opts   Options
	queue  *Queue
	state  atomic.Int32
}

// NewLoop wires a Loop. The source is owned by the caller.
func NewLoop(runner Runner, source Source, filter *Filter, opts Options) *Loop {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Loop{runner: runner, source: source, filter: filter, opts: opts, queue: NewQueue()}
}

// State reports whether a build is running.
func (l *Loop) State() State { return State(l.state.Load()) }

// Run blocks until ctx is canceled or the event source fails. A failed
// rebuild is logged and the loop keeps waiting; a source failure ends the
// loop with a watch error. A build in progress when ctx is canceled runs to
// completion first.
func (l *Loop) Run(ctx context.Context) error {
	logger := l.opts.Logger
	debouncer := NewDebouncer(l.opts.Debounce, l.queue)
	defer debouncer.Stop()

	if l.opts.RebuildInterval > 0 {
		periodic, err := StartPeriodic(l.opts.RebuildInterval, l.queue, logger)
		if err != nil {
			return err
		}
		defer func() { _ = periodic.Stop() }()
	}

	pumpCtx, stopPump := context.WithCancel(ctx)
	defer stopPump()
	pumpErr := make(chan error, 1)
	go func() { pumpErr <- l.pump(pumpCtx, debouncer) }()

	logger.Info("Watching for changes", slog.Duration("debounce", l.opts.Debounce))
	for {
		select {
		case <-ctx.Done():
			logger.Info("Watch loop stopped")
			return nil
		case err := <-pumpErr:
			if ctx.Err() != nil {
				return nil
			}
			return err
		case t := <-l.queue.C():
			l.rebuild(context.WithoutCancel(ctx), t)
		}
	}
}

func (l *Loop) rebuild(ctx context.Context, t Trigger) {
	logger := l.opts.Logger
	if t.Path != "" {
		logger.Info("File updated, rebuilding", logfields.Trigger(t.Reason), logfields.Path(t.Path))
	} else {
		logger.Info("Rebuilding", logfields.Trigger(t.Reason))
	}

	l.state.Store(int32(StateBuilding))
	report, err := l.runner.Run(ctx)
	l.state.Store(int32(StateIdle))

	if err != nil {
		logger.Error("Rebuild failed; waiting for the next change", logfields.Error(err))
	} else {
		logger.Info("Done")
	}
	if l.opts.OnBuild != nil {
		l.opts.OnBuild(t, report, err)
	}
}

// pump forwards qualifying events to the debouncer until the source fails.
func (l *Loop) pump(ctx context.Context, debouncer *Debouncer) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-l.source.Events():
			if !ok {
				return ferrors.WatchError("watcher event stream closed").Build()
			}
			l.source.Observe(ev)
			if !l.filter.Accept(ev.Name) {
				continue
			}
			l.opts.Logger.Debug("File change detected", logfields.Path(ev.Name), logfields.Op(ev.Op.String()))
			debouncer.Touch(ev.Name)
		case err, ok := <-l.source.Errors():
			if !ok {
				return ferrors.WatchError("watcher error stream closed").Build()
			}
			return ferrors.WrapError(err, ferrors.CategoryWatch, "watcher failed").Fatal().Build()
		}
	}
}
