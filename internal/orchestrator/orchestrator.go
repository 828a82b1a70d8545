// Package orchestrator turns watch events into minimal incremental builds.
//
// The orchestrator is either idle or building. An event that arrives while
// building is dropped, not queued; callers catch up with the next event or a
// full resync.
package orchestrator

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"git.home.luguber.info/inful/satsuma/internal/build"
	"git.home.luguber.info/inful/satsuma/internal/logfields"
	"git.home.luguber.info/inful/satsuma/internal/site"
)

// EventKind is the watch event taxonomy.
type EventKind string

const (
	Add    EventKind = "add"
	Change EventKind = "change"
	Unlink EventKind = "unlink"
)

// Event is one settled filesystem change.
type Event struct {
	Kind EventKind
	Path string
}

// Outcome reports what handling an event did.
type Outcome struct {
	Dropped bool
	Reload  bool
	Changed []string
}

// Notifier is told about every build that changed outputs.
type Notifier interface {
	Notify(ctx context.Context, changed []string) error
}

// Reconfigure reloads the configuration and returns the service to use from
// now on.
type Reconfigure func(ctx context.Context) (*build.Service, error)

// Orchestrator owns the incremental build state.
type Orchestrator struct {
	building atomic.Bool

	mu          sync.RWMutex
	svc         *build.Service
	st          *site.State
	notifiers   []Notifier
	reconfigure Reconfigure
	onRoots     func(roots []string)
	logger      *slog.Logger

	wg sync.WaitGroup
}

// New creates an orchestrator over the state of a completed full build.
func New(svc *build.Service, st *site.State) *Orchestrator {
	return &Orchestrator{svc: svc, st: st, logger: slog.Default()}
}

// WithNotifier adds a reload notifier.
func (o *Orchestrator) WithNotifier(n Notifier) *Orchestrator {
	o.notifiers = append(o.notifiers, n)
	return o
}

// WithReconfigure sets how configuration changes are reloaded. Without it a
// configuration change still triggers a full rebuild with the current one.
func (o *Orchestrator) WithReconfigure(fn Reconfigure) *Orchestrator {
	o.reconfigure = fn
	return o
}

// OnRoots registers a callback receiving the watch roots after every
// configuration change.
func (o *Orchestrator) OnRoots(fn func(roots []string)) *Orchestrator {
	o.onRoots = fn
	return o
}

// WithLogger sets a custom logger.
func (o *Orchestrator) WithLogger(logger *slog.Logger) *Orchestrator {
	o.logger = logger
	return o
}

// State returns the current build state.
func (o *Orchestrator) State() *site.State {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.st
}

// Service returns the current build service.
func (o *Orchestrator) Service() *build.Service {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.svc
}

// Building reports whether a build is in progress.
func (o *Orchestrator) Building() bool { return o.building.Load() }

// Handle processes ev synchronously. It returns a dropped outcome at once if
// another build is running.
func (o *Orchestrator) Handle(ctx context.Context, ev Event) (Outcome, error) {
	if !o.acquire(ev) {
		return Outcome{Dropped: true}, nil
	}
	defer o.building.Store(false)
	return o.handle(ctx, ev)
}

// Dispatch processes ev in the background. It returns false when the event
// was dropped. Errors are logged; the orchestrator keeps going.
func (o *Orchestrator) Dispatch(ctx context.Context, ev Event) bool {
	if !o.acquire(ev) {
		return false
	}
	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.building.Store(false)
		if _, err := o.handle(ctx, ev); err != nil {
			o.logger.Error("Incremental build failed",
				logfields.Event(string(ev.Kind)), logfields.Path(ev.Path), logfields.Error(err))
		}
	}()
	return true
}

// Resync runs a full build without cleaning unless one is already running.
// Configuration changes clean first when the configuration asks for it.
func (o *Orchestrator) Resync(ctx context.Context) (Outcome, error) {
	if !o.building.CompareAndSwap(false, true) {
		o.Service().Recorder().IncDroppedEvents()
		o.logger.Debug("Skipping resync while building")
		return Outcome{Dropped: true}, nil
	}
	defer o.building.Store(false)
	rep, err := o.full(ctx, false)
	return o.finish(ctx, rep), err
}

// Wait blocks until every dispatched event has been handled.
func (o *Orchestrator) Wait() { o.wg.Wait() }

func (o *Orchestrator) acquire(ev Event) bool {
	if o.building.CompareAndSwap(false, true) {
		return true
	}
	o.Service().Recorder().IncDroppedEvents()
	o.logger.Debug("Dropping event while building",
		logfields.Event(string(ev.Kind)), logfields.Path(ev.Path))
	return false
}

func (o *Orchestrator) handle(ctx context.Context, ev Event) (Outcome, error) {
	start := time.Now()
	ev.Path = filepath.Clean(ev.Path)
	st := o.State()
	class := Classify(st, ev.Path)
	o.logger.Debug("Handling event",
		logfields.Event(string(ev.Kind)), logfields.Path(ev.Path), slog.String("class", string(class)))

	var (
		rep *build.Report
		err error
	)
	switch class {
	case ClassUninteresting:
		return Outcome{}, nil
	case ClassConfig:
		rep, err = o.configChanged(ctx, ev)
	default:
		kind, p := planFor(ctx, st, class, ev)
		rep, err = o.Service().Commit(ctx, st, kind, ev.Path, p)
	}
	o.Service().Recorder().ObserveEventDuration(string(class), time.Since(start))
	return o.finish(ctx, rep), err
}

func (o *Orchestrator) configChanged(ctx context.Context, ev Event) (*build.Report, error) {
	if o.reconfigure != nil && o.Service().Layout().ConfigPath == ev.Path {
		svc, err := o.reconfigure(ctx)
		if err != nil {
			o.logger.Error("Failed to reload configuration; keeping the previous one", logfields.Error(err))
		} else {
			o.mu.Lock()
			o.svc = svc
			o.mu.Unlock()
		}
	}
	rep, err := o.full(ctx, o.Service().CleanByDefault())
	if o.onRoots != nil {
		o.onRoots(o.Service().Layout().WatchRoots())
	}
	return rep, err
}

// full rebuilds from a fresh state, which then replaces the current one.
func (o *Orchestrator) full(ctx context.Context, clean bool) (*build.Report, error) {
	st, rep, err := o.Service().Full(ctx, clean)
	if st != nil {
		o.mu.Lock()
		o.st = st
		o.mu.Unlock()
	}
	return rep, err
}

func (o *Orchestrator) finish(ctx context.Context, rep *build.Report) Outcome {
	if rep == nil {
		return Outcome{}
	}
	out := Outcome{Changed: rep.Changed, Reload: len(rep.Changed) > 0}
	if !out.Reload {
		return out
	}
	o.Service().Recorder().IncReloads()
	for _, n := range o.notifiers {
		if err := n.Notify(ctx, rep.Changed); err != nil {
			o.logger.Warn("Reload notification failed", logfields.Error(err))
		}
	}
	return out
}
