// Package preview runs the development loop: an initial full build, then
// watch-driven incremental builds served with live reload.
package preview

import (
	"context"
	"log/slog"
	"net"
	"time"

	"github.com/go-co-op/gocron/v2"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/satsuma/internal/build"
	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/devserver"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/livereload"
	"git.home.luguber.info/inful/satsuma/internal/logfields"
	"git.home.luguber.info/inful/satsuma/internal/metrics"
	"git.home.luguber.info/inful/satsuma/internal/orchestrator"
	"git.home.luguber.info/inful/satsuma/internal/watch"
)

const defaultSettle = 50 * time.Millisecond

// Preview wires the build service to a watcher and a dev server.
type Preview struct {
	svc      *build.Service
	registry *prom.Registry
	ready    chan *orchestrator.Orchestrator
	logger   *slog.Logger
}

// New creates a preview over svc.
func New(svc *build.Service) *Preview {
	return &Preview{svc: svc, ready: make(chan *orchestrator.Orchestrator, 1), logger: slog.Default()}
}

// WithMetrics exposes reg on the dev server at the configured metrics path.
func (p *Preview) WithMetrics(reg *prom.Registry) *Preview {
	p.registry = reg
	return p
}

// WithLogger sets a custom logger.
func (p *Preview) WithLogger(logger *slog.Logger) *Preview {
	p.logger = logger
	return p
}

// Ready delivers the orchestrator once the initial build is done and the
// watcher is running.
func (p *Preview) Ready() <-chan *orchestrator.Orchestrator { return p.ready }

// Run builds the site, then serves it on ln and rebuilds on change until
// ctx is done.
func (p *Preview) Run(ctx context.Context, ln net.Listener) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	svc := p.svc
	cfg := svc.Config()
	layout := svc.Layout()

	st, _, err := svc.Full(ctx, svc.CleanByDefault())
	if err != nil {
		if st == nil {
			return err
		}
		// keep serving whatever the failed build left behind
		p.logger.Error("Initial build failed", logfields.Error(err))
	}

	orch := orchestrator.New(svc, st).WithLogger(p.logger)
	if cfg != nil && cfg.Path() != "" {
		orch.WithReconfigure(reload(cfg.Path(), orch))
	}

	var hub *livereload.Hub
	if cfg == nil || cfg.Server.LiveReload {
		hub = livereload.NewHub().WithLogger(p.logger)
		orch.WithNotifier(hub)
	}
	if cfg != nil && cfg.Notify.NATSURL != "" {
		if stop := p.connectNATS(cfg.Notify, orch, hub); stop != nil {
			defer stop()
		}
	}

	settle := defaultSettle
	if cfg != nil {
		settle = cfg.Settle()
	}
	w, err := watch.New(settle)
	if err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "failed to create watcher").Build()
	}
	w.WithLogger(p.logger)
	defer func() { _ = w.Close() }()
	if err := w.Add(layout.WatchRoots()...); err != nil {
		return errors.WrapError(err, errors.CategoryRuntime, "failed to watch project").Build()
	}
	orch.OnRoots(func(roots []string) {
		if err := w.Add(roots...); err != nil {
			p.logger.Warn("Failed to watch new roots", logfields.Error(err))
		}
	})

	if cfg != nil && cfg.ResyncInterval() > 0 {
		stop, err := p.scheduleResync(ctx, orch, cfg.ResyncInterval())
		if err != nil {
			return err
		}
		defer stop()
	}

	go func() { _ = w.Run(ctx) }()
	go p.pump(ctx, w, orch)
	p.ready <- orch

	srv := devserver.New(layout.PublicDir).WithLogger(p.logger)
	if hub != nil {
		srv.WithLiveReload(hub)
	}
	if p.registry != nil && cfg != nil && cfg.Metrics.Enabled {
		srv.WithMetrics(cfg.Metrics.Path, metrics.HTTPHandler(p.registry))
	}
	err = srv.Serve(ctx, ln)
	cancel()
	orch.Wait()
	return err
}

func (p *Preview) pump(ctx context.Context, w *watch.Watcher, orch *orchestrator.Orchestrator) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-w.Events():
			orch.Dispatch(ctx, toEvent(ev))
		}
	}
}

func toEvent(ev watch.Event) orchestrator.Event {
	kind := orchestrator.Change
	switch ev.Op {
	case watch.Add:
		kind = orchestrator.Add
	case watch.Unlink:
		kind = orchestrator.Unlink
	}
	return orchestrator.Event{Kind: kind, Path: ev.Path}
}

// reload re-reads the configuration file and derives a service sharing the
// current one's dependencies.
func reload(path string, orch *orchestrator.Orchestrator) orchestrator.Reconfigure {
	return func(context.Context) (*build.Service, error) {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, err
		}
		layout, err := cfg.Layout()
		if err != nil {
			return nil, errors.WrapError(err, errors.CategoryConfig, "failed to resolve layout").Build()
		}
		return orch.Service().Reconfigured(cfg, layout), nil
	}
}

func (p *Preview) connectNATS(n config.NotifyConfig, orch *orchestrator.Orchestrator, hub *livereload.Hub) func() {
	pub, err := livereload.NewPublisher(n.NATSURL, n.Subject)
	if err != nil {
		p.logger.Warn("Reload fan-out disabled", logfields.Error(err))
		return nil
	}
	orch.WithNotifier(pub)
	if hub == nil {
		return func() { _ = pub.Close() }
	}
	sub, err := pub.Relay(hub)
	if err != nil {
		p.logger.Warn("Failed to relay reload signals", logfields.Error(err))
	}
	return func() {
		if sub != nil {
			_ = sub.Unsubscribe()
		}
		_ = pub.Close()
	}
}

// scheduleResync runs a full rebuild every interval to catch dropped events.
func (p *Preview) scheduleResync(ctx context.Context, orch *orchestrator.Orchestrator, interval time.Duration) (func(), error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to create scheduler").Build()
	}
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			if _, err := orch.Resync(ctx); err != nil {
				p.logger.Error("Resync failed", logfields.Error(err))
			}
		}),
		gocron.WithName("resync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, errors.WrapError(err, errors.CategoryRuntime, "failed to schedule resync").Build()
	}
	s.Start()
	p.logger.Info("Scheduled resync", slog.Duration("interval", interval))
	return func() { _ = s.Shutdown() }, nil
}
