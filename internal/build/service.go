package build

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/satsuma/internal/commit"
	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/journal"
	"git.home.luguber.info/inful/satsuma/internal/logfields"
	"git.home.luguber.info/inful/satsuma/internal/metrics"
	"git.home.luguber.info/inful/satsuma/internal/plan"
	"git.home.luguber.info/inful/satsuma/internal/site"
	"git.home.luguber.info/inful/satsuma/internal/storage"
	"git.home.luguber.info/inful/satsuma/internal/styles"
)

// Kind names what a build covered.
type Kind string

const (
	KindFull   Kind = "full"
	KindClean  Kind = "clean"
	KindPages  Kind = "pages"
	KindStyles Kind = "styles"
	KindAssets Kind = "assets"
)

// Status represents the outcome of a build.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// IsSuccess returns true if the build completed.
func (s Status) IsSuccess() bool { return s == StatusSuccess }

// Report describes one committed build.
type Report struct {
	ID      string
	Kind    Kind
	Trigger string
	Status  Status
	commit.Result
}

// Service runs builds against one project layout.
type Service struct {
	cfg      *config.Config
	layout   config.Layout
	fs       storage.Adapter
	compiler styles.Compiler
	recorder metrics.Recorder
	journal  journal.Store
	logger   *slog.Logger
}

// NewService creates a service. cfg may be nil, in which case builds use
// defaults and never clean first.
func NewService(cfg *config.Config, layout config.Layout, fs storage.Adapter) *Service {
	return &Service{
		cfg:      cfg,
		layout:   layout,
		fs:       fs,
		compiler: styles.NewInliner(),
		recorder: metrics.NoopRecorder{},
		logger:   slog.Default(),
	}
}

// WithRecorder sets the metrics recorder.
func (s *Service) WithRecorder(r metrics.Recorder) *Service {
	if r != nil {
		s.recorder = r
	}
	return s
}

// WithJournal records every commit in j.
func (s *Service) WithJournal(j journal.Store) *Service {
	s.journal = j
	return s
}

// WithCompiler sets the stylesheet compiler.
func (s *Service) WithCompiler(c styles.Compiler) *Service {
	if c != nil {
		s.compiler = c
	}
	return s
}

// WithLogger sets a custom logger.
func (s *Service) WithLogger(logger *slog.Logger) *Service {
	s.logger = logger
	return s
}

// Reconfigured returns a service for a new configuration and layout that
// shares this one's storage, compiler, recorder, journal and logger.
func (s *Service) Reconfigured(cfg *config.Config, layout config.Layout) *Service {
	c := *s
	c.cfg = cfg
	c.layout = layout
	return &c
}

// Layout returns the project layout.
func (s *Service) Layout() config.Layout { return s.layout }

// Config returns the configuration, which may be nil.
func (s *Service) Config() *config.Config { return s.cfg }

// Recorder returns the metrics recorder.
func (s *Service) Recorder() metrics.Recorder { return s.recorder }

// Logger returns the service logger.
func (s *Service) Logger() *slog.Logger { return s.logger }

// NewState constructs a fresh build state sharing this service's compiler.
func (s *Service) NewState(ctx context.Context) (*site.State, error) {
	st, err := site.New(ctx, s.layout, s.fs)
	if err != nil {
		return nil, err
	}
	return st.WithConfig(s.cfg).WithCompiler(s.compiler).WithLogger(s.logger), nil
}

// CleanByDefault reports whether full builds empty the public root first.
func (s *Service) CleanByDefault() bool {
	return s.cfg != nil && s.cfg.CleanBeforeBuild()
}

// Full builds the whole site from a fresh state. With clean, the public root
// is emptied first within the same commit.
func (s *Service) Full(ctx context.Context, clean bool) (*site.State, *Report, error) {
	st, err := s.NewState(ctx)
	if err != nil {
		return nil, nil, err
	}
	rep, err := s.Commit(ctx, st, KindFull, "", plan.Site(ctx, st, plan.SiteOptions{Clean: clean}))
	return st, rep, err
}

// Clean empties the public root.
func (s *Service) Clean(ctx context.Context) (*Report, error) {
	st, err := s.NewState(ctx)
	if err != nil {
		return nil, err
	}
	return s.Commit(ctx, st, KindClean, "", plan.Clean(ctx, st))
}

// Commit applies p, records metrics and appends a journal entry. trigger is
// the source path that caused an incremental build, if any.
func (s *Service) Commit(ctx context.Context, st *site.State, kind Kind, trigger string, p plan.Plan) (*Report, error) {
	id := uuid.NewString()
	logger := s.logger.With(logfields.BuildID(id), logfields.BuildKind(string(kind)))
	started := time.Now()

	res, err := commit.Commit(ctx, p, s.fs, commit.Options{
		Concurrency: s.concurrency(),
		PublicRoot:  st.Layout.PublicDir,
		Logger:      logger,
		Recorder:    s.recorder,
	})
	rep := &Report{ID: id, Kind: kind, Trigger: trigger, Status: StatusSuccess, Result: res}

	s.recorder.ObserveBuildDuration(string(kind), res.Duration)
	if err != nil {
		rep.Status = StatusFailed
		s.recorder.IncBuildOutcome(metrics.BuildOutcomeFailed)
		logger.Error("Build failed", logfields.Error(err), logfields.Since(started))
		err = errors.WrapError(err, errors.CategoryBuild, "build failed").
			WithContext("build_id", id).
			WithContext("kind", string(kind)).
			Build()
	} else {
		outcome := metrics.BuildOutcomeSuccess
		if res.Dropped > 0 {
			outcome = metrics.BuildOutcomeWarning
		}
		s.recorder.IncBuildOutcome(outcome)
		logger.Info("Build complete",
			logfields.Changed(len(res.Changed)),
			logfields.Count(res.Actions),
			logfields.Since(started))
	}

	s.record(ctx, logger, rep, started, err)
	return rep, err
}

func (s *Service) record(ctx context.Context, logger *slog.Logger, rep *Report, started time.Time, buildErr error) {
	if s.journal == nil {
		return
	}
	e := journal.Entry{
		BuildID:   rep.ID,
		Kind:      string(rep.Kind),
		Trigger:   rep.Trigger,
		Started:   started,
		Duration:  rep.Duration,
		Changed:   rep.Changed,
		Unchanged: rep.Unchanged,
		Dropped:   rep.Dropped,
	}
	if buildErr != nil {
		e.Error = buildErr.Error()
	}
	// a journal failure never fails the build
	if err := s.journal.Append(context.WithoutCancel(ctx), e); err != nil {
		logger.Warn("Failed to record build", logfields.Error(err))
	}
}

func (s *Service) concurrency() int {
	if s.cfg == nil {
		return 0
	}
	return s.cfg.Build.Concurrency
}

// Close releases the stylesheet compiler.
func (s *Service) Close() error {
	if c, ok := s.compiler.(styles.Closer); ok {
		return c.Close()
	}
	return nil
}
