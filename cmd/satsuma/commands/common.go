package commands

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"
	prom "github.com/prometheus/client_golang/prometheus"

	"git.home.luguber.info/inful/satsuma/internal/build"
	"git.home.luguber.info/inful/satsuma/internal/config"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/journal"
	"git.home.luguber.info/inful/satsuma/internal/logfields"
	"git.home.luguber.info/inful/satsuma/internal/metrics"
	"git.home.luguber.info/inful/satsuma/internal/storage"
)

// LogLevelEnv overrides the configured log level.
const LogLevelEnv = "SATSUMA_LOG_LEVEL"

// Global carries state shared by all commands.
type Global struct {
	Out io.Writer
}

func (g *Global) out() io.Writer {
	if g == nil || g.Out == nil {
		return os.Stdout
	}
	return g.Out
}

// CLI definition & global flags.
type CLI struct {
	Config  string           `short:"c" help:"Configuration file path" default:"satsuma.yaml" type:"path"`
	Verbose bool             `short:"v" help:"Enable verbose logging"`
	Version kong.VersionFlag `name:"version" help:"Show version and exit"`

	Build   BuildCmd   `cmd:"" help:"Build the whole site into the public directory"`
	Serve   ServeCmd   `cmd:"" help:"Build, serve with live reload and rebuild on change"`
	Clean   CleanCmd   `cmd:"" help:"Empty the public directory"`
	Init    InitCmd    `cmd:"" help:"Create a configuration file and a starter project"`
	History HistoryCmd `cmd:"" help:"Show recent builds from the journal"`
}

// AfterApply runs after flag parsing; the config file may refine the level later.
// nolint:unparam // AfterApply currently never returns an error.
func (c *CLI) AfterApply() error {
	level := slog.LevelInfo
	if env := os.Getenv(LogLevelEnv); env != "" {
		level = config.ParseLogLevel(env)
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(config.NewHandler(os.Stderr, level, config.LogFormatText)))
	return nil
}

// applyLogConfig switches to the configured level and format. --verbose and
// SATSUMA_LOG_LEVEL keep precedence over the file.
func (c *CLI) applyLogConfig(l config.LogConfig) {
	level := l.SlogLevel()
	if env := os.Getenv(LogLevelEnv); env != "" {
		level = config.ParseLogLevel(env)
	}
	if c.Verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(config.NewHandler(os.Stderr, level, l.OutputFormat())))
}

// project is a loaded configuration with its build service.
type project struct {
	cfg      *config.Config
	layout   config.Layout
	svc      *build.Service
	registry *prom.Registry
	journal  journal.Store
}

func openProject(root *CLI) (*project, error) {
	cfg, err := config.Load(root.Config)
	if err != nil {
		return nil, err
	}
	root.applyLogConfig(cfg.Log)
	layout, err := cfg.Layout()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to resolve layout").Build()
	}
	compiler, err := build.NewCompiler(cfg)
	if err != nil {
		return nil, err
	}
	slog.Debug("Loaded configuration",
		logfields.Path(cfg.Path()),
		slog.String("source", layout.SourceDir),
		slog.String("public", layout.PublicDir),
		slog.String("compiler", build.CompilerName(compiler)))

	p := &project{
		cfg:    cfg,
		layout: layout,
		svc:    build.NewService(cfg, layout, storage.NewOS()).WithCompiler(compiler).WithLogger(slog.Default()),
	}
	if cfg.Metrics.Enabled {
		p.registry = metrics.NewRegistry()
		p.svc.WithRecorder(metrics.NewPrometheusRecorder(p.registry))
	}
	if cfg.Journal.Path != "" {
		j, err := openJournal(cfg, layout)
		if err != nil {
			_ = p.svc.Close()
			return nil, err
		}
		p.journal = j
		p.svc.WithJournal(j)
	}
	return p, nil
}

func openJournal(cfg *config.Config, layout config.Layout) (journal.Store, error) {
	path := cfg.Journal.Path
	if !filepath.IsAbs(path) {
		path = filepath.Join(layout.Root, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, errors.WrapError(err, errors.CategoryFileSystem, "failed to create journal directory").
			WithContext("path", path).
			Build()
	}
	return journal.NewSQLiteStore(path)
}

func (p *project) Close() {
	if err := p.svc.Close(); err != nil {
		slog.Warn("Failed to stop stylesheet compiler", logfields.Error(err))
	}
	if p.journal != nil {
		if err := p.journal.Close(); err != nil {
			slog.Warn("Failed to close journal", logfields.Error(err))
		}
	}
}
