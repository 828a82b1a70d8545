// Package config loads satsuma.yaml, the optional globals file, and resolves the
// project directory layout.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
)

// DefaultConfigFile is the configuration filename looked up when none is given.
const DefaultConfigFile = "satsuma.yaml"

// DefaultGlobalsFile sits next to the configuration file.
const DefaultGlobalsFile = "globals.yaml"

// Config represents the project configuration.
type Config struct {
	Server      ServerConfig      `yaml:"server"`
	Directories DirectoriesConfig `yaml:"directories"`
	Build       BuildConfig       `yaml:"build"`
	Watch       WatchConfig       `yaml:"watch"`
	Log         LogConfig         `yaml:"log"`
	Metrics     MetricsConfig     `yaml:"metrics"`
	Journal     JournalConfig     `yaml:"journal"`
	Notify      NotifyConfig      `yaml:"notify"`

	// path of the file this configuration was read from; empty for in-memory configs
	path string
}

// ServerConfig controls the development server.
type ServerConfig struct {
	Port       int  `yaml:"port"`
	LiveReload bool `yaml:"livereload"`
}

// DirectoriesConfig names the project directories. Source and Public are
// relative to the configuration file; the rest are relative to Source.
type DirectoriesConfig struct {
	Source    string `yaml:"source"`
	Public    string `yaml:"public"`
	Pages     string `yaml:"pages"`
	Templates string `yaml:"templates"`
	Styles    string `yaml:"styles"`
	Assets    string `yaml:"assets"`
	Scripts   string `yaml:"scripts"`
}

// BuildConfig tunes the build engine.
type BuildConfig struct {
	Concurrency   int    `yaml:"concurrency"`
	Clean         *bool  `yaml:"clean,omitempty"`
	PageExtension string `yaml:"page_extension"`
	SassBinary    string `yaml:"sass_binary,omitempty"`
}

// WatchConfig tunes the file watcher.
type WatchConfig struct {
	Settle         string `yaml:"settle"`
	ResyncInterval string `yaml:"resync_interval,omitempty"`
}

// LogConfig selects log level and format.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig exposes Prometheus metrics on the development server.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// JournalConfig points at the sqlite build journal. Empty disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// NotifyConfig publishes reload signals to NATS. Empty URL disables it.
type NotifyConfig struct {
	NATSURL string `yaml:"nats_url"`
	Subject string `yaml:"subject"`
}

// Load reads, expands and validates the configuration file at configPath.
func Load(configPath string) (*Config, error) {
	if configPath == "" {
		configPath = DefaultConfigFile
	}
	abs, err := filepath.Abs(configPath)
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "resolve config path").Fatal().Build()
	}
	loadEnvFiles(filepath.Dir(abs))

	data, err := os.ReadFile(abs) // #nosec G304 -- user-selected config file
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.ConfigError("configuration file not found").
				WithContext("path", abs).
				WithCause(err).
				Build()
		}
		return nil, errors.WrapError(err, errors.CategoryConfig, "read config file").Fatal().Build()
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}
	cfg.path = abs
	return cfg, nil
}

// Parse decodes configuration bytes, expanding ${VAR} references, applying
// defaults and validating the result.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to unmarshal config").Fatal().Build()
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 3000
	}
	d := &c.Directories
	if d.Templates == "" {
		d.Templates = "templates"
	}
	if d.Styles == "" {
		d.Styles = "styles"
	}
	if d.Assets == "" {
		d.Assets = "assets"
	}
	if d.Scripts == "" {
		d.Scripts = "scripts"
	}
	if c.Build.PageExtension == "" {
		c.Build.PageExtension = ".tmpl"
	}
	if !strings.HasPrefix(c.Build.PageExtension, ".") {
		c.Build.PageExtension = "." + c.Build.PageExtension
	}
	if c.Build.Clean == nil {
		clean := true
		c.Build.Clean = &clean
	}
	if c.Watch.Settle == "" {
		c.Watch.Settle = "50ms"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Notify.Subject == "" {
		c.Notify.Subject = "satsuma.reload"
	}
}

// Validate performs the shallow shape check done before any build work.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Directories.Source) == "" {
		return errors.ConfigError("directories.source is required").Build()
	}
	if strings.TrimSpace(c.Directories.Public) == "" {
		return errors.ConfigError("directories.public is required").Build()
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return errors.ConfigError(fmt.Sprintf("server.port out of range: %d", c.Server.Port)).Build()
	}
	if _, err := time.ParseDuration(c.Watch.Settle); err != nil {
		return errors.WrapError(err, errors.CategoryConfig, "invalid watch.settle").Fatal().Build()
	}
	if c.Watch.ResyncInterval != "" {
		if _, err := time.ParseDuration(c.Watch.ResyncInterval); err != nil {
			return errors.WrapError(err, errors.CategoryConfig, "invalid watch.resync_interval").Fatal().Build()
		}
	}
	if _, err := logLevels.Parse(c.Log.Level); err != nil {
		return err
	}
	if _, err := logFormats.Parse(c.Log.Format); err != nil {
		return err
	}
	return nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string { return c.path }

// CleanBeforeBuild reports whether a full build starts by emptying the public root.
func (c *Config) CleanBeforeBuild() bool {
	return c.Build.Clean == nil || *c.Build.Clean
}

// Settle returns the watcher settle delay.
func (c *Config) Settle() time.Duration {
	d, _ := time.ParseDuration(c.Watch.Settle)
	return d
}

// ResyncInterval returns the periodic full rebuild interval; zero disables it.
func (c *Config) ResyncInterval() time.Duration {
	if c.Watch.ResyncInterval == "" {
		return 0
	}
	d, _ := time.ParseDuration(c.Watch.ResyncInterval)
	return d
}
