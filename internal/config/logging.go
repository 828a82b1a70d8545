package config

import (
	"io"
	"log/slog"

	"git.home.luguber.info/inful/satsuma/internal/foundation/normalization"
)

// LogFormat enumerates supported log output formats.
type LogFormat string

const (
	LogFormatJSON LogFormat = "json"
	LogFormatText LogFormat = "text"
)

var logLevels = normalization.NewEnum("log level", map[string]slog.Level{
	"debug":   slog.LevelDebug,
	"info":    slog.LevelInfo,
	"warn":    slog.LevelWarn,
	"warning": slog.LevelWarn,
	"error":   slog.LevelError,
}, slog.LevelInfo)

var logFormats = normalization.NewEnum("log format", map[string]LogFormat{
	"json": LogFormatJSON,
	"text": LogFormatText,
}, LogFormatText)

// SlogLevel returns the configured level, defaulting to info.
func (l LogConfig) SlogLevel() slog.Level {
	return logLevels.Normalize(l.Level)
}

// OutputFormat returns the configured format, defaulting to text.
func (l LogConfig) OutputFormat() LogFormat {
	return logFormats.Normalize(l.Format)
}

// NewHandler builds the slog handler for the configured format.
func NewHandler(w io.Writer, level slog.Level, format LogFormat) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if format == LogFormatJSON {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// ParseLogLevel maps a level name (as used by SATSUMA_LOG_LEVEL) to a slog level.
func ParseLogLevel(raw string) slog.Level {
	return logLevels.Normalize(raw)
}
