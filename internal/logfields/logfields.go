package logfields

import (
	"log/slog"
	"time"
)

// Canonical log field name constants to avoid drift across packages.
const (
	KeyBuildID    = "build_id"
	KeyBuildKind  = "build_kind"
	KeyPage       = "page"
	KeyTemplate   = "template"
	KeyEntry      = "entry"
	KeyOutput     = "output"
	KeySource     = "source"
	KeyPath       = "path"
	KeyEvent      = "event"
	KeyAction     = "action"
	KeyChanged    = "changed"
	KeyCount      = "count"
	KeyDurationMS = "duration_ms"
	KeyError      = "error"
)

// Simple helpers returning slog.Attr. Keeping each granular means callers can compose.
func BuildID(id string) slog.Attr     { return slog.String(KeyBuildID, id) }
func BuildKind(k string) slog.Attr    { return slog.String(KeyBuildKind, k) }
func Page(p string) slog.Attr         { return slog.String(KeyPage, p) }
func Template(t string) slog.Attr     { return slog.String(KeyTemplate, t) }
func Entry(e string) slog.Attr        { return slog.String(KeyEntry, e) }
func Output(o string) slog.Attr       { return slog.String(KeyOutput, o) }
func Source(s string) slog.Attr       { return slog.String(KeySource, s) }
func Path(p string) slog.Attr         { return slog.String(KeyPath, p) }
func Event(kind string) slog.Attr     { return slog.String(KeyEvent, kind) }
func Action(kind string) slog.Attr    { return slog.String(KeyAction, kind) }
func Changed(n int) slog.Attr         { return slog.Int(KeyChanged, n) }
func Count(n int) slog.Attr           { return slog.Int(KeyCount, n) }
func DurationMS(ms float64) slog.Attr { return slog.Float64(KeyDurationMS, ms) }

// Since reports the elapsed time since start in milliseconds.
func Since(start time.Time) slog.Attr {
	return DurationMS(float64(time.Since(start).Microseconds()) / 1000)
}

func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(KeyError, "")
	}
	return slog.String(KeyError, err.Error())
}
