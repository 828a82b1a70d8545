// Package journal records a history of committed builds in SQLite.
package journal

import (
	"context"
	"time"
)

// Entry is one committed build.
type Entry struct {
	ID        int64
	BuildID   string
	Kind      string
	Trigger   string
	Started   time.Time
	Duration  time.Duration
	Changed   []string
	Unchanged int
	Dropped   int
	Error     string
}

// Failed reports whether the build ended with an error.
func (e Entry) Failed() bool { return e.Error != "" }

// Store persists and lists journal entries.
type Store interface {
	// Append records a finished build.
	Append(ctx context.Context, e Entry) error

	// Recent returns up to n entries, newest first.
	Recent(ctx context.Context, n int) ([]Entry, error)

	// Close releases the underlying database.
	Close() error
}
