// Package watch turns fsnotify events below a set of roots into settled
// add/change/unlink events.
package watch

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/satsuma/internal/ignore"
	"git.home.luguber.info/inful/satsuma/internal/logfields"
)

// Op is the settled kind of a change.
type Op string

const (
	Add    Op = "add"
	Change Op = "change"
	Unlink Op = "unlink"
)

// Event is one settled change to one path.
type Event struct {
	Op   Op
	Path string
}

// Watcher watches directory trees recursively and single files through
// their parent directory. Changes to the same path within the settle window
// collapse into one event.
type Watcher struct {
	fsw    *fsnotify.Watcher
	settle time.Duration
	logger *slog.Logger
	events chan Event

	mu        sync.Mutex
	dirRoots  []string
	fileRoots map[string]struct{}
	pending   map[string]Op
	timer     *time.Timer
}

// New creates a watcher. A non-positive settle emits each change at once.
func New(settle time.Duration) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{
		fsw:       fsw,
		settle:    settle,
		logger:    slog.Default(),
		events:    make(chan Event, 256),
		fileRoots: make(map[string]struct{}),
		pending:   make(map[string]Op),
	}, nil
}

// WithLogger sets a custom logger.
func (w *Watcher) WithLogger(logger *slog.Logger) *Watcher {
	w.logger = logger
	return w
}

// Events delivers settled events in path order per settle window.
func (w *Watcher) Events() <-chan Event { return w.events }

// Add starts watching roots. Directories are watched recursively; files
// through their parent directory. Missing roots are skipped.
func (w *Watcher) Add(roots ...string) error {
	for _, root := range roots {
		root = filepath.Clean(root)
		info, err := os.Stat(root)
		if err != nil {
			if os.IsNotExist(err) {
				w.logger.Debug("Watch root missing", logfields.Path(root))
				continue
			}
			return err
		}
		w.mu.Lock()
		if info.IsDir() {
			if !contains(w.dirRoots, root) {
				w.dirRoots = append(w.dirRoots, root)
			}
		} else {
			w.fileRoots[root] = struct{}{}
		}
		w.mu.Unlock()

		if info.IsDir() {
			if err := w.addRecursive(root); err != nil {
				return err
			}
			continue
		}
		if err := w.fsw.Add(filepath.Dir(root)); err != nil {
			return err
		}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			if err := w.fsw.Add(path); err != nil {
				w.logger.Warn("Watch add failed", logfields.Path(path), logfields.Error(err))
			}
		}
		return nil
	})
}

// accepts reports whether path lies under a watched tree or is a watched file.
func (w *Watcher) accepts(path string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.fileRoots[path]; ok {
		return true
	}
	for _, root := range w.dirRoots {
		rel, err := filepath.Rel(root, path)
		if err == nil && rel != "." && !strings.HasPrefix(rel, "..") {
			return true
		}
	}
	return false
}

// Run pumps fsnotify events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			w.handle(ev)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Watcher error", logfields.Error(err))
		}
	}
}

func (w *Watcher) handle(ev fsnotify.Event) {
	path := filepath.Clean(ev.Name)
	if ShouldIgnore(path) || !w.accepts(path) {
		return
	}
	switch {
	case ev.Has(fsnotify.Create):
		if info, err := os.Stat(path); err == nil && info.IsDir() {
			// files created before the watch was added are reported here
			_ = w.addRecursive(path)
			_ = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
				if err == nil && !d.IsDir() && !ShouldIgnore(p) {
					w.queue(p, Add)
				}
				return nil
			})
			return
		}
		w.queue(path, Add)
	case ev.Has(fsnotify.Write):
		w.queue(path, Change)
	case ev.Has(fsnotify.Remove), ev.Has(fsnotify.Rename):
		w.queue(path, Unlink)
	}
}

// merge folds a new op into a pending one. The second result is false when
// the two cancel out.
func merge(prev, next Op) (Op, bool) {
	switch {
	case prev == Add && next == Change:
		return Add, true
	case prev == Add && next == Unlink:
		return "", false
	case prev == Unlink && next == Add:
		return Change, true
	}
	return next, true
}

func (w *Watcher) queue(path string, op Op) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if prev, ok := w.pending[path]; ok {
		merged, keep := merge(prev, op)
		if !keep {
			delete(w.pending, path)
			return
		}
		op = merged
	}
	w.pending[path] = op
	if w.settle <= 0 {
		w.flushLocked()
		return
	}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.settle, w.flush)
}

func (w *Watcher) flush() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.flushLocked()
}

func (w *Watcher) flushLocked() {
	paths := make([]string, 0, len(w.pending))
	for p := range w.pending {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	for _, p := range paths {
		ev := Event{Op: w.pending[p], Path: p}
		select {
		case w.events <- ev:
		default:
			w.logger.Warn("Dropping watch event, consumer too slow", logfields.Path(p))
		}
	}
	w.pending = make(map[string]Op)
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.fsw.Close()
}

// ShouldIgnore reports editor droppings and hidden files. The ignore rules
// file itself is never ignored.
func ShouldIgnore(path string) bool {
	base := filepath.Base(path)
	if base == ignore.FileName {
		return false
	}
	if strings.HasPrefix(base, ".") {
		return true
	}
	if strings.HasSuffix(base, "~") ||
		strings.HasSuffix(base, ".swp") ||
		strings.HasSuffix(base, ".swx") ||
		strings.HasPrefix(base, "#") && strings.HasSuffix(base, "#") {
		return true
	}
	return base == "Thumbs.db"
}
