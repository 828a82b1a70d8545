// Package commit applies plans to a storage adapter.
package commit

import (
	"context"
	"crypto/sha256"
	"log/slog"
	"sort"
	"sync"
	"time"

	"git.home.luguber.info/inful/satsuma/internal/action"
	"git.home.luguber.info/inful/satsuma/internal/foundation/errors"
	"git.home.luguber.info/inful/satsuma/internal/limiter"
	"git.home.luguber.info/inful/satsuma/internal/logfields"
	"git.home.luguber.info/inful/satsuma/internal/metrics"
	"git.home.luguber.info/inful/satsuma/internal/plan"
	"git.home.luguber.info/inful/satsuma/internal/safepath"
	"git.home.luguber.info/inful/satsuma/internal/storage"
)

// Options configure a commit.
type Options struct {
	// Concurrency bounds in-flight actions; values below 1 fall back to
	// limiter.DefaultConcurrency.
	Concurrency int
	// PublicRoot is the directory every output must stay inside.
	PublicRoot string
	Logger     *slog.Logger
	Recorder   metrics.Recorder
}

// Result summarises a commit.
type Result struct {
	// Changed lists, sorted and de-duplicated, the outputs that actually changed.
	Changed   []string
	Actions   int
	Unchanged int
	Dropped   int
	Peak      int
	Duration  time.Duration
}

// Commit applies every action of p through fs.
//
// Writes and copies hash the new bytes and skip the write when the existing
// target already holds them. Removals of missing targets succeed silently.
// Actions run concurrently under the limiter, except that a switch between
// removals and writes waits for all in-flight work first. A planning or
// storage error stops scheduling; in-flight work drains before it is returned.
func Commit(ctx context.Context, p plan.Plan, fs storage.Adapter, opts Options) (Result, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	recorder := opts.Recorder
	if recorder == nil {
		recorder = metrics.NoopRecorder{}
	}
	lim, err := limiter.New(limiter.Resolve(opts.Concurrency))
	if err != nil {
		return Result{}, err
	}

	c := &committer{
		fs:       fs,
		root:     opts.PublicRoot,
		logger:   logger,
		recorder: recorder,
		changed:  make(map[string]struct{}),
	}

	var (
		batch       []*limiter.Task
		batchRemove bool
		firstErr    error
	)
	drain := func() {
		if err := limiter.WaitAll(batch); err != nil && firstErr == nil {
			firstErr = err
		}
		batch = batch[:0]
	}

	for a, perr := range p {
		if perr != nil {
			firstErr = perr
			break
		}
		if c.failed() {
			break
		}
		if len(batch) > 0 && a.IsRemoval() != batchRemove {
			drain()
			if firstErr != nil {
				break
			}
		}
		batchRemove = a.IsRemoval()
		c.count()
		batch = append(batch, lim.Go(ctx, func(ctx context.Context) error {
			return c.apply(ctx, a)
		}))
	}
	drain()

	res := c.result()
	res.Peak = lim.Peak()
	res.Duration = time.Since(start)
	recorder.SetCommitConcurrency(res.Peak)
	if firstErr == nil {
		firstErr = c.err()
	}
	return res, firstErr
}

type committer struct {
	fs       storage.Adapter
	root     string
	logger   *slog.Logger
	recorder metrics.Recorder

	mu        sync.Mutex
	changed   map[string]struct{}
	actions   int
	unchanged int
	dropped   int
	firstErr  error
}

func (c *committer) count() {
	c.mu.Lock()
	c.actions++
	c.mu.Unlock()
}

func (c *committer) failed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firstErr != nil
}

func (c *committer) err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.firstErr
}

func (c *committer) result() Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	changed := make([]string, 0, len(c.changed))
	for p := range c.changed {
		changed = append(changed, p)
	}
	sort.Strings(changed)
	return Result{Changed: changed, Actions: c.actions, Unchanged: c.unchanged, Dropped: c.dropped}
}

func (c *committer) apply(ctx context.Context, a action.Action) error {
	if err := safepath.Check(c.root, a.Output); err != nil {
		c.logger.Warn("Refusing action outside public directory",
			logfields.Action(string(a.Kind)), logfields.Output(a.Output))
		c.mu.Lock()
		c.dropped++
		c.mu.Unlock()
		c.recorder.IncActionResult(string(a.Kind), metrics.ActionDropped)
		return nil
	}

	var (
		changed bool
		err     error
	)
	switch a.Kind {
	case action.KindWrite:
		changed, err = c.write(ctx, a.Output, a.Content)
	case action.KindCopy:
		var data []byte
		data, err = c.fs.ReadFile(ctx, a.Source)
		if err == nil {
			changed, err = c.write(ctx, a.Output, data)
		}
	case action.KindRemove:
		changed, err = c.remove(ctx, a.Output)
	default:
		err = errors.InternalError("unknown action kind").WithContext("kind", string(a.Kind)).Build()
	}

	if err != nil {
		c.recorder.IncActionResult(string(a.Kind), metrics.ActionFailed)
		wrapped := errors.WrapError(err, errors.CategoryFileSystem, "commit action failed").
			WithContext("action", string(a.Kind)).
			WithContext("output", a.Output).
			Build()
		c.mu.Lock()
		if c.firstErr == nil {
			c.firstErr = wrapped
		}
		c.mu.Unlock()
		return wrapped
	}

	c.mu.Lock()
	if changed {
		c.changed[a.Output] = struct{}{}
	} else {
		c.unchanged++
	}
	c.mu.Unlock()

	if changed {
		c.recorder.IncActionResult(string(a.Kind), metrics.ActionChanged)
		if a.Meta.Label != "" {
			c.logger.Info(a.Meta.Label, logfields.Output(a.Output))
		} else {
			c.logger.Debug("Updated", logfields.Action(string(a.Kind)), logfields.Output(a.Output))
		}
	} else {
		c.recorder.IncActionResult(string(a.Kind), metrics.ActionUnchanged)
		c.logger.Debug("Unchanged", logfields.Action(string(a.Kind)), logfields.Output(a.Output))
	}
	return nil
}

// write stores data unless the target already holds the same content.
func (c *committer) write(ctx context.Context, out string, data []byte) (bool, error) {
	existing, err := c.fs.ReadFile(ctx, out)
	switch {
	case err == nil:
		if Hash(existing) == Hash(data) {
			return false, nil
		}
	case storage.IsNotExist(err):
	default:
		return false, err
	}
	if err := c.fs.WriteFile(ctx, out, data); err != nil {
		return false, err
	}
	return true, nil
}

func (c *committer) remove(ctx context.Context, out string) (bool, error) {
	ok, err := c.fs.Exists(ctx, out)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	if err := c.fs.Remove(ctx, out); err != nil {
		return false, err
	}
	return true, nil
}

// Hash is the content digest used to detect no-op writes.
func Hash(data []byte) [sha256.Size]byte {
	return sha256.Sum256(data)
}
