// Package limiter provides bounded-parallelism task admission.
//
// A Limiter admits at most N tasks at a time. Callers that arrive while all
// slots are busy wait in FIFO order; a completing task immediately admits the
// next waiter.
package limiter

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/semaphore"

	ferrors "git.home.luguber.info/inful/satsuma/internal/foundation/errors"
)

// DefaultConcurrency is used by callers whose configured bound is unset or invalid.
const DefaultConcurrency = 8

// Limiter gates task admission with a FIFO weighted semaphore.
type Limiter struct {
	sem    *semaphore.Weighted
	size   int
	active atomic.Int64
	peak   atomic.Int64
}

// New creates a limiter admitting up to concurrency tasks at once.
// concurrency must be a positive integer.
func New(concurrency int) (*Limiter, error) {
	if concurrency < 1 {
		return nil, ferrors.ConfigError("concurrency must be a positive integer").
			WithContext("concurrency", concurrency).
			Build()
	}
	return &Limiter{sem: semaphore.NewWeighted(int64(concurrency)), size: concurrency}, nil
}

// Resolve returns value when it is a usable bound, DefaultConcurrency otherwise.
func Resolve(value int) int {
	if value < 1 {
		return DefaultConcurrency
	}
	return value
}

// Size returns the configured bound.
func (l *Limiter) Size() int { return l.size }

// Peak returns the highest number of simultaneously running tasks observed.
func (l *Limiter) Peak() int { return int(l.peak.Load()) }

// Task is the handle of a scheduled task.
type Task struct {
	done chan struct{}
	err  error
}

// Wait blocks until the task finished and returns its error.
func (t *Task) Wait() error {
	<-t.done
	return t.err
}

// Done is closed once the task finished.
func (t *Task) Done() <-chan struct{} { return t.done }

// Go waits for a free slot, then runs task in its own goroutine.
//
// Admission happens in the caller's goroutine so that successive calls are
// admitted in call order. If ctx ends while waiting, the returned task is
// already finished with ctx.Err().
func (l *Limiter) Go(ctx context.Context, task func(context.Context) error) *Task {
	t := &Task{done: make(chan struct{})}
	if err := l.sem.Acquire(ctx, 1); err != nil {
		t.err = err
		close(t.done)
		return t
	}
	l.enter()
	go func() {
		defer close(t.done)
		defer l.sem.Release(1)
		defer l.active.Add(-1)
		t.err = task(ctx)
	}()
	return t
}

// Do runs task synchronously once a slot is free.
func (l *Limiter) Do(ctx context.Context, task func(context.Context) error) error {
	return l.Go(ctx, task).Wait()
}

func (l *Limiter) enter() {
	n := l.active.Add(1)
	for {
		p := l.peak.Load()
		if n <= p || l.peak.CompareAndSwap(p, n) {
			return
		}
	}
}

// WaitAll waits for every task and returns the first non-nil error in slice order.
func WaitAll(tasks []*Task) error {
	var first error
	for _, t := range tasks {
		if err := t.Wait(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
