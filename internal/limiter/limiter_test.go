package limiter

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/satsuma/internal/foundation/errors"
)

func TestNew_RejectsNonPositive(t *testing.T) {
	for _, n := range []int{0, -1} {
		_, err := New(n)
		require.Error(t, err)
		require.True(t, ferrors.HasCategory(err, ferrors.CategoryConfig))
	}
}

func TestResolve(t *testing.T) {
	require.Equal(t, DefaultConcurrency, Resolve(0))
	require.Equal(t, DefaultConcurrency, Resolve(-3))
	require.Equal(t, 3, Resolve(3))
}

func TestGo_NeverExceedsBound(t *testing.T) {
	l, err := New(3)
	require.NoError(t, err)

	var inFlight, maxSeen atomic.Int64
	tasks := make([]*Task, 0, 20)
	for range 20 {
		tasks = append(tasks, l.Go(t.Context(), func(context.Context) error {
			n := inFlight.Add(1)
			for {
				m := maxSeen.Load()
				if n <= m || maxSeen.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			inFlight.Add(-1)
			return nil
		}))
	}
	require.NoError(t, WaitAll(tasks))
	require.LessOrEqual(t, maxSeen.Load(), int64(3))
	require.LessOrEqual(t, l.Peak(), 3)
}

func TestGo_AdmitsInCallOrder(t *testing.T) {
	l, err := New(1)
	require.NoError(t, err)

	var mu sync.Mutex
	var order []int
	tasks := make([]*Task, 0, 5)
	for i := range 5 {
		tasks = append(tasks, l.Go(t.Context(), func(context.Context) error {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return nil
		}))
	}
	require.NoError(t, WaitAll(tasks))
	require.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestWaitAll_ReturnsFirstErrorAfterAllFinish(t *testing.T) {
	l, err := New(2)
	require.NoError(t, err)

	var finished atomic.Int64
	boom := errors.New("boom")
	tasks := []*Task{
		l.Go(t.Context(), func(context.Context) error { finished.Add(1); return boom }),
		l.Go(t.Context(), func(context.Context) error {
			time.Sleep(10 * time.Millisecond)
			finished.Add(1)
			return nil
		}),
	}
	require.ErrorIs(t, WaitAll(tasks), boom)
	require.Equal(t, int64(2), finished.Load())
}

func TestGo_CanceledWhileWaiting(t *testing.T) {
	l, err := New(1)
	require.NoError(t, err)

	release := make(chan struct{})
	blocker := l.Go(t.Context(), func(context.Context) error { <-release; return nil })

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	task := l.Go(ctx, func(context.Context) error { return nil })
	require.ErrorIs(t, task.Wait(), context.Canceled)

	close(release)
	require.NoError(t, blocker.Wait())
}
