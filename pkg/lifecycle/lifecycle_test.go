package lifecycle

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestManagerWaitsForTasks(t *testing.T) {
	m := NewManager(nil)
	var sawCancel atomic.Bool
	release := make(chan struct{})

	require.NoError(t, m.Go("worker", func(h *Handle) {
		assert.Equal(t, "worker", h.Name())
		<-release
		<-h.Done()
		sawCancel.Store(h.Ctx().Err() != nil)
	}))
	assert.Error(t, m.Go("worker", func(*Handle) {}), "同名任务不能同时运行")
	assert.Equal(t, []string{"worker"}, m.Running())

	close(release)
	m.Shutdown()
	assert.Empty(t, m.Wait(time.Second))
	assert.True(t, sawCancel.Load())
	assert.Empty(t, m.Running())
}

func TestGoAfterShutdown(t *testing.T) {
	m := NewManager(nil)
	m.Shutdown()
	assert.ErrorIs(t, m.Go("late", func(*Handle) {}), ErrStopped)
	assert.Empty(t, m.Wait(time.Second))
}

func TestManagerReportsStuckTasks(t *testing.T) {
	m := NewManager(nil)
	block := make(chan struct{})
	defer close(block)

	for _, name := range []string{"b", "a"} {
		require.NoError(t, m.Go(name, func(*Handle) { <-block }))
	}

	m.Shutdown()
	assert.Equal(t, []string{"a", "b"}, m.Wait(10*time.Millisecond))
}

func TestPanickingTaskIsUnregistered(t *testing.T) {
	m := NewManager(nil)
	require.NoError(t, m.Go("boom", func(*Handle) { panic("kaboom") }))
	assert.Empty(t, m.Wait(time.Second))

	// 任务退出后可以用同名重新启动
	require.NoError(t, m.Go("boom", func(*Handle) {}))
	assert.Empty(t, m.Wait(time.Second))
}

func TestHandleEvery(t *testing.T) {
	m := NewManager(nil)
	var ticks atomic.Int32

	require.NoError(t, m.Go("ticker", func(h *Handle) {
		h.Every(time.Millisecond, func(ctx context.Context) {
			assert.NotNil(t, ctx)
			ticks.Add(1)
		})
	}))

	require.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)
	m.Shutdown()
	assert.Empty(t, m.Wait(time.Second))
}
