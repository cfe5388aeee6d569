package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrStopped 表示管理器已开始停机，不再接受新的后台任务
var ErrStopped = errors.New("lifecycle: 管理器已停机")

// Manager 启动并跟踪后台任务（例如Redis健康检查）。
// 停机时统一取消所有任务的上下文，并等待它们退出。
type Manager struct {
	wg      sync.WaitGroup
	mu      sync.Mutex
	running map[string]time.Time
	stopped bool
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
}

// NewManager 创建生命周期管理器；log 为nil时不输出日志
func NewManager(log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	m := &Manager{
		running: make(map[string]time.Time),
		log:     log,
	}
	m.ctx, m.cancel = context.WithCancel(context.Background())
	return m
}

// Go 在新的Goroutine中运行名为 name 的任务。
// 任务返回（包括panic）后自动注销；同名任务不能同时运行。
func (m *Manager) Go(name string, task func(h *Handle)) error {
	m.mu.Lock()
	if m.stopped {
		m.mu.Unlock()
		return ErrStopped
	}
	if _, dup := m.running[name]; dup {
		m.mu.Unlock()
		return fmt.Errorf("lifecycle: 后台任务 %q 已在运行", name)
	}
	m.running[name] = time.Now()
	m.wg.Add(1)
	m.mu.Unlock()

	m.log.Info("后台任务已启动", zap.String("task", name))
	h := &Handle{name: name, ctx: m.ctx}
	go func() {
		defer m.finish(name)
		defer func() {
			if r := recover(); r != nil {
				m.log.Error("后台任务panic", zap.String("task", name), zap.Any("panic", r))
			}
		}()
		task(h)
	}()
	return nil
}

func (m *Manager) finish(name string) {
	m.mu.Lock()
	started := m.running[name]
	delete(m.running, name)
	m.mu.Unlock()

	m.log.Info("后台任务已退出", zap.String("task", name), zap.Duration("uptime", time.Since(started)))
	m.wg.Done()
}

// Running 返回仍在运行的任务名（按名称排序）
func (m *Manager) Running() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Sorted(maps.Keys(m.running))
}

// Shutdown 取消所有任务的上下文，之后调用 Go 会返回 ErrStopped
func (m *Manager) Shutdown() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()

	m.log.Info("生命周期管理器: 广播停机信号")
	m.cancel()
}

// Wait 等待所有任务退出，超时则返回仍未退出的任务名
func (m *Manager) Wait(timeout time.Duration) []string {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-timer.C:
		return m.Running()
	}
}
