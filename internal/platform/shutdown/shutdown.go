package shutdown

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SlpAus/engagement-metrics-backend/pkg/lifecycle"
	"go.uber.org/zap"
)

// Closer 是停机最后阶段需要释放的资源（数据库、Redis连接）
type Closer struct {
	Name  string
	Close func() error
}

// Coordinator 负责编排应用程序的优雅停机流程
type Coordinator struct {
	Background *lifecycle.Manager
	Closers    []Closer
	Log        *zap.Logger

	HTTPTimeout       time.Duration
	BackgroundTimeout time.Duration
}

// NewCoordinator 创建一个新的停机协调器；资源按传入顺序关闭
func NewCoordinator(background *lifecycle.Manager, log *zap.Logger, closers ...Closer) *Coordinator {
	return &Coordinator{
		Background:        background,
		Closers:           closers,
		Log:               log,
		HTTPTimeout:       15 * time.Second,
		BackgroundTimeout: 5 * time.Second,
	}
}

// ListenForSignalsAndShutdown 阻塞直到收到 SIGINT/SIGTERM，然后执行停机流程
func (c *Coordinator) ListenForSignalsAndShutdown(server *http.Server) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	sig := <-sigChan
	c.Log.Info("收到关闭信号，开始优雅停机", zap.String("signal", sig.String()))
	c.Shutdown(server)
}

// Shutdown 依次关闭HTTP服务器、后台服务和底层连接
func (c *Coordinator) Shutdown(server *http.Server) {
	// 关闭HTTP服务器，允许正在进行的请求完成
	if server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), c.HTTPTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			c.Log.Error("HTTP服务器关闭错误", zap.Error(err))
		} else {
			c.Log.Info("HTTP服务器已关闭")
		}
	}

	if c.Background != nil {
		c.Background.Shutdown()
		if remaining := c.Background.Wait(c.BackgroundTimeout); len(remaining) > 0 {
			c.Log.Warn("部分后台服务未能按时退出", zap.Strings("services", remaining))
		}
	}

	for _, closer := range c.Closers {
		if err := closer.Close(); err != nil {
			c.Log.Error("释放资源失败", zap.String("resource", closer.Name), zap.Error(err))
		}
	}
	c.Log.Info("优雅停机完成")
}
