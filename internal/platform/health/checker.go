// Package health 定期检查Redis连接并维护全局健康标记，
// 同时提供 /healthz 接口。
package health

import (
	"context"
	"time"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/database"
	"github.com/SlpAus/engagement-metrics-backend/pkg/lifecycle"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	checkInterval = 5 * time.Second
	pingTimeout   = 2 * time.Second
)

// Checker 周期性地Ping Redis，并在状态变化时更新 database 的健康标记
type Checker struct {
	rdb      *redis.Client
	log      *zap.Logger
	interval time.Duration
}

// NewChecker 创建健康检查器
func NewChecker(rdb *redis.Client, log *zap.Logger) *Checker {
	return &Checker{rdb: rdb, log: log, interval: checkInterval}
}

// PerformCheck 执行一次检查，返回Redis当前是否可用
func (c *Checker) PerformCheck(ctx context.Context) bool {
	if c.rdb == nil {
		return false
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	healthy := c.rdb.Ping(pingCtx).Err() == nil
	if database.UpdateStatus(healthy) {
		if healthy {
			c.log.Info("健康检查: Redis连接已恢复，系统状态 -> [健康]")
		} else {
			c.log.Warn("健康检查: Redis连接丢失，系统状态 -> [降级]，写操作限流暂停")
		}
	}
	return healthy
}

// Run 阻塞式地周期执行健康检查，直到句柄收到停机信号
func (c *Checker) Run(h *lifecycle.Handle) {
	c.log.Info("Redis健康检查器已启动", zap.Duration("interval", c.interval))
	h.Every(c.interval, func(ctx context.Context) {
		c.PerformCheck(ctx)
	})
	c.log.Info("Redis健康检查器已停止")
}
