package database

import (
	"context"
	"fmt"
	"time"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/config"
	"github.com/redis/go-redis/v9"
)

// InitRedis 初始化与Redis的连接。未配置地址时返回 (nil, nil)，
// 调用方应把Redis视为可选依赖。
func InitRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if !cfg.Enabled() {
		return nil, nil
	}

	client := NewRedisClient(cfg)

	// 使用Ping命令来测试连接是否成功
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("无法连接到Redis: %w", err)
	}

	UpdateStatus(true)
	return client, nil
}

// NewRedisClient 只创建客户端，不检查连接
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
}
