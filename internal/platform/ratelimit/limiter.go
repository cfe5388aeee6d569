// Package ratelimit 基于Redis有序集合的滑动窗口限流，用于计数与投票等写操作。
// Redis未配置或不健康时放行请求。
package ratelimit

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/config"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/database"
	"github.com/redis/go-redis/v9"
)

// keyPrefix 是Redis中有序集合的键名前缀
const keyPrefix = "ratelimit:"

// Limiter 对每个客户端键在 window 内最多放行 limit 次请求
type Limiter struct {
	rdb     *redis.Client
	limit   int64
	window  time.Duration
	now     func() time.Time
	healthy func() bool
}

// New 根据配置创建限流器。rdb 为nil或 Mutations<=0 时返回的限流器总是放行
func New(rdb *redis.Client, cfg config.RateLimitConfig) *Limiter {
	window := time.Duration(cfg.WindowSeconds) * time.Second
	if window <= 0 {
		window = time.Minute
	}
	return &Limiter{
		rdb:     rdb,
		limit:   int64(cfg.Mutations),
		window:  window,
		now:     time.Now,
		healthy: database.IsRedisHealthy,
	}
}

// Enabled 判断限流器是否会真正访问Redis
func (l *Limiter) Enabled() bool {
	return l != nil && l.rdb != nil && l.limit > 0
}

// Allow 为 key 记录一次请求，返回它在当前窗口内是否仍未超限。
// 被拒绝的请求不计入窗口。
func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if !l.Enabled() || !l.healthy() {
		return true, nil
	}

	now := l.now()
	redisKey := keyPrefix + key
	// 窗口之外的记录会被清理
	minScore := float64(now.Add(-l.window).UnixMicro())
	member, err := uniqueMember(now)
	if err != nil {
		return true, fmt.Errorf("生成限流成员失败: %w", err)
	}

	// 使用事务(TxPipeline)保证清理、写入与计数的原子性
	pipe := l.rdb.TxPipeline()
	pipe.ZRemRangeByScore(ctx, redisKey, "-inf", fmt.Sprintf("(%f", minScore))
	pipe.ZAdd(ctx, redisKey, redis.Z{Score: float64(now.UnixMicro()), Member: member})
	pipe.Expire(ctx, redisKey, l.window+time.Second)
	countCmd := pipe.ZCard(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, fmt.Errorf("执行限流事务失败: %w", err)
	}

	count, err := countCmd.Result()
	if err != nil {
		return true, fmt.Errorf("获取限流计数失败: %w", err)
	}
	if count <= l.limit {
		return true, nil
	}

	// 补偿：移除本次写入的成员
	if err := l.rdb.ZRem(ctx, redisKey, member).Err(); err != nil {
		return false, fmt.Errorf("回滚限流计数失败: %w", err)
	}
	return false, nil
}

// uniqueMember 生成16字节、抗冲突的成员ID
// 结构: [ 8字节纳秒时间戳 (Big Endian) | 8字节随机数 ]
func uniqueMember(t time.Time) (string, error) {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], uint64(t.UnixNano()))
	if _, err := rand.Read(b[8:16]); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
