package ratelimit

import (
	"strings"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/apperr"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/respond"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// mutatingOps 是需要限流的op取值
var mutatingOps = map[string]struct{}{
	"hit":   {},
	"unhit": {},
	"vote":  {},
}

// Middleware 只对写操作(op=hit|unhit|vote)按客户端IP限流；读请求直接放行
func Middleware(l *Limiter, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		op := strings.TrimSpace(c.Query("op"))
		if _, ok := mutatingOps[op]; !ok || !l.Enabled() {
			c.Next()
			return
		}

		allowed, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn("限流检查失败，放行请求", zap.String("ip", c.ClientIP()), zap.Error(err))
		}
		if !allowed {
			respond.Error(c, log, apperr.RateLimited("请求过于频繁"))
			return
		}
		c.Next()
	}
}
