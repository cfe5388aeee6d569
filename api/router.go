package api

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/SlpAus/engagement-metrics-backend/internal/bulk"
	"github.com/SlpAus/engagement-metrics-backend/internal/counter"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/config"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/health"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/ratelimit"
	"github.com/SlpAus/engagement-metrics-backend/internal/rating"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handlers 汇总所有需要注册的处理器
type Handlers struct {
	Counter *counter.Handler
	Rating  *rating.Handler
	Bulk    *bulk.Handler
	Health  *health.Handler
	Limiter *ratelimit.Limiter
}

// NewRouter 创建gin引擎并挂载全局中间件。
// 只有 cfg.TrustedProxies 中的代理转发的 X-Forwarded-For 会被用作客户端IP。
func NewRouter(cfg config.ServerConfig, log *zap.Logger) (*gin.Engine, error) {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	if err := r.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("无效的可信代理配置: %w", err)
	}
	r.Use(RequestLogger(log), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		log.Error("请求处理发生panic", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "服务器错误"})
	}))
	r.Use(NoStore(), cors.New(corsConfig(cfg.Cors)))

	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"ok": false, "error": "请求方法无效"})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "接口不存在"})
	})
	return r, nil
}

// SetupRoutes 注册项目的所有API路由
func SetupRoutes(router *gin.Engine, h Handlers, log *zap.Logger) {
	router.GET("/healthz", h.Health.Healthz)

	api := router.Group("/api")
	{
		limit := ratelimit.Middleware(h.Limiter, log)

		// 单个实体的计数与评分，写操作(op=hit|unhit|vote)会被限流
		api.GET("/counter", limit, h.Counter.Counter)
		api.GET("/rating4", limit, h.Rating.Rating)
		api.GET("/counter_history", h.Counter.History)

		// 批量读取只接受POST
		api.POST("/counters", h.Bulk.Counters)
		api.POST("/ratings4s", h.Bulk.Ratings)
		api.POST("/counters_history", h.Bulk.History)
	}

	// 未携带Origin的预检请求不会被CORS中间件拦截，只为已注册的API路径应答，未知路径仍是404
	preflight := func(c *gin.Context) { c.Status(http.StatusNoContent) }
	seen := make(map[string]bool)
	for _, route := range router.Routes() {
		if !strings.HasPrefix(route.Path, "/api/") || seen[route.Path] {
			continue
		}
		seen[route.Path] = true
		router.OPTIONS(route.Path, preflight)
	}
}

func corsConfig(cfg config.CorsConfig) cors.Config {
	cc := cors.Config{
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "X-Request-ID"},
		ExposeHeaders: []string{"Content-Length", "X-Request-ID"},
		MaxAge:        12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 0 || slices.Contains(cfg.AllowedOrigins, "*") {
		cc.AllowAllOrigins = true
	} else {
		cc.AllowOrigins = cfg.AllowedOrigins
	}
	return cc
}
