package health

import (
	"context"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/apperr"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/database"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/respond"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// VersionReader 返回当前数据库结构版本
type VersionReader interface {
	Version(ctx context.Context) (int, error)
}

// Handler 处理 GET /healthz
type Handler struct {
	schema       VersionReader
	redisEnabled bool
	log          *zap.Logger
}

// NewHandler 创建健康检查接口
func NewHandler(schema VersionReader, redisEnabled bool, log *zap.Logger) *Handler {
	return &Handler{schema: schema, redisEnabled: redisEnabled, log: log}
}

// Healthz 返回结构版本与Redis状态；数据库不可达时返回500
func (h *Handler) Healthz(c *gin.Context) {
	version, err := h.schema.Version(c.Request.Context())
	if err != nil {
		respond.Error(c, h.log, apperr.Storage("数据库不可用", err))
		return
	}
	respond.OK(c, gin.H{
		"schemaVersion": version,
		"redis":         h.redisState(),
	})
}

func (h *Handler) redisState() string {
	switch {
	case !h.redisEnabled:
		return "disabled"
	case database.IsRedisHealthy():
		return "healthy"
	default:
		return "degraded"
	}
}
