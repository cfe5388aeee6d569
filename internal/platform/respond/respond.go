package respond

import (
	"net/http"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/apperr"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// OK 以 {"ok": true, ...fields} 的扁平结构返回成功响应
func OK(c *gin.Context, fields gin.H) {
	body := gin.H{"ok": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(http.StatusOK, body)
}

// Error 把错误映射为HTTP状态码并返回 {"ok": false, "error": msg}；服务端错误会被记录
func Error(c *gin.Context, log *zap.Logger, err error) {
	status, msg := apperr.Status(err)
	if status >= http.StatusInternalServerError && log != nil {
		log.Error("请求处理失败",
			zap.String("path", c.Request.URL.Path),
			zap.String("requestId", c.GetString(RequestIDKey)),
			zap.Error(err),
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg})
}

// RequestIDKey 是请求ID在gin上下文中的键
const RequestIDKey = "requestID"
