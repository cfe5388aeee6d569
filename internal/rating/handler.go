package rating

import (
	"strings"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/apperr"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/respond"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 把 /api/rating4 请求映射到评分服务
type Handler struct {
	svc *Service
	log *zap.Logger
}

// NewHandler 创建评分处理器
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Rating 处理 GET /api/rating4?op=get|vote&id=...&v=...&prev=...
func (h *Handler) Rating(c *gin.Context) {
	op := strings.TrimSpace(c.DefaultQuery("op", "get"))
	if op == "" {
		op = "get"
	}
	ctx := c.Request.Context()
	id := c.Query("id")

	var (
		rec Rating
		err error
	)
	switch op {
	case "get":
		rec, err = h.svc.Get(ctx, id)
	case "vote":
		var value int
		value, err = ParseValue(c.Query("v"))
		if err == nil {
			rec, err = h.svc.Vote(ctx, Vote{ID: id, Value: value, Prev: ParsePrev(c.Query("prev"))})
		}
	default:
		err = apperr.Validation("op无效")
	}
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	respond.OK(c, gin.H{
		"id":    rec.ID,
		"sum":   rec.Sum,
		"count": rec.Count,
		"avg":   rec.Avg(),
	})
}
