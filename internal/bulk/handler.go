package bulk

import (
	"strconv"
	"strings"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/apperr"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/respond"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/validate"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// IDsRequest 是批量接口的请求体。
// ids 不是数组时按空列表处理；元素可以是字符串或数字。
type IDsRequest struct {
	IDs  any `json:"ids"`
	Days any `json:"days"`
}

// Handler 处理 /api/counters、/api/ratings4s 和 /api/counters_history
type Handler struct {
	svc *Service
	log *zap.Logger
}

// NewHandler 创建批量处理器
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// Counters 处理 POST /api/counters
func (h *Handler) Counters(c *gin.Context) {
	ids, _, ok := h.bind(c)
	if !ok {
		return
	}
	stats, err := h.svc.Counters(c.Request.Context(), ids)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	respond.OK(c, gin.H{"stats": stats})
}

// Ratings 处理 POST /api/ratings4s
func (h *Handler) Ratings(c *gin.Context) {
	ids, _, ok := h.bind(c)
	if !ok {
		return
	}
	stats, err := h.svc.Ratings(c.Request.Context(), ids)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	respond.OK(c, gin.H{"stats": stats})
}

// History 处理 POST /api/counters_history
func (h *Handler) History(c *gin.Context) {
	ids, days, ok := h.bind(c)
	if !ok {
		return
	}
	series, days, err := h.svc.History(c.Request.Context(), ids, days)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	respond.OK(c, gin.H{"days": days, "series": series})
}

func (h *Handler) bind(c *gin.Context) ([]string, int, bool) {
	var req IDsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, h.log, apperr.Validation("JSON无效"))
		return nil, 0, false
	}
	return IDList(req.IDs), parseDays(req.Days), true
}

// IDList 把请求体中的ids字段转换为字符串列表
func IDList(raw any) []string {
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, validate.Stringify(it))
	}
	return ids
}

func parseDays(raw any) int {
	n, err := strconv.Atoi(strings.TrimSpace(validate.Stringify(raw)))
	if err != nil {
		return 0
	}
	return n
}
