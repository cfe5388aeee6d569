package counter

import (
	"strconv"
	"strings"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/apperr"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/respond"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Handler 把 /api/counter 和 /api/counter_history 请求映射到计数服务
type Handler struct {
	svc *Service
	log *zap.Logger
}

// NewHandler 创建计数处理器
func NewHandler(svc *Service, log *zap.Logger) *Handler {
	return &Handler{svc: svc, log: log}
}

// DayResponse 是历史序列中的一天
type DayResponse struct {
	Day       string `json:"day"`
	Views     int64  `json:"views"`
	Downloads int64  `json:"downloads"`
	Likes     int64  `json:"likes"`
}

// Counter 处理 GET /api/counter?op=get|hit|unhit&kind=...&id=...
func (h *Handler) Counter(c *gin.Context) {
	op := strings.TrimSpace(c.DefaultQuery("op", "get"))
	if op == "" {
		op = "get"
	}
	id := c.Query("id")
	kind := strings.TrimSpace(c.Query("kind"))
	ctx := c.Request.Context()

	var (
		rec Counter
		err error
	)
	switch op {
	case "get":
		rec, err = h.svc.Get(ctx, id)
	case "hit":
		rec, err = h.svc.Hit(ctx, id, kind)
	case "unhit":
		rec, err = h.svc.Unhit(ctx, id, kind)
	default:
		err = apperr.Validation("op无效")
	}
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	respond.OK(c, CounterFields(rec))
}

// History 处理 GET /api/counter_history?id=...&days=...
func (h *Handler) History(c *gin.Context) {
	days := ParseDays(c.Query("days"))
	rows, days, err := h.svc.History(c.Request.Context(), c.Query("id"), days)
	if err != nil {
		respond.Error(c, h.log, err)
		return
	}
	respond.OK(c, gin.H{
		"id":     strings.TrimSpace(c.Query("id")),
		"days":   days,
		"series": Series(rows),
	})
}

// CounterFields 返回单个计数响应中的字段
func CounterFields(rec Counter) gin.H {
	return gin.H{
		"id":        rec.ID,
		"views":     rec.Views,
		"downloads": rec.Downloads,
		"likes":     rec.Likes,
		"updatedAt": rec.UpdatedAt,
	}
}

// Series 把计数桶转换为响应序列，保持原有顺序
func Series(rows []DailyCounter) []DayResponse {
	out := make([]DayResponse, 0, len(rows))
	for _, r := range rows {
		out = append(out, DayResponse{Day: r.Day, Views: r.Views, Downloads: r.Downloads, Likes: r.Likes})
	}
	return out
}

// ParseDays 解析days参数，无法解析时返回0（使用默认天数）
func ParseDays(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return n
}
