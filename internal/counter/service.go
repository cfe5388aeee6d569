package counter

import (
	"context"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/apperr"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/validate"
)

// Service 是计数存储的对外入口：参数校验在任何存储访问之前完成
type Service struct {
	repo        *Repository
	historyDays int
}

// NewService 创建计数服务；historyDays 是历史查询的默认天数
func NewService(repo *Repository, historyDays int) *Service {
	if historyDays <= 0 {
		historyDays = 30
	}
	return &Service{repo: repo, historyDays: historyDays}
}

// Get 返回累计计数，不存在时返回全零记录，从不修改数据
func (s *Service) Get(ctx context.Context, rawID string) (Counter, error) {
	id, err := validate.ID(rawID)
	if err != nil {
		return Counter{}, err
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Counter{}, apperr.Storage("读取计数失败", err)
	}
	return c, nil
}

// Hit 把 kind 对应的计数器加1，返回自增后的累计记录
func (s *Service) Hit(ctx context.Context, rawID, rawKind string) (Counter, error) {
	id, err := validate.ID(rawID)
	if err != nil {
		return Counter{}, err
	}
	kind, err := ParseKind(rawKind)
	if err != nil {
		return Counter{}, apperr.Validation("kind无效")
	}
	if err := s.repo.Increment(ctx, id, kind); err != nil {
		return Counter{}, apperr.Storage("计数失败", err)
	}
	return s.read(ctx, id)
}

// Unhit 撤销一次点赞（下限为0）。只接受 like，kind 为空时按 like 处理
func (s *Service) Unhit(ctx context.Context, rawID, rawKind string) (Counter, error) {
	id, err := validate.ID(rawID)
	if err != nil {
		return Counter{}, err
	}
	kind := KindLike
	if rawKind != "" {
		kind, err = ParseKind(rawKind)
		if err != nil || kind != KindLike {
			return Counter{}, apperr.Validation("kind无效 (unhit)")
		}
	}
	if err := s.repo.Decrement(ctx, id, kind); err != nil {
		return Counter{}, apperr.Storage("撤销计数失败", err)
	}
	return s.read(ctx, id)
}

// History 返回单个ID最近 days 天(UTC，含今天)的计数桶，按日期升序
func (s *Service) History(ctx context.Context, rawID string, days int) ([]DailyCounter, int, error) {
	id, err := validate.ID(rawID)
	if err != nil {
		return nil, 0, err
	}
	days = ClampHistoryDays(days, s.historyDays)
	rows, err := s.repo.FindHistory(ctx, []string{id}, HistorySince(s.repo.Now(), days))
	if err != nil {
		return nil, 0, apperr.Storage("读取历史计数失败", err)
	}
	if rows == nil {
		rows = []DailyCounter{}
	}
	return rows, days, nil
}

func (s *Service) read(ctx context.Context, id string) (Counter, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Counter{}, apperr.Storage("读取计数失败", err)
	}
	return c, nil
}
