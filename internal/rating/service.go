package rating

import (
	"context"
	"strconv"
	"strings"

	"github.com/SlpAus/engagement-metrics-backend/internal/platform/apperr"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/validate"
)

// Service 是评分聚合器的对外入口
type Service struct {
	repo *Repository
}

// NewService 创建评分服务
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

// Get 返回评分汇总，不存在时为 {0,0,0}
func (s *Service) Get(ctx context.Context, rawID string) (Rating, error) {
	id, err := validate.ID(rawID)
	if err != nil {
		return Rating{}, err
	}
	return s.read(ctx, id)
}

// Vote 用 v.Value 替换客户端上报的上一票 v.Prev。
// Value 必须在 0..MaxStars 之内；Prev 越界时按0处理。
func (s *Service) Vote(ctx context.Context, v Vote) (Rating, error) {
	id, err := validate.ID(v.ID)
	if err != nil {
		return Rating{}, err
	}
	if v.Value < 0 || v.Value > MaxStars {
		return Rating{}, apperr.Validationf("投票无效 (0..%d)", MaxStars)
	}
	prev := ClampPrev(v.Prev)

	// 没有要撤回的票也没有新票：不创建记录
	if v.Value == 0 && prev == 0 {
		return s.read(ctx, id)
	}

	if err := s.repo.Apply(ctx, id, v.Value, prev); err != nil {
		return Rating{}, apperr.Storage("投票失败", err)
	}

	after, err := s.read(ctx, id)
	if err != nil {
		return Rating{}, err
	}
	if after.Count <= 0 {
		if err := s.repo.DeleteIfEmpty(ctx, id); err != nil {
			return Rating{}, apperr.Storage("投票失败", err)
		}
		return Rating{ID: id}, nil
	}
	return after, nil
}

func (s *Service) read(ctx context.Context, id string) (Rating, error) {
	r, err := s.repo.Get(ctx, id)
	if err != nil {
		return Rating{}, apperr.Storage("读取评分失败", err)
	}
	return r, nil
}

// ClampPrev 把越界的上一票视为"没有上一票"
func ClampPrev(prev int) int {
	if prev < 0 || prev > MaxStars {
		return 0
	}
	return prev
}

// ParseValue 解析查询参数v。空值视为0（撤回），非整数或越界返回校验错误
func ParseValue(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 || n > MaxStars {
		return 0, apperr.Validationf("投票无效 (0..%d)", MaxStars)
	}
	return n, nil
}

// ParsePrev 解析查询参数prev，任何无法识别的值都按0处理
func ParsePrev(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0
	}
	return ClampPrev(n)
}
