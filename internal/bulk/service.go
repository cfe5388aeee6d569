// Package bulk 一次请求读取大量实体的计数、评分与历史，
// 内部按块拆分查询，使单条SQL的参数数量保持在存储限制之内。
package bulk

import (
	"context"
	"slices"
	"strings"

	"github.com/SlpAus/engagement-metrics-backend/internal/counter"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/apperr"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/config"
	"github.com/SlpAus/engagement-metrics-backend/internal/platform/validate"
	"github.com/SlpAus/engagement-metrics-backend/internal/rating"
)

// CounterStats 是批量响应中单个实体的累计计数
type CounterStats struct {
	Views     int64 `json:"views"`
	Downloads int64 `json:"downloads"`
	Likes     int64 `json:"likes"`
}

// RatingStats 是批量响应中单个实体的评分汇总
type RatingStats struct {
	Sum   int64   `json:"sum"`
	Count int64   `json:"count"`
	Avg   float64 `json:"avg"`
}

// Service 是批量读取器
type Service struct {
	counters *counter.Repository
	ratings  *rating.Repository
	cfg      config.MetricsConfig
}

// NewService 创建批量读取器
func NewService(counters *counter.Repository, ratings *rating.Repository, cfg config.MetricsConfig) *Service {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 100
	}
	if cfg.MaxBulkIDs <= 0 {
		cfg.MaxBulkIDs = 3000
	}
	if cfg.DefaultHistoryDays <= 0 {
		cfg.DefaultHistoryDays = 30
	}
	return &Service{counters: counters, ratings: ratings, cfg: cfg}
}

// Normalize 去除首尾空白，丢弃空ID和超长ID，按首次出现的顺序去重。
// 结果超过 maxIDs 时整个请求被拒绝。
func Normalize(raw []string, maxIDs int) ([]string, error) {
	seen := make(map[string]struct{}, len(raw))
	ids := make([]string, 0, len(raw))
	for _, r := range raw {
		id := strings.TrimSpace(r)
		if !validate.IsValidID(id) {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	if len(ids) > maxIDs {
		return nil, apperr.Validationf("ID数量过多 (最多%d个)", maxIDs)
	}
	return ids, nil
}

// Counters 返回每个ID的累计计数；没有记录的ID不出现在结果中
func (s *Service) Counters(ctx context.Context, rawIDs []string) (map[string]CounterStats, error) {
	ids, err := Normalize(rawIDs, s.cfg.MaxBulkIDs)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]CounterStats, len(ids))
	for chunk := range slices.Chunk(ids, s.cfg.ChunkSize) {
		rows, err := s.counters.FindByIDs(ctx, chunk)
		if err != nil {
			return nil, apperr.Storage("批量读取计数失败", err)
		}
		for _, r := range rows {
			stats[r.ID] = CounterStats{Views: r.Views, Downloads: r.Downloads, Likes: r.Likes}
		}
	}
	return stats, nil
}

// Ratings 返回每个ID的评分汇总；没有投票的ID不出现在结果中
func (s *Service) Ratings(ctx context.Context, rawIDs []string) (map[string]RatingStats, error) {
	ids, err := Normalize(rawIDs, s.cfg.MaxBulkIDs)
	if err != nil {
		return nil, err
	}
	stats := make(map[string]RatingStats, len(ids))
	for chunk := range slices.Chunk(ids, s.cfg.ChunkSize) {
		rows, err := s.ratings.FindByIDs(ctx, chunk)
		if err != nil {
			return nil, apperr.Storage("批量读取评分失败", err)
		}
		for _, r := range rows {
			if r.Count <= 0 {
				continue
			}
			stats[r.ID] = RatingStats{Sum: r.Sum, Count: r.Count, Avg: r.Avg()}
		}
	}
	return stats, nil
}

// History 返回每个ID最近 days 天(UTC，含今天)的计数桶，按日期升序。
// days 会被限制在 [1, 365]，0 表示使用默认天数；返回实际使用的天数。
func (s *Service) History(ctx context.Context, rawIDs []string, days int) (map[string][]counter.DayResponse, int, error) {
	days = counter.ClampHistoryDays(days, s.cfg.DefaultHistoryDays)
	ids, err := Normalize(rawIDs, s.cfg.MaxBulkIDs)
	if err != nil {
		return nil, days, err
	}
	since := counter.HistorySince(s.counters.Now(), days)

	series := make(map[string][]counter.DayResponse, len(ids))
	for chunk := range slices.Chunk(ids, s.cfg.ChunkSize) {
		rows, err := s.counters.FindHistory(ctx, chunk, since)
		if err != nil {
			return nil, days, apperr.Storage("批量读取历史计数失败", err)
		}
		for _, r := range rows {
			series[r.ID] = append(series[r.ID], counter.DayResponse{
				Day:       r.Day,
				Views:     r.Views,
				Downloads: r.Downloads,
				Likes:     r.Likes,
			})
		}
	}
	return series, days, nil
}
