package rating

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 封装ratings4表的读写
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository 创建评分仓库；now 为nil时使用 time.Now
func NewRepository(db *gorm.DB, now func() time.Time) *Repository {
	if now == nil {
		now = time.Now
	}
	return &Repository{db: db, now: now}
}

// Get 读取一条评分，不存在时返回零值记录
func (r *Repository) Get(ctx context.Context, id string) (Rating, error) {
	var rows []Rating
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return Rating{}, fmt.Errorf("读取评分 %s 失败: %w", id, err)
	}
	if len(rows) == 0 {
		return Rating{ID: id}, nil
	}
	return rows[0], nil
}

// Apply 用一条upsert语句完成撤回与投票：
// 行不存在时直接插入新票；存在时先减去 prev（下限为0）再加上 value。
// value、prev 必须已经在 0..MaxStars 之内。
func (r *Repository) Apply(ctx context.Context, id string, value, prev int) error {
	ts := r.now().Unix()
	cast := int64(0)
	if value > 0 {
		cast = 1
	}
	withdraw := int64(0)
	if prev > 0 {
		withdraw = 1
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"sum": gorm.Expr(
				"(CASE WHEN ratings4.sum >= ? THEN ratings4.sum - ? ELSE 0 END) + ?",
				int64(prev), int64(prev), int64(value)),
			"count": gorm.Expr(
				"(CASE WHEN ratings4.count >= ? THEN ratings4.count - ? ELSE 0 END) + ?",
				withdraw, withdraw, cast),
			"updated_at": ts,
		}),
	}).Create(&Rating{ID: id, Sum: int64(value), Count: cast, UpdatedAt: ts}).Error
	if err != nil {
		return fmt.Errorf("更新评分 %s 失败: %w", id, err)
	}
	return nil
}

// DeleteIfEmpty 仅在有效票数已经归零时删除记录；
// 条件写在语句里，避免误删并发投出的新票
func (r *Repository) DeleteIfEmpty(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Where("id = ? AND count <= 0", id).Delete(&Rating{}).Error
	if err != nil {
		return fmt.Errorf("删除空评分 %s 失败: %w", id, err)
	}
	return nil
}

// FindByIDs 一次查询读取多条评分，不存在的ID不会出现在结果中
func (r *Repository) FindByIDs(ctx context.Context, ids []string) ([]Rating, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []Rating
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("批量读取评分失败: %w", err)
	}
	return rows, nil
}
