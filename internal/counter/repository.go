package counter

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository 封装counters与counter_days两张表的读写。
// 每个变更都是单条原子upsert语句，不存在先读后写的竞态窗口。
type Repository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewRepository 创建计数仓库；now 为nil时使用 time.Now
func NewRepository(db *gorm.DB, now func() time.Time) *Repository {
	if now == nil {
		now = time.Now
	}
	return &Repository{db: db, now: now}
}

// Now 返回仓库使用的当前时间
func (r *Repository) Now() time.Time {
	return r.now()
}

// Get 读取一条累计计数，不存在时返回全零记录
func (r *Repository) Get(ctx context.Context, id string) (Counter, error) {
	var rows []Counter
	if err := r.db.WithContext(ctx).Where("id = ?", id).Limit(1).Find(&rows).Error; err != nil {
		return Counter{}, fmt.Errorf("读取计数 %s 失败: %w", id, err)
	}
	if len(rows) == 0 {
		return Counter{ID: id}, nil
	}
	return rows[0], nil
}

// Increment 原子地把累计记录和今天的计数桶中对应计数器各加1，缺失的行会被创建
func (r *Repository) Increment(ctx context.Context, id string, kind Kind) error {
	now := r.now().UTC()
	ts := now.Unix()
	col := kind.Column()
	db := r.db.WithContext(ctx)

	total := Counter{ID: id, UpdatedAt: ts}
	setKind(&total.Views, &total.Downloads, &total.Likes, kind, 1)
	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			col:          gorm.Expr(fmt.Sprintf("counters.%s + 1", col)),
			"updated_at": ts,
		}),
	}).Create(&total).Error
	if err != nil {
		return fmt.Errorf("累计计数 %s.%s 自增失败: %w", id, col, err)
	}

	// 两张表各自原子更新，不跨表开事务：两者最多相差一次进行中的写入
	bucket := DailyCounter{Day: DayOf(now), ID: id, UpdatedAt: ts}
	setKind(&bucket.Views, &bucket.Downloads, &bucket.Likes, kind, 1)
	err = db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "day"}, {Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			col:          gorm.Expr(fmt.Sprintf("counter_days.%s + 1", col)),
			"updated_at": ts,
		}),
	}).Create(&bucket).Error
	if err != nil {
		return fmt.Errorf("计数桶 %s/%s.%s 自增失败: %w", bucket.Day, id, col, err)
	}
	return nil
}

// Decrement 原子地把累计计数器减1（下限为0）。
// 只会修改"今天"已存在的计数桶，过去日期的计数桶保持不变。
func (r *Repository) Decrement(ctx context.Context, id string, kind Kind) error {
	now := r.now().UTC()
	ts := now.Unix()
	col := kind.Column()
	db := r.db.WithContext(ctx)

	err := db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			col:          gorm.Expr(fmt.Sprintf("CASE WHEN counters.%[1]s > 0 THEN counters.%[1]s - 1 ELSE 0 END", col)),
			"updated_at": ts,
		}),
	}).Create(&Counter{ID: id, UpdatedAt: ts}).Error
	if err != nil {
		return fmt.Errorf("累计计数 %s.%s 自减失败: %w", id, col, err)
	}

	day := DayOf(now)
	err = db.Model(&DailyCounter{}).
		Where("day = ? AND id = ?", day, id).
		Updates(map[string]interface{}{
			col:          gorm.Expr(fmt.Sprintf("CASE WHEN %[1]s > 0 THEN %[1]s - 1 ELSE 0 END", col)),
			"updated_at": ts,
		}).Error
	if err != nil {
		return fmt.Errorf("计数桶 %s/%s.%s 自减失败: %w", day, id, col, err)
	}
	return nil
}

// FindByIDs 一次查询读取多条累计计数，不存在的ID不会出现在结果中
func (r *Repository) FindByIDs(ctx context.Context, ids []string) ([]Counter, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []Counter
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("批量读取计数失败: %w", err)
	}
	return rows, nil
}

// FindHistory 一次查询读取多个ID自 since(含) 起的计数桶，按ID、日期升序排列
func (r *Repository) FindHistory(ctx context.Context, ids []string, since string) ([]DailyCounter, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var rows []DailyCounter
	err := r.db.WithContext(ctx).
		Where("id IN ? AND day >= ?", ids, since).
		Order("id ASC").
		Order("day ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("读取历史计数失败: %w", err)
	}
	return rows, nil
}
