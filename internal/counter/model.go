package counter

import (
	"fmt"
	"strings"
	"time"
)

// Kind 选择一次计数操作作用于哪个计数器
type Kind string

const (
	// KindView 是游戏页面的浏览数
	KindView Kind = "view"
	// KindDownload 是下载链接的点击数
	KindDownload Kind = "download"
	// KindLike 是点赞数，唯一允许撤销的计数器
	KindLike Kind = "like"
)

// ParseKind 解析kind参数；早期客户端使用 "mega" 表示下载
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "view":
		return KindView, nil
	case "download", "mega":
		return KindDownload, nil
	case "like":
		return KindLike, nil
	default:
		return "", fmt.Errorf("未知的计数类型: %q", raw)
	}
}

// Column 返回该计数器在表中的列名
func (k Kind) Column() string {
	switch k {
	case KindView:
		return "views"
	case KindDownload:
		return "downloads"
	case KindLike:
		return "likes"
	}
	panic("counter: invalid kind " + string(k))
}

// Counter 是一个实体的累计计数 (counters表)
// 第一次计数时通过upsert惰性创建，从不删除
type Counter struct {
	ID        string `gorm:"column:id;primaryKey" json:"id"`
	Views     int64  `gorm:"column:views" json:"views"`
	Downloads int64  `gorm:"column:downloads" json:"downloads"`
	Likes     int64  `gorm:"column:likes" json:"likes"`
	// UpdatedAt 是最后一次变更的Unix秒
	UpdatedAt int64 `gorm:"column:updated_at;autoUpdateTime:false" json:"updatedAt"`
}

// TableName 指定表名，与早期部署保持一致
func (Counter) TableName() string {
	return "counters"
}

// DailyCounter 是某个实体在某一天(UTC)的计数桶 (counter_days表)
// 只有当天发生过至少一次变更时才会存在
type DailyCounter struct {
	Day       string `gorm:"column:day;primaryKey" json:"day"`
	ID        string `gorm:"column:id;primaryKey" json:"-"`
	Views     int64  `gorm:"column:views" json:"views"`
	Downloads int64  `gorm:"column:downloads" json:"downloads"`
	Likes     int64  `gorm:"column:likes" json:"likes"`
	UpdatedAt int64  `gorm:"column:updated_at;autoUpdateTime:false" json:"-"`
}

// TableName 指定表名
func (DailyCounter) TableName() string {
	return "counter_days"
}

// DayLayout 是计数桶的日期格式
const DayLayout = "2006-01-02"

// MaxHistoryDays 是历史查询允许的最大天数
const MaxHistoryDays = 365

// DayOf 返回时间点所在的UTC日期
func DayOf(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// HistorySince 返回包含今天在内、最近 days 天窗口的起始日期
func HistorySince(now time.Time, days int) string {
	return DayOf(now.UTC().AddDate(0, 0, -(days - 1)))
}

// ClampHistoryDays 把天数限制在 [1, MaxHistoryDays]，0 表示使用默认值
func ClampHistoryDays(days, fallback int) int {
	if days == 0 {
		days = fallback
	}
	if days < 1 {
		days = 1
	}
	if days > MaxHistoryDays {
		days = MaxHistoryDays
	}
	return days
}

func setKind(views, downloads, likes *int64, kind Kind, value int64) {
	switch kind {
	case KindView:
		*views = value
	case KindDownload:
		*downloads = value
	case KindLike:
		*likes = value
	}
}
