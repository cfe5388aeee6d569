package rating

// MaxStars 是评分的最高星数；0 表示"没有投票"
const MaxStars = 4

// Rating 是一个实体的4星评分汇总 (ratings4表)
// 当有效票数回到0时记录会被删除，因此"不存在"与"count=0"是同一个可观察状态
type Rating struct {
	ID        string `gorm:"column:id;primaryKey"`
	Sum       int64  `gorm:"column:sum"`
	Count     int64  `gorm:"column:count"`
	UpdatedAt int64  `gorm:"column:updated_at;autoUpdateTime:false"`
}

// TableName 指定表名
func (Rating) TableName() string {
	return "ratings4"
}

// Avg 返回平均分，没有投票时为0
func (r Rating) Avg() float64 {
	if r.Count <= 0 {
		return 0
	}
	return float64(r.Sum) / float64(r.Count)
}

// Vote 是一次投票请求。
// Prev 由客户端自行上报（服务端不保存投票人记录），
// 一次调用即可完成"撤回旧票"与"投出新票"。
type Vote struct {
	ID    string
	Value int
	Prev  int
}
