package schema

import "time"

// PeriodSummary 阶段汇总（周/月）
// (user_id, type, start_date, end_date) 上的唯一索引是幂等生成的落点：
// 重复生成通过 upsert 收敛到同一行。
type PeriodSummary struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       int64     `gorm:"uniqueIndex:uniq_period_range" json:"user_id"`
	Type         string    `gorm:"size:10;index;uniqueIndex:uniq_period_range" json:"type"` // "week" | "month"
	StartDate    string    `gorm:"size:10;uniqueIndex:uniq_period_range" json:"start_date"` // YYYY-MM-DD
	EndDate      string    `gorm:"size:10;uniqueIndex:uniq_period_range" json:"end_date"`   // YYYY-MM-DD
	Overview     string    `gorm:"type:text" json:"overview"`                               // AI 生成的概述
	Achievements JSONArray `gorm:"type:text" json:"achievements"`                           // 主要收获
	Patterns     string    `gorm:"type:text" json:"patterns"`                               // 状态/模式分析
	Suggestions  string    `gorm:"type:text" json:"suggestions"`                            // 建议
	SourceCount  int       `gorm:"default:0" json:"source_count"`                           // 参与汇总的记录数
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (PeriodSummary) TableName() string {
	return "period_summaries"
}

// 周期类型
const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
)
