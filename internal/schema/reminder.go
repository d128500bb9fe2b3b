package schema

import "time"

// ReminderKind 提醒类别，各类别相互独立
type ReminderKind string

const (
	ReminderDiaryMissing   ReminderKind = "diary_missing"   // 昨天没写日记
	ReminderWeeklySummary  ReminderKind = "weekly_summary"  // 周汇总待生成
	ReminderMonthlySummary ReminderKind = "monthly_summary" // 月汇总待生成
	ReminderDailyQuestion  ReminderKind = "daily_question"  // 今日反思问题未回答
)

// AllReminderKinds 全部提醒类别
func AllReminderKinds() []ReminderKind {
	return []ReminderKind{
		ReminderDiaryMissing,
		ReminderWeeklySummary,
		ReminderMonthlySummary,
		ReminderDailyQuestion,
	}
}

// Valid 判断是否为已知类别
func (k ReminderKind) Valid() bool {
	switch k {
	case ReminderDiaryMissing, ReminderWeeklySummary, ReminderMonthlySummary, ReminderDailyQuestion:
		return true
	}
	return false
}

// ReminderShown 提醒已展示标记
// (user_id, kind, date) 唯一：同一类别每人每天至多提醒一次。
type ReminderShown struct {
	ID        int64        `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64        `gorm:"uniqueIndex:uniq_reminder_user_kind_date" json:"user_id"`
	Kind      ReminderKind `gorm:"size:20;uniqueIndex:uniq_reminder_user_kind_date" json:"kind"`
	Date      string       `gorm:"size:10;index;uniqueIndex:uniq_reminder_user_kind_date" json:"date"` // YYYY-MM-DD
	CreatedAt time.Time    `gorm:"autoCreateTime" json:"created_at"`
}

func (ReminderShown) TableName() string {
	return "reminder_shown"
}
