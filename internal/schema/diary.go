package schema

import "time"

// Diary 日记，每个用户每天至多一篇
type Diary struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index;uniqueIndex:uniq_diary_user_date" json:"user_id"`
	Date      string    `gorm:"size:10;uniqueIndex:uniq_diary_user_date" json:"date"` // YYYY-MM-DD
	Content   string    `gorm:"type:text" json:"content"`
	Mood      string    `gorm:"size:20" json:"mood"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Diary) TableName() string {
	return "diaries"
}
