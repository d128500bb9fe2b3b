package schema

import "time"

// Task 待办事项，完成后记录完成日期用于周期汇总
type Task struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    int64     `gorm:"index" json:"user_id"`
	Title     string    `gorm:"size:200" json:"title"`
	Done      bool      `gorm:"default:false;index" json:"done"`
	DoneDate  string    `gorm:"size:10;index" json:"done_date"` // YYYY-MM-DD，未完成为空
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Task) TableName() string {
	return "tasks"
}
