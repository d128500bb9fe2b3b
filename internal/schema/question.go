package schema

import "time"

// ReflectionQuestion 每日反思问题，按 MM-DD 绑定到日历日期
type ReflectionQuestion struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	MonthDay string `gorm:"size:5;uniqueIndex" json:"month_day"` // MM-DD
	Text     string `gorm:"type:text" json:"text"`
}

func (ReflectionQuestion) TableName() string {
	return "reflection_questions"
}

// ReflectionAnswer 用户对反思问题的回答，每年每题至多一条
type ReflectionAnswer struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID     int64     `gorm:"index;uniqueIndex:uniq_answer_user_question_year" json:"user_id"`
	QuestionID int64     `gorm:"uniqueIndex:uniq_answer_user_question_year" json:"question_id"`
	Year       int       `gorm:"uniqueIndex:uniq_answer_user_question_year" json:"year"`
	Content    string    `gorm:"type:text" json:"content"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (ReflectionAnswer) TableName() string {
	return "reflection_answers"
}
