package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/LifeMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// QuestionRepository 反思问题仓储
type QuestionRepository struct {
	db *gorm.DB
}

// NewQuestionRepository 创建仓储
func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// UpsertQuestion 按 MM-DD 插入或更新问题
func (r *QuestionRepository) UpsertQuestion(ctx context.Context, q *schema.ReflectionQuestion) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "month_day"}},
		DoUpdates: clause.AssignmentColumns([]string{"text"}),
	}).Create(q).Error
}

// GetByMonthDay 获取某个日历日期的问题，不存在返回 nil
func (r *QuestionRepository) GetByMonthDay(ctx context.Context, monthDay string) (*schema.ReflectionQuestion, error) {
	var q schema.ReflectionQuestion
	err := r.db.WithContext(ctx).
		Where("month_day = ?", monthDay).
		First(&q).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询反思问题失败: %w", err)
	}
	return &q, nil
}

// HasAnswer 判断用户今年是否已回答该问题
func (r *QuestionRepository) HasAnswer(ctx context.Context, userID, questionID int64, year int) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&schema.ReflectionAnswer{}).
		Where("user_id = ? AND question_id = ? AND year = ?", userID, questionID, year).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("查询回答失败: %w", err)
	}
	return count > 0, nil
}

// CreateAnswer 写入回答（同一用户同一问题同一年收敛到一行）
func (r *QuestionRepository) CreateAnswer(ctx context.Context, answer *schema.ReflectionAnswer) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "question_id"}, {Name: "year"}},
		DoUpdates: clause.AssignmentColumns([]string{"content"}),
	}).Create(answer).Error
}
