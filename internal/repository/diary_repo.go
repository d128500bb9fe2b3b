package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/LifeMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DiaryRepository 日记仓储
type DiaryRepository struct {
	db *gorm.DB
}

// NewDiaryRepository 创建仓储
func NewDiaryRepository(db *gorm.DB) *DiaryRepository {
	return &DiaryRepository{db: db}
}

// Upsert 插入或更新（同一用户同一天收敛到一行）
func (r *DiaryRepository) Upsert(ctx context.Context, diary *schema.Diary) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "date"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "mood", "updated_at"}),
	}).Create(diary).Error
}

// GetByDate 获取某天的日记，不存在返回 nil
func (r *DiaryRepository) GetByDate(ctx context.Context, userID int64, date string) (*schema.Diary, error) {
	var diary schema.Diary
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		First(&diary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询日记失败: %w", err)
	}
	return &diary, nil
}

// ListByDateRange 按日期闭区间获取日记（升序）
func (r *DiaryRepository) ListByDateRange(ctx context.Context, userID int64, startDate, endDate string) ([]schema.Diary, error) {
	var diaries []schema.Diary
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND date >= ? AND date <= ?", userID, startDate, endDate).
		Order("date ASC").
		Find(&diaries).Error
	if err != nil {
		return nil, fmt.Errorf("查询日记列表失败: %w", err)
	}
	return diaries, nil
}
