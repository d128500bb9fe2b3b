package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/LifeMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReminderRepository 提醒已展示标记仓储
type ReminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository 创建仓储
func NewReminderRepository(db *gorm.DB) *ReminderRepository {
	return &ReminderRepository{db: db}
}

// MarkShown 写入已展示标记。唯一索引 (user_id, kind, date) 保证
// 并发写入（如多个标签页）收敛到一行。
func (r *ReminderRepository) MarkShown(ctx context.Context, userID int64, kind schema.ReminderKind, date string) error {
	rec := schema.ReminderShown{UserID: userID, Kind: kind, Date: date}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "kind"}, {Name: "date"}},
		DoNothing: true,
	}).Create(&rec).Error
}

// WasShown 判断某类提醒今天是否已展示。
// 主路径是单行查询；主查询出错时退回当天全量扫描再过滤，
// 以扫描结果为准，避免单行查询的偶发错误误判成“已展示”或“未展示”。
func (r *ReminderRepository) WasShown(ctx context.Context, userID int64, kind schema.ReminderKind, date string) (bool, error) {
	var rec schema.ReminderShown
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND kind = ? AND date = ?", userID, kind, date).
		First(&rec).Error
	if err == nil {
		return true, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}

	// 回退路径
	var all []schema.ReminderShown
	if err2 := r.db.WithContext(ctx).
		Where("user_id = ? AND date = ?", userID, date).
		Find(&all).Error; err2 != nil {
		return false, fmt.Errorf("查询提醒标记失败: %w", err2)
	}
	for _, it := range all {
		if it.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

// DeleteBefore 清理早于 date 的标记，定期维护任务使用
func (r *ReminderRepository) DeleteBefore(ctx context.Context, date string) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("date < ?", date).
		Delete(&schema.ReminderShown{})
	if res.Error != nil {
		return 0, fmt.Errorf("清理提醒标记失败: %w", res.Error)
	}
	return res.RowsAffected, nil
}
