package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/LifeMirror/internal/schema"
	"gorm.io/gorm"
)

// TaskRepository 待办仓储
type TaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository 创建仓储
func NewTaskRepository(db *gorm.DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// Create 创建待办
func (r *TaskRepository) Create(ctx context.Context, task *schema.Task) error {
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return fmt.Errorf("创建待办失败: %w", err)
	}
	return nil
}

// MarkDone 标记完成并记录完成日期
func (r *TaskRepository) MarkDone(ctx context.Context, userID, taskID int64, doneDate string) error {
	res := r.db.WithContext(ctx).Model(&schema.Task{}).
		Where("id = ? AND user_id = ?", taskID, userID).
		Updates(map[string]interface{}{"done": true, "done_date": doneDate})
	if res.Error != nil {
		return fmt.Errorf("更新待办失败: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// GetByID 按 ID 获取
func (r *TaskRepository) GetByID(ctx context.Context, userID, taskID int64) (*schema.Task, error) {
	var task schema.Task
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", taskID, userID).
		First(&task).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询待办失败: %w", err)
	}
	return &task, nil
}

// ListDoneByDateRange 按完成日期闭区间获取已完成待办（升序）
func (r *TaskRepository) ListDoneByDateRange(ctx context.Context, userID int64, startDate, endDate string) ([]schema.Task, error) {
	var tasks []schema.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND done = ? AND done_date >= ? AND done_date <= ?", userID, true, startDate, endDate).
		Order("done_date ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("查询已完成待办失败: %w", err)
	}
	return tasks, nil
}

// ListPending 获取未完成待办
func (r *TaskRepository) ListPending(ctx context.Context, userID int64) ([]schema.Task, error) {
	var tasks []schema.Task
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND done = ?", userID, false).
		Order("created_at ASC").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("查询待办列表失败: %w", err)
	}
	return tasks, nil
}
