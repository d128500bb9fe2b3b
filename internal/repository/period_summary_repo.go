package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yuqie6/LifeMirror/internal/schema"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PeriodSummaryRepository 阶段汇总仓储
type PeriodSummaryRepository struct {
	db *gorm.DB
}

// NewPeriodSummaryRepository 创建仓储
func NewPeriodSummaryRepository(db *gorm.DB) *PeriodSummaryRepository {
	return &PeriodSummaryRepository{db: db}
}

// Upsert 插入或更新。唯一索引 (user_id, type, start_date, end_date) 保证
// 重复写入收敛到一行，幂等生成依赖这里的冲突键。
func (r *PeriodSummaryRepository) Upsert(ctx context.Context, summary *schema.PeriodSummary) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "user_id"}, {Name: "type"}, {Name: "start_date"}, {Name: "end_date"},
		},
		UpdateAll: true,
	}).Create(summary).Error
}

// GetByRange 按类型和日期范围获取，不存在返回 nil
func (r *PeriodSummaryRepository) GetByRange(ctx context.Context, userID int64, periodType, startDate, endDate string) (*schema.PeriodSummary, error) {
	var summary schema.PeriodSummary
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ? AND start_date = ? AND end_date = ?", userID, periodType, startDate, endDate).
		First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("查询阶段汇总失败: %w", err)
	}
	return &summary, nil
}

// ListByType 按类型获取历史汇总（按开始日期倒序）
func (r *PeriodSummaryRepository) ListByType(ctx context.Context, userID int64, periodType string, limit int) ([]schema.PeriodSummary, error) {
	var summaries []schema.PeriodSummary
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND type = ?", userID, periodType).
		Order("start_date DESC").
		Limit(limit).
		Find(&summaries).Error
	if err != nil {
		return nil, fmt.Errorf("查询历史汇总失败: %w", err)
	}
	return summaries, nil
}
