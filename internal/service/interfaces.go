package service

import (
	"context"

	"github.com/yuqie6/LifeMirror/internal/ai"
	"github.com/yuqie6/LifeMirror/internal/schema"
)

// 仓储/外部依赖的最小接口集合（ISP）

type DiaryRepository interface {
	Upsert(ctx context.Context, diary *schema.Diary) error
	GetByDate(ctx context.Context, userID int64, date string) (*schema.Diary, error)
	ListByDateRange(ctx context.Context, userID int64, startDate, endDate string) ([]schema.Diary, error)
}

type TaskRepository interface {
	ListDoneByDateRange(ctx context.Context, userID int64, startDate, endDate string) ([]schema.Task, error)
}

type PeriodSummaryRepository interface {
	Upsert(ctx context.Context, summary *schema.PeriodSummary) error
	GetByRange(ctx context.Context, userID int64, periodType, startDate, endDate string) (*schema.PeriodSummary, error)
	ListByType(ctx context.Context, userID int64, periodType string, limit int) ([]schema.PeriodSummary, error)
}

type ReminderShownRepository interface {
	MarkShown(ctx context.Context, userID int64, kind schema.ReminderKind, date string) error
	WasShown(ctx context.Context, userID int64, kind schema.ReminderKind, date string) (bool, error)
}

type QuestionRepository interface {
	GetByMonthDay(ctx context.Context, monthDay string) (*schema.ReflectionQuestion, error)
	HasAnswer(ctx context.Context, userID, questionID int64, year int) (bool, error)
}

type Summarizer interface {
	GeneratePeriodSummary(ctx context.Context, req *ai.PeriodSummaryRequest) (*ai.PeriodSummaryResult, error)
}

// MemoryQuerier 历史记忆检索（可选依赖）
type MemoryQuerier interface {
	Query(ctx context.Context, query string, topK int) ([]string, error)
}

// Pusher 提醒外推通道（可选依赖，如 Telegram）
type Pusher interface {
	Push(text string) error
}
