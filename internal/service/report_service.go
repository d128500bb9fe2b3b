package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/yuqie6/LifeMirror/internal/ai"
	"github.com/yuqie6/LifeMirror/internal/eventbus"
	"github.com/yuqie6/LifeMirror/internal/period"
	"github.com/yuqie6/LifeMirror/internal/repository"
	"github.com/yuqie6/LifeMirror/internal/schema"
)

// PeriodAggregate 一个周期窗口内的源记录聚合
type PeriodAggregate struct {
	Window      period.Window `json:"window"`
	DiaryIDs    []int64       `json:"diary_ids"`
	TaskIDs     []int64       `json:"task_ids"`
	SourceCount int           `json:"source_count"`
	HasSummary  bool          `json:"has_summary"`
	Overview    string        `json:"overview,omitempty"`
}

// ReportService 周期聚合与幂等汇总生成
type ReportService struct {
	diaryRepo   DiaryRepository
	taskRepo    TaskRepository
	summaryRepo PeriodSummaryRepository
	summarizer  Summarizer
	memory      MemoryQuerier // 可选
	hub         *eventbus.Hub // 可选
	clock       period.Clock

	// 按窗口身份记录进行中的生成，窗口 A 的生成不影响窗口 B
	genMu      sync.Mutex
	generating map[string]bool
}

// NewReportService 创建服务
func NewReportService(
	diaryRepo DiaryRepository,
	taskRepo TaskRepository,
	summaryRepo PeriodSummaryRepository,
	summarizer Summarizer,
	clock period.Clock,
) *ReportService {
	if clock == nil {
		clock = period.SystemClock{}
	}
	return &ReportService{
		diaryRepo:   diaryRepo,
		taskRepo:    taskRepo,
		summaryRepo: summaryRepo,
		summarizer:  summarizer,
		clock:       clock,
		generating:  make(map[string]bool),
	}
}

// SetMemory 设置历史记忆检索（可选）
func (s *ReportService) SetMemory(memory MemoryQuerier) {
	s.memory = memory
}

// SetHub 设置事件总线（可选）
func (s *ReportService) SetHub(hub *eventbus.Hub) {
	s.hub = hub
}

// AggregateWeeks 将多个年度的日记与已完成待办按周窗口聚合。
// 跨年的周只出现一次：各年度独立扫描，但以窗口身份去重合并。
func (s *ReportService) AggregateWeeks(ctx context.Context, userID int64, years []int) ([]PeriodAggregate, error) {
	return s.aggregate(ctx, userID, years, schema.PeriodWeek)
}

// AggregateMonths 按月窗口聚合
func (s *ReportService) AggregateMonths(ctx context.Context, userID int64, years []int) ([]PeriodAggregate, error) {
	return s.aggregate(ctx, userID, years, schema.PeriodMonth)
}

func (s *ReportService) aggregate(ctx context.Context, userID int64, years []int, periodType string) ([]PeriodAggregate, error) {
	windowOf := period.WeekOf
	if periodType == schema.PeriodMonth {
		windowOf = period.MonthOf
	}

	seen := make(map[string]*PeriodAggregate)

	for _, year := range years {
		startDate, endDate := repository.YearRange(year)

		diaries, err := s.diaryRepo.ListByDateRange(ctx, userID, startDate, endDate)
		if err != nil {
			return nil, fmt.Errorf("扫描 %d 年日记失败: %w", year, err)
		}
		for _, d := range diaries {
			agg, err := s.aggregateFor(seen, windowOf, d.Date)
			if err != nil {
				slog.Warn("跳过无法解析日期的日记", "id", d.ID, "date", d.Date, "error", err)
				continue
			}
			if !containsID(agg.DiaryIDs, d.ID) {
				agg.DiaryIDs = append(agg.DiaryIDs, d.ID)
			}
		}

		tasks, err := s.taskRepo.ListDoneByDateRange(ctx, userID, startDate, endDate)
		if err != nil {
			return nil, fmt.Errorf("扫描 %d 年待办失败: %w", year, err)
		}
		for _, t := range tasks {
			agg, err := s.aggregateFor(seen, windowOf, t.DoneDate)
			if err != nil {
				slog.Warn("跳过无法解析日期的待办", "id", t.ID, "date", t.DoneDate, "error", err)
				continue
			}
			if !containsID(agg.TaskIDs, t.ID) {
				agg.TaskIDs = append(agg.TaskIDs, t.ID)
			}
		}
	}

	out := make([]PeriodAggregate, 0, len(seen))
	for _, agg := range seen {
		agg.SourceCount = len(agg.DiaryIDs) + len(agg.TaskIDs)

		// 逐窗口查已有汇总；查询失败降级为“无汇总”，不让聚合整体失败
		existing, err := s.summaryRepo.GetByRange(ctx, userID, periodType, agg.Window.StartDate(), agg.Window.EndDate())
		if err != nil {
			slog.Warn("查询已有汇总失败，按无汇总处理", "window", agg.Window.Key(), "error", err)
		} else if existing != nil {
			agg.HasSummary = true
			agg.Overview = existing.Overview
		}

		out = append(out, *agg)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Window.Start.Before(out[j].Window.Start)
	})
	return out, nil
}

func (s *ReportService) aggregateFor(seen map[string]*PeriodAggregate, windowOf func(time.Time) period.Window, date string) (*PeriodAggregate, error) {
	t, err := period.ParseDate(date)
	if err != nil {
		return nil, err
	}
	w := windowOf(t)
	key := w.Key()
	agg, ok := seen[key]
	if !ok {
		agg = &PeriodAggregate{Window: w}
		seen[key] = agg
	}
	return agg, nil
}

func containsID(ids []int64, id int64) bool {
	for _, it := range ids {
		if it == id {
			return true
		}
	}
	return false
}

// Generate 幂等生成指定窗口的汇总。
// 已存在且未要求重生成时直接返回已有行；AI 调用成功后才写库；
// upsert 冲突键保证重复调用收敛到一行。
func (s *ReportService) Generate(ctx context.Context, userID int64, periodType string, w period.Window, force bool) (*schema.PeriodSummary, error) {
	if periodType != schema.PeriodWeek && periodType != schema.PeriodMonth {
		return nil, fmt.Errorf("未知周期类型: %s", periodType)
	}

	key := fmt.Sprintf("%d|%s|%s", userID, periodType, w.Key())
	if !s.beginGenerate(key) {
		return nil, ErrGenerating
	}
	defer s.endGenerate(key)

	today := s.clock.Now()
	if !period.IsPast(w, today) {
		return nil, ErrWindowNotElapsed
	}

	diaries, err := s.diaryRepo.ListByDateRange(ctx, userID, w.StartDate(), w.EndDate())
	if err != nil {
		return nil, fmt.Errorf("读取窗口日记失败: %w", err)
	}
	tasks, err := s.taskRepo.ListDoneByDateRange(ctx, userID, w.StartDate(), w.EndDate())
	if err != nil {
		return nil, fmt.Errorf("读取窗口待办失败: %w", err)
	}
	if len(diaries) == 0 && len(tasks) == 0 {
		return nil, ErrEmptyWindow
	}

	// 读后写：存在性检查必须先于外部调用
	existing, err := s.summaryRepo.GetByRange(ctx, userID, periodType, w.StartDate(), w.EndDate())
	if err != nil {
		return nil, fmt.Errorf("查询已有汇总失败: %w", err)
	}
	if existing != nil && !force {
		slog.Info("返回已有汇总", "type", periodType, "window", w.Key())
		return existing, nil
	}

	req := &ai.PeriodSummaryRequest{
		PeriodType: periodType,
		StartDate:  w.StartDate(),
		EndDate:    w.EndDate(),
	}
	for _, d := range diaries {
		req.Diaries = append(req.Diaries, ai.DiaryInfo{Date: d.Date, Mood: d.Mood, Content: d.Content})
	}
	for _, t := range tasks {
		req.Tasks = append(req.Tasks, ai.TaskInfo{DoneDate: t.DoneDate, Title: t.Title})
	}
	if s.memory != nil {
		memories, err := s.memory.Query(ctx, fmt.Sprintf("%s 至 %s 的生活回顾", w.StartDate(), w.EndDate()), 3)
		if err != nil {
			slog.Warn("检索历史记忆失败，继续生成", "error", err)
		} else {
			req.Memories = memories
		}
	}

	result, err := s.summarizer.GeneratePeriodSummary(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExternalCall, err)
	}

	row := &schema.PeriodSummary{
		UserID:       userID,
		Type:         periodType,
		StartDate:    w.StartDate(),
		EndDate:      w.EndDate(),
		Overview:     result.Overview,
		Achievements: schema.JSONArray(result.Achievements),
		Patterns:     result.Patterns,
		Suggestions:  result.Suggestions,
		SourceCount:  len(diaries) + len(tasks),
	}
	if existing != nil {
		row.ID = existing.ID
		row.CreatedAt = existing.CreatedAt
	}

	if err := s.summaryRepo.Upsert(ctx, row); err != nil {
		// AI 调用已花费但不自动重试；调用方重试安全
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if s.hub != nil {
		s.hub.Publish(eventbus.SummaryEvent(periodType, w.StartDate(), w.EndDate()))
	}

	slog.Info("阶段汇总生成完成", "type", periodType, "window", w.Key(), "sources", row.SourceCount)
	return row, nil
}

// IsGenerating 判断窗口是否有进行中的生成
func (s *ReportService) IsGenerating(userID int64, periodType string, w period.Window) bool {
	key := fmt.Sprintf("%d|%s|%s", userID, periodType, w.Key())
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.generating[key]
}

func (s *ReportService) beginGenerate(key string) bool {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	if s.generating[key] {
		return false
	}
	s.generating[key] = true
	return true
}

func (s *ReportService) endGenerate(key string) {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	delete(s.generating, key)
}
