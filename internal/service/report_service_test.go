package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yuqie6/LifeMirror/internal/ai"
	"github.com/yuqie6/LifeMirror/internal/period"
	"github.com/yuqie6/LifeMirror/internal/schema"
)

// ===== Mock Implementations =====

type fakeDiaryRepo struct {
	diaries   []schema.Diary
	listErr   error
	getErr    error
	upsertErr error
}

func (f *fakeDiaryRepo) Upsert(ctx context.Context, diary *schema.Diary) error {
	return f.upsertErr
}

func (f *fakeDiaryRepo) GetByDate(ctx context.Context, userID int64, date string) (*schema.Diary, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	for i := range f.diaries {
		if f.diaries[i].UserID == userID && f.diaries[i].Date == date {
			return &f.diaries[i], nil
		}
	}
	return nil, nil
}

func (f *fakeDiaryRepo) ListByDateRange(ctx context.Context, userID int64, startDate, endDate string) ([]schema.Diary, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []schema.Diary
	for _, d := range f.diaries {
		if d.UserID == userID && d.Date >= startDate && d.Date <= endDate {
			out = append(out, d)
		}
	}
	return out, nil
}

type fakeTaskRepo struct {
	tasks []schema.Task
}

func (f *fakeTaskRepo) ListDoneByDateRange(ctx context.Context, userID int64, startDate, endDate string) ([]schema.Task, error) {
	var out []schema.Task
	for _, t := range f.tasks {
		if t.UserID == userID && t.Done && t.DoneDate >= startDate && t.DoneDate <= endDate {
			out = append(out, t)
		}
	}
	return out, nil
}

type fakeSummaryStore struct {
	rows      map[string]*schema.PeriodSummary
	getErr    error
	upsertErr error
}

func newFakeSummaryStore() *fakeSummaryStore {
	return &fakeSummaryStore{rows: make(map[string]*schema.PeriodSummary)}
}

func summaryKey(userID int64, periodType, startDate, endDate string) string {
	return periodType + "|" + startDate + "|" + endDate
}

func (f *fakeSummaryStore) Upsert(ctx context.Context, summary *schema.PeriodSummary) error {
	if f.upsertErr != nil {
		return f.upsertErr
	}
	cp := *summary
	f.rows[summaryKey(summary.UserID, summary.Type, summary.StartDate, summary.EndDate)] = &cp
	return nil
}

func (f *fakeSummaryStore) GetByRange(ctx context.Context, userID int64, periodType, startDate, endDate string) (*schema.PeriodSummary, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if row, ok := f.rows[summaryKey(userID, periodType, startDate, endDate)]; ok {
		cp := *row
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeSummaryStore) ListByType(ctx context.Context, userID int64, periodType string, limit int) ([]schema.PeriodSummary, error) {
	var out []schema.PeriodSummary
	for _, row := range f.rows {
		if row.UserID == userID && row.Type == periodType {
			out = append(out, *row)
		}
	}
	return out, nil
}

type fakeSummarizer struct {
	calls  int
	result *ai.PeriodSummaryResult
	err    error
}

func (f *fakeSummarizer) GeneratePeriodSummary(ctx context.Context, req *ai.PeriodSummaryRequest) (*ai.PeriodSummaryResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	if f.result != nil {
		return f.result, nil
	}
	return &ai.PeriodSummaryResult{
		Overview:     "Mock overview",
		Achievements: []string{"收获 1"},
		Patterns:     "Mock patterns",
		Suggestions:  "Mock suggestions",
	}, nil
}

// blockingSummarizer 首次调用阻塞到 release 关闭，后续调用直接返回
type blockingSummarizer struct {
	mu      sync.Mutex
	calls   int
	started chan struct{}
	release chan struct{}
}

func newBlockingSummarizer() *blockingSummarizer {
	return &blockingSummarizer{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
}

func (f *blockingSummarizer) GeneratePeriodSummary(ctx context.Context, req *ai.PeriodSummaryRequest) (*ai.PeriodSummaryResult, error) {
	f.mu.Lock()
	f.calls++
	first := f.calls == 1
	f.mu.Unlock()

	if first {
		close(f.started)
		<-f.release
	}
	return &ai.PeriodSummaryResult{Overview: "窗口 " + req.StartDate + " 的概述"}, nil
}

// ===== Tests =====

func testClock(y int, m time.Month, d int) period.FixedClock {
	return period.FixedClock{T: time.Date(y, m, d, 9, 0, 0, 0, time.Local)}
}

func newTestReportService(diaries *fakeDiaryRepo, tasks *fakeTaskRepo, store *fakeSummaryStore, sum *fakeSummarizer, clock period.Clock) *ReportService {
	return NewReportService(diaries, tasks, store, sum, clock)
}

func TestGenerateIdempotent(t *testing.T) {
	diaries := &fakeDiaryRepo{diaries: []schema.Diary{
		{ID: 1, UserID: 1, Date: "2025-03-03", Content: "跑步"},
	}}
	store := newFakeSummaryStore()
	sum := &fakeSummarizer{}
	svc := newTestReportService(diaries, &fakeTaskRepo{}, store, sum, testClock(2025, 3, 10))

	w := period.WeekOf(time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local)) // [03-02, 03-08]
	ctx := context.Background()

	first, err := svc.Generate(ctx, 1, schema.PeriodWeek, w, false)
	if err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	second, err := svc.Generate(ctx, 1, schema.PeriodWeek, w, false)
	if err != nil {
		t.Fatalf("Generate again error: %v", err)
	}

	if sum.calls != 1 {
		t.Fatalf("外部调用 %d 次，无 force 的重复请求应只调用 1 次", sum.calls)
	}
	if second.Overview != first.Overview {
		t.Fatalf("第二次返回内容变化: %q vs %q", second.Overview, first.Overview)
	}
	if len(store.rows) != 1 {
		t.Fatalf("持久化 %d 行，期望 1 行", len(store.rows))
	}
}

func TestGenerateForceRegenerates(t *testing.T) {
	diaries := &fakeDiaryRepo{diaries: []schema.Diary{
		{ID: 1, UserID: 1, Date: "2025-03-03", Content: "跑步"},
	}}
	store := newFakeSummaryStore()
	sum := &fakeSummarizer{}
	svc := newTestReportService(diaries, &fakeTaskRepo{}, store, sum, testClock(2025, 3, 10))

	w := period.WeekOf(time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local))
	ctx := context.Background()

	if _, err := svc.Generate(ctx, 1, schema.PeriodWeek, w, false); err != nil {
		t.Fatalf("Generate error: %v", err)
	}

	sum.result = &ai.PeriodSummaryResult{Overview: "重新生成的概述"}
	got, err := svc.Generate(ctx, 1, schema.PeriodWeek, w, true)
	if err != nil {
		t.Fatalf("Generate force error: %v", err)
	}

	if sum.calls != 2 {
		t.Fatalf("外部调用 %d 次，force 应触发第二次调用", sum.calls)
	}
	if got.Overview != "重新生成的概述" {
		t.Fatalf("Overview=%q", got.Overview)
	}
	if len(store.rows) != 1 {
		t.Fatalf("持久化 %d 行，重生成应原地更新", len(store.rows))
	}
}

func TestGenerateWindowNotElapsed(t *testing.T) {
	diaries := &fakeDiaryRepo{diaries: []schema.Diary{
		{ID: 1, UserID: 1, Date: "2025-03-10", Content: "今天"},
	}}
	store := newFakeSummaryStore()
	sum := &fakeSummarizer{}
	svc := newTestReportService(diaries, &fakeTaskRepo{}, store, sum, testClock(2025, 3, 10))

	// 包含 today 的当前周
	w := period.WeekOf(time.Date(2025, 3, 10, 0, 0, 0, 0, time.Local))
	_, err := svc.Generate(context.Background(), 1, schema.PeriodWeek, w, false)
	if !errors.Is(err, ErrWindowNotElapsed) {
		t.Fatalf("err=%v, want ErrWindowNotElapsed", err)
	}
	if sum.calls != 0 {
		t.Fatalf("未结束的窗口不应发起外部调用，calls=%d", sum.calls)
	}
}

func TestGenerateEmptyWindow(t *testing.T) {
	store := newFakeSummaryStore()
	sum := &fakeSummarizer{}
	svc := newTestReportService(&fakeDiaryRepo{}, &fakeTaskRepo{}, store, sum, testClock(2025, 3, 10))

	w := period.WeekOf(time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local))
	_, err := svc.Generate(context.Background(), 1, schema.PeriodWeek, w, false)
	if !errors.Is(err, ErrEmptyWindow) {
		t.Fatalf("err=%v, want ErrEmptyWindow", err)
	}
	if sum.calls != 0 {
		t.Fatalf("空窗口不应发起外部调用，calls=%d", sum.calls)
	}
}

func TestGenerateExternalCallFailed(t *testing.T) {
	diaries := &fakeDiaryRepo{diaries: []schema.Diary{
		{ID: 1, UserID: 1, Date: "2025-03-03", Content: "跑步"},
	}}
	store := newFakeSummaryStore()
	sum := &fakeSummarizer{err: errors.New("配额用尽")}
	svc := newTestReportService(diaries, &fakeTaskRepo{}, store, sum, testClock(2025, 3, 10))

	w := period.WeekOf(time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local))
	_, err := svc.Generate(context.Background(), 1, schema.PeriodWeek, w, false)
	if !errors.Is(err, ErrExternalCall) {
		t.Fatalf("err=%v, want ErrExternalCall", err)
	}
	if len(store.rows) != 0 {
		t.Fatalf("外部调用失败不应留下任何持久化行")
	}

	// 失败后的窗口查询应显示无汇总
	aggs, err := svc.AggregateWeeks(context.Background(), 1, []int{2025})
	if err != nil {
		t.Fatalf("AggregateWeeks error: %v", err)
	}
	for _, agg := range aggs {
		if agg.HasSummary {
			t.Fatalf("窗口 %s 不应有汇总", agg.Window.Key())
		}
	}
}

func TestGeneratePersistenceFailed(t *testing.T) {
	diaries := &fakeDiaryRepo{diaries: []schema.Diary{
		{ID: 1, UserID: 1, Date: "2025-03-03", Content: "跑步"},
	}}
	store := newFakeSummaryStore()
	store.upsertErr = errors.New("磁盘已满")
	sum := &fakeSummarizer{}
	svc := newTestReportService(diaries, &fakeTaskRepo{}, store, sum, testClock(2025, 3, 10))

	w := period.WeekOf(time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local))
	_, err := svc.Generate(context.Background(), 1, schema.PeriodWeek, w, false)
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err=%v, want ErrPersistence", err)
	}

	// 调用方重试安全：修复存储后重试成功
	store.upsertErr = nil
	got, err := svc.Generate(context.Background(), 1, schema.PeriodWeek, w, false)
	if err != nil {
		t.Fatalf("重试 Generate error: %v", err)
	}
	if got == nil || len(store.rows) != 1 {
		t.Fatalf("重试后应恰有一行持久化汇总")
	}
}

func TestGenerateInFlightGuardIsPerWindow(t *testing.T) {
	diaries := &fakeDiaryRepo{diaries: []schema.Diary{
		{ID: 1, UserID: 1, Date: "2025-03-03", Content: "本周"},
		{ID: 2, UserID: 1, Date: "2025-02-24", Content: "上周"},
	}}
	store := newFakeSummaryStore()
	sum := newBlockingSummarizer()
	svc := NewReportService(diaries, &fakeTaskRepo{}, store, sum, testClock(2025, 3, 10))

	wA := period.WeekOf(time.Date(2025, 3, 3, 0, 0, 0, 0, time.Local))  // [03-02, 03-08]
	wB := period.WeekOf(time.Date(2025, 2, 24, 0, 0, 0, 0, time.Local)) // [02-23, 03-01]
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Generate(ctx, 1, schema.PeriodWeek, wA, false)
		done <- err
	}()

	select {
	case <-sum.started:
	case <-time.After(2 * time.Second):
		t.Fatalf("首次生成未进入外部调用")
	}

	if !svc.IsGenerating(1, schema.PeriodWeek, wA) {
		t.Fatalf("窗口 A 生成中，IsGenerating 应为 true")
	}

	// 同一窗口的并发请求被拒绝
	if _, err := svc.Generate(ctx, 1, schema.PeriodWeek, wA, false); !errors.Is(err, ErrGenerating) {
		t.Fatalf("err=%v, want ErrGenerating", err)
	}

	// 另一个窗口不受影响
	if _, err := svc.Generate(ctx, 1, schema.PeriodWeek, wB, false); err != nil {
		t.Fatalf("窗口 B 的生成不应被窗口 A 阻塞: %v", err)
	}

	close(sum.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("窗口 A 生成失败: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("窗口 A 生成未结束")
	}

	// 完成后释放占位，同一窗口可以再次请求（命中已有行，不再调用外部）
	if svc.IsGenerating(1, schema.PeriodWeek, wA) {
		t.Fatalf("生成结束后 IsGenerating 应为 false")
	}
	if _, err := svc.Generate(ctx, 1, schema.PeriodWeek, wA, false); err != nil {
		t.Fatalf("生成结束后的重复请求应命中已有行: %v", err)
	}
	if len(store.rows) != 2 {
		t.Fatalf("持久化 %d 行，期望窗口 A、B 各一行", len(store.rows))
	}
}

func TestAggregateWeeksCrossYearDedup(t *testing.T) {
	// 窗口 [2025-12-28, 2026-01-03]：两个年度各贡献一条记录
	diaries := &fakeDiaryRepo{diaries: []schema.Diary{
		{ID: 1, UserID: 1, Date: "2025-12-30", Content: "年末"},
		{ID: 2, UserID: 1, Date: "2026-01-02", Content: "年初"},
	}}
	store := newFakeSummaryStore()
	svc := newTestReportService(diaries, &fakeTaskRepo{}, store, &fakeSummarizer{}, testClock(2026, 2, 1))

	aggs, err := svc.AggregateWeeks(context.Background(), 1, []int{2025, 2026})
	if err != nil {
		t.Fatalf("AggregateWeeks error: %v", err)
	}

	if len(aggs) != 1 {
		t.Fatalf("len=%d，跨年同周应只产生一个聚合", len(aggs))
	}
	agg := aggs[0]
	if agg.Window.StartDate() != "2025-12-28" || agg.Window.EndDate() != "2026-01-03" {
		t.Fatalf("窗口错误: [%s, %s]", agg.Window.StartDate(), agg.Window.EndDate())
	}
	if agg.SourceCount != 2 {
		t.Fatalf("SourceCount=%d，两条记录都应归入该窗口", agg.SourceCount)
	}
}

func TestAggregateWeeksEnrichmentFailureTolerated(t *testing.T) {
	diaries := &fakeDiaryRepo{diaries: []schema.Diary{
		{ID: 1, UserID: 1, Date: "2025-03-03", Content: "跑步"},
	}}
	store := newFakeSummaryStore()
	store.getErr = errors.New("查询超时")
	svc := newTestReportService(diaries, &fakeTaskRepo{}, store, &fakeSummarizer{}, testClock(2025, 3, 10))

	aggs, err := svc.AggregateWeeks(context.Background(), 1, []int{2025})
	if err != nil {
		t.Fatalf("汇总查询失败不应让聚合失败: %v", err)
	}
	if len(aggs) != 1 || aggs[0].HasSummary {
		t.Fatalf("查询失败应降级为无汇总: %+v", aggs)
	}
}

func TestAggregateOrderingAscending(t *testing.T) {
	diaries := &fakeDiaryRepo{diaries: []schema.Diary{
		{ID: 1, UserID: 1, Date: "2025-03-20", Content: "c"},
		{ID: 2, UserID: 1, Date: "2025-01-05", Content: "a"},
		{ID: 3, UserID: 1, Date: "2025-02-10", Content: "b"},
	}}
	svc := newTestReportService(diaries, &fakeTaskRepo{}, newFakeSummaryStore(), &fakeSummarizer{}, testClock(2025, 4, 1))

	aggs, err := svc.AggregateMonths(context.Background(), 1, []int{2025})
	if err != nil {
		t.Fatalf("AggregateMonths error: %v", err)
	}
	if len(aggs) != 3 {
		t.Fatalf("len=%d, want 3", len(aggs))
	}
	for i := 1; i < len(aggs); i++ {
		if !aggs[i-1].Window.Start.Before(aggs[i].Window.Start) {
			t.Fatalf("聚合未按起始日期升序: %s >= %s", aggs[i-1].Window.Key(), aggs[i].Window.Key())
		}
	}
}
