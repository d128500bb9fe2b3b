package service

import (
	"context"
	"strconv"
	"sync"
	"testing"

	"github.com/yuqie6/LifeMirror/internal/period"
	"github.com/yuqie6/LifeMirror/internal/schema"
)

// ===== Mock Implementations =====

type fakeShownRepo struct {
	mu      sync.Mutex
	shown   map[string]bool
	wasErr  error
	markErr error
}

func newFakeShownRepo() *fakeShownRepo {
	return &fakeShownRepo{shown: make(map[string]bool)}
}

func shownKey(userID int64, kind schema.ReminderKind, date string) string {
	return strconv.FormatInt(userID, 10) + "|" + string(kind) + "|" + date
}

func (f *fakeShownRepo) MarkShown(ctx context.Context, userID int64, kind schema.ReminderKind, date string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.markErr != nil {
		return f.markErr
	}
	f.shown[shownKey(userID, kind, date)] = true
	return nil
}

func (f *fakeShownRepo) WasShown(ctx context.Context, userID int64, kind schema.ReminderKind, date string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.wasErr != nil {
		return false, f.wasErr
	}
	return f.shown[shownKey(userID, kind, date)], nil
}

type fakeQuestionRepo struct {
	byMonthDay map[string]*schema.ReflectionQuestion
	answered   map[int64]map[int]bool // questionID -> year -> answered
	getErr     error
}

func newFakeQuestionRepo() *fakeQuestionRepo {
	return &fakeQuestionRepo{
		byMonthDay: make(map[string]*schema.ReflectionQuestion),
		answered:   make(map[int64]map[int]bool),
	}
}

func (f *fakeQuestionRepo) GetByMonthDay(ctx context.Context, monthDay string) (*schema.ReflectionQuestion, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.byMonthDay[monthDay], nil
}

func (f *fakeQuestionRepo) HasAnswer(ctx context.Context, userID, questionID int64, year int) (bool, error) {
	return f.answered[questionID][year], nil
}

// ===== Tests =====

func newTestGate(diaries *fakeDiaryRepo, questions *fakeQuestionRepo, shown *fakeShownRepo, clock period.Clock) *ReminderService {
	return NewReminderService(diaries, questions, shown, clock)
}

func TestWeeklySummaryDueOnMonday(t *testing.T) {
	// 2025-03-10 是周一
	gate := newTestGate(&fakeDiaryRepo{}, newFakeQuestionRepo(), newFakeShownRepo(), testClock(2025, 3, 10))

	prompt, err := gate.Check(context.Background(), 1, schema.ReminderWeeklySummary)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if prompt == nil {
		t.Fatalf("周一且未展示过，应返回提醒")
	}
	if prompt.Window == nil {
		t.Fatalf("周提醒缺少窗口 payload")
	}
	if prompt.Window.StartDate() != "2025-03-02" || prompt.Window.EndDate() != "2025-03-08" {
		t.Fatalf("窗口应为刚结束的完整周: [%s, %s]", prompt.Window.StartDate(), prompt.Window.EndDate())
	}
}

func TestWeeklySummaryNotTriggerDay(t *testing.T) {
	// 2025-03-11 是周二
	gate := newTestGate(&fakeDiaryRepo{}, newFakeQuestionRepo(), newFakeShownRepo(), testClock(2025, 3, 11))

	prompt, err := gate.Check(context.Background(), 1, schema.ReminderWeeklySummary)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if prompt != nil {
		t.Fatalf("非周一不应触发周提醒: %+v", prompt)
	}
}

func TestMonthlySummaryDueOnFirstDay(t *testing.T) {
	gate := newTestGate(&fakeDiaryRepo{}, newFakeQuestionRepo(), newFakeShownRepo(), testClock(2025, 3, 1))

	prompt, err := gate.Check(context.Background(), 1, schema.ReminderMonthlySummary)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if prompt == nil || prompt.Window == nil {
		t.Fatalf("1 号应返回带窗口的月提醒")
	}
	if prompt.Window.StartDate() != "2025-02-01" || prompt.Window.EndDate() != "2025-02-28" {
		t.Fatalf("窗口应为刚结束的完整月: [%s, %s]", prompt.Window.StartDate(), prompt.Window.EndDate())
	}
}

func TestDiaryMissingPrompt(t *testing.T) {
	gate := newTestGate(&fakeDiaryRepo{}, newFakeQuestionRepo(), newFakeShownRepo(), testClock(2025, 3, 10))

	prompt, err := gate.Check(context.Background(), 1, schema.ReminderDiaryMissing)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if prompt == nil || prompt.MissedDate != "2025-03-09" {
		t.Fatalf("应提醒补 2025-03-09 的日记: %+v", prompt)
	}
}

func TestDiaryMissingNoPromptWhenDiaryExists(t *testing.T) {
	diaries := &fakeDiaryRepo{diaries: []schema.Diary{
		{ID: 1, UserID: 1, Date: "2025-03-09", Content: "写过了"},
	}}
	shown := newFakeShownRepo()
	gate := newTestGate(diaries, newFakeQuestionRepo(), shown, testClock(2025, 3, 10))

	prompt, err := gate.Check(context.Background(), 1, schema.ReminderDiaryMissing)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if prompt != nil {
		t.Fatalf("昨天有日记就不该提醒，与展示标记无关: %+v", prompt)
	}
}

func TestResolvedKindDoesNotRetriggerSameDay(t *testing.T) {
	shown := newFakeShownRepo()
	gate := newTestGate(&fakeDiaryRepo{}, newFakeQuestionRepo(), shown, testClock(2025, 3, 10))
	ctx := context.Background()

	prompt, err := gate.Check(ctx, 1, schema.ReminderDiaryMissing)
	if err != nil || prompt == nil {
		t.Fatalf("首次检查应返回提醒: prompt=%v err=%v", prompt, err)
	}

	// 检查本身不写标记：再查一次仍有提醒
	prompt, err = gate.Check(ctx, 1, schema.ReminderDiaryMissing)
	if err != nil || prompt == nil {
		t.Fatalf("检查不应有副作用: prompt=%v err=%v", prompt, err)
	}

	if err := gate.Resolve(ctx, 1, schema.ReminderDiaryMissing); err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	prompt, err = gate.Check(ctx, 1, schema.ReminderDiaryMissing)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if prompt != nil {
		t.Fatalf("当天已处理过不应再次提醒: %+v", prompt)
	}
}

func TestResolvedKindRetriggersNextDay(t *testing.T) {
	shown := newFakeShownRepo()
	diaries := &fakeDiaryRepo{}
	ctx := context.Background()

	gate := newTestGate(diaries, newFakeQuestionRepo(), shown, testClock(2025, 3, 10))
	if err := gate.Resolve(ctx, 1, schema.ReminderDiaryMissing); err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	// 第二天，前置条件仍成立（还是没有日记）
	gate = newTestGate(diaries, newFakeQuestionRepo(), shown, testClock(2025, 3, 11))
	prompt, err := gate.Check(ctx, 1, schema.ReminderDiaryMissing)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if prompt == nil || prompt.MissedDate != "2025-03-10" {
		t.Fatalf("次日应重新提醒: %+v", prompt)
	}
}

func TestResolveMarksOnlyTheResolvingUser(t *testing.T) {
	shown := newFakeShownRepo()
	gate := newTestGate(&fakeDiaryRepo{}, newFakeQuestionRepo(), shown, testClock(2025, 3, 10))
	ctx := context.Background()

	if err := gate.Resolve(ctx, 1, schema.ReminderDiaryMissing); err != nil {
		t.Fatalf("Resolve error: %v", err)
	}

	prompt, err := gate.Check(ctx, 1, schema.ReminderDiaryMissing)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if prompt != nil {
		t.Fatalf("用户 1 当天已处理过不应再提醒: %+v", prompt)
	}

	// 用户 2 的标记独立，不受用户 1 的 Resolve 影响
	prompt, err = gate.Check(ctx, 2, schema.ReminderDiaryMissing)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if prompt == nil || prompt.MissedDate != "2025-03-09" {
		t.Fatalf("用户 2 应照常收到提醒: %+v", prompt)
	}
}

func TestDailyQuestionPrompt(t *testing.T) {
	questions := newFakeQuestionRepo()
	questions.byMonthDay["03-10"] = &schema.ReflectionQuestion{ID: 7, MonthDay: "03-10", Text: "今年最想完成的一件事是什么？"}
	gate := newTestGate(&fakeDiaryRepo{}, questions, newFakeShownRepo(), testClock(2025, 3, 10))

	prompt, err := gate.Check(context.Background(), 1, schema.ReminderDailyQuestion)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if prompt == nil || prompt.Question == nil || prompt.Question.ID != 7 {
		t.Fatalf("应返回今日问题: %+v", prompt)
	}
}

func TestDailyQuestionAnsweredThisYear(t *testing.T) {
	questions := newFakeQuestionRepo()
	questions.byMonthDay["03-10"] = &schema.ReflectionQuestion{ID: 7, MonthDay: "03-10", Text: "问题"}
	questions.answered[7] = map[int]bool{2025: true}
	gate := newTestGate(&fakeDiaryRepo{}, questions, newFakeShownRepo(), testClock(2025, 3, 10))

	prompt, err := gate.Check(context.Background(), 1, schema.ReminderDailyQuestion)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if prompt != nil {
		t.Fatalf("今年已回答不应提醒: %+v", prompt)
	}
}

func TestDailyQuestionNotDefined(t *testing.T) {
	gate := newTestGate(&fakeDiaryRepo{}, newFakeQuestionRepo(), newFakeShownRepo(), testClock(2025, 3, 10))

	prompt, err := gate.Check(context.Background(), 1, schema.ReminderDailyQuestion)
	if err != nil {
		t.Fatalf("Check error: %v", err)
	}
	if prompt != nil {
		t.Fatalf("当天没有定义问题不应提醒: %+v", prompt)
	}
}
