package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/yuqie6/LifeMirror/internal/schema"
)

// errFirstKindGate 指定类别检查报错、其余正常的门控
type errFirstKindGate struct {
	inner   *ReminderService
	errKind schema.ReminderKind
}

func (g *errFirstKindGate) Check(ctx context.Context, userID int64, kind schema.ReminderKind) (*ReminderPrompt, error) {
	if kind == g.errKind {
		return nil, errors.New("后端抖动")
	}
	return g.inner.Check(ctx, userID, kind)
}

func (g *errFirstKindGate) Resolve(ctx context.Context, userID int64, kind schema.ReminderKind) error {
	return g.inner.Resolve(ctx, userID, kind)
}

func TestNotifierKindFailureIsolated(t *testing.T) {
	// 2025-03-10 周一：diary_missing 和 weekly_summary 都应触发；
	// 让 diary_missing 检查报错，weekly_summary 不能被连带压掉
	gate := &errFirstKindGate{
		inner:   newTestGate(&fakeDiaryRepo{}, newFakeQuestionRepo(), newFakeShownRepo(), testClock(2025, 3, 10)),
		errKind: schema.ReminderDiaryMissing,
	}

	n := NewNotifier(gate)
	n.SetUser(context.Background(), 1)

	prompts := n.Prompts()
	if len(prompts) != 1 {
		t.Fatalf("len=%d, want 1（仅 weekly_summary）: %+v", len(prompts), prompts)
	}
	if prompts[0].Kind != schema.ReminderWeeklySummary {
		t.Fatalf("kind=%s, want weekly_summary", prompts[0].Kind)
	}
}

func TestNotifierResolvePersistsAndStaysClosed(t *testing.T) {
	shown := newFakeShownRepo()
	gate := newTestGate(&fakeDiaryRepo{}, newFakeQuestionRepo(), shown, testClock(2025, 3, 10))

	n := NewNotifier(gate)
	ctx := context.Background()
	n.SetUser(ctx, 1)

	if len(n.Prompts()) == 0 {
		t.Fatalf("周一应至少有一条提醒")
	}

	if !n.Resolve(schema.ReminderDiaryMissing) {
		t.Fatalf("Resolve 应命中打开的提醒")
	}

	// 提醒状态同步关闭
	for _, p := range n.Prompts() {
		if p.Kind == schema.ReminderDiaryMissing {
			t.Fatalf("提醒应已关闭: %+v", p)
		}
	}

	// 标记异步持久化，轮询等待
	deadline := time.After(2 * time.Second)
	for {
		ok, _ := shown.WasShown(ctx, 1, schema.ReminderDiaryMissing, "2025-03-10")
		if ok {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("已展示标记未持久化")
		case <-time.After(10 * time.Millisecond):
		}
	}

	// 定时检查再次触发也不应重新打开
	n.CheckNow(ctx)
	for _, p := range n.Prompts() {
		if p.Kind == schema.ReminderDiaryMissing {
			t.Fatalf("当天已处理的提醒被重新打开: %+v", p)
		}
	}
}

func TestNotifierResolvePersistenceFailureDoesNotReopen(t *testing.T) {
	shown := newFakeShownRepo()
	shown.markErr = errors.New("写入失败")
	gate := newTestGate(&fakeDiaryRepo{}, newFakeQuestionRepo(), shown, testClock(2025, 3, 10))

	n := NewNotifier(gate)
	ctx := context.Background()
	n.SetUser(ctx, 1)

	if !n.Resolve(schema.ReminderDiaryMissing) {
		t.Fatalf("Resolve 应命中打开的提醒")
	}

	// 持久化失败只记日志，提醒保持关闭
	time.Sleep(50 * time.Millisecond)
	for _, p := range n.Prompts() {
		if p.Kind == schema.ReminderDiaryMissing {
			t.Fatalf("持久化失败不应重新打开提醒: %+v", p)
		}
	}
}

func TestNotifierLogoutClearsPrompts(t *testing.T) {
	gate := newTestGate(&fakeDiaryRepo{}, newFakeQuestionRepo(), newFakeShownRepo(), testClock(2025, 3, 10))

	n := NewNotifier(gate)
	ctx := context.Background()
	n.SetUser(ctx, 1)
	if len(n.Prompts()) == 0 {
		t.Fatalf("登录后应有提醒")
	}

	n.SetUser(ctx, 0)
	if len(n.Prompts()) != 0 {
		t.Fatalf("登出后提醒应立即清空: %+v", n.Prompts())
	}
}

func TestNotifierUserSwitchReplacesPrompts(t *testing.T) {
	shown := newFakeShownRepo()
	gate := newTestGate(&fakeDiaryRepo{}, newFakeQuestionRepo(), shown, testClock(2025, 3, 10))

	n := NewNotifier(gate)
	ctx := context.Background()
	n.SetUser(ctx, 1)
	n.SetUser(ctx, 2)

	if n.CurrentUser() != 2 {
		t.Fatalf("CurrentUser=%d, want 2", n.CurrentUser())
	}
	// 新用户同样满足前置条件，提醒针对新用户重新计算
	if len(n.Prompts()) == 0 {
		t.Fatalf("切换用户后应重新检查")
	}
}
