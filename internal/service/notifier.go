package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/yuqie6/LifeMirror/internal/eventbus"
	"github.com/yuqie6/LifeMirror/internal/schema"
)

// ReminderGate 提醒门控接口
type ReminderGate interface {
	Check(ctx context.Context, userID int64, kind schema.ReminderKind) (*ReminderPrompt, error)
	Resolve(ctx context.Context, userID int64, kind schema.ReminderKind) error
}

// Notifier 提醒编排器：持有当前会话的提醒状态，
// 定时与用户切换时重新检查，暴露 Resolve 关闭提醒。
type Notifier struct {
	gate   ReminderGate
	hub    *eventbus.Hub // 可选
	pusher Pusher        // 可选

	mu      sync.RWMutex
	userID  int64
	prompts map[schema.ReminderKind]*ReminderPrompt
}

// NewNotifier 创建编排器
func NewNotifier(gate ReminderGate) *Notifier {
	return &Notifier{
		gate:    gate,
		prompts: make(map[schema.ReminderKind]*ReminderPrompt),
	}
}

// SetHub 设置事件总线（可选）
func (n *Notifier) SetHub(hub *eventbus.Hub) {
	n.hub = hub
}

// SetPusher 设置外推通道（可选）
func (n *Notifier) SetPusher(pusher Pusher) {
	n.pusher = pusher
}

// SetUser 切换当前用户。切到新用户立即重新检查；
// 切到 0（登出）立即清空全部提醒状态。
func (n *Notifier) SetUser(ctx context.Context, userID int64) {
	n.mu.Lock()
	if n.userID == userID {
		n.mu.Unlock()
		return
	}
	n.userID = userID
	n.prompts = make(map[schema.ReminderKind]*ReminderPrompt)
	n.mu.Unlock()

	if userID != 0 {
		n.CheckNow(ctx)
	}
}

// CurrentUser 返回当前用户
func (n *Notifier) CurrentUser() int64 {
	n.mu.RLock()
	defer n.mu.RUnlock()
	return n.userID
}

// CheckNow 并发执行四个类别的门控检查。
// 单个类别的错误只记日志并降级为“无提醒”，不影响其他类别；
// 检查期间用户已切换时丢弃过期结果。
func (n *Notifier) CheckNow(ctx context.Context) {
	n.mu.RLock()
	userID := n.userID
	n.mu.RUnlock()
	if userID == 0 {
		return
	}

	kinds := schema.AllReminderKinds()
	results := make([]*ReminderPrompt, len(kinds))

	var wg sync.WaitGroup
	for i, kind := range kinds {
		wg.Add(1)
		go func(i int, kind schema.ReminderKind) {
			defer wg.Done()
			prompt, err := n.gate.Check(ctx, userID, kind)
			if err != nil {
				slog.Warn("提醒检查失败", "kind", kind, "error", err)
				return
			}
			results[i] = prompt
		}(i, kind)
	}
	wg.Wait()

	n.mu.Lock()
	defer n.mu.Unlock()
	if n.userID != userID {
		// 检查期间用户已切换，结果作废
		return
	}

	var opened []*ReminderPrompt
	for i, kind := range kinds {
		prompt := results[i]
		if prompt == nil {
			// 条件不再成立（或该类别检查失败）按“无提醒”处理
			delete(n.prompts, kind)
			continue
		}
		if _, already := n.prompts[kind]; !already {
			opened = append(opened, prompt)
		}
		n.prompts[kind] = prompt
	}

	for _, prompt := range opened {
		n.announce(prompt)
	}
}

// Prompts 返回当前打开的提醒快照（按固定类别顺序）
func (n *Notifier) Prompts() []ReminderPrompt {
	n.mu.RLock()
	defer n.mu.RUnlock()

	out := make([]ReminderPrompt, 0, len(n.prompts))
	for _, kind := range schema.AllReminderKinds() {
		if p, ok := n.prompts[kind]; ok {
			out = append(out, *p)
		}
	}
	return out
}

// Resolve 关闭指定类别的提醒。提醒状态同步关闭；
// 已展示标记异步持久化，失败只记日志、不重开提醒
// （宁可漏标一次，也不反复打扰用户）。
func (n *Notifier) Resolve(kind schema.ReminderKind) bool {
	n.mu.Lock()
	prompt, ok := n.prompts[kind]
	if !ok {
		n.mu.Unlock()
		return false
	}
	delete(n.prompts, kind)
	userID := n.userID
	n.mu.Unlock()

	if n.hub != nil {
		n.hub.Publish(eventbus.ReminderEvent(eventbus.EventReminderResolved, string(kind), prompt.Date))
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := n.gate.Resolve(ctx, userID, kind); err != nil {
			slog.Warn("持久化提醒标记失败", "kind", kind, "error", err)
		}
	}()

	return true
}

func (n *Notifier) announce(prompt *ReminderPrompt) {
	if n.hub != nil {
		n.hub.Publish(eventbus.ReminderEvent(eventbus.EventReminderOpened, string(prompt.Kind), prompt.Date))
	}
	if n.pusher != nil {
		if err := n.pusher.Push(promptText(prompt)); err != nil {
			slog.Warn("推送提醒失败", "kind", prompt.Kind, "error", err)
		}
	}
}

func promptText(p *ReminderPrompt) string {
	switch p.Kind {
	case schema.ReminderDiaryMissing:
		return fmt.Sprintf("昨天（%s）还没写日记，补一篇吧", p.MissedDate)
	case schema.ReminderWeeklySummary:
		if p.Window != nil {
			return fmt.Sprintf("上周（%s 至 %s）的回顾可以生成了", p.Window.StartDate(), p.Window.EndDate())
		}
		return "上周的回顾可以生成了"
	case schema.ReminderMonthlySummary:
		if p.Window != nil {
			return fmt.Sprintf("上个月（%s 至 %s）的回顾可以生成了", p.Window.StartDate(), p.Window.EndDate())
		}
		return "上个月的回顾可以生成了"
	case schema.ReminderDailyQuestion:
		if p.Question != nil {
			return "今日反思：" + p.Question.Text
		}
		return "今天的反思问题还没回答"
	default:
		return string(p.Kind)
	}
}
