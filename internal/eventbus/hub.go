package eventbus

import (
	"context"
	"sync"
	"time"
)

// 事件类型
const (
	EventReminderOpened   = "reminder.opened"
	EventReminderResolved = "reminder.resolved"
	EventSummaryGenerated = "summary.generated"
)

type Event struct {
	Type      string         `json:"type"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data,omitempty"`
}

// ReminderEvent 构造提醒事件
func ReminderEvent(eventType string, kind string, date string) Event {
	return Event{
		Type: eventType,
		Data: map[string]any{"kind": kind, "date": date},
	}
}

// SummaryEvent 构造汇总完成事件
func SummaryEvent(periodType, startDate, endDate string) Event {
	return Event{
		Type: EventSummaryGenerated,
		Data: map[string]any{"period_type": periodType, "start_date": startDate, "end_date": endDate},
	}
}

type Hub struct {
	mu   sync.RWMutex
	subs map[chan Event]struct{}
}

func NewHub() *Hub {
	return &Hub{subs: make(map[chan Event]struct{})}
}

func (h *Hub) Publish(evt Event) {
	if h == nil {
		return
	}
	if evt.Timestamp == 0 {
		evt.Timestamp = time.Now().UnixMilli()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for ch := range h.subs {
		select {
		case ch <- evt:
		default:
			// 慢消费者直接丢弃，避免阻塞提醒链路
		}
	}
}

func (h *Hub) Subscribe(ctx context.Context, buffer int) <-chan Event {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Event, buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		delete(h.subs, ch)
		h.mu.Unlock()
		close(ch)
	}()

	return ch
}
