package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/yuqie6/LifeMirror/internal/period"
	"github.com/yuqie6/LifeMirror/internal/repository"
	"github.com/yuqie6/LifeMirror/internal/service"
)

// Config 调度配置
type Config struct {
	CheckIntervalMin int // 提醒检查间隔（分钟）
	RetentionDays    int // 提醒标记保留天数
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		CheckIntervalMin: 5,
		RetentionDays:    90,
	}
}

// Start 注册并启动定时任务：
// 固定间隔的提醒检查，以及每天凌晨的提醒标记清理。
func Start(notifier *service.Notifier, reminderRepo *repository.ReminderRepository, clock period.Clock, cfg *Config) (gocron.Scheduler, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if clock == nil {
		clock = period.SystemClock{}
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("创建调度器失败: %w", err)
	}

	interval := time.Duration(cfg.CheckIntervalMin) * time.Minute
	_, err = s.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			notifier.CheckNow(ctx)
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("注册提醒检查任务失败: %w", err)
	}

	_, err = s.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(3, 0, 0))),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()

			cutoff := period.Normalize(clock.Now()).
				AddDate(0, 0, -cfg.RetentionDays).
				Format(period.DateLayout)
			deleted, err := reminderRepo.DeleteBefore(ctx, cutoff)
			if err != nil {
				slog.Warn("清理提醒标记失败", "error", err)
				return
			}
			if deleted > 0 {
				slog.Info("清理过期提醒标记", "deleted", deleted, "cutoff", cutoff)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("注册清理任务失败: %w", err)
	}

	s.Start()
	slog.Info("调度器启动", "check_interval", interval, "retention_days", cfg.RetentionDays)
	return s, nil
}
