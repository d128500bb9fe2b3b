package bootstrap

import (
	"log/slog"

	"github.com/yuqie6/LifeMirror/internal/ai"
	"github.com/yuqie6/LifeMirror/internal/eventbus"
	"github.com/yuqie6/LifeMirror/internal/notify"
	"github.com/yuqie6/LifeMirror/internal/period"
	"github.com/yuqie6/LifeMirror/internal/pkg/config"
	"github.com/yuqie6/LifeMirror/internal/repository"
	"github.com/yuqie6/LifeMirror/internal/service"
)

// Core 持有跨二进制共享的核心依赖
type Core struct {
	Cfg   *config.Config
	DB    *repository.Database
	Hub   *eventbus.Hub
	Clock period.Clock

	Repos struct {
		Diary         *repository.DiaryRepository
		Task          *repository.TaskRepository
		Question      *repository.QuestionRepository
		PeriodSummary *repository.PeriodSummaryRepository
		Reminder      *repository.ReminderRepository
	}

	Services struct {
		Report    *service.ReportService
		Reminders *service.ReminderService
		Notifier  *service.Notifier
		RAG       *service.RAGService
	}

	Clients struct {
		DeepSeek *ai.DeepSeekClient
		Jina     *ai.JinaClient
	}
}

// NewCore 构建核心依赖（不启动调度）
func NewCore(cfgPath string) (*Core, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, err
	}
	config.SetupLogger(cfg.App.LogLevel)

	db, err := repository.NewDatabase(cfg.Storage.DBPath)
	if err != nil {
		return nil, err
	}

	c := &Core{Cfg: cfg, DB: db, Hub: eventbus.NewHub(), Clock: period.SystemClock{}}

	// Repos
	c.Repos.Diary = repository.NewDiaryRepository(db.DB)
	c.Repos.Task = repository.NewTaskRepository(db.DB)
	c.Repos.Question = repository.NewQuestionRepository(db.DB)
	c.Repos.PeriodSummary = repository.NewPeriodSummaryRepository(db.DB)
	c.Repos.Reminder = repository.NewReminderRepository(db.DB)

	// Clients
	c.Clients.DeepSeek = ai.NewDeepSeekClient(&ai.DeepSeekConfig{
		APIKey:  cfg.AI.DeepSeek.APIKey,
		BaseURL: cfg.AI.DeepSeek.BaseURL,
		Model:   cfg.AI.DeepSeek.Model,
	})
	c.Clients.Jina = ai.NewJinaClient(&ai.JinaConfig{
		APIKey:         cfg.AI.Jina.APIKey,
		EmbeddingModel: cfg.AI.Jina.EmbeddingModel,
	})

	// Services
	summarizer := ai.NewSummarizer(c.Clients.DeepSeek)
	c.Services.Report = service.NewReportService(
		c.Repos.Diary, c.Repos.Task, c.Repos.PeriodSummary, summarizer, c.Clock,
	)
	c.Services.Report.SetHub(c.Hub)

	if cfg.RAG.Enabled {
		rag, err := service.NewRAGService(c.Clients.Jina, &service.RAGConfig{
			StoragePath: cfg.RAG.StoragePath,
		})
		if err != nil {
			slog.Warn("初始化记忆库失败，按未启用继续", "error", err)
		} else {
			c.Services.RAG = rag
			c.Services.Report.SetMemory(rag)
		}
	}

	c.Services.Reminders = service.NewReminderService(
		c.Repos.Diary, c.Repos.Question, c.Repos.Reminder, c.Clock,
	)
	c.Services.Notifier = service.NewNotifier(c.Services.Reminders)
	c.Services.Notifier.SetHub(c.Hub)

	if cfg.Telegram.Enabled && cfg.Telegram.Token != "" {
		pusher, err := notify.NewTelegramPusher(cfg.Telegram.Token, cfg.Telegram.ChatID)
		if err != nil {
			slog.Warn("初始化 Telegram 推送失败，按未启用继续", "error", err)
		} else {
			c.Services.Notifier.SetPusher(pusher)
		}
	}

	return c, nil
}

// Close 释放核心依赖
func (c *Core) Close() {
	if c.DB != nil {
		_ = c.DB.Close()
	}
}
