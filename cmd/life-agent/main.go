package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/yuqie6/LifeMirror/internal/bootstrap"
	"github.com/yuqie6/LifeMirror/internal/httpapi"
	"github.com/yuqie6/LifeMirror/internal/pkg/config"
	"github.com/yuqie6/LifeMirror/internal/scheduler"
)

func main() {
	// .env 只在开发环境存在，缺失不算错误
	_ = godotenv.Load()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath, cfgErr := config.DefaultConfigPath()
	if cfgErr == nil {
		if _, err := os.Stat(cfgPath); errors.Is(err, os.ErrNotExist) {
			_ = config.WriteFile(cfgPath, config.Default())
		}
	} else {
		cfgPath = ""
	}

	core, err := bootstrap.NewCore(cfgPath)
	if err != nil {
		slog.Error("启动 Agent 失败", "error", err)
		os.Exit(1)
	}
	defer core.Close()

	slog.Info("LifeMirror Agent 启动中...", "name", core.Cfg.App.Name, "version", core.Cfg.App.Version)

	core.Services.Notifier.SetUser(ctx, core.Cfg.App.DefaultUserID)

	sched, err := scheduler.Start(core.Services.Notifier, core.Repos.Reminder, core.Clock, &scheduler.Config{
		CheckIntervalMin: core.Cfg.Reminder.CheckIntervalMin,
		RetentionDays:    core.Cfg.Reminder.RetentionDays,
	})
	if err != nil {
		slog.Error("启动调度器失败", "error", err)
		os.Exit(1)
	}

	apiServer, err := httpapi.Start(ctx, core, httpapi.Options{ListenAddr: core.Cfg.Server.ListenAddr})
	if err != nil {
		slog.Error("启动本地 API 失败", "error", err)
		os.Exit(1)
	}

	slog.Info("LifeMirror Agent 已启动", "base_url", apiServer.BaseURL())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	slog.Info("正在关闭...")
	cancel()

	if err := sched.Shutdown(); err != nil {
		slog.Warn("关闭调度器失败", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	_ = apiServer.Close(shutdownCtx)
	shutdownCancel()

	slog.Info("LifeMirror Agent 已退出")
}
