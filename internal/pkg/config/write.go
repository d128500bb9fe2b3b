package config

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"
)

func DefaultConfigPath() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("获取可执行文件路径失败: %w", err)
	}
	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, "config", "config.yaml"), nil
}

// WriteFile 把配置写回 YAML 文件（首次启动生成默认配置用）
func WriteFile(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("cfg 不能为空")
	}
	if path == "" {
		return fmt.Errorf("path 不能为空")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	payload := map[string]any{
		"app": map[string]any{
			"name":            cfg.App.Name,
			"version":         cfg.App.Version,
			"log_level":       cfg.App.LogLevel,
			"default_user_id": cfg.App.DefaultUserID,
		},
		"storage": map[string]any{
			"db_path": cfg.Storage.DBPath,
		},
		"ai": map[string]any{
			"deepseek": map[string]any{
				"api_key":  cfg.AI.DeepSeek.APIKey,
				"base_url": cfg.AI.DeepSeek.BaseURL,
				"model":    cfg.AI.DeepSeek.Model,
			},
			"jina": map[string]any{
				"api_key":         cfg.AI.Jina.APIKey,
				"embedding_model": cfg.AI.Jina.EmbeddingModel,
			},
		},
		"reminder": map[string]any{
			"check_interval_min": cfg.Reminder.CheckIntervalMin,
			"retention_days":     cfg.Reminder.RetentionDays,
		},
		"rag": map[string]any{
			"enabled":      cfg.RAG.Enabled,
			"storage_path": cfg.RAG.StoragePath,
		},
		"telegram": map[string]any{
			"enabled": cfg.Telegram.Enabled,
			"token":   cfg.Telegram.Token,
			"chat_id": cfg.Telegram.ChatID,
		},
		"server": map[string]any{
			"listen_addr": cfg.Server.ListenAddr,
		},
	}

	data, err := yaml.Marshal(payload)
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("写入临时配置失败: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("替换配置文件失败: %w", err)
	}
	return nil
}
