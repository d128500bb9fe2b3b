package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Storage  StorageConfig  `mapstructure:"storage"`
	AI       AIConfig       `mapstructure:"ai"`
	Reminder ReminderConfig `mapstructure:"reminder"`
	RAG      RAGConfig      `mapstructure:"rag"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Server   ServerConfig   `mapstructure:"server"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name          string `mapstructure:"name"`
	Version       string `mapstructure:"version"`
	LogLevel      string `mapstructure:"log_level"`
	DefaultUserID int64  `mapstructure:"default_user_id"`
}

// StorageConfig 存储配置
type StorageConfig struct {
	DBPath string `mapstructure:"db_path"`
}

// AIConfig AI 配置
type AIConfig struct {
	DeepSeek DeepSeekConfig `mapstructure:"deepseek"`
	Jina     JinaConfig     `mapstructure:"jina"`
}

// DeepSeekConfig DeepSeek 配置
type DeepSeekConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// JinaConfig Jina 配置
type JinaConfig struct {
	APIKey         string `mapstructure:"api_key"`
	EmbeddingModel string `mapstructure:"embedding_model"`
}

// ReminderConfig 提醒配置
type ReminderConfig struct {
	CheckIntervalMin int `mapstructure:"check_interval_min"`
	RetentionDays    int `mapstructure:"retention_days"`
}

// RAGConfig 记忆库配置
type RAGConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	StoragePath string `mapstructure:"storage_path"`
}

// TelegramConfig Telegram 推送配置
type TelegramConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Token   string `mapstructure:"token"`
	ChatID  int64  `mapstructure:"chat_id"`
}

// ServerConfig 本地 API 服务配置
type ServerConfig struct {
	ListenAddr string `mapstructure:"listen_addr"`
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// 设置默认值
	setDefaults(v)

	// 设置配置文件路径
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// 默认查找路径
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// 支持环境变量
	v.SetEnvPrefix("LIFEMIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			slog.Warn("配置文件未找到，使用默认配置")
		} else {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	} else {
		slog.Info("加载配置文件", "path", v.ConfigFileUsed())
	}

	// 解析配置
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// 处理环境变量占位符
	cfg.AI.DeepSeek.APIKey = expandEnv(cfg.AI.DeepSeek.APIKey)
	cfg.AI.Jina.APIKey = expandEnv(cfg.AI.Jina.APIKey)
	cfg.Telegram.Token = expandEnv(cfg.Telegram.Token)

	// 处理相对路径
	cfg.Storage.DBPath = resolvePath(cfg.Storage.DBPath)
	cfg.RAG.StoragePath = resolvePath(cfg.RAG.StoragePath)

	return &cfg, nil
}

// Default 返回默认配置（首次启动写入配置文件用）
func Default() *Config {
	v := viper.New()
	setDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// setDefaults 设置默认值
func setDefaults(v *viper.Viper) {
	// App
	v.SetDefault("app.name", "life-agent")
	v.SetDefault("app.version", "0.1.0")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.default_user_id", 1)

	// Storage
	v.SetDefault("storage.db_path", "./data/lifemirror.db")

	// AI
	v.SetDefault("ai.deepseek.base_url", "https://api.deepseek.com")
	v.SetDefault("ai.deepseek.model", "deepseek-chat")
	v.SetDefault("ai.jina.embedding_model", "jina-embeddings-v3")

	// Reminder
	v.SetDefault("reminder.check_interval_min", 5)
	v.SetDefault("reminder.retention_days", 90)

	// RAG
	v.SetDefault("rag.enabled", false)
	v.SetDefault("rag.storage_path", "./data/rag")

	// Telegram
	v.SetDefault("telegram.enabled", false)

	// Server
	v.SetDefault("server.listen_addr", "127.0.0.1:8710")
}

// expandEnv 展开环境变量占位符 ${VAR}
func expandEnv(s string) string {
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		envVar := s[2 : len(s)-1]
		return os.Getenv(envVar)
	}
	return s
}

// resolvePath 解析相对路径为绝对路径
func resolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}

	// 获取可执行文件目录
	exe, err := os.Executable()
	if err != nil {
		return path
	}

	exeDir := filepath.Dir(exe)
	return filepath.Join(exeDir, path)
}

// SetupLogger 根据配置设置日志级别
func SetupLogger(level string) {
	var logLevel slog.Level
	switch strings.ToLower(level) {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}

	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})
	slog.SetDefault(slog.New(handler))
}
