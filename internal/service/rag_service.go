package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	chromem "github.com/philippgille/chromem-go"
	"github.com/yuqie6/LifeMirror/internal/ai"
	"github.com/yuqie6/LifeMirror/internal/schema"
)

// RAGService 长期记忆服务：把日记和阶段汇总写入向量库，
// 生成回顾时检索相关历史片段作为上下文。
type RAGService struct {
	db          *chromem.DB
	collection  *chromem.Collection
	jina        *ai.JinaClient
	storagePath string
}

// RAGConfig 配置
type RAGConfig struct {
	StoragePath string // 向量数据库存储路径
}

// NewRAGService 创建 RAG 服务
func NewRAGService(jina *ai.JinaClient, cfg *RAGConfig) (*RAGService, error) {
	if cfg == nil {
		cfg = &RAGConfig{}
	}

	if cfg.StoragePath == "" {
		cfg.StoragePath = "./data/rag"
	}

	// 确保目录存在
	if err := os.MkdirAll(cfg.StoragePath, 0755); err != nil {
		return nil, fmt.Errorf("创建 RAG 存储目录失败: %w", err)
	}

	db, err := chromem.NewPersistentDB(cfg.StoragePath, false)
	if err != nil {
		return nil, fmt.Errorf("创建向量数据库失败: %w", err)
	}

	collection, err := db.GetOrCreateCollection("memories", nil, nil)
	if err != nil {
		return nil, fmt.Errorf("创建 collection 失败: %w", err)
	}

	return &RAGService{
		db:          db,
		collection:  collection,
		jina:        jina,
		storagePath: cfg.StoragePath,
	}, nil
}

// IndexDiary 索引一篇日记
func (s *RAGService) IndexDiary(ctx context.Context, diary *schema.Diary) error {
	if !s.jina.IsConfigured() {
		slog.Debug("嵌入服务未配置，跳过索引")
		return nil
	}

	content := fmt.Sprintf("日期: %s\n心情: %s\n日记: %s", diary.Date, diary.Mood, diary.Content)

	embeddings, err := s.jina.Embed(ctx, []string{content})
	if err != nil {
		return fmt.Errorf("生成嵌入失败: %w", err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("嵌入结果为空")
	}

	doc := chromem.Document{
		ID:        fmt.Sprintf("diary_%d_%s", diary.UserID, diary.Date),
		Content:   content,
		Embedding: embeddings[0],
		Metadata: map[string]string{
			"type": "diary",
			"date": diary.Date,
		},
	}

	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("添加文档失败: %w", err)
	}

	slog.Debug("索引日记", "date", diary.Date)
	return nil
}

// IndexPeriodSummary 索引一条阶段汇总
func (s *RAGService) IndexPeriodSummary(ctx context.Context, summary *schema.PeriodSummary) error {
	if !s.jina.IsConfigured() {
		return nil
	}

	content := fmt.Sprintf("周期: %s 至 %s\n概述: %s\n分析: %s",
		summary.StartDate, summary.EndDate, summary.Overview, summary.Patterns)

	embeddings, err := s.jina.Embed(ctx, []string{content})
	if err != nil {
		return fmt.Errorf("生成嵌入失败: %w", err)
	}
	if len(embeddings) == 0 {
		return fmt.Errorf("嵌入结果为空")
	}

	doc := chromem.Document{
		ID:        fmt.Sprintf("summary_%d_%s_%s", summary.UserID, summary.Type, summary.StartDate),
		Content:   content,
		Embedding: embeddings[0],
		Metadata: map[string]string{
			"type": "period_summary",
			"date": summary.StartDate,
		},
	}

	if err := s.collection.AddDocument(ctx, doc); err != nil {
		return fmt.Errorf("添加文档失败: %w", err)
	}

	return nil
}

// Query 检索相关记忆片段
func (s *RAGService) Query(ctx context.Context, query string, topK int) ([]string, error) {
	if !s.jina.IsConfigured() {
		return nil, nil
	}
	if s.collection.Count() == 0 {
		return nil, nil
	}

	embeddings, err := s.jina.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("生成查询嵌入失败: %w", err)
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("查询嵌入结果为空")
	}

	if topK > s.collection.Count() {
		topK = s.collection.Count()
	}

	results, err := s.collection.QueryEmbedding(ctx, embeddings[0], topK, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}

	out := make([]string, 0, len(results))
	for _, r := range results {
		out = append(out, r.Content)
	}
	return out, nil
}
