package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// JinaClient Jina 嵌入 API 客户端，RAG 记忆服务使用
type JinaClient struct {
	apiKey string
	model  string
	client *http.Client
}

// JinaConfig 配置
type JinaConfig struct {
	APIKey         string
	EmbeddingModel string
}

// NewJinaClient 创建客户端
func NewJinaClient(cfg *JinaConfig) *JinaClient {
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = "jina-embeddings-v3"
	}

	return &JinaClient{
		apiKey: cfg.APIKey,
		model:  cfg.EmbeddingModel,
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsConfigured 检查是否已配置
func (c *JinaClient) IsConfigured() bool {
	return c.apiKey != ""
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed 生成文本嵌入
func (c *JinaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	req := embedRequest{Model: c.model, Input: texts}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", "https://api.jina.ai/v1/embeddings", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应失败: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("Jina API 错误: %s", resp.Status)
	}

	var embedResp embedResponse
	if err := json.Unmarshal(respBody, &embedResp); err != nil {
		return nil, fmt.Errorf("解析响应失败: %w", err)
	}

	out := make([][]float32, 0, len(embedResp.Data))
	for _, d := range embedResp.Data {
		out = append(out, d.Embedding)
	}
	return out, nil
}
