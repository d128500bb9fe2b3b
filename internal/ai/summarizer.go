package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Summarizer 阶段汇总生成器，基于 DeepSeek 聊天接口
type Summarizer struct {
	client *DeepSeekClient
}

// NewSummarizer 创建汇总生成器
func NewSummarizer(client *DeepSeekClient) *Summarizer {
	return &Summarizer{client: client}
}

// DiaryInfo 日记摘要输入
type DiaryInfo struct {
	Date    string
	Mood    string
	Content string
}

// TaskInfo 已完成待办输入
type TaskInfo struct {
	DoneDate string
	Title    string
}

// PeriodSummaryRequest 阶段汇总请求
type PeriodSummaryRequest struct {
	PeriodType string // week/month（为空按 week）
	StartDate  string
	EndDate    string
	Diaries    []DiaryInfo
	Tasks      []TaskInfo
	Memories   []string // 历史记忆片段（可选，来自 RAG 检索）
}

// PeriodSummaryResult 阶段汇总结果
type PeriodSummaryResult struct {
	Overview     string   `json:"overview"`     // 整体概述
	Achievements []string `json:"achievements"` // 主要收获
	Patterns     string   `json:"patterns"`     // 状态/模式分析
	Suggestions  string   `json:"suggestions"`  // 建议
}

// GeneratePeriodSummary 生成周/月汇总
func (s *Summarizer) GeneratePeriodSummary(ctx context.Context, req *PeriodSummaryRequest) (*PeriodSummaryResult, error) {
	var details strings.Builder
	for _, d := range req.Diaries {
		if d.Mood != "" {
			details.WriteString(fmt.Sprintf("【%s 日记·%s】%s\n", d.Date, d.Mood, d.Content))
		} else {
			details.WriteString(fmt.Sprintf("【%s 日记】%s\n", d.Date, d.Content))
		}
	}
	for _, t := range req.Tasks {
		details.WriteString(fmt.Sprintf("【%s 完成】%s\n", t.DoneDate, t.Title))
	}

	periodType := strings.ToLower(strings.TrimSpace(req.PeriodType))
	periodLabel := "本周"
	nextLabel := "下周"
	periodScope := "一周"
	if periodType == "month" {
		periodLabel = "本月"
		nextLabel = "下月"
		periodScope = "一个月"
	}

	var memoryBlock string
	if len(req.Memories) > 0 {
		memoryBlock = "历史记忆（供对照，不要复述）:\n" + strings.Join(req.Memories, "\n") + "\n\n"
	}

	prompt := fmt.Sprintf(`请分析以下%s的生活记录，生成阶段回顾：

时间范围: %s 至 %s

%s记录:
%s

	请用 JSON 格式返回（不要 markdown 代码块）:
	{
	  "overview": "%s整体概述（根据记录量自适应：记录少 3-5 句；记录多 6-12 句。尽量引用具体的日期和事件。）",
	  "achievements": ["主要收获（按重要性给 3-8 条，每条尽量具体）"],
	  "patterns": "状态分析（写成一段有观点的分析：情绪起伏、作息节奏、反复出现的主题）",
	  "suggestions": "%s建议（给 3-7 条可执行建议；如果记录偏少，也要说明并给出补记录的建议）"
	}
	注意：如果这是月回顾，请不要使用“本周/下周”的措辞。`,
		periodScope, req.StartDate, req.EndDate, memoryBlock, details.String(), periodLabel, nextLabel)

	messages := []Message{
		{Role: "system", Content: fmt.Sprintf("你是一个个人生活回顾助手，帮助用户回顾%s的生活与心情，提供有温度、有深度的反馈。回复必须是纯 JSON。", periodScope)},
		{Role: "user", Content: prompt},
	}

	response, err := s.client.ChatWithOptions(ctx, messages, reviewTemperature, reviewMaxTokens)
	if err != nil {
		return nil, fmt.Errorf("生成阶段回顾失败: %w", err)
	}

	response = cleanJSONResponse(response)

	var result PeriodSummaryResult
	if err := json.Unmarshal([]byte(response), &result); err != nil {
		return nil, fmt.Errorf("解析阶段回顾失败: %w", err)
	}

	return &result, nil
}

// cleanJSONResponse 清理 JSON 响应（移除 markdown 代码块和额外文本）
func cleanJSONResponse(response string) string {
	response = strings.TrimSpace(response)

	// 移除 ```json ... ``` 或 ``` ... ```
	if strings.Contains(response, "```") {
		jsonStart := strings.Index(response, "```json")
		if jsonStart == -1 {
			jsonStart = strings.Index(response, "```")
		}
		if jsonStart != -1 {
			// 跳过 ```json\n 或 ```\n
			startIdx := strings.Index(response[jsonStart:], "\n")
			if startIdx != -1 {
				response = response[jsonStart+startIdx+1:]
			}
		}
		if endIdx := strings.LastIndex(response, "```"); endIdx != -1 {
			response = response[:endIdx]
		}
	}

	response = strings.TrimSpace(response)

	// 尝试提取 JSON 对象（处理 AI 添加的前缀/后缀文字）
	if !strings.HasPrefix(response, "{") {
		if idx := strings.Index(response, "{"); idx != -1 {
			response = response[idx:]
		}
	}
	if !strings.HasSuffix(response, "}") {
		if idx := strings.LastIndex(response, "}"); idx != -1 {
			response = response[:idx+1]
		}
	}

	return strings.TrimSpace(response)
}
