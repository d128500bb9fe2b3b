package service

import "errors"

// 汇总生成与提醒链路的错误分类。
// 生成类错误会透传到用户操作；提醒检查错误在类别级别被吞掉。
var (
	// ErrWindowNotElapsed 周期尚未完整结束，生成请求在任何外部调用之前被拒绝
	ErrWindowNotElapsed = errors.New("周期尚未结束")

	// ErrEmptyWindow 周期内没有任何源记录
	ErrEmptyWindow = errors.New("周期内没有可回顾的记录")

	// ErrExternalCall AI 调用失败，未持久化任何内容
	ErrExternalCall = errors.New("AI 调用失败")

	// ErrPersistence AI 调用成功后写库失败，重试安全（upsert 幂等）
	ErrPersistence = errors.New("写入存储失败")

	// ErrGenerating 同一窗口已有生成请求在进行中
	ErrGenerating = errors.New("该周期正在生成中")
)
